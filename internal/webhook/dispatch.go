package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Payload is the job description sent to the automation platform. The
// downstream scenario feeds language fields to an LLM prompt, so they
// go out as full English names, not codes.
type Payload struct {
	SessionID        string `json:"sessionId"`
	Transcript       string `json:"transcript"`
	DetectedLanguage string `json:"detectedLanguage"`
	TargetLanguage   string `json:"targetLanguage"`
	VoiceID          string `json:"voiceId"`
	CallbackURL      string `json:"callbackUrl"`
}

// Dispatcher POSTs translation jobs to the configured make.com webhook.
// Any successful HTTP exchange counts as accepted; results arrive later
// on the callback URL.
type Dispatcher struct {
	client     *http.Client
	webhookURL string
}

// NewDispatcher creates a dispatcher for the given webhook endpoint.
func NewDispatcher(client *http.Client, webhookURL string) *Dispatcher {
	return &Dispatcher{client: client, webhookURL: webhookURL}
}

// Dispatch sanitizes and sends the payload. The webhook's response body
// is ignored beyond logging.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) error {
	if d.webhookURL == "" {
		return fmt.Errorf("webhook URL not configured")
	}

	payload.Transcript = SanitizeTranscript(payload.Transcript)
	payload.DetectedLanguage = LanguageName(payload.DetectedLanguage)
	payload.TargetLanguage = LanguageName(payload.TargetLanguage)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	log.Printf("[Webhook] Dispatching session %s (target %s, voice %s)",
		payload.SessionID, payload.TargetLanguage, payload.VoiceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger webhook: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	log.Printf("[Webhook] Response: %s", strings.TrimSpace(string(text)))
	return nil
}

var controlCharsRe = regexp.MustCompile(`[\x00-\x1F\x7F-\x9F]`)
var whitespaceRe = regexp.MustCompile(`\s+`)

// SanitizeTranscript strips control characters and collapses line
// breaks and whitespace runs. The downstream system chokes on raw
// newlines inside JSON string fields.
func SanitizeTranscript(text string) string {
	text = controlCharsRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// LanguageName expands an ISO 639-1 code to its English name. Codes
// that do not parse pass through verbatim.
func LanguageName(code string) string {
	tag, err := language.Parse(strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" {
		return code
	}
	return name
}
