package transcript

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimedTextURL = "https://www.youtube.com/api/timedtext"

// TimedTextSource fetches captions from the hosted timed-text endpoint,
// retrying across an ordered list of language-code hints. Empty hint
// means "whatever the server picks".
type TimedTextSource struct {
	client      *http.Client
	endpointURL string
	langHints   []string
	retryDelay  time.Duration
}

// NewTimedTextSource creates the language-hint retry source.
func NewTimedTextSource(client *http.Client, retryDelay time.Duration) *TimedTextSource {
	return &TimedTextSource{
		client:      client,
		endpointURL: defaultTimedTextURL,
		langHints:   []string{"", "en", "en-US", "en-GB"},
		retryDelay:  retryDelay,
	}
}

func (s *TimedTextSource) Name() string { return "timed-text" }

// Fetch tries each language hint in order, then sleeps and makes one
// final unconditional attempt before giving up.
func (s *TimedTextSource) Fetch(ctx context.Context, videoID string) (string, error) {
	for _, lang := range s.langHints {
		text, err := s.fetchLang(ctx, videoID, lang)
		if err != nil {
			label := lang
			if label == "" {
				label = "auto"
			}
			log.Printf("[TimedText] Attempt with %s failed: %v", label, err)
			continue
		}
		if text != "" {
			return text, nil
		}
	}

	log.Printf("[TimedText] All language hints failed, retrying once after delay...")
	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	text, err := s.fetchLang(ctx, videoID, "")
	if err != nil {
		return "", fmt.Errorf("final attempt: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("no captions returned")
	}
	return text, nil
}

func (s *TimedTextSource) fetchLang(ctx context.Context, videoID, lang string) (string, error) {
	query := url.Values{"v": {videoID}}
	if lang != "" {
		query.Set("lang", lang)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpointURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(ParseTimedText(string(body))), nil
}
