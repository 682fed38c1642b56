package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAIClient wraps the hosted speech-to-text and language-detection
// calls the pipeline needs.
type OpenAIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewOpenAIClient creates a client for the OpenAI REST API.
func NewOpenAIClient(client *http.Client, apiKey string) *OpenAIClient {
	return &OpenAIClient{client: client, baseURL: defaultOpenAIURL, apiKey: apiKey}
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe sends audio bytes to Whisper and returns the transcript
// text plus the language Whisper reports.
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte) (string, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.mp3")
	if err != nil {
		return "", "", err
	}
	if _, err := part.Write(audio); err != nil {
		return "", "", err
	}
	writer.WriteField("model", "whisper-1")
	writer.WriteField("response_format", "verbose_json")
	if err := writer.Close(); err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("whisper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", "", fmt.Errorf("whisper status %d: %s", resp.StatusCode, detail)
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", "", fmt.Errorf("parse whisper response: %w", err)
	}

	log.Printf("[AI] Transcribed %d bytes of audio (%d chars, language %q)", len(audio), len(result.Text), result.Language)
	return strings.TrimSpace(result.Text), result.Language, nil
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// DetectLanguage asks a chat model for the ISO 639-1 code of the text.
// Only the first 500 characters are sent.
func (c *OpenAIClient) DetectLanguage(ctx context.Context, text string) (string, error) {
	sample := text
	if len(sample) > 500 {
		sample = sample[:500]
	}

	payload, err := json.Marshal(map[string]any{
		"model": "gpt-4o",
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": fmt.Sprintf("Detect the language of this text and respond with ONLY the 2-letter ISO 639-1 code (e.g., 'en', 'es', 'fr'). Text: %q", sample),
			},
		},
		"max_tokens":  10,
		"temperature": 0,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("language detection request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("language detection status %d: %s", resp.StatusCode, detail)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("parse chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty chat response")
	}

	code := strings.ToLower(strings.TrimSpace(result.Choices[0].Message.Content))
	if code == "" {
		return "", fmt.Errorf("model returned no language code")
	}
	return code, nil
}
