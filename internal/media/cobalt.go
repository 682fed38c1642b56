package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/vubly/vubly/internal/youtube"
)

// Cobalt downloads through the cobalt.tools conversion API: one POST
// returning a direct file URL, then a plain GET for the bytes.
type Cobalt struct {
	client  *http.Client
	baseURL string
}

// NewCobalt creates the cobalt provider.
func NewCobalt(client *http.Client, baseURL string) *Cobalt {
	return &Cobalt{client: client, baseURL: baseURL}
}

func (c *Cobalt) Name() string { return "cobalt" }

type cobaltResponse struct {
	Status string `json:"status"`
	URL    string `json:"url"`
	Text   string `json:"text"`
	Error  struct {
		Code string `json:"code"`
	} `json:"error"`
}

// Download requests a conversion and fetches the resulting file.
func (c *Cobalt) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	downloadMode := "auto"
	if kind == KindAudio {
		downloadMode = "audio"
	}

	payload, err := json.Marshal(map[string]string{
		"url":           youtube.WatchURL(videoID),
		"videoQuality":  "720",
		"audioFormat":   "mp3",
		"filenameStyle": "basic",
		"downloadMode":  downloadMode,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("cobalt status %d: %s", resp.StatusCode, body)
	}

	var result cobaltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse cobalt response: %w", err)
	}

	if result.Status == "error" || result.Status == "rate-limit" {
		if result.Error.Code != "" {
			return nil, fmt.Errorf("cobalt error: %s", result.Error.Code)
		}
		return nil, fmt.Errorf("cobalt error: %s", result.Text)
	}
	if result.URL == "" {
		return nil, fmt.Errorf("cobalt returned no download URL (status %q)", result.Status)
	}

	log.Printf("[Cobalt] Downloading file for %s...", videoID)
	return fetchBytes(ctx, c.client, result.URL, "")
}

// fetchBytes GETs a URL and returns the body, optionally with a
// browser-like user agent.
func fetchBytes(ctx context.Context, client *http.Client, url, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file download status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
