package media

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// RapidAPI converts through a hosted YouTube-to-mp3 service with a
// submit-then-poll protocol. Audio only.
type RapidAPI struct {
	client      *http.Client
	host        string
	apiKey      string
	maxAttempts int
	pollDelay   time.Duration
}

// NewRapidAPI creates the RapidAPI provider.
func NewRapidAPI(client *http.Client, host, apiKey string, maxAttempts int, pollDelay time.Duration) *RapidAPI {
	return &RapidAPI{
		client:      client,
		host:        host,
		apiKey:      apiKey,
		maxAttempts: maxAttempts,
		pollDelay:   pollDelay,
	}
}

func (r *RapidAPI) Name() string { return "rapidapi" }

type rapidAPIResponse struct {
	Link   string `json:"link"`
	Title  string `json:"title"`
	Msg    string `json:"msg"`
	Status string `json:"status"` // ok | processing | fail
}

// Download polls the conversion endpoint until it yields a link, a fail
// status, or the attempt budget runs out.
func (r *RapidAPI) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	if kind != KindAudio {
		return nil, fmt.Errorf("rapidapi provider is audio-only")
	}
	if r.apiKey == "" {
		return nil, fmt.Errorf("rapidapi key not configured")
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err := r.poll(ctx, videoID)
		if err != nil {
			return nil, err
		}

		switch result.Status {
		case "ok":
			if result.Link == "" {
				return nil, fmt.Errorf("rapidapi returned ok without a link")
			}
			log.Printf("[RapidAPI] Got MP3 link, downloading...")
			return fetchBytes(ctx, r.client, result.Link, "")
		case "fail":
			return nil, fmt.Errorf("rapidapi conversion failed: %s", result.Msg)
		}

		log.Printf("[RapidAPI] Processing... attempt %d/%d", attempt, r.maxAttempts)
		select {
		case <-time.After(r.pollDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("rapidapi conversion timed out after %d attempts", r.maxAttempts)
}

func (r *RapidAPI) poll(ctx context.Context, videoID string) (*rapidAPIResponse, error) {
	url := fmt.Sprintf("https://%s/dl?id=%s", r.host, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-key", r.apiKey)
	req.Header.Set("x-rapidapi-host", r.host)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rapidapi status %d", resp.StatusCode)
	}

	var result rapidAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parse rapidapi response: %w", err)
	}
	return &result, nil
}
