package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"encoding/json"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/vubly/vubly/internal/youtube"
)

// BrowserSource renders the watch page in headless Chrome and hands the
// resulting HTML to the same caption-track parser the plain scrape uses.
// Slower than a direct fetch, but survives consent walls and bot checks
// that block plain requests. Disabled unless explicitly configured.
type BrowserSource struct {
	client *http.Client
}

// NewBrowserSource creates the headless-browser snapshot source.
func NewBrowserSource(client *http.Client) *BrowserSource {
	return &BrowserSource{client: client}
}

func (s *BrowserSource) Name() string { return "browser-snapshot" }

// Fetch navigates to the watch page, waits for the player to settle and
// extracts caption tracks from the rendered document.
func (s *BrowserSource) Fetch(ctx context.Context, videoID string) (string, error) {
	browserCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, 45*time.Second)
	defer cancel()

	var tracksJSON, html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(youtube.WatchURL(videoID)),
		chromedp.WaitReady("body"),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(
			`JSON.stringify(window.ytInitialPlayerResponse?.captions?.playerCaptionsTracklistRenderer?.captionTracks || [])`,
			&tracksJSON,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			},
		),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}

	var tracks []captionTrack
	if err := json.Unmarshal([]byte(tracksJSON), &tracks); err != nil || len(tracks) == 0 {
		// Player state not populated yet; fall back to the raw document.
		tracks, err = parseCaptionTracks(html)
		if err != nil {
			return "", err
		}
	}

	trackURL := pickCaptionTrack(tracks)
	if trackURL == "" {
		return "", fmt.Errorf("no suitable caption track")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch timed text: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := ParseTimedText(string(body))
	if text == "" {
		return "", fmt.Errorf("timed text document empty")
	}
	return text, nil
}
