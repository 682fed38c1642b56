package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultInnertubeURL = "https://www.youtube.com/youtubei/v1/player"

// InnertubeSource fetches captions through the internal player API,
// authenticating as an Android client. The endpoint returns structured
// caption track descriptors without the bot walls the HTML page has.
type InnertubeSource struct {
	client      *http.Client
	endpointURL string
}

// NewInnertubeSource creates the innertube player API source.
func NewInnertubeSource(client *http.Client) *InnertubeSource {
	return &InnertubeSource{client: client, endpointURL: defaultInnertubeURL}
}

func (s *InnertubeSource) Name() string { return "innertube" }

// Fetch asks the player endpoint for the video and follows its caption
// track URL. The response schema is not fixed, so segment text is read
// from several possible field names.
func (s *InnertubeSource) Fetch(ctx context.Context, videoID string) (string, error) {
	payload := map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":        "ANDROID",
				"clientVersion":     "19.09.37",
				"androidSdkVersion": 30,
				"hl":                "en",
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpointURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("player endpoint status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var player struct {
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []captionTrack `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.Unmarshal(raw, &player); err != nil {
		return "", fmt.Errorf("parse player response: %w", err)
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return "", fmt.Errorf("no caption tracks in player response")
	}

	trackURL := pickCaptionTrack(tracks)
	if trackURL == "" {
		return "", fmt.Errorf("no suitable caption track")
	}

	return s.fetchSegments(ctx, trackURL)
}

// fetchSegments pulls the timed-text document as JSON when possible,
// falling back to the XML format.
func (s *InnertubeSource) fetchSegments(ctx context.Context, trackURL string) (string, error) {
	jsonURL := trackURL
	if !strings.Contains(jsonURL, "fmt=") {
		jsonURL += "&fmt=json3"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jsonURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if text := parseSegmentJSON(raw); text != "" {
		return text, nil
	}
	if text := ParseTimedText(string(raw)); text != "" {
		return text, nil
	}
	return "", fmt.Errorf("timed text document empty")
}

// parseSegmentJSON extracts text from a json3 timed-text document. The
// segment field name varies between schema revisions, so utf8, text and
// snippet.text are all accepted.
func parseSegmentJSON(raw []byte) string {
	var doc struct {
		Events []struct {
			Segs []struct {
				UTF8 string `json:"utf8"`
				Text string `json:"text"`
			} `json:"segs"`
			Snippet struct {
				Text string `json:"text"`
			} `json:"snippet"`
		} `json:"events"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ""
	}

	var parts []string
	for _, event := range doc.Events {
		for _, seg := range event.Segs {
			switch {
			case seg.UTF8 != "":
				parts = append(parts, seg.UTF8)
			case seg.Text != "":
				parts = append(parts, seg.Text)
			}
		}
		if event.Snippet.Text != "" {
			parts = append(parts, event.Snippet.Text)
		}
	}

	joined := strings.Join(parts, " ")
	joined = strings.ReplaceAll(joined, "\n", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(joined, " "))
}
