package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/vubly/vubly/internal/youtube"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// PageSource extracts captions by fetching the public watch page and
// parsing the caption track descriptors embedded in the player response.
type PageSource struct {
	client *http.Client
}

// NewPageSource creates the direct page-scrape source.
func NewPageSource(client *http.Client) *PageSource {
	return &PageSource{client: client}
}

func (s *PageSource) Name() string { return "page-scrape" }

// Fetch downloads the watch page, picks the best caption track and
// fetches its timed-text document.
func (s *PageSource) Fetch(ctx context.Context, videoID string) (string, error) {
	html, err := s.fetchPage(ctx, youtube.WatchURL(videoID))
	if err != nil {
		return "", err
	}

	tracks, err := parseCaptionTracks(html)
	if err != nil {
		return "", err
	}

	trackURL := pickCaptionTrack(tracks)
	if trackURL == "" {
		return "", fmt.Errorf("no suitable caption track")
	}

	xml, err := s.fetchPage(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("fetch timed text: %w", err)
	}

	text := ParseTimedText(xml)
	if text == "" {
		return "", fmt.Errorf("timed text document empty")
	}
	return text, nil
}

func (s *PageSource) fetchPage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// captionTrack mirrors the descriptor shape inside ytInitialPlayerResponse.
type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

var (
	captionTracksRe = regexp.MustCompile(`(?s)"captionTracks":\s*(\[.*?\])`)
	baseURLRe       = regexp.MustCompile(`"baseUrl"\s*:\s*"(https://www\.youtube\.com/api/timedtext[^"]+)"`)
)

// parseCaptionTracks pulls the captionTracks array out of the page HTML,
// falling back to plain baseUrl regex extraction when the embedded JSON
// does not parse cleanly.
func parseCaptionTracks(html string) ([]captionTrack, error) {
	if m := captionTracksRe.FindStringSubmatch(html); m != nil {
		var tracks []captionTrack
		if err := json.Unmarshal([]byte(m[1]), &tracks); err == nil && len(tracks) > 0 {
			return tracks, nil
		}
	}

	// Regex fallback: harvest bare timed-text URLs.
	var tracks []captionTrack
	for _, m := range baseURLRe.FindAllStringSubmatch(html, -1) {
		tracks = append(tracks, captionTrack{BaseURL: m[1]})
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no caption tracks in page")
	}
	return tracks, nil
}

// pickCaptionTrack prefers a manual English track, then any English
// track, then the first available one.
func pickCaptionTrack(tracks []captionTrack) string {
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") && t.Kind != "asr" {
			return unescapeTrackURL(t.BaseURL)
		}
	}
	for _, t := range tracks {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return unescapeTrackURL(t.BaseURL)
		}
	}
	if len(tracks) > 0 {
		return unescapeTrackURL(tracks[0].BaseURL)
	}
	return ""
}

// unescapeTrackURL undoes the \u0026 escaping the player response
// applies to query separators.
func unescapeTrackURL(u string) string {
	return strings.ReplaceAll(u, `\u0026`, "&")
}

var (
	textTagRe    = regexp.MustCompile(`<text[^>]*>([^<]*)</text>`)
	segmentTagRe = regexp.MustCompile(`<s[^>]*>([^<]*)</s>`)
	decimalRefRe = regexp.MustCompile(`&#(\d+);`)
	hexRefRe     = regexp.MustCompile(`&#x([a-fA-F0-9]+);`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// ParseTimedText extracts plain text from a timed-text XML document,
// handling both the <text> and <s> segment formats.
func ParseTimedText(xml string) string {
	var segments []string
	for _, m := range textTagRe.FindAllStringSubmatch(xml, -1) {
		if t := strings.TrimSpace(DecodeEntities(m[1])); t != "" {
			segments = append(segments, t)
		}
	}
	if len(segments) == 0 {
		for _, m := range segmentTagRe.FindAllStringSubmatch(xml, -1) {
			if t := strings.TrimSpace(DecodeEntities(m[1])); t != "" {
				segments = append(segments, t)
			}
		}
	}
	return strings.Join(segments, " ")
}

// DecodeEntities decodes the HTML entities YouTube emits in timed-text
// documents and collapses whitespace.
func DecodeEntities(text string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&apos;", "'",
	)
	text = replacer.Replace(text)
	text = decimalRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.Atoi(decimalRefRe.FindStringSubmatch(ref)[1])
		if err != nil {
			return ref
		}
		return string(rune(n))
	})
	text = hexRefRe.ReplaceAllStringFunc(text, func(ref string) string {
		n, err := strconv.ParseInt(hexRefRe.FindStringSubmatch(ref)[1], 16, 32)
		if err != nil {
			return ref
		}
		return string(rune(n))
	})
	text = strings.ReplaceAll(text, "\n", " ")
	return whitespaceRe.ReplaceAllString(text, " ")
}
