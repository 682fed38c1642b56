package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/vubly/vubly/internal/youtube"
)

const y2mateUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Y2mate converts through a y2mate-style service using its three-step
// analyze, convert, download form protocol. Audio only.
type Y2mate struct {
	client  *http.Client
	baseURL string
}

// NewY2mate creates the y2mate provider.
func NewY2mate(client *http.Client, baseURL string) *Y2mate {
	return &Y2mate{client: client, baseURL: baseURL}
}

func (y *Y2mate) Name() string { return "y2mate" }

type y2mateAnalyze struct {
	Status string `json:"status"`
	Mess   string `json:"mess"`
	Links  struct {
		MP3 map[string]struct {
			K string `json:"k"`
			Q string `json:"q"`
		} `json:"mp3"`
	} `json:"links"`
}

type y2mateConvert struct {
	Status string `json:"status"`
	Mess   string `json:"mess"`
	DLink  string `json:"dlink"`
}

// Download runs analyze -> convert -> download.
func (y *Y2mate) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	if kind != KindAudio {
		return nil, fmt.Errorf("y2mate provider is audio-only")
	}

	form := url.Values{
		"k_query": {youtube.WatchURL(videoID)},
		"k_page":  {"home"},
		"hl":      {"en"},
		"q_auto":  {"0"},
	}

	var analyze y2mateAnalyze
	if err := y.postForm(ctx, "/mates/analyzeV2/ajax", form, &analyze); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if analyze.Status != "ok" {
		return nil, fmt.Errorf("analyze error: %s", analyze.Mess)
	}
	if len(analyze.Links.MP3) == 0 {
		return nil, fmt.Errorf("no mp3 options available")
	}

	// Any quality will do; take the first offered.
	var key string
	var quality string
	for _, info := range analyze.Links.MP3 {
		key = info.K
		quality = info.Q
		break
	}

	log.Printf("[Y2mate] Converting %s to MP3 (%s)...", videoID, quality)

	convertForm := url.Values{
		"vid": {videoID},
		"k":   {key},
	}
	var convert y2mateConvert
	if err := y.postForm(ctx, "/mates/convertV2/index", convertForm, &convert); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	if convert.Status != "ok" || convert.DLink == "" {
		return nil, fmt.Errorf("convert error: %s", convert.Mess)
	}

	log.Printf("[Y2mate] Downloading MP3...")
	return fetchBytes(ctx, y.client, convert.DLink, y2mateUserAgent)
}

func (y *Y2mate) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", y2mateUserAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
