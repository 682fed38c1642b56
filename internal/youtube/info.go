package youtube

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/vubly/vubly/internal/types"
)

// InfoClient looks up video metadata through the YouTube Data API.
// yt-dlp is deliberately not used here: metadata lookups are frequent
// and the Data API is not subject to bot detection.
type InfoClient struct {
	service *ytapi.Service
}

// NewInfoClient creates a metadata client authenticated with an API key.
func NewInfoClient(ctx context.Context, apiKey string) (*InfoClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("youtube api key not configured")
	}
	service, err := ytapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &InfoClient{service: service}, nil
}

// GetVideoInfo fetches title, duration, thumbnail and author for a video.
func (c *InfoClient) GetVideoInfo(ctx context.Context, videoID string) (types.VideoInfo, error) {
	resp, err := c.service.Videos.
		List([]string{"snippet", "contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("youtube api: %w", err)
	}

	if len(resp.Items) == 0 {
		return types.VideoInfo{}, fmt.Errorf("video not found or is private")
	}

	video := resp.Items[0]
	if video.Snippet == nil {
		return types.VideoInfo{}, fmt.Errorf("video data incomplete")
	}

	info := types.VideoInfo{
		ID:     videoID,
		Title:  video.Snippet.Title,
		Author: video.Snippet.ChannelTitle,
	}
	if info.Title == "" {
		info.Title = "Unknown Title"
	}
	if info.Author == "" {
		info.Author = "Unknown Author"
	}

	if thumbs := video.Snippet.Thumbnails; thumbs != nil {
		if thumbs.High != nil {
			info.Thumbnail = thumbs.High.Url
		} else if thumbs.Default != nil {
			info.Thumbnail = thumbs.Default.Url
		}
	}

	if video.ContentDetails != nil {
		info.Duration = ParseISODuration(video.ContentDetails.Duration)
	}

	log.Printf("[Info] Fetched metadata for %s: %q (%ds)", videoID, info.Title, info.Duration)
	return info, nil
}

var isoDurationRe = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseISODuration converts an ISO 8601 duration like PT1H2M3S to seconds.
func ParseISODuration(iso string) int {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return 0
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	return hours*3600 + minutes*60 + seconds
}
