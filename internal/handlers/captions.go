package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/youtube"
)

// CaptionFetcher is the transcript cascade surface the caption check
// needs.
type CaptionFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// CaptionsHandler answers "does this video have usable captions"
// without creating a session.
type CaptionsHandler struct {
	captions CaptionFetcher
}

// NewCaptionsHandler creates the caption availability handler.
func NewCaptionsHandler(captions CaptionFetcher) *CaptionsHandler {
	return &CaptionsHandler{captions: captions}
}

type checkCaptionsRequest struct {
	YouTubeURL string `json:"youtubeUrl"`
}

// Handle processes POST /check-captions.
func (h *CaptionsHandler) Handle(c *fiber.Ctx) error {
	var req checkCaptionsRequest
	if err := c.BodyParser(&req); err != nil || req.YouTubeURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "YouTube URL is required",
			"code":  "ERR_NO_URL",
		})
	}

	videoID, ok := youtube.ExtractVideoID(req.YouTubeURL)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid YouTube URL",
			"code":  "ERR_INVALID_URL",
		})
	}

	transcript, err := h.captions.Fetch(c.Context(), videoID)
	if err != nil {
		return c.JSON(fiber.Map{
			"hasCaptions": false,
			"videoId":     videoID,
			"message":     "This video does not have captions available. Please choose a video with subtitles or auto-generated captions enabled.",
		})
	}

	preview := transcript
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}

	return c.JSON(fiber.Map{
		"hasCaptions": true,
		"videoId":     videoID,
		"preview":     preview,
		"message":     "This video has captions and can be processed",
	})
}
