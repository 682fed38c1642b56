package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/types"
	"github.com/vubly/vubly/internal/youtube"
)

// InfoFetcher resolves video metadata.
type InfoFetcher interface {
	GetVideoInfo(ctx context.Context, videoID string) (types.VideoInfo, error)
}

// Runner is the pipeline surface the HTTP layer drives.
type Runner interface {
	Run(ctx context.Context, sessionID, videoID, targetLanguage, voiceID string) error
	RunWithTranscript(ctx context.Context, sessionID, transcript, targetLanguage, voiceID string) error
	Retranslate(ctx context.Context, sess *types.Session, targetLanguage, voiceID string) error
}

// ProcessHandler handles job submission.
type ProcessHandler struct {
	store    session.Store
	info     InfoFetcher
	pipeline Runner
}

// NewProcessHandler creates the job submission handler.
func NewProcessHandler(store session.Store, info InfoFetcher, pipeline Runner) *ProcessHandler {
	return &ProcessHandler{store: store, info: info, pipeline: pipeline}
}

// ProcessRequest is the submission body.
type ProcessRequest struct {
	YouTubeURL     string `json:"youtubeUrl"`
	TargetLanguage string `json:"targetLanguage"`
	VoiceID        string `json:"voiceId"`
	Transcript     string `json:"transcript"`
}

// Handle processes POST /process. The pipeline runs before the response
// is written, so a success response means the translation request was
// dispatched (or the session already carries an error for polling).
func (h *ProcessHandler) Handle(c *fiber.Ctx) error {
	req, videoID, ok := h.parseRequest(c)
	if !ok {
		return nil
	}

	info, err := h.info.GetVideoInfo(c.Context(), videoID)
	if err != nil {
		log.Printf("Video info lookup failed for %s: %v", videoID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to get video info: " + err.Error(),
			"code":  "ERR_VIDEO_INFO",
		})
	}

	sessionID, err := h.store.Create(c.Context(), videoID, info)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
			"code":  "ERR_SESSION_CREATE",
		})
	}

	// Errors are recorded on the session for the client to poll; the
	// submission itself has succeeded.
	if err := h.pipeline.Run(c.Context(), sessionID, videoID, req.TargetLanguage, req.VoiceID); err != nil {
		log.Printf("[%s] Processing failed: %v", sessionID, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": sessionID,
		"videoInfo": info,
	})
}

// HandleWithTranscript processes POST /process-with-transcript: the
// client supplies captions it extracted itself, skipping acquisition.
func (h *ProcessHandler) HandleWithTranscript(c *fiber.Ctx) error {
	req, videoID, ok := h.parseRequest(c)
	if !ok {
		return nil
	}

	if len(req.Transcript) < 10 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No transcript provided. Please ensure the video has captions enabled.",
			"code":  "ERR_NO_TRANSCRIPT",
		})
	}

	info, err := h.info.GetVideoInfo(c.Context(), videoID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to get video info: " + err.Error(),
			"code":  "ERR_VIDEO_INFO",
		})
	}

	sessionID, err := h.store.Create(c.Context(), videoID, info)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
			"code":  "ERR_SESSION_CREATE",
		})
	}

	log.Printf("[%s] Received transcript from client (%d chars)", sessionID, len(req.Transcript))

	if err := h.pipeline.RunWithTranscript(c.Context(), sessionID, req.Transcript, req.TargetLanguage, req.VoiceID); err != nil {
		log.Printf("[%s] Processing failed: %v", sessionID, err)
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"sessionId":        sessionID,
		"videoInfo":        info,
		"transcriptLength": len(req.Transcript),
	})
}

// parseRequest validates the body and resolves the video ID, writing
// the 4xx response itself when validation fails.
func (h *ProcessHandler) parseRequest(c *fiber.Ctx) (*ProcessRequest, string, bool) {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
		return nil, "", false
	}

	if req.YouTubeURL == "" || req.TargetLanguage == "" || req.VoiceID == "" {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: youtubeUrl, targetLanguage, voiceId",
			"code":  "ERR_MISSING_FIELDS",
		})
		return nil, "", false
	}

	videoID, ok := youtube.ExtractVideoID(req.YouTubeURL)
	if !ok {
		c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid YouTube URL",
			"code":  "ERR_INVALID_URL",
		})
		return nil, "", false
	}

	return &req, videoID, true
}
