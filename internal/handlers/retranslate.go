package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/session"
)

// RetranslateHandler re-runs translation and synthesis for an existing
// session with a new target language and voice.
type RetranslateHandler struct {
	store    session.Store
	pipeline Runner
}

// NewRetranslateHandler creates the retranslation handler.
func NewRetranslateHandler(store session.Store, pipeline Runner) *RetranslateHandler {
	return &RetranslateHandler{store: store, pipeline: pipeline}
}

type retranslateRequest struct {
	SessionID      string `json:"sessionId"`
	TargetLanguage string `json:"targetLanguage"`
	VoiceID        string `json:"voiceId"`
}

// Handle processes POST /retranslate.
func (h *RetranslateHandler) Handle(c *fiber.Ctx) error {
	var req retranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	if req.SessionID == "" || req.TargetLanguage == "" || req.VoiceID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: sessionId, targetLanguage, voiceId",
			"code":  "ERR_MISSING_FIELDS",
		})
	}

	sess, err := h.store.Get(c.Context(), req.SessionID)
	if err != nil {
		return sessionError(c, err)
	}

	if sess.Transcript == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No transcript available for retranslation",
			"code":  "ERR_NO_TRANSCRIPT",
		})
	}

	log.Printf("[%s] Retranslating to %s with voice %s", sess.ID, req.TargetLanguage, req.VoiceID)

	if err := h.pipeline.Retranslate(c.Context(), sess, req.TargetLanguage, req.VoiceID); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to start retranslation: " + err.Error(),
			"code":  "ERR_RETRANSLATE",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Retranslation started",
		"sessionId": req.SessionID,
	})
}
