package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/session"
)

// SessionHandler serves session state and stored media.
type SessionHandler struct {
	store session.Store
}

// NewSessionHandler creates the session read handler.
func NewSessionHandler(store session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Get serves GET /session/:id. Binary fields are omitted from status
// polls and replaced with presence flags; ?includeAudio=true inlines
// the translated audio as base64.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return sessionError(c, err)
	}

	body := fiber.Map{
		"id":                 sess.ID,
		"videoId":            sess.VideoID,
		"videoInfo":          sess.VideoInfo,
		"status":             sess.Status,
		"transcript":         sess.Transcript,
		"detectedLanguage":   sess.DetectedLanguage,
		"targetLanguage":     sess.TargetLanguage,
		"voiceId":            sess.VoiceID,
		"translatedText":     sess.TranslatedText,
		"error":              sess.Error,
		"createdAt":          sess.CreatedAt,
		"hasOriginalAudio":   len(sess.OriginalAudio) > 0,
		"hasTranslatedAudio": len(sess.TranslatedAudio) > 0,
		"hasVideo":           len(sess.Video) > 0,
	}

	if c.Query("includeAudio") == "true" && len(sess.TranslatedAudio) > 0 {
		body["translatedAudio"] = base64.StdEncoding.EncodeToString(sess.TranslatedAudio)
	}

	return c.JSON(body)
}

// Delete serves DELETE /session/:id.
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	if err := h.store.Delete(c.Context(), c.Params("id")); err != nil {
		return sessionError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Audio serves GET /audio/:id/:type with type original or translated.
func (h *SessionHandler) Audio(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return sessionError(c, err)
	}

	var audio []byte
	switch c.Params("type") {
	case "original":
		audio = sess.OriginalAudio
	case "translated":
		audio = sess.TranslatedAudio
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Audio type must be original or translated",
			"code":  "ERR_INVALID_TYPE",
		})
	}

	if len(audio) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Audio not available",
			"code":  "ERR_NO_AUDIO",
		})
	}

	c.Set(fiber.HeaderContentType, "audio/mpeg")
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	return c.Send(audio)
}

// Video serves GET /video/:id with byte-range support for seeking.
func (h *SessionHandler) Video(c *fiber.Ctx) error {
	sess, err := h.store.Get(c.Context(), c.Params("id"))
	if err != nil {
		return sessionError(c, err)
	}

	if len(sess.Video) == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Video not available",
			"code":  "ERR_NO_VIDEO",
		})
	}

	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Set(fiber.HeaderAcceptRanges, "bytes")

	if rangeHeader := c.Get(fiber.HeaderRange); rangeHeader != "" {
		start, end, ok := parseByteRange(rangeHeader, len(sess.Video))
		if !ok {
			c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes */%d", len(sess.Video)))
			return c.SendStatus(fiber.StatusRequestedRangeNotSatisfiable)
		}

		chunk := sess.Video[start : end+1]
		c.Set(fiber.HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", start, end, len(sess.Video)))
		c.Set(fiber.HeaderContentLength, strconv.Itoa(len(chunk)))
		c.Status(fiber.StatusPartialContent)
		return c.Send(chunk)
	}

	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	return c.Send(sess.Video)
}

// parseByteRange parses a "bytes=start-end" header against the given
// total size. An omitted end means the last byte.
func parseByteRange(header string, size int) (start, end int, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}

	start, err := strconv.Atoi(startStr)
	if err != nil || start < 0 || start >= size {
		return 0, 0, false
	}

	end = size - 1
	if endStr != "" {
		end, err = strconv.Atoi(endStr)
		if err != nil || end < start {
			return 0, 0, false
		}
		if end >= size {
			end = size - 1
		}
	}

	return start, end, true
}

func sessionError(c *fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found",
			"code":  "ERR_SESSION_NOT_FOUND",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
		"code":  "ERR_SESSION_READ",
	})
}
