package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/storage"
	"github.com/vubly/vubly/internal/types"
)

// CallbackHandler receives translation results from the automation
// platform. The platform's scenario editor makes field names easy to
// get wrong, so several naming conventions are accepted.
type CallbackHandler struct {
	store   session.Store
	history *storage.History
}

// NewCallbackHandler creates the callback receiver. history may be nil.
func NewCallbackHandler(store session.Store, history *storage.History) *CallbackHandler {
	return &CallbackHandler{store: store, history: history}
}

// Handle processes POST /makecom-callback. A missing required field is
// a client error and leaves the session untouched.
func (h *CallbackHandler) Handle(c *fiber.Ctx) error {
	var body map[string]any
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid JSON body",
			"code":  "ERR_INVALID_BODY",
		})
	}

	sessionID := firstString(body, "sessionId", "session_id", "session", "id")
	translation := firstString(body, "translation", "translatedText", "text", "translation_text")
	audioRaw := firstValue(body, "audioData", "audio_base64", "audio")

	if nested, ok := body["data"].(map[string]any); ok {
		if translation == "" {
			translation = firstString(nested, "translation", "translatedText")
		}
		if audioRaw == nil {
			audioRaw = firstValue(nested, "audio_base64", "audio", "data")
		}
	}

	audioBase64 := normalizeAudioField(audioRaw)

	if sessionID == "" || translation == "" || audioBase64 == "" {
		log.Printf("Callback missing required fields (session: %t, translation: %t, audio: %t)",
			sessionID != "", translation != "", audioBase64 != "")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing required fields: sessionId, translation, audioData",
			"code":  "ERR_MISSING_FIELDS",
			"received": fiber.Map{
				"sessionId":   sessionID,
				"translation": translation != "",
				"audioKeys":   keys(body),
			},
		})
	}

	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "audioData is not valid base64",
			"code":  "ERR_INVALID_AUDIO",
		})
	}

	status := types.StatusCompleted
	if err := h.store.Update(c.Context(), sessionID, session.Update{
		Status:          &status,
		TranslatedText:  &translation,
		TranslatedAudio: audio,
	}); err != nil {
		return sessionError(c, err)
	}

	log.Printf("[%s] Session completed via callback (%d audio bytes)", sessionID, len(audio))
	h.recordCompletion(c, sessionID)

	return c.JSON(fiber.Map{"success": true})
}

func (h *CallbackHandler) recordCompletion(c *fiber.Ctx, sessionID string) {
	if h.history == nil {
		return
	}
	sess, err := h.store.Get(c.Context(), sessionID)
	if err != nil {
		return
	}
	if err := h.history.Record(storage.JobRecord{
		SessionID:       sess.ID,
		VideoID:         sess.VideoID,
		Title:           sess.VideoInfo.Title,
		SourceLanguage:  sess.DetectedLanguage,
		TargetLanguage:  sess.TargetLanguage,
		Status:          sess.Status,
		TranscriptChars: len(sess.Transcript),
	}); err != nil {
		log.Printf("[%s] Failed to record job history: %v", sessionID, err)
	}
}

// firstString returns the first non-empty string among the named keys.
func firstString(body map[string]any, names ...string) string {
	for _, name := range names {
		if s, ok := body[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func firstValue(body map[string]any, names ...string) any {
	for _, name := range names {
		if v, ok := body[name]; ok && v != nil {
			return v
		}
	}
	return nil
}

// normalizeAudioField unwraps arrays and {data: ...} objects and strips
// a data-URL prefix, returning the bare base64 payload.
func normalizeAudioField(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		if strings.HasPrefix(v, "data:") {
			if _, after, found := strings.Cut(v, ","); found {
				return after
			}
		}
		return v
	case []any:
		if len(v) > 0 {
			return normalizeAudioField(v[0])
		}
	case map[string]any:
		if data, ok := v["data"]; ok {
			return normalizeAudioField(data)
		}
	}
	return ""
}

func keys(body map[string]any) []string {
	out := make([]string, 0, len(body))
	for k := range body {
		out = append(out, k)
	}
	return out
}
