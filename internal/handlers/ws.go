package handlers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/types"
)

// WSHandler streams session status snapshots over a WebSocket so
// clients need not poll. The server side still reads the store on an
// interval; the socket just moves the loop off the client.
type WSHandler struct {
	store    session.Store
	interval time.Duration
}

// NewWSHandler creates the status stream handler.
func NewWSHandler(store session.Store) *WSHandler {
	return &WSHandler{store: store, interval: 2 * time.Second}
}

type statusSnapshot struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Error              string `json:"error,omitempty"`
	HasTranscript      bool   `json:"hasTranscript"`
	HasTranslatedAudio bool   `json:"hasTranslatedAudio"`
	HasVideo           bool   `json:"hasVideo"`
}

// Handle streams snapshots until the session reaches a terminal state,
// expires from the store, or the client goes away.
func (h *WSHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	sessionID := c.Params("id")
	log.Printf("[WS] Status stream opened for %s", sessionID)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		sess, err := h.store.Get(context.Background(), sessionID)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.WriteJSON(map[string]string{"error": "session expired or not found"})
			}
			return
		}

		snapshot := statusSnapshot{
			ID:                 sess.ID,
			Status:             sess.Status,
			Error:              sess.Error,
			HasTranscript:      sess.Transcript != "",
			HasTranslatedAudio: len(sess.TranslatedAudio) > 0,
			HasVideo:           len(sess.Video) > 0,
		}
		if err := c.WriteJSON(snapshot); err != nil {
			log.Printf("[WS] Write failed for %s: %v", sessionID, err)
			return
		}

		if sess.Status == types.StatusCompleted || sess.Status == types.StatusError {
			log.Printf("[WS] Session %s reached %s, closing stream", sessionID, sess.Status)
			return
		}

		<-ticker.C
	}
}
