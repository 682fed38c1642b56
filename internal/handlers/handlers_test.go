package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/types"
)

// memStore is an in-memory session.Store for handler tests.
type memStore struct {
	sessions map[string]*types.Session
	nextID   int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*types.Session)}
}

func (m *memStore) Create(ctx context.Context, videoID string, info types.VideoInfo) (string, error) {
	m.nextID++
	id := fmt.Sprintf("session_test%d", m.nextID)
	m.sessions[id] = &types.Session{
		ID:        id,
		VideoID:   videoID,
		VideoInfo: info,
		Status:    types.StatusProcessing,
		CreatedAt: time.Now(),
	}
	return id, nil
}

func (m *memStore) Get(ctx context.Context, id string) (*types.Session, error) {
	sess, ok := m.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (m *memStore) Update(ctx context.Context, id string, update session.Update) error {
	sess, ok := m.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	if update.Status != nil {
		sess.Status = *update.Status
	}
	if update.Transcript != nil {
		sess.Transcript = *update.Transcript
	}
	if update.DetectedLanguage != nil {
		sess.DetectedLanguage = *update.DetectedLanguage
	}
	if update.TargetLanguage != nil {
		sess.TargetLanguage = *update.TargetLanguage
	}
	if update.VoiceID != nil {
		sess.VoiceID = *update.VoiceID
	}
	if update.TranslatedText != nil {
		sess.TranslatedText = *update.TranslatedText
	}
	if update.Error != nil {
		sess.Error = *update.Error
	}
	if update.Video != nil {
		sess.Video = update.Video
	}
	if update.OriginalAudio != nil {
		sess.OriginalAudio = update.OriginalAudio
	}
	if update.TranslatedAudio != nil {
		sess.TranslatedAudio = update.TranslatedAudio
	}
	if update.ClearTranslated {
		sess.TranslatedText = ""
		sess.TranslatedAudio = nil
	}
	return nil
}

func (m *memStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

var _ session.Store = (*memStore)(nil)

type fakeInfo struct {
	info types.VideoInfo
	err  error
}

func (f *fakeInfo) GetVideoInfo(ctx context.Context, videoID string) (types.VideoInfo, error) {
	return f.info, f.err
}

type fakeRunner struct {
	runErr         error
	retranslateErr error

	runs         int
	transcripts  []string
	retranslates int
}

func (f *fakeRunner) Run(ctx context.Context, sessionID, videoID, targetLanguage, voiceID string) error {
	f.runs++
	return f.runErr
}

func (f *fakeRunner) RunWithTranscript(ctx context.Context, sessionID, transcript, targetLanguage, voiceID string) error {
	f.transcripts = append(f.transcripts, transcript)
	return f.runErr
}

func (f *fakeRunner) Retranslate(ctx context.Context, sess *types.Session, targetLanguage, voiceID string) error {
	f.retranslates++
	return f.retranslateErr
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]any
	if len(raw) > 0 && json.Valid(raw) {
		json.Unmarshal(raw, &body)
	}
	return body
}
