package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/vubly/vubly/internal/types"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session not found")

// Store is the session store contract the handlers and pipeline use.
type Store interface {
	Create(ctx context.Context, videoID string, info types.VideoInfo) (string, error)
	Get(ctx context.Context, id string) (*types.Session, error)
	Update(ctx context.Context, id string, update Update) error
	Delete(ctx context.Context, id string) error
}

// Update is a partial session mutation. Nil pointer fields are left
// untouched; non-nil fields replace the stored value whole. Binary
// fields are replaced atomically as complete buffers.
type Update struct {
	Status           *string
	Transcript       *string
	DetectedLanguage *string
	TargetLanguage   *string
	VoiceID          *string
	TranslatedText   *string
	Error            *string
	Video            []byte
	OriginalAudio    []byte
	TranslatedAudio  []byte

	// ClearTranslated drops translated text and audio, used when a
	// retranslation resets the session.
	ClearTranslated bool
}

// backend is the minimal keyed-blob interface the store needs. The
// Redis client satisfies it through redisBackend; tests substitute an
// in-memory map.
type backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// KVStore is the TTL-backed session store. One JSON blob per session;
// the TTL refreshes on every write, and expiry is the only lifecycle
// management needed.
type KVStore struct {
	backend backend
	ttl     time.Duration
}

// NewKVStore creates a store over a backend with the given TTL.
func NewKVStore(b backend, ttl time.Duration) *KVStore {
	return &KVStore{backend: b, ttl: ttl}
}

var _ Store = (*KVStore)(nil)

// Create seeds a new session in processing state and returns its ID.
func (s *KVStore) Create(ctx context.Context, videoID string, info types.VideoInfo) (string, error) {
	id := "session_" + uuid.New().String()

	sess := &types.Session{
		ID:        id,
		VideoID:   videoID,
		VideoInfo: info,
		Status:    types.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.write(ctx, sess); err != nil {
		return "", err
	}
	log.Printf("[Session] Created session %s", id)
	return id, nil
}

// Get returns the full session record, binary fields decoded.
func (s *KVStore) Get(ctx context.Context, id string) (*types.Session, error) {
	raw, err := s.backend.Get(ctx, key(id))
	if err != nil {
		return nil, err
	}

	var stored storedSession
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return stored.decode()
}

// Update merges the given fields into the stored record and refreshes
// the TTL. Read-modify-write: concurrent writers are last-write-wins.
func (s *KVStore) Update(ctx context.Context, id string, update Update) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
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

	if err := s.write(ctx, sess); err != nil {
		return err
	}
	log.Printf("[Session] Updated session %s", id)
	return nil
}

// Delete removes the session immediately.
func (s *KVStore) Delete(ctx context.Context, id string) error {
	if err := s.backend.Del(ctx, key(id)); err != nil {
		return err
	}
	log.Printf("[Session] Deleted session %s", id)
	return nil
}

func (s *KVStore) write(ctx context.Context, sess *types.Session) error {
	raw, err := json.Marshal(encode(sess))
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	return s.backend.Set(ctx, key(sess.ID), string(raw), s.ttl)
}

func key(id string) string { return "session:" + id }

// storedSession is the at-rest shape: identical to types.Session except
// that binary fields are explicit base64 strings. The encode/decode
// boundary lives here and nowhere else; everything in-process sees raw
// bytes.
type storedSession struct {
	ID               string          `json:"id"`
	VideoID          string          `json:"videoId"`
	VideoInfo        types.VideoInfo `json:"videoInfo"`
	Video            string          `json:"videoBuffer,omitempty"`
	OriginalAudio    string          `json:"originalAudio,omitempty"`
	Transcript       string          `json:"transcript,omitempty"`
	DetectedLanguage string          `json:"detectedLanguage,omitempty"`
	TargetLanguage   string          `json:"targetLanguage,omitempty"`
	VoiceID          string          `json:"voiceId,omitempty"`
	TranslatedText   string          `json:"translatedText,omitempty"`
	TranslatedAudio  string          `json:"translatedAudio,omitempty"`
	Status           string          `json:"status"`
	Error            string          `json:"error,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func encode(sess *types.Session) *storedSession {
	return &storedSession{
		ID:               sess.ID,
		VideoID:          sess.VideoID,
		VideoInfo:        sess.VideoInfo,
		Video:            base64.StdEncoding.EncodeToString(sess.Video),
		OriginalAudio:    base64.StdEncoding.EncodeToString(sess.OriginalAudio),
		Transcript:       sess.Transcript,
		DetectedLanguage: sess.DetectedLanguage,
		TargetLanguage:   sess.TargetLanguage,
		VoiceID:          sess.VoiceID,
		TranslatedText:   sess.TranslatedText,
		TranslatedAudio:  base64.StdEncoding.EncodeToString(sess.TranslatedAudio),
		Status:           sess.Status,
		Error:            sess.Error,
		CreatedAt:        sess.CreatedAt,
	}
}

func (s *storedSession) decode() (*types.Session, error) {
	video, err := base64.StdEncoding.DecodeString(s.Video)
	if err != nil {
		return nil, fmt.Errorf("decode video: %w", err)
	}
	originalAudio, err := base64.StdEncoding.DecodeString(s.OriginalAudio)
	if err != nil {
		return nil, fmt.Errorf("decode original audio: %w", err)
	}
	translatedAudio, err := base64.StdEncoding.DecodeString(s.TranslatedAudio)
	if err != nil {
		return nil, fmt.Errorf("decode translated audio: %w", err)
	}

	sess := &types.Session{
		ID:               s.ID,
		VideoID:          s.VideoID,
		VideoInfo:        s.VideoInfo,
		Transcript:       s.Transcript,
		DetectedLanguage: s.DetectedLanguage,
		TargetLanguage:   s.TargetLanguage,
		VoiceID:          s.VoiceID,
		TranslatedText:   s.TranslatedText,
		Status:           s.Status,
		Error:            s.Error,
		CreatedAt:        s.CreatedAt,
	}
	if len(video) > 0 {
		sess.Video = video
	}
	if len(originalAudio) > 0 {
		sess.OriginalAudio = originalAudio
	}
	if len(translatedAudio) > 0 {
		sess.TranslatedAudio = translatedAudio
	}
	return sess, nil
}
