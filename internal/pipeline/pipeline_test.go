package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vubly/vubly/internal/media"
	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/types"
	"github.com/vubly/vubly/internal/webhook"
)

type fakeTranscripts struct {
	text string
	err  error
}

func (f *fakeTranscripts) Fetch(ctx context.Context, videoID string) (string, error) {
	return f.text, f.err
}

type fakeDownloads struct {
	audio    []byte
	audioErr error
	video    []byte
	videoErr error

	audioCalls int
}

func (f *fakeDownloads) Download(ctx context.Context, videoID string, kind media.Kind) ([]byte, error) {
	if kind == media.KindAudio {
		f.audioCalls++
		return f.audio, f.audioErr
	}
	return f.video, f.videoErr
}

type fakeSpeech struct {
	transcribed   string
	transcribeErr error
	lang          string
	detectErr     error
}

func (f *fakeSpeech) Transcribe(ctx context.Context, audio []byte) (string, string, error) {
	return f.transcribed, f.lang, f.transcribeErr
}

func (f *fakeSpeech) DetectLanguage(ctx context.Context, text string) (string, error) {
	return f.lang, f.detectErr
}

type fakeDispatcher struct {
	payloads []webhook.Payload
	err      error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, payload webhook.Payload) error {
	f.payloads = append(f.payloads, payload)
	return f.err
}

// memStore is a minimal in-memory session.Store for pipeline tests.
type memStore struct {
	sessions map[string]*types.Session
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*types.Session)}
}

func (m *memStore) Create(ctx context.Context, videoID string, info types.VideoInfo) (string, error) {
	id := fmt.Sprintf("session_%d", len(m.sessions)+1)
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
	delete(m.sessions, id)
	return nil
}

var _ session.Store = (*memStore)(nil)

func TestRunCaptionsPath(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	downloads := &fakeDownloads{video: []byte("video bytes")}
	dispatcher := &fakeDispatcher{}
	p := New(store,
		&fakeTranscripts{text: "caption transcript"},
		downloads,
		&fakeSpeech{lang: "es"},
		dispatcher,
		"http://cb/makecom-callback", "en")

	require.NoError(t, p.Run(context.Background(), id, "vid1", "fr", "voice-1"))

	sess := store.sessions[id]
	assert.Equal(t, "caption transcript", sess.Transcript)
	assert.Equal(t, "es", sess.DetectedLanguage)
	assert.Equal(t, "fr", sess.TargetLanguage)
	assert.Equal(t, []byte("video bytes"), sess.Video)
	assert.Equal(t, types.StatusProcessing, sess.Status, "session stays processing until callback")

	assert.Equal(t, 0, downloads.audioCalls, "captions path must not download audio")
	require.Len(t, dispatcher.payloads, 1)
	assert.Equal(t, "http://cb/makecom-callback", dispatcher.payloads[0].CallbackURL)
}

func TestRunAudioFallback(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	p := New(store,
		&fakeTranscripts{err: fmt.Errorf("no captions")},
		&fakeDownloads{audio: []byte("audio bytes"), videoErr: fmt.Errorf("blocked")},
		&fakeSpeech{transcribed: "spoken words", lang: "en"},
		&fakeDispatcher{},
		"http://cb", "en")

	require.NoError(t, p.Run(context.Background(), id, "vid1", "es", "voice-1"))

	sess := store.sessions[id]
	assert.Equal(t, "spoken words", sess.Transcript)
	assert.Equal(t, []byte("audio bytes"), sess.OriginalAudio)
	assert.Nil(t, sess.Video, "video failure is non-fatal")
	assert.Equal(t, types.StatusProcessing, sess.Status)
}

func TestRunTranscriptUnavailable(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	dispatcher := &fakeDispatcher{}
	p := New(store,
		&fakeTranscripts{err: fmt.Errorf("no captions")},
		&fakeDownloads{audioErr: fmt.Errorf("all providers down")},
		&fakeSpeech{},
		dispatcher,
		"http://cb", "en")

	err := p.Run(context.Background(), id, "vid1", "es", "voice-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no captions available and audio download failed")

	sess := store.sessions[id]
	assert.Equal(t, types.StatusError, sess.Status)
	assert.NotEmpty(t, sess.Error)
	assert.Empty(t, dispatcher.payloads)
}

func TestRunLanguageDetectionDefaults(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	p := New(store,
		&fakeTranscripts{text: "some transcript"},
		&fakeDownloads{videoErr: fmt.Errorf("nope")},
		&fakeSpeech{detectErr: fmt.Errorf("api down")},
		&fakeDispatcher{},
		"http://cb", "en")

	require.NoError(t, p.Run(context.Background(), id, "vid1", "es", "voice-1"))
	assert.Equal(t, "en", store.sessions[id].DetectedLanguage)
}

func TestRunDispatchFailureFlipsToError(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	p := New(store,
		&fakeTranscripts{text: "some transcript"},
		&fakeDownloads{videoErr: fmt.Errorf("nope")},
		&fakeSpeech{lang: "en"},
		&fakeDispatcher{err: fmt.Errorf("webhook 500")},
		"http://cb", "en")

	err := p.Run(context.Background(), id, "vid1", "es", "voice-1")
	require.Error(t, err)

	sess := store.sessions[id]
	assert.Equal(t, types.StatusError, sess.Status)
	assert.Equal(t, "some transcript", sess.Transcript, "partial fields survive the error transition")
}

func TestRunWithTranscript(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	downloads := &fakeDownloads{}
	dispatcher := &fakeDispatcher{}
	p := New(store,
		&fakeTranscripts{err: fmt.Errorf("must not be called")},
		downloads,
		&fakeSpeech{lang: "de"},
		dispatcher,
		"http://cb", "en")

	require.NoError(t, p.RunWithTranscript(context.Background(), id, "client transcript", "es", "voice-1"))

	sess := store.sessions[id]
	assert.Equal(t, "client transcript", sess.Transcript)
	assert.Equal(t, "de", sess.DetectedLanguage)
	assert.Nil(t, sess.Video, "no media downloads on the transcript path")
	assert.Equal(t, 0, downloads.audioCalls)
	require.Len(t, dispatcher.payloads, 1)
}

func TestRetranslate(t *testing.T) {
	store := newMemStore()
	id, _ := store.Create(context.Background(), "vid1", types.VideoInfo{})

	transcript := "original transcript"
	lang := "en"
	text := "old translation"
	status := types.StatusCompleted
	require.NoError(t, store.Update(context.Background(), id, session.Update{
		Status:           &status,
		Transcript:       &transcript,
		DetectedLanguage: &lang,
		TranslatedText:   &text,
		TranslatedAudio:  []byte("old audio"),
	}))

	dispatcher := &fakeDispatcher{}
	p := New(store, &fakeTranscripts{}, &fakeDownloads{}, &fakeSpeech{}, dispatcher, "http://cb", "en")

	sess, _ := store.Get(context.Background(), id)
	require.NoError(t, p.Retranslate(context.Background(), sess, "it", "voice-2"))

	updated := store.sessions[id]
	assert.Equal(t, types.StatusProcessing, updated.Status)
	assert.Equal(t, "it", updated.TargetLanguage)
	assert.Empty(t, updated.TranslatedText)
	assert.Nil(t, updated.TranslatedAudio)
	assert.Equal(t, "original transcript", updated.Transcript)

	require.Len(t, dispatcher.payloads, 1)
	assert.Equal(t, "en", dispatcher.payloads[0].DetectedLanguage)
	assert.Equal(t, "original transcript", dispatcher.payloads[0].Transcript)
}
