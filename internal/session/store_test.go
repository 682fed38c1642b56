package session

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vubly/vubly/internal/types"
)

// memBackend is an in-memory stand-in for Redis. TTLs are recorded but
// not enforced.
type memBackend struct {
	mu      sync.Mutex
	data    map[string]string
	lastTTL time.Duration
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]string)}
}

func (m *memBackend) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *memBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.lastTTL = ttl
	return nil
}

func (m *memBackend) Del(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func newTestStore() (*KVStore, *memBackend) {
	b := newMemBackend()
	return NewKVStore(b, time.Hour), b
}

func TestCreateAndGet(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	info := types.VideoInfo{ID: "abc123", Title: "Test Video", Duration: 120}
	id, err := store.Create(ctx, "abc123", info)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "session_"))
	assert.Equal(t, time.Hour, backend.lastTTL)

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Equal(t, "abc123", sess.VideoID)
	assert.Equal(t, info, sess.VideoInfo)
	assert.Equal(t, types.StatusProcessing, sess.Status)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestGetMissingSession(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Get(context.Background(), "session_nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateMergesFields(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "abc123", types.VideoInfo{Title: "Test"})
	require.NoError(t, err)

	transcript := "hello world"
	lang := "es"
	require.NoError(t, store.Update(ctx, id, Update{
		Transcript:       &transcript,
		DetectedLanguage: &lang,
	}))

	// A second update must not clobber the first.
	status := types.StatusCompleted
	require.NoError(t, store.Update(ctx, id, Update{Status: &status}))

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", sess.Transcript)
	assert.Equal(t, "es", sess.DetectedLanguage)
	assert.Equal(t, types.StatusCompleted, sess.Status)
	assert.Equal(t, "Test", sess.VideoInfo.Title)
}

func TestUpdateMissingSession(t *testing.T) {
	store, _ := newTestStore()

	status := types.StatusCompleted
	err := store.Update(context.Background(), "session_nope", Update{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBinaryFieldsRoundTrip(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "abc123", types.VideoInfo{})
	require.NoError(t, err)

	// Bytes that are not valid UTF-8 and include JSON-hostile values.
	audio := []byte{0x00, 0xFF, 0xFE, '"', '\\', 0x7F, 0x01}
	video := bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 256)

	require.NoError(t, store.Update(ctx, id, Update{
		OriginalAudio: audio,
		Video:         video,
	}))

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, audio, sess.OriginalAudio)
	assert.Equal(t, video, sess.Video)

	// The at-rest blob must be text-safe.
	backend.mu.Lock()
	raw := backend.data["session:"+id]
	backend.mu.Unlock()
	assert.NotContains(t, raw, string([]byte{0x00}))
}

func TestClearTranslated(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "abc123", types.VideoInfo{})
	require.NoError(t, err)

	text := "Hola mundo"
	require.NoError(t, store.Update(ctx, id, Update{
		TranslatedText:  &text,
		TranslatedAudio: []byte("mp3"),
	}))

	require.NoError(t, store.Update(ctx, id, Update{ClearTranslated: true}))

	sess, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, sess.TranslatedText)
	assert.Nil(t, sess.TranslatedAudio)
}

func TestUpdateRefreshesTTL(t *testing.T) {
	b := newMemBackend()
	store := NewKVStore(b, 30*time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, "abc123", types.VideoInfo{})
	require.NoError(t, err)

	b.lastTTL = 0
	status := types.StatusError
	require.NoError(t, store.Update(ctx, id, Update{Status: &status}))
	assert.Equal(t, 30*time.Minute, b.lastTTL)
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	id, err := store.Create(ctx, "abc123", types.VideoInfo{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}
