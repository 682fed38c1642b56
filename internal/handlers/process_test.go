package handlers

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vubly/vubly/internal/types"
)

func processApp(store *memStore, info *fakeInfo, runner *fakeRunner) *fiber.App {
	app := fiber.New()
	h := NewProcessHandler(store, info, runner)
	app.Post("/process", h.Handle)
	app.Post("/process-with-transcript", h.HandleWithTranscript)
	return app
}

func TestProcessCreatesSession(t *testing.T) {
	store := newMemStore()
	runner := &fakeRunner{}
	app := processApp(store, &fakeInfo{info: types.VideoInfo{Title: "A Video"}}, runner)

	resp, body := postJSON(t, app, "/process", map[string]string{
		"youtubeUrl":     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"targetLanguage": "es",
		"voiceId":        "voice-1",
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["sessionId"])
	assert.Equal(t, 1, runner.runs)

	sess := store.sessions[body["sessionId"].(string)]
	require.NotNil(t, sess)
	assert.Equal(t, "dQw4w9WgXcQ", sess.VideoID)
}

func TestProcessPipelineErrorStillReturns200(t *testing.T) {
	store := newMemStore()
	runner := &fakeRunner{runErr: fmt.Errorf("no captions")}
	app := processApp(store, &fakeInfo{}, runner)

	resp, body := postJSON(t, app, "/process", map[string]string{
		"youtubeUrl":     "https://youtu.be/dQw4w9WgXcQ",
		"targetLanguage": "es",
		"voiceId":        "voice-1",
	})

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}

func TestProcessValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
		code string
	}{
		{"missing url", map[string]string{"targetLanguage": "es", "voiceId": "v"}, "ERR_MISSING_FIELDS"},
		{"missing target language", map[string]string{"youtubeUrl": "https://youtu.be/x", "voiceId": "v"}, "ERR_MISSING_FIELDS"},
		{"missing voice", map[string]string{"youtubeUrl": "https://youtu.be/x", "targetLanguage": "es"}, "ERR_MISSING_FIELDS"},
		{"bad url", map[string]string{"youtubeUrl": "https://vimeo.com/1", "targetLanguage": "es", "voiceId": "v"}, "ERR_INVALID_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			app := processApp(newMemStore(), &fakeInfo{}, runner)

			resp, body := postJSON(t, app, "/process", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
			assert.Equal(t, 0, runner.runs)
		})
	}
}

func TestProcessInfoLookupFailure(t *testing.T) {
	app := processApp(newMemStore(), &fakeInfo{err: fmt.Errorf("video not found or is private")}, &fakeRunner{})

	resp, body := postJSON(t, app, "/process", map[string]string{
		"youtubeUrl":     "https://youtu.be/dQw4w9WgXcQ",
		"targetLanguage": "es",
		"voiceId":        "voice-1",
	})

	assert.Equal(t, fiber.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "ERR_VIDEO_INFO", body["code"])
}

func TestProcessWithTranscript(t *testing.T) {
	runner := &fakeRunner{}
	app := processApp(newMemStore(), &fakeInfo{}, runner)

	resp, body := postJSON(t, app, "/process-with-transcript", map[string]string{
		"youtubeUrl":     "https://youtu.be/dQw4w9WgXcQ",
		"targetLanguage": "es",
		"voiceId":        "voice-1",
		"transcript":     "a transcript the client extracted itself",
	})

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	require.Len(t, runner.transcripts, 1)
	assert.Equal(t, "a transcript the client extracted itself", runner.transcripts[0])
}

func TestProcessWithTranscriptTooShort(t *testing.T) {
	runner := &fakeRunner{}
	app := processApp(newMemStore(), &fakeInfo{}, runner)

	resp, body := postJSON(t, app, "/process-with-transcript", map[string]string{
		"youtubeUrl":     "https://youtu.be/dQw4w9WgXcQ",
		"targetLanguage": "es",
		"voiceId":        "voice-1",
		"transcript":     "short",
	})

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "ERR_NO_TRANSCRIPT", body["code"])
	assert.Empty(t, runner.transcripts)
}
