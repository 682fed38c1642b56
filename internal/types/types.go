package types

import "time"

// Session status constants
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// VideoInfo holds metadata about the source video
type VideoInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	Author    string `json:"author"`
}

// Session is the per-job record accumulated by the pipeline and polled
// by the client. Binary fields are raw bytes in-process; the store is
// responsible for text-safe encoding at its edge.
type Session struct {
	ID               string    `json:"id"`
	VideoID          string    `json:"videoId"`
	VideoInfo        VideoInfo `json:"videoInfo"`
	Video            []byte    `json:"videoBuffer,omitempty"`
	OriginalAudio    []byte    `json:"originalAudio,omitempty"`
	Transcript       string    `json:"transcript,omitempty"`
	DetectedLanguage string    `json:"detectedLanguage,omitempty"`
	TargetLanguage   string    `json:"targetLanguage,omitempty"`
	VoiceID          string    `json:"voiceId,omitempty"`
	TranslatedText   string    `json:"translatedText,omitempty"`
	TranslatedAudio  []byte    `json:"translatedAudio,omitempty"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}
