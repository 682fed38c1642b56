package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/vubly/vubly/internal/media"
	"github.com/vubly/vubly/internal/session"
	"github.com/vubly/vubly/internal/types"
	"github.com/vubly/vubly/internal/webhook"
)

// TranscriptFetcher is the transcript cascade contract.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, videoID string) (string, error)
}

// MediaDownloader is the media cascade contract.
type MediaDownloader interface {
	Download(ctx context.Context, videoID string, kind media.Kind) ([]byte, error)
}

// SpeechClient is the hosted AI contract: transcription and language
// identification.
type SpeechClient interface {
	Transcribe(ctx context.Context, audio []byte) (text, lang string, err error)
	DetectLanguage(ctx context.Context, text string) (string, error)
}

// Dispatcher sends the translation job to the automation platform.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload webhook.Payload) error
}

// Pipeline drives one job from creation through webhook dispatch. The
// final completed transition happens later, in the callback handler.
type Pipeline struct {
	store       session.Store
	transcripts TranscriptFetcher
	downloads   MediaDownloader
	speech      SpeechClient
	dispatcher  Dispatcher
	callbackURL string
	defaultLang string
}

// New creates a pipeline. callbackURL is where the automation platform
// posts results; defaultLang is used when language detection fails.
func New(
	store session.Store,
	transcripts TranscriptFetcher,
	downloads MediaDownloader,
	speech SpeechClient,
	dispatcher Dispatcher,
	callbackURL string,
	defaultLang string,
) *Pipeline {
	return &Pipeline{
		store:       store,
		transcripts: transcripts,
		downloads:   downloads,
		speech:      speech,
		dispatcher:  dispatcher,
		callbackURL: callbackURL,
		defaultLang: defaultLang,
	}
}

// Run executes steps 1-4 for a freshly created session: transcript
// acquisition (captions first, audio transcription as fallback),
// best-effort video download, language detection, webhook dispatch.
// Any fatal failure flips the session to error, preserving whatever
// partial fields were already written.
func (p *Pipeline) Run(ctx context.Context, sessionID, videoID, targetLanguage, voiceID string) error {
	err := p.run(ctx, sessionID, videoID, targetLanguage, voiceID)
	if err != nil {
		log.Printf("[%s] Pipeline failed: %v", sessionID, err)
		status := types.StatusError
		message := err.Error()
		if updateErr := p.store.Update(ctx, sessionID, session.Update{
			Status: &status,
			Error:  &message,
		}); updateErr != nil {
			log.Printf("[%s] Failed to record error state: %v", sessionID, updateErr)
		}
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, sessionID, videoID, targetLanguage, voiceID string) error {
	// Step 1: transcript from captions, else from downloaded audio.
	transcript, err := p.acquireTranscript(ctx, sessionID, videoID)
	if err != nil {
		return err
	}

	// Step 2: video bytes for playback. Absence degrades playback to
	// audio-only, so failure is a warning, not an error.
	if video, err := p.downloads.Download(ctx, videoID, media.KindVideo); err != nil {
		log.Printf("[%s] Video download failed (non-fatal): %v", sessionID, err)
	} else {
		if err := p.store.Update(ctx, sessionID, session.Update{Video: video}); err != nil {
			return fmt.Errorf("store video: %w", err)
		}
		log.Printf("[%s] Video stored: %d bytes", sessionID, len(video))
	}

	// Step 3: language detection, defaulting rather than failing.
	detected, err := p.speech.DetectLanguage(ctx, transcript)
	if err != nil {
		log.Printf("[%s] Language detection failed, defaulting to %s: %v", sessionID, p.defaultLang, err)
		detected = p.defaultLang
	}
	if err := p.store.Update(ctx, sessionID, session.Update{
		DetectedLanguage: &detected,
		TargetLanguage:   &targetLanguage,
		VoiceID:          &voiceID,
	}); err != nil {
		return fmt.Errorf("store language: %w", err)
	}
	log.Printf("[%s] Language detected: %s", sessionID, detected)

	// Step 4: hand off to the automation platform. The session stays in
	// processing until the callback arrives.
	if err := p.dispatcher.Dispatch(ctx, webhook.Payload{
		SessionID:        sessionID,
		Transcript:       transcript,
		DetectedLanguage: detected,
		TargetLanguage:   targetLanguage,
		VoiceID:          voiceID,
		CallbackURL:      p.callbackURL,
	}); err != nil {
		return fmt.Errorf("webhook dispatch: %w", err)
	}

	log.Printf("[%s] All steps complete, awaiting callback at %s", sessionID, p.callbackURL)
	return nil
}

// acquireTranscript runs the caption cascade and falls back to audio
// download plus hosted transcription. The two failure modes are kept
// distinct in the error message.
func (p *Pipeline) acquireTranscript(ctx context.Context, sessionID, videoID string) (string, error) {
	transcript, err := p.transcripts.Fetch(ctx, videoID)
	if err == nil {
		log.Printf("[%s] Using captions as transcript (%d chars)", sessionID, len(transcript))
		if err := p.store.Update(ctx, sessionID, session.Update{Transcript: &transcript}); err != nil {
			return "", fmt.Errorf("store transcript: %w", err)
		}
		return transcript, nil
	}
	log.Printf("[%s] No captions available, downloading audio for transcription: %v", sessionID, err)

	audio, err := p.downloads.Download(ctx, videoID, media.KindAudio)
	if err != nil {
		return "", fmt.Errorf("no captions available and audio download failed: %w", err)
	}
	if err := p.store.Update(ctx, sessionID, session.Update{OriginalAudio: audio}); err != nil {
		return "", fmt.Errorf("store audio: %w", err)
	}

	transcript, _, err = p.speech.Transcribe(ctx, audio)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	if transcript == "" {
		return "", fmt.Errorf("transcription produced no text")
	}
	if err := p.store.Update(ctx, sessionID, session.Update{Transcript: &transcript}); err != nil {
		return "", fmt.Errorf("store transcript: %w", err)
	}
	log.Printf("[%s] Transcription complete (%d chars)", sessionID, len(transcript))
	return transcript, nil
}

// RunWithTranscript executes the pipeline for a client-supplied
// transcript: acquisition is skipped entirely and no media is
// downloaded; playback degrades to the original embed.
func (p *Pipeline) RunWithTranscript(ctx context.Context, sessionID, transcript, targetLanguage, voiceID string) error {
	err := p.runWithTranscript(ctx, sessionID, transcript, targetLanguage, voiceID)
	if err != nil {
		log.Printf("[%s] Pipeline failed: %v", sessionID, err)
		status := types.StatusError
		message := err.Error()
		if updateErr := p.store.Update(ctx, sessionID, session.Update{
			Status: &status,
			Error:  &message,
		}); updateErr != nil {
			log.Printf("[%s] Failed to record error state: %v", sessionID, updateErr)
		}
	}
	return err
}

func (p *Pipeline) runWithTranscript(ctx context.Context, sessionID, transcript, targetLanguage, voiceID string) error {
	if err := p.store.Update(ctx, sessionID, session.Update{Transcript: &transcript}); err != nil {
		return fmt.Errorf("store transcript: %w", err)
	}

	detected, err := p.speech.DetectLanguage(ctx, transcript)
	if err != nil {
		log.Printf("[%s] Language detection failed, defaulting to %s: %v", sessionID, p.defaultLang, err)
		detected = p.defaultLang
	}
	if err := p.store.Update(ctx, sessionID, session.Update{
		DetectedLanguage: &detected,
		TargetLanguage:   &targetLanguage,
		VoiceID:          &voiceID,
	}); err != nil {
		return fmt.Errorf("store language: %w", err)
	}

	return p.dispatcher.Dispatch(ctx, webhook.Payload{
		SessionID:        sessionID,
		Transcript:       transcript,
		DetectedLanguage: detected,
		TargetLanguage:   targetLanguage,
		VoiceID:          voiceID,
		CallbackURL:      p.callbackURL,
	})
}

// Retranslate resets a session's translated fields and re-dispatches
// the webhook with a new target language and voice.
func (p *Pipeline) Retranslate(ctx context.Context, sess *types.Session, targetLanguage, voiceID string) error {
	status := types.StatusProcessing
	if err := p.store.Update(ctx, sess.ID, session.Update{
		Status:          &status,
		TargetLanguage:  &targetLanguage,
		VoiceID:         &voiceID,
		ClearTranslated: true,
	}); err != nil {
		return err
	}

	detected := sess.DetectedLanguage
	if detected == "" {
		detected = p.defaultLang
	}

	return p.dispatcher.Dispatch(ctx, webhook.Payload{
		SessionID:        sess.ID,
		Transcript:       sess.Transcript,
		DetectedLanguage: detected,
		TargetLanguage:   targetLanguage,
		VoiceID:          voiceID,
		CallbackURL:      p.callbackURL,
	})
}
