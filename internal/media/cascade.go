package media

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Kind selects which stream a downloader should produce.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ErrAllProvidersFailed is returned when every downloader in the cascade
// has been tried without success.
var ErrAllProvidersFailed = errors.New("all download providers failed")

// Downloader is one strategy for obtaining media bytes. Each provider
// has its own protocol shape but normalizes to bytes-or-error.
type Downloader interface {
	Name() string
	Download(ctx context.Context, videoID string, kind Kind) ([]byte, error)
}

// Cascade tries downloaders in sequence, stopping at the first success.
// Individual provider failures are logged and swallowed; only full
// exhaustion surfaces as an error.
type Cascade struct {
	downloaders []Downloader
}

// NewCascade builds a download cascade over the given providers.
func NewCascade(downloaders ...Downloader) *Cascade {
	return &Cascade{downloaders: downloaders}
}

// Download runs the cascade for one media kind.
func (c *Cascade) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	var failures []string

	for _, d := range c.downloaders {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("[Download] Trying %s for %s/%s...", d.Name(), videoID, kind)
		data, err := d.Download(ctx, videoID, kind)
		if err != nil {
			log.Printf("[Download] %s failed: %v", d.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", d.Name(), err))
			continue
		}
		if len(data) == 0 {
			failures = append(failures, fmt.Sprintf("%s: empty response", d.Name()))
			continue
		}

		log.Printf("[Download] %s succeeded (%d bytes)", d.Name(), len(data))
		return data, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAllProvidersFailed, strings.Join(failures, "; "))
}
