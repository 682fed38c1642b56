package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// ErrUnavailable is returned when every source has been tried and none
// produced a transcript above the minimum length. "No captions" is an
// expected condition, not a panic.
var ErrUnavailable = errors.New("transcript unavailable")

// Source is one strategy for obtaining a transcript. Implementations
// return an error (or an empty string) when the strategy cannot produce
// one; the cascade decides what to do next.
type Source interface {
	Name() string
	Fetch(ctx context.Context, videoID string) (string, error)
}

// Cascade tries sources in order and returns the first transcript at or
// above the minimum length. Quality is not compared across sources; the
// ordering encodes the observed reliability/latency trade-off.
type Cascade struct {
	sources  []Source
	minChars int
}

// NewCascade builds a cascade over the given sources.
func NewCascade(minChars int, sources ...Source) *Cascade {
	return &Cascade{sources: sources, minChars: minChars}
}

// Fetch runs the cascade. Per-source failures are logged and collected;
// ErrUnavailable wraps them all once the list is exhausted.
func (c *Cascade) Fetch(ctx context.Context, videoID string) (string, error) {
	var failures []string

	for _, source := range c.sources {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		log.Printf("[Captions] Trying source: %s", source.Name())
		text, err := source.Fetch(ctx, videoID)
		if err != nil {
			log.Printf("[Captions] Source %s failed: %v", source.Name(), err)
			failures = append(failures, fmt.Sprintf("%s: %v", source.Name(), err))
			continue
		}

		text = strings.TrimSpace(text)
		if len(text) < c.minChars {
			log.Printf("[Captions] Source %s returned %d chars, below minimum %d", source.Name(), len(text), c.minChars)
			failures = append(failures, fmt.Sprintf("%s: transcript too short (%d chars)", source.Name(), len(text)))
			continue
		}

		log.Printf("[Captions] Source %s succeeded (%d chars)", source.Name(), len(text))
		return text, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnavailable, strings.Join(failures, "; "))
}
