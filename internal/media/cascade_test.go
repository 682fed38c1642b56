package media

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeDownloader struct {
	name  string
	data  []byte
	err   error
	calls int
}

func (f *fakeDownloader) Name() string { return f.name }

func (f *fakeDownloader) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func TestCascadeFirstSuccessWins(t *testing.T) {
	first := &fakeDownloader{name: "a", data: []byte("mp3 bytes")}
	second := &fakeDownloader{name: "b", data: []byte("unused")}

	c := NewCascade(first, second)
	data, err := c.Download(context.Background(), "vid", KindAudio)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "mp3 bytes" {
		t.Errorf("got %q", data)
	}
	if second.calls != 0 {
		t.Errorf("second provider called %d times, want 0", second.calls)
	}
}

func TestCascadeFallsThroughFailures(t *testing.T) {
	failing := &fakeDownloader{name: "a", err: fmt.Errorf("blocked")}
	empty := &fakeDownloader{name: "b"}
	good := &fakeDownloader{name: "c", data: []byte("bytes")}

	c := NewCascade(failing, empty, good)
	data, err := c.Download(context.Background(), "vid", KindAudio)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(data) != "bytes" {
		t.Errorf("got %q", data)
	}
}

func TestCascadeEmptyResponseIsFailure(t *testing.T) {
	empty := &fakeDownloader{name: "a"}

	c := NewCascade(empty)
	_, err := c.Download(context.Background(), "vid", KindVideo)
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
}

func TestCascadeExhaustion(t *testing.T) {
	a := &fakeDownloader{name: "a", err: fmt.Errorf("rate limited")}
	b := &fakeDownloader{name: "b", err: fmt.Errorf("unavailable")}

	c := NewCascade(a, b)
	_, err := c.Download(context.Background(), "vid", KindAudio)
	if !errors.Is(err, ErrAllProvidersFailed) {
		t.Fatalf("err = %v, want ErrAllProvidersFailed", err)
	}
	if a.calls != 1 || b.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}
