package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vubly/vubly/internal/youtube"
)

// YtDlp is the last-resort downloader: the local yt-dlp binary run with
// a sequence of client-impersonation presets.
type YtDlp struct {
	binaryPath string
	workDir    string
}

// NewYtDlp creates the yt-dlp media downloader.
func NewYtDlp(binaryPath, workDir string) *YtDlp {
	return &YtDlp{binaryPath: binaryPath, workDir: workDir}
}

func (y *YtDlp) Name() string { return "yt-dlp" }

// Extractor-arg presets, ordered by how often YouTube lets them through.
var clientPresets = []string{
	"youtube:player_client=web;player_skip=configs,js",
	"youtube:player_client=android",
	"youtube:player_client=ios",
}

// Download runs yt-dlp to a temp file and reads the bytes back. The
// temp file is removed regardless of outcome.
func (y *YtDlp) Download(ctx context.Context, videoID string, kind Kind) ([]byte, error) {
	var lastErr error
	for _, preset := range clientPresets {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		data, err := y.downloadWithPreset(ctx, videoID, kind, preset)
		if err == nil {
			return data, nil
		}
		log.Printf("[yt-dlp] Preset %q failed: %v", preset, err)
		lastErr = err
	}
	return nil, fmt.Errorf("all client presets failed: %w", lastErr)
}

func (y *YtDlp) downloadWithPreset(ctx context.Context, videoID string, kind Kind, preset string) ([]byte, error) {
	ext := "mp3"
	if kind == KindVideo {
		ext = "mp4"
	}
	outputPath := filepath.Join(y.workDir, fmt.Sprintf("%s_%s_%s.%s", videoID, kind, uuid.New().String()[:8], ext))
	defer os.Remove(outputPath)

	args := []string{
		"--extractor-args", preset,
		"--no-check-certificates",
		"-o", outputPath,
	}
	if kind == KindAudio {
		args = append(args, "-x", "--audio-format", "mp3", "--audio-quality", "0")
	} else {
		args = append(args, "-f", "bestvideo[ext=mp4]/best[ext=mp4]")
	}
	args = append(args, youtube.WatchURL(videoID))

	cmd := exec.CommandContext(ctx, y.binaryPath, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %v (%s)", err, lastLine(output))
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("output file not created: %w", err)
	}
	return data, nil
}

func lastLine(output []byte) string {
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
