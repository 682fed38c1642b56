package transcript

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
)

// YtDlpSource extracts subtitles with the local yt-dlp binary, trying
// several argument presets in turn.
type YtDlpSource struct {
	binaryPath string
	workDir    string
}

// NewYtDlpSource creates the yt-dlp subtitle source. binaryPath may be a
// bare command name resolved via PATH.
func NewYtDlpSource(binaryPath, workDir string) *YtDlpSource {
	return &YtDlpSource{binaryPath: binaryPath, workDir: workDir}
}

func (s *YtDlpSource) Name() string { return "yt-dlp-subs" }

type subtitlePreset struct {
	name string
	args []string
}

var subtitlePresets = []subtitlePreset{
	{"auto-sub-vtt", []string{"--skip-download", "--write-auto-sub", "--sub-lang", "en.*", "--sub-format", "vtt", "--convert-subs", "vtt"}},
	{"manual-sub", []string{"--skip-download", "--write-sub", "--sub-lang", "en.*", "--sub-format", "vtt", "--convert-subs", "vtt"}},
	{"any-sub", []string{"--skip-download", "--write-auto-sub", "--write-sub", "--sub-lang", "en,en-US,en-GB,en-orig", "--sub-format", "vtt"}},
	{"all-subs", []string{"--skip-download", "--all-subs", "--sub-format", "vtt"}},
}

// Fetch runs each preset until one leaves a parseable subtitle file in
// the work directory. Stale artifacts from previous attempts are removed
// before each run.
func (s *YtDlpSource) Fetch(ctx context.Context, videoID string) (string, error) {
	outputBase := filepath.Join(s.workDir, videoID+"_subs")
	url := "https://www.youtube.com/watch?v=" + videoID

	for _, preset := range subtitlePresets {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		s.removeArtifacts(videoID)

		args := append(append([]string{}, preset.args...), "-o", outputBase, url)
		log.Printf("[Subtitles] Trying preset %s", preset.name)

		cmd := exec.CommandContext(ctx, s.binaryPath, args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			log.Printf("[Subtitles] Preset %s failed: %v (%s)", preset.name, err, firstLine(output))
			continue
		}

		files, err := s.subtitleFiles(videoID)
		if err != nil || len(files) == 0 {
			log.Printf("[Subtitles] Preset %s produced no subtitle files", preset.name)
			continue
		}

		content, err := os.ReadFile(files[0])
		s.removeArtifacts(videoID)
		if err != nil {
			continue
		}

		if text := ParseSubtitleFile(string(content)); text != "" {
			return text, nil
		}
	}

	return "", fmt.Errorf("all subtitle presets exhausted")
}

// subtitleFiles lists downloaded <id>_subs* subtitle files.
func (s *YtDlpSource) subtitleFiles(videoID string) ([]string, error) {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, videoID+"_subs") &&
			(strings.HasSuffix(name, ".vtt") || strings.HasSuffix(name, ".srt")) {
			files = append(files, filepath.Join(s.workDir, name))
		}
	}
	return files, nil
}

func (s *YtDlpSource) removeArtifacts(videoID string) {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, videoID+"_subs") &&
			(strings.HasSuffix(name, ".vtt") || strings.HasSuffix(name, ".srt") || strings.HasSuffix(name, ".json")) {
			os.Remove(filepath.Join(s.workDir, name))
		}
	}
}

func firstLine(output []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return line
}

var (
	vttHeaderRe   = regexp.MustCompile(`(?s)^WEBVTT.*?\n\n`)
	srtSequenceRe = regexp.MustCompile(`(?m)^\d+\n`)
	timestampRe   = regexp.MustCompile(`\d{2}:\d{2}:\d{2}[.,]\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}[.,]\d{3}`)
	markupTagRe   = regexp.MustCompile(`<[^>]+>`)
	styleTagRe    = regexp.MustCompile(`\{[^}]+\}`)
)

// ParseSubtitleFile strips VTT/SRT structure (headers, sequence numbers,
// timestamp lines, inline tags) leaving plain transcript text.
func ParseSubtitleFile(content string) string {
	text := vttHeaderRe.ReplaceAllString(content, "")
	text = srtSequenceRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = markupTagRe.ReplaceAllString(text, "")
	text = styleTagRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
