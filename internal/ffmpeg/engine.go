package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sceneforge/api/internal/config"
)

// Engine executes composition graphs via ffmpeg subprocesses.
type Engine struct {
	ffmpegBin      string
	ffprobeBin     string
	preset         string
	crf            int
	thumbnailWidth int
}

// NewEngine creates an engine from the compose configuration.
func NewEngine(cfg *config.ComposeConfig) *Engine {
	return &Engine{
		ffmpegBin:      cfg.FFmpegBin,
		ffprobeBin:     cfg.FFprobeBin,
		preset:         cfg.Preset,
		crf:            cfg.CRF,
		thumbnailWidth: cfg.ThumbnailWidth,
	}
}

// Compose runs the graph and encodes the output file. The output format
// is fixed: H.264 high profile, AAC audio, faststart for progressive
// playback. Encode progress is reported through onProgress as a 0-100
// percentage; raw values past 100 from multi-pass audio handling are
// clamped before delivery.
func (e *Engine) Compose(ctx context.Context, g *Graph, outputPath string, onProgress func(percent float64)) error {
	args := []string{"-y", "-hide_banner"}
	for _, in := range g.Inputs {
		args = append(args, "-i", in)
	}
	args = append(args,
		"-filter_complex", g.Render(),
		"-map", "["+g.VideoOut+"]",
		"-map", "["+g.AudioOut+"]",
		"-c:v", "libx264",
		"-preset", e.preset,
		"-crf", strconv.Itoa(e.crf),
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	)

	cmd := exec.CommandContext(ctx, e.ffmpegBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg compose: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg compose: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		outTimeMs, ok := parseProgressLine(scanner.Text())
		if !ok || g.DurationMs <= 0 || onProgress == nil {
			continue
		}
		percent := outTimeMs / g.DurationMs * 100
		if percent > 100 {
			percent = 100
		}
		onProgress(percent)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg compose: %w: %s", err, tail(stderr.String(), 2048))
	}
	return nil
}

// ExtractThumbnail pulls a representative frame at a 1-second offset,
// scaled to the configured width with proportional height.
func (e *Engine) ExtractThumbnail(ctx context.Context, videoPath string, thumbPath string) error {
	cmd := exec.CommandContext(ctx, e.ffmpegBin,
		"-y", "-hide_banner",
		"-ss", "1",
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-2", e.thumbnailWidth),
		thumbPath,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail: %w: %s", err, tail(string(output), 1024))
	}
	return nil
}

// parseProgressLine extracts the encoded position in milliseconds from
// one key=value line of ffmpeg -progress output.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys carry microseconds.
		us, err := strconv.ParseFloat(value, 64)
		if err != nil || us < 0 {
			return 0, false
		}
		return us / 1000.0, true
	}
	return 0, false
}

func tail(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
