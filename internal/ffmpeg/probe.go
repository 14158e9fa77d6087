package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type probeFormat struct {
	Duration string `json:"duration"`
}

type probeResult struct {
	Format probeFormat `json:"format"`
}

// ProbeDurationMs returns the decoded duration of a media file in
// milliseconds, as reported by ffprobe.
func (e *Engine) ProbeDurationMs(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffprobeBin,
		"-v", "error",
		"-show_format",
		"-of", "json",
		"--", path,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(output)))
	}
	return parseProbeDurationMs(output)
}

func parseProbeDurationMs(output []byte) (float64, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe parse: invalid duration %q", result.Format.Duration)
	}
	return seconds * 1000, nil
}
