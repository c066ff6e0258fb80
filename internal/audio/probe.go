package audio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const ffprobeBinary = "ffprobe"

// probeDurationMillis asks ffprobe for the decoded length of a payload.
func probeDurationMillis(ctx context.Context, uri string) (int64, error) {
	cmd := exec.CommandContext(ctx, ffprobeBinary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		uri,
	)

	slog.Debug("Running ffprobe", "command", strings.Join(cmd.Args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return parseProbeDuration(string(output))
}

// parseProbeDuration converts ffprobe's seconds output ("12.345000") to
// milliseconds.
func parseProbeDuration(output string) (int64, error) {
	value := strings.TrimSpace(output)
	if i := strings.IndexByte(value, '\n'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	if value == "" || value == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}

	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return int64(math.Round(seconds * 1000)), nil
}
