package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VersionLine runs "<binary> -version" and returns the first line of output,
// e.g. "ffmpeg version 7.1 Copyright ...". ffmpeg and ffprobe both accept the
// single-dash form.
func VersionLine(ctx context.Context, binary string) (string, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return "", fmt.Errorf("version: empty binary")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "-version").Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line), nil
}
