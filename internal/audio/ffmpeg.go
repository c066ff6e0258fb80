package audio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/voicejournal/internal/config"
)

const (
	ffmpegBinary     = "ffmpeg"
	captureExt       = ".m4a"
	captureStopGrace = 5 * time.Second
)

type capturePreset struct {
	sampleRate int
	channels   int
	bitrate    string
}

var capturePresets = map[Quality]capturePreset{
	QualityHigh: {sampleRate: 44100, channels: 2, bitrate: "128k"},
	QualityLow:  {sampleRate: 22050, channels: 1, bitrate: "64k"},
}

// FFmpegEngine records through an ffmpeg process and plays back through
// ffplay or mpv. Microphone permission on the desktop is the
// audio.allow_microphone setting plus a usable input source.
type FFmpegEngine struct {
	cfg     *config.Config
	paths   PathAllocator
	sources *Sources

	mu          sync.Mutex
	granted     bool
	captureMode bool
}

// NewFFmpegEngine creates a new ffmpeg based engine
func NewFFmpegEngine(cfg *config.Config, paths PathAllocator) *FFmpegEngine {
	return &FFmpegEngine{
		cfg:     cfg,
		paths:   paths,
		sources: NewSources(),
	}
}

func (e *FFmpegEngine) PermissionGranted(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.granted, nil
}

func (e *FFmpegEngine) RequestPermission(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cfg.Audio.AllowMicrophone {
		slog.Info("Microphone access disabled by configuration")
		return false, nil
	}
	if _, err := exec.LookPath(ffmpegBinary); err != nil {
		return false, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	if e.cfg.Audio.InputFormat == "pulse" {
		if err := e.sources.Validate(e.cfg.Audio.InputDevice); err != nil {
			return false, fmt.Errorf("input source unavailable: %w", err)
		}
	}

	e.granted = true
	return true, nil
}

func (e *FFmpegEngine) SetCaptureMode(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.captureMode != enabled {
		slog.Debug("Audio session mode changed", "capture", enabled)
	}
	e.captureMode = enabled
	return nil
}

func (e *FFmpegEngine) StartCapture(ctx context.Context, quality Quality) (Capture, error) {
	preset, ok := capturePresets[quality]
	if !ok {
		return nil, fmt.Errorf("%w: unknown quality preset %q", ErrCapture, quality)
	}

	output, err := e.paths.NewPath(captureExt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapture, err)
	}

	args := captureArgs(e.cfg.Audio, preset, output)
	cmd := exec.Command(ffmpegBinary, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create stderr pipe: %w", ErrCapture, err)
	}

	slog.Info("Starting FFmpeg capture", "command", ffmpegBinary+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start FFmpeg: %w", ErrCapture, err)
	}

	c := &ffmpegCapture{cmd: cmd, output: output, outputDone: make(chan struct{})}
	go c.readOutput(stderr)
	return c, nil
}

func (e *FFmpegEngine) LoadPlayable(ctx context.Context, uri string, onStatus func(Status)) (Stream, error) {
	if _, err := os.Stat(uri); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPayloadMissing, uri)
		}
		return nil, fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	duration, err := probeDurationMillis(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	player, err := findAudioPlayer(e.cfg.Playback.Player)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	interval := time.Duration(e.cfg.Playback.StatusIntervalMs) * time.Millisecond
	slog.Debug("Loaded playable", "uri", uri, "duration_ms", duration, "player", player)
	return newPlayerStream(uri, player, duration, interval, onStatus), nil
}

// captureArgs builds the ffmpeg command line for a recording.
func captureArgs(audio config.AudioConfig, preset capturePreset, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", audio.InputFormat,
		"-i", audio.InputDevice,
		"-ac", strconv.Itoa(preset.channels),
		"-ar", strconv.Itoa(preset.sampleRate),
		"-c:a", "aac",
		"-b:a", preset.bitrate,
		"-y", // Overwrite output
		output,
	}
}

// ffmpegCapture is a running ffmpeg recording.
type ffmpegCapture struct {
	cmd        *exec.Cmd
	output     string
	outputDone chan struct{}
	stderrBuf  strings.Builder
	bufMu      sync.Mutex
}

// readOutput buffers ffmpeg's stderr for error reports
func (c *ffmpegCapture) readOutput(pipe io.ReadCloser) {
	defer close(c.outputDone)
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		c.bufMu.Lock()
		c.stderrBuf.WriteString(line + "\n")
		c.bufMu.Unlock()
		slog.Debug("FFmpeg output", "line", line)
	}
	pipe.Close()
}

// StopAndFinalize interrupts ffmpeg so it writes the container trailer,
// waits for it and checks the output file.
func (c *ffmpegCapture) StopAndFinalize(ctx context.Context) (string, error) {
	if err := c.stop(ctx); err != nil {
		return "", err
	}
	if err := validateOutputFile(c.output); err != nil {
		if rerr := os.Remove(c.output); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			slog.Warn("Failed to remove invalid recording", "file", c.output, "error", rerr)
		}
		return "", err
	}
	return c.output, nil
}

func (c *ffmpegCapture) stop(ctx context.Context) error {
	if c.cmd.Process != nil {
		slog.Debug("Sending SIGINT to FFmpeg process")
		if err := c.cmd.Process.Signal(os.Interrupt); err != nil {
			slog.Debug("Failed to send interrupt to FFmpeg, killing", "error", err)
			c.cmd.Process.Kill()
		}
	}

	done := make(chan error, 1)
	go func() {
		// Wait closes the pipe, so let the reader drain it first.
		<-c.outputDone
		done <- c.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err == nil {
			return nil
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// 255 is ffmpeg's exit status after a graceful interrupt
			if exitErr.ExitCode() == 255 {
				return nil
			}
			if exitErr.ProcessState != nil && exitErr.ProcessState.String() == "signal: interrupt" {
				return nil
			}
		}
		c.bufMu.Lock()
		output := c.stderrBuf.String()
		c.bufMu.Unlock()
		return fmt.Errorf("FFmpeg process failed: %w\nOutput: %s", err, strings.TrimSpace(output))

	case <-time.After(captureStopGrace):
		slog.Warn("FFmpeg did not exit within timeout, force killing")
		c.cmd.Process.Kill()
		<-done
		return nil

	case <-ctx.Done():
		c.cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

func validateOutputFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("recording file not found: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("recording failed: file is empty")
	}
	slog.Debug("Capture output validated", "file", path, "size", info.Size())
	return nil
}
