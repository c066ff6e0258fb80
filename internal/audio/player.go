package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// preferred audio players, in order
var players = []string{"ffplay", "mpv"}

// findAudioPlayer returns preferred when set and installed, otherwise the
// first installed player.
func findAudioPlayer(preferred string) (string, error) {
	if preferred != "" {
		if _, err := exec.LookPath(preferred); err != nil {
			return "", fmt.Errorf("configured player %s not found: %w", preferred, err)
		}
		return preferred, nil
	}

	for _, player := range players {
		if _, err := exec.LookPath(player); err == nil {
			return player, nil
		}
	}

	return "", fmt.Errorf("no audio player found (tried: %s)", strings.Join(players, ", "))
}

// playerArgs builds the command line that plays uri from startMillis.
func playerArgs(player, uri string, startMillis int64) ([]string, error) {
	start := strconv.FormatFloat(float64(startMillis)/1000, 'f', 3, 64)
	switch player {
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "error", "-ss", start, uri}, nil
	case "mpv":
		return []string{"--no-video", "--really-quiet", "--start=" + start, uri}, nil
	default:
		return nil, fmt.Errorf("unsupported player: %s", player)
	}
}

// playerStream plays a file through an external player process. Pausing and
// seeking restart the process at the remembered position, so position is
// tracked from wall-clock time while a process runs.
type playerStream struct {
	uri      string
	player   string
	duration int64
	onStatus func(Status)

	mu        sync.Mutex
	cmd       *exec.Cmd
	gen       int // bumped whenever we kill a process so its exit is ignored
	base      int64
	startedAt time.Time
	playing   bool
	unloaded  bool
	done      chan struct{}
}

func newPlayerStream(uri, player string, duration int64, interval time.Duration, onStatus func(Status)) *playerStream {
	s := &playerStream{
		uri:      uri,
		player:   player,
		duration: duration,
		onStatus: onStatus,
		done:     make(chan struct{}),
	}
	go s.report(interval)
	return s
}

func (s *playerStream) DurationMillis() int64 {
	return s.duration
}

func (s *playerStream) Play(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return fmt.Errorf("%w: stream unloaded", ErrPlayback)
	}
	if s.playing {
		return nil
	}
	if s.base >= s.duration {
		s.base = 0
	}
	if err := s.startLocked(); err != nil {
		return err
	}
	s.playing = true
	return nil
}

func (s *playerStream) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing {
		return nil
	}
	s.base = s.positionLocked()
	s.killLocked()
	s.playing = false
	return nil
}

func (s *playerStream) SeekTo(ctx context.Context, positionMillis int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return fmt.Errorf("%w: stream unloaded", ErrPlayback)
	}
	s.base = max(0, min(positionMillis, s.duration))
	if !s.playing {
		return nil
	}
	s.killLocked()
	if err := s.startLocked(); err != nil {
		s.playing = false
		return err
	}
	return nil
}

func (s *playerStream) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.killLocked()
	s.playing = false
	s.base = 0
	return nil
}

func (s *playerStream) Unload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unloaded {
		return nil
	}
	s.killLocked()
	s.playing = false
	s.unloaded = true
	close(s.done)
	return nil
}

func (s *playerStream) startLocked() error {
	args, err := playerArgs(s.player, s.uri, s.base)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPlayback, err)
	}

	cmd := exec.Command(s.player, args...)
	slog.Debug("Starting player", "command", s.player+" "+strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: playback failed with %s: %w", ErrPlayback, s.player, err)
	}

	s.gen++
	s.cmd = cmd
	s.startedAt = time.Now()
	go s.wait(cmd, s.gen)
	return nil
}

func (s *playerStream) killLocked() {
	if s.cmd == nil {
		return
	}
	s.gen++
	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.cmd = nil
}

func (s *playerStream) positionLocked() int64 {
	if !s.playing {
		return s.base
	}
	pos := s.base + time.Since(s.startedAt).Milliseconds()
	return min(pos, s.duration)
}

// wait reaps a player process and reports completion when it exits on its
// own.
func (s *playerStream) wait(cmd *exec.Cmd, gen int) {
	err := cmd.Wait()

	s.mu.Lock()
	if gen != s.gen || s.unloaded {
		s.mu.Unlock()
		return
	}
	if err != nil {
		slog.Warn("Player exited with error", "player", s.player, "uri", s.uri, "error", err)
	}
	s.cmd = nil
	s.playing = false
	s.base = s.duration
	st := Status{PositionMillis: s.duration, DurationMillis: s.duration, DidFinish: true}
	s.mu.Unlock()

	s.onStatus(st)
}

// report emits a status every interval while the stream plays.
func (s *playerStream) report(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			if !s.playing {
				s.mu.Unlock()
				continue
			}
			st := Status{PositionMillis: s.positionLocked(), DurationMillis: s.duration, IsPlaying: true}
			s.mu.Unlock()
			s.onStatus(st)
		}
	}
}
