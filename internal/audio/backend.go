package audio

import (
	"log/slog"
	"strings"

	"github.com/audiolibrelab/voicejournal/internal/config"
)

// EngineType represents the type of audio engine
type EngineType string

const (
	EngineTypeFFmpeg EngineType = "ffmpeg"
	EngineTypeAuto   EngineType = "auto"
)

// PathAllocator hands out locations for new recordings.
type PathAllocator interface {
	NewPath(ext string) (string, error)
}

// NewEngine creates the engine selected by configuration
func NewEngine(cfg *config.Config, paths PathAllocator) Engine {
	engine := determineEngine(cfg)
	if engine != EngineTypeFFmpeg {
		slog.Warn("Unknown audio engine, falling back to ffmpeg", "engine", engine)
	}
	return NewFFmpegEngine(cfg, paths)
}

// determineEngine resolves "auto" to the engine available on this host
func determineEngine(cfg *config.Config) EngineType {
	engine := EngineType(strings.ToLower(strings.TrimSpace(cfg.Audio.Engine)))
	if engine == "" || engine == EngineTypeAuto {
		return EngineTypeFFmpeg
	}
	return engine
}
