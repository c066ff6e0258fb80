package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type Config struct {
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Playback PlaybackConfig `mapstructure:"playback" yaml:"playback"`
}

type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Backend string `mapstructure:"backend" yaml:"backend"` // "file", "sqlite"
	Key     string `mapstructure:"key" yaml:"key"`
}

type AudioConfig struct {
	Engine          string `mapstructure:"engine" yaml:"engine"`   // "ffmpeg", "auto"
	Quality         string `mapstructure:"quality" yaml:"quality"` // "high", "low"
	InputFormat     string `mapstructure:"input_format" yaml:"input_format"`
	InputDevice     string `mapstructure:"input_device" yaml:"input_device"`
	AllowMicrophone bool   `mapstructure:"allow_microphone" yaml:"allow_microphone"`
}

type PlaybackConfig struct {
	Player           string `mapstructure:"player" yaml:"player"` // "", "ffplay", "mpv"
	SkipIntervalMs   int    `mapstructure:"skip_interval_ms" yaml:"skip_interval_ms"`
	StatusIntervalMs int    `mapstructure:"status_interval_ms" yaml:"status_interval_ms"`
}

var defaultConfig = Config{
	Storage: StorageConfig{
		DataDir: filepath.Join("~", ".local", "share", "voicejournal"),
		Backend: BackendFile,
		Key:     "@voice_notes_metadata",
	},
	Audio: AudioConfig{
		Engine:          "auto",
		Quality:         "high",
		InputFormat:     "pulse",
		InputDevice:     "default",
		AllowMicrophone: true,
	},
	Playback: PlaybackConfig{
		SkipIntervalMs:   10000,
		StatusIntervalMs: 250,
	},
}

// Default returns a copy of the built-in configuration with paths expanded.
func Default() *Config {
	cfg := defaultConfig
	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	return &cfg
}

// DefaultPath is where the config file is looked up when --config is not given.
func DefaultPath() string {
	return os.ExpandEnv("$HOME/.config/voicejournal.yaml")
}

// Load reads configFile on top of the defaults. Environment variables with
// the VOICEJOURNAL_ prefix (e.g. VOICEJOURNAL_STORAGE_BACKEND) override file
// values. A missing file is not an error.
func Load(configFile string) (*Config, error) {
	v := newViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
			slog.Debug("Config file not found, using defaults", "file", configFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Storage.DataDir = expandPath(cfg.Storage.DataDir)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.Audio.Quality = strings.ToLower(strings.TrimSpace(cfg.Audio.Quality))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if path == "" {
		return fmt.Errorf("no config file specified")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper()
	if err := v.SafeWriteConfigAs(path); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("VOICEJOURNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := defaultConfig
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("audio.engine", d.Audio.Engine)
	v.SetDefault("audio.quality", d.Audio.Quality)
	v.SetDefault("audio.input_format", d.Audio.InputFormat)
	v.SetDefault("audio.input_device", d.Audio.InputDevice)
	v.SetDefault("audio.allow_microphone", d.Audio.AllowMicrophone)
	v.SetDefault("playback.player", d.Playback.Player)
	v.SetDefault("playback.skip_interval_ms", d.Playback.SkipIntervalMs)
	v.SetDefault("playback.status_interval_ms", d.Playback.StatusIntervalMs)
	return v
}

// Validate checks the values a running journal depends on.
func (c *Config) Validate() error {
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unsupported backend '%s' (valid: file, sqlite)", c.Storage.Backend)
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}

	switch strings.ToLower(c.Audio.Engine) {
	case "", "auto", "ffmpeg":
	default:
		return fmt.Errorf("audio.engine: unsupported engine '%s' (valid: auto, ffmpeg)", c.Audio.Engine)
	}
	switch c.Audio.Quality {
	case "high", "low":
	default:
		return fmt.Errorf("audio.quality: unsupported preset '%s' (valid: high, low)", c.Audio.Quality)
	}

	switch c.Playback.Player {
	case "", "ffplay", "mpv":
	default:
		return fmt.Errorf("playback.player: unsupported player '%s' (valid: ffplay, mpv)", c.Playback.Player)
	}
	if c.Playback.SkipIntervalMs <= 0 {
		return fmt.Errorf("playback.skip_interval_ms must be positive, got %d", c.Playback.SkipIntervalMs)
	}
	if c.Playback.StatusIntervalMs <= 0 {
		return fmt.Errorf("playback.status_interval_ms must be positive, got %d", c.Playback.StatusIntervalMs)
	}
	return nil
}

// AudioDir is where recordings are written.
func (c *Config) AudioDir() string {
	return filepath.Join(c.Storage.DataDir, "audio")
}

// MetadataDir holds the file backend's key files.
func (c *Config) MetadataDir() string {
	return filepath.Join(c.Storage.DataDir, "metadata")
}

// DatabasePath is the sqlite backend's database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Storage.DataDir, "voicejournal.sqlite")
}

// LogPath is used by the interactive UI, which cannot log to the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.Storage.DataDir, "voicejournal.log")
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path)
}
