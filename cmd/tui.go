package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/audiolibrelab/voicejournal/internal/service"
	"github.com/audiolibrelab/voicejournal/internal/tui"

	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive journal",
	Long: `Browse, search, record and play voice notes in a full-screen terminal UI.
Logs are written to voicejournal.log in the data directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logFile, err := redirectLogging(cfg.LogPath())
		if err != nil {
			return err
		}
		defer logFile.Close()

		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(cmd.Context())

		return tui.Run(cmd.Context(), svc)
	},
}

// redirectLogging sends slog output to path so it does not draw over the UI.
func redirectLogging(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if verboseLevel >= 1 {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return f, nil
}
