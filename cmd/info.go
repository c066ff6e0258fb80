package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"
)

var infoCmd = &cobra.Command{
	Use:   "info [id]",
	Short: "Show a recording's metadata and audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(cmd.Context())

		note, err := svc.Note(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "=== RECORDING ===\n")
		fmt.Fprintf(out, "id: %s\n", note.ID)
		fmt.Fprintf(out, "name: %s\n", note.Name)
		fmt.Fprintf(out, "recorded: %s (%s)\n", note.Timestamp.Local().Format("2006-01-02 15:04:05"), humanize.Time(note.Timestamp))
		fmt.Fprintf(out, "duration: %s\n", notes.FormatMillis(note.Duration))

		fmt.Fprintf(out, "\n=== FILE ===\n")
		fmt.Fprintf(out, "uri: %s\n", note.URI)
		if stat, err := os.Stat(note.URI); err != nil {
			fmt.Fprintf(out, "status: missing\n")
		} else {
			fmt.Fprintf(out, "size: %s\n", humanize.Bytes(uint64(stat.Size())))
		}

		fmt.Fprintf(out, "\n=== STORAGE ===\n")
		fmt.Fprintf(out, "backend: %s\n", cfg.Storage.Backend)
		fmt.Fprintf(out, "audio_dir: %s\n", cfg.AudioDir())
		return nil
	},
}
