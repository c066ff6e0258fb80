package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a new voice note",
	Long: `Record from the configured input until Ctrl+C, then save the recording
as a new note named "Voice Note N".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		slog.Debug("Creating service instance")
		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(ctx)

		if err := svc.StartRecording(ctx); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		snapshots, cancel := svc.Subscribe()
		defer cancel()

		// Handle interruption
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		fmt.Fprintln(out, "Recording... Press Ctrl+C to stop")
	wait:
		for {
			select {
			case snap := <-snapshots:
				fmt.Fprintf(out, "\r● %s", notes.FormatMillis(snap.ElapsedMillis))
			case <-sigChan:
				break wait
			}
		}
		fmt.Fprintln(out)
		slog.Info("Stopping recording...")

		note, err := svc.StopRecording(ctx)
		if err != nil {
			return fmt.Errorf("failed to stop recording: %w", err)
		}
		fmt.Fprintf(out, "Saved %q (%s) as %s\n", note.Name, notes.FormatMillis(note.Duration), note.ID)
		return nil
	},
}
