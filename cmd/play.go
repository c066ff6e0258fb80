package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"

	"github.com/spf13/cobra"
)

var playStart int64

var playCmd = &cobra.Command{
	Use:   "play [id]",
	Short: "Play a recording",
	Long: `Play a recording through ffplay or mpv and show its progress. Playback
ends when the recording finishes or on Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(ctx)

		note, err := svc.Note(ctx, args[0])
		if err != nil {
			return err
		}
		if err := svc.Play(ctx, note.ID); err != nil {
			return fmt.Errorf("playback failed: %w", err)
		}
		if playStart > 0 {
			if err := svc.Seek(ctx, playStart); err != nil {
				return err
			}
		}

		snapshots, cancel := svc.Subscribe()
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		fmt.Fprintf(out, "Playing %q\n", note.Name)
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok || !snap.Loaded() {
					fmt.Fprintln(out)
					return nil
				}
				fmt.Fprintf(out, "\r▶ %s / %s", notes.FormatMillis(snap.PositionMillis), notes.FormatMillis(snap.DurationMillis))
			case <-sigChan:
				fmt.Fprintln(out)
				return svc.Stop(ctx)
			}
		}
	},
}

func init() {
	playCmd.Flags().Int64Var(&playStart, "start", 0, "start position in milliseconds")
}
