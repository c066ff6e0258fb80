package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/voicejournal/internal/notes"
	"github.com/audiolibrelab/voicejournal/internal/service"
)

var listSearch string

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recordings, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(cmd.Context())

		printNotes(cmd.OutOrStdout(), svc.Search(cmd.Context(), listSearch))
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [id] [name]",
	Short: "Rename a recording",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(cmd.Context())

		name := strings.Join(args[1:], " ")
		if _, err := svc.Rename(cmd.Context(), args[0], name); err != nil {
			return fmt.Errorf("rename failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", args[0], strings.TrimSpace(name))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete [id]",
	Aliases: []string{"rm"},
	Short:   "Delete a recording and its audio file",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := service.New(cfg)
		if err != nil {
			return err
		}
		defer svc.Close(cmd.Context())

		list, err := svc.Delete(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s, %s left\n", args[0], notes.CountLabel(len(list)))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "only show recordings whose name contains this text")
}

func printNotes(w io.Writer, list []notes.VoiceNote) {
	fmt.Fprintln(w, notes.CountLabel(len(list)))
	for _, n := range list {
		fmt.Fprintf(w, "  %s  %-24s %6s  %s\n",
			n.ID, n.Name, notes.FormatMillis(n.Duration), humanize.Time(n.Timestamp))
	}
}
