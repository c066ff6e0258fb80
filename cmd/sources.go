package cmd

import (
	"fmt"

	"github.com/audiolibrelab/voicejournal/internal/audio"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio input sources",
	Long: `List the PulseAudio/PipeWire sources that can be used as audio.input_device
when audio.input_format is "pulse".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := audio.NewSources().List()
		if err != nil {
			return fmt.Errorf("failed to get audio sources: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Audio sources (%d found):\n", len(sources))
		for i, source := range sources {
			marker := " "
			if source == cfg.Audio.InputDevice {
				marker = "*"
			}
			fmt.Fprintf(out, " %s %d. %s\n", marker, i+1, source)
		}
		fmt.Fprintf(out, "\nConfigure with audio.input_device (currently %q)\n", cfg.Audio.InputDevice)
		return nil
	},
}
