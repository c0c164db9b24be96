package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurlang/melvoice/audio"
)

var bitDepth int

func main() {
	cmd := &cobra.Command{
		Use:          "towav <audio_file>...",
		Short:        "Convert audio files to mono PCM WAV",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, filename := range args {
				if err := toWav(filename, bitDepth); err != nil {
					return fmt.Errorf("converting %s: %w", filename, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s.wav\n", filename)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&bitDepth, "bits", 16, "PCM bit depth (16, 24 or 32)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func toWav(filename string, bits int) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	wf, _, err := audio.DecodeBytes(data, filename)
	if err != nil {
		return err
	}
	f, err := os.Create(filename + ".wav")
	if err != nil {
		return err
	}
	if err := audio.EncodeWAV(f, wf, bits); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}
