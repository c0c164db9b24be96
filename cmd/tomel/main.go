package main

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/neurlang/melvoice/audio"
	"github.com/neurlang/melvoice/mel"
	"github.com/neurlang/melvoice/plot"
)

var (
	numMels int
	melFmax float64
	dumpF16 bool
)

func main() {
	cmd := &cobra.Command{
		Use:          "tomel <audio_file>...",
		Short:        "Render mel spectrogram PNGs from audio files",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := mel.NewMel()
			m.NumMels = numMels
			m.MelFmax = melFmax
			for _, filename := range args {
				if err := toMel(m, filename); err != nil {
					return fmt.Errorf("generating mel spectrogram for %s: %w", filename, err)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&numMels, "mels", 128, "number of mel bands")
	cmd.Flags().Float64Var(&melFmax, "fmax", 0, "highest band edge in Hz (0 = Nyquist)")
	cmd.Flags().BoolVar(&dumpF16, "f16", false, "also write raw float16 dB values")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func toMel(m *mel.Mel, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	wf, _, err := audio.DecodeBytes(data, filename)
	if err != nil {
		return err
	}
	power, err := m.ToMel(wf.Samples, wf.SampleRate)
	if err != nil {
		return err
	}
	spec := power.PowerToDB(m.Amin, m.TopDB)

	fig, err := plot.MelSpectrogram(spec, plot.DefaultOptions())
	if err != nil {
		return err
	}
	img, err := fig.PNG()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename+".png", img, 0o644); err != nil {
		return err
	}

	if !dumpF16 {
		return nil
	}
	f, err := os.Create(filename + ".f16")
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, spec.Float16()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
