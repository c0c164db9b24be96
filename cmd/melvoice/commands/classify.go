package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neurlang/melvoice/analysis"
)

var (
	classifyJSON   bool
	classifyPlotTo string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>...",
	Short: "Classify audio files",
	Long: `Run each file through the full pipeline and print the prediction.

With --plots, the waveform and mel spectrogram images are written to the
given directory as <name>.waveform.png and <name>.mel.png.

Examples:
  melvoice classify sample.wav
  melvoice classify --json --plots out/ a.wav b.mp3`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cfg, slog.Default(), true)
		if err != nil {
			return err
		}
		defer p.Close()

		var failed int
		for _, path := range args {
			if err := classifyFile(cmd, p.analyzer, path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, analysis.Message(err))
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

type classifyOutput struct {
	File       string    `json:"file"`
	RequestID  string    `json:"request_id"`
	Label      string    `json:"label"`
	ClassIndex int       `json:"class_index"`
	Scores     []float32 `json:"scores"`
	SampleRate int       `json:"sample_rate"`
	Duration   float64   `json:"duration_seconds"`
}

func classifyFile(cmd *cobra.Command, a *analysis.Analyzer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return analysis.Uploadf("%w", err)
	}
	r, err := a.Analyze(cmd.Context(), analysis.Upload{Filename: filepath.Base(path), Data: data})
	if classifyPlotTo != "" {
		if werr := writePlots(r, path); werr != nil {
			return werr
		}
	}
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), path, r)
}

func writePlots(r *analysis.Report, path string) error {
	if err := os.MkdirAll(classifyPlotTo, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for suffix, data := range map[string][]byte{
		".waveform.png": r.WaveformPNG,
		".mel.png":      r.SpectrogramPNG,
	} {
		if len(data) == 0 {
			continue
		}
		if err := os.WriteFile(filepath.Join(classifyPlotTo, base+suffix), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func printResult(w io.Writer, path string, r *analysis.Report) error {
	if classifyJSON {
		return json.NewEncoder(w).Encode(classifyOutput{
			File:       path,
			RequestID:  r.RequestID,
			Label:      r.Result.Label,
			ClassIndex: r.Result.Index,
			Scores:     r.Result.Scores,
			SampleRate: r.SampleRate,
			Duration:   r.Duration.Seconds(),
		})
	}
	_, err := fmt.Fprintf(w, "%s: Prediction: %s (scores %v)\n", path, r.Result.Label, r.Result.Scores)
	return err
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print one JSON object per file")
	classifyCmd.Flags().StringVar(&classifyPlotTo, "plots", "", "directory for waveform and mel spectrogram PNGs")
	rootCmd.AddCommand(classifyCmd)
}
