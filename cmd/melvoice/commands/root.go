package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/neurlang/melvoice/config"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "melvoice",
	Short: "Real vs. AI-generated voice analysis",
	Long: `Classify voice recordings as real or AI-generated.

Each clip is decoded, drawn as a waveform, turned into a mel spectrogram
and rendered to an image that an image classifier labels.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		slog.SetDefault(cfg.Log.NewLogger())
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}
