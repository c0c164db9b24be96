package commands

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/neurlang/melvoice/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web page and JSON API",
	Long: `Serve the upload page, the JSON API and Prometheus metrics.

The model is loaded once at startup. When it cannot be loaded the server
still starts and every analysis reports the model as unavailable.

Examples:
  melvoice serve
  melvoice -c melvoice.yaml serve --addr :8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		log := slog.Default()

		p, err := newPipeline(cfg, log, false)
		if err != nil {
			return err
		}
		defer p.Close()

		srv, err := server.New(p.analyzer, server.Config{
			MaxUploadBytes: cfg.Server.MaxUploadBytes,
			Allowed:        cfg.Server.AllowedFormats(),
			MaxConcurrent:  cfg.Server.MaxConcurrent,
			RequestTimeout: cfg.Server.RequestTimeout,
			ModelErr:       p.modelErr,
			Logger:         log,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
