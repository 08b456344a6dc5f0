package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"go.lorenzomilicia.dev/report-collage/assets"
	"go.lorenzomilicia.dev/report-collage/internal/server"
	"go.lorenzomilicia.dev/report-collage/internal/telemetry"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the report web server",
	Long:  `Serve the upload form and the report generation endpoint.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Failed to flush traces")
			}
		}()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}

		srv, err := server.New(cfg, a.service, assets.TemplatesFS)
		if err != nil {
			return err
		}

		log.Info().
			Str("addr", cfg.Server.Addr).
			Int("maxImages", cfg.Upload.MaxImages).
			Int64("maxBodyBytes", cfg.Upload.MaxBodyBytes).
			Str("fit", cfg.Fit.Mode).
			Msg("Starting report collage server")

		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
