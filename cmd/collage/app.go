package main

import (
	"context"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/config"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
	"go.lorenzomilicia.dev/report-collage/internal/normalize"
	"go.lorenzomilicia.dev/report-collage/internal/report"
	"go.lorenzomilicia.dev/report-collage/internal/resource"
)

type app struct {
	service *report.Service
	// store writes compose output to local paths or s3:// URLs.
	store *resource.StoreMux
}

// newApp resolves the header font and wires the pipeline from cfg.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	fetcher := resource.NewMux(nil)
	store := resource.NewStoreMux(nil)
	if cfg.Storage.Enabled() {
		client, err := resource.NewS3Client(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		fetcher.Objects = client
		store.Objects = client
	}

	font, _, err := header.LoadFont(ctx, cfg.Header.Fonts, fetcher, cfg.Header.AllowFallback)
	if err != nil {
		return nil, err
	}

	svc, err := report.NewService(
		normalize.New(cfg.NormalizeOptions()),
		layout.NewPlanner(cfg.PlannerOptions()),
		header.NewRenderer(font, cfg.HeaderOptions()),
		compose.New(cfg.ComposeOptions()),
		cfg.ReportOptions(),
	)
	if err != nil {
		return nil, err
	}

	return &app{service: svc, store: store}, nil
}
