// Package report runs the full pipeline for one collage: normalize uploads,
// plan the layout, measure the header, compose the canvas and encode it.
package report

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
	"go.lorenzomilicia.dev/report-collage/internal/normalize"
	"go.lorenzomilicia.dev/report-collage/internal/reporterr"
)

// Request is everything one report needs.
type Request struct {
	Sources  []normalize.Source
	Header   header.Spec
	Override layout.Override
	// Hero is the 1-based index of the featured upload, 0 for none.
	Hero int
	// Fit and Format fall back to the service defaults when empty.
	Fit    fit.Mode
	Format compose.Format
}

// Result is an encoded report.
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
	Width       int
	Height      int
	Count       int
	Plan        layout.Plan
}

// Options configures a Service.
type Options struct {
	// MaxImages bounds the uploads per request. Zero disables the check.
	MaxImages     int
	DefaultFit    fit.Mode
	Fit           fit.Options
	DefaultFormat compose.Format
	Encode        compose.EncodeOptions
	Now           func() time.Time
}

type canvasComposer interface {
	Width(plan layout.Plan, textWidth int) int
	Compose(ctx context.Context, plan layout.Plan, images []image.Image, head *header.Block, fitter fit.Fitter) (*compose.Canvas, error)
}

// Service generates reports. It is safe for concurrent use.
type Service struct {
	normalizer *normalize.Normalizer
	planner    *layout.Planner
	renderer   *header.Renderer
	composer   canvasComposer
	fitters    map[fit.Mode]fit.Fitter
	opts       Options
	tracer     trace.Tracer
}

// NewService wires the pipeline stages together.
func NewService(normalizer *normalize.Normalizer, planner *layout.Planner, renderer *header.Renderer, composer *compose.Composer, opts Options) (*Service, error) {
	return newService(normalizer, planner, renderer, composer, opts)
}

func newService(normalizer *normalize.Normalizer, planner *layout.Planner, renderer *header.Renderer, composer canvasComposer, opts Options) (*Service, error) {
	if opts.DefaultFit == "" {
		opts.DefaultFit = fit.Cover
	}
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = compose.JPEG
	}
	if opts.Encode.JPEGQuality == 0 && opts.Encode.WebPQuality == 0 {
		opts.Encode = compose.DefaultEncodeOptions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fitters := make(map[fit.Mode]fit.Fitter, 3)
	for _, mode := range []fit.Mode{fit.Cover, fit.Contain, fit.Square} {
		fo := opts.Fit
		fo.Mode = mode
		f, err := fit.New(fo)
		if err != nil {
			return nil, err
		}
		fitters[mode] = f
	}
	if _, ok := fitters[opts.DefaultFit]; !ok {
		return nil, fmt.Errorf("unknown default fit mode %q", opts.DefaultFit)
	}

	return &Service{
		normalizer: normalizer,
		planner:    planner,
		renderer:   renderer,
		composer:   composer,
		fitters:    fitters,
		opts:       opts,
		tracer:     otel.Tracer("report-collage/report"),
	}, nil
}

// Generate runs the pipeline. Nothing is allocated for the canvas unless at
// least one image decoded.
func (s *Service) Generate(ctx context.Context, req Request) (result *Result, err error) {
	startedAt := time.Now()
	ctx, span := s.tracer.Start(ctx, "report.generate")
	span.SetAttributes(attribute.Int("report.uploads", len(req.Sources)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "report generation failed")
		}
		span.End()
	}()

	if s.opts.MaxImages > 0 && len(req.Sources) > s.opts.MaxImages {
		return nil, &reporterr.TooManyImagesError{Count: len(req.Sources), Limit: s.opts.MaxImages}
	}

	fitter, err := s.fitter(req.Fit)
	if err != nil {
		return nil, err
	}
	format := req.Format
	if format == "" {
		format = s.opts.DefaultFormat
	}

	images, err := s.normalize(ctx, req.Sources)
	if err != nil {
		return nil, err
	}

	plan, err := s.plan(ctx, len(images), req)
	if err != nil {
		return nil, err
	}

	block, err := s.layoutHeader(ctx, req.Header, plan)
	if err != nil {
		return nil, err
	}
	defer block.Close()

	pixels := make([]image.Image, len(images))
	for i, img := range images {
		pixels[i] = img.Pixels
	}

	composeCtx, composeSpan := s.tracer.Start(ctx, "report.compose")
	canvas, err := s.composer.Compose(composeCtx, plan, pixels, block, fitter)
	composeSpan.End()
	if err != nil {
		return nil, fmt.Errorf("failed to compose canvas: %w", err)
	}

	_, encodeSpan := s.tracer.Start(ctx, "report.encode", trace.WithAttributes(attribute.String("report.format", string(format))))
	var buf bytes.Buffer
	err = compose.Encode(&buf, canvas.Image, format, s.opts.Encode)
	encodeSpan.End()
	if err != nil {
		return nil, err
	}

	bounds := canvas.Image.Bounds()
	result = &Result{
		Filename:    compose.Filename(s.opts.Now(), format),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Count:       len(images),
		Plan:        plan,
	}

	span.SetAttributes(
		attribute.Int("report.images", result.Count),
		attribute.String("report.layout", string(plan.Mode)),
		attribute.Int("report.width", result.Width),
		attribute.Int("report.height", result.Height),
	)

	log.Info().
		Int("images", result.Count).
		Str("layout", fmt.Sprintf("%s %dx%d", plan.Mode, plan.Rows, plan.Cols)).
		Int("width", result.Width).
		Int("height", result.Height).
		Int("bytes", len(result.Data)).
		Dur("elapsed", time.Since(startedAt)).
		Msg("Report generated")

	return result, nil
}

func (s *Service) fitter(mode fit.Mode) (fit.Fitter, error) {
	if mode == "" {
		mode = s.opts.DefaultFit
	}
	f, ok := s.fitters[mode]
	if !ok {
		return nil, &reporterr.InvalidInputError{Field: "fit", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	return f, nil
}

func (s *Service) normalize(ctx context.Context, sources []normalize.Source) ([]normalize.Image, error) {
	ctx, span := s.tracer.Start(ctx, "report.normalize")
	defer span.End()

	images, err := s.normalizer.Normalize(ctx, sources)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("report.images", len(images)))
	return images, nil
}

func (s *Service) plan(ctx context.Context, count int, req Request) (layout.Plan, error) {
	_, span := s.tracer.Start(ctx, "report.plan")
	defer span.End()

	plan, err := s.planner.Plan(layout.Request{Count: count, Override: req.Override, Hero: req.Hero})
	if err != nil {
		return layout.Plan{}, fmt.Errorf("failed to plan layout: %w", err)
	}
	if req.Hero > 0 && plan.Mode != layout.ModeHero {
		log.Debug().Int("hero", req.Hero).Int("images", count).Msg("Hero layout unavailable for this count, using grid")
	}
	return plan, nil
}

// layoutHeader measures the text first so a header wider than the grid can
// widen the canvas, then lays it out against the final width.
func (s *Service) layoutHeader(ctx context.Context, spec header.Spec, plan layout.Plan) (*header.Block, error) {
	_, span := s.tracer.Start(ctx, "report.header")
	defer span.End()

	textWidth, err := s.renderer.TextWidth(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to measure header: %w", err)
	}
	block, err := s.renderer.Layout(spec, s.composer.Width(plan, textWidth))
	if err != nil {
		return nil, fmt.Errorf("failed to lay out header: %w", err)
	}
	span.SetAttributes(attribute.Int("report.header_height", block.Height()))
	return block, nil
}
