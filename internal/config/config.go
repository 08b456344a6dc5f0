// Package config holds every tunable of the collage service: server limits,
// canvas constants, the layout table, header styles, font candidates and the
// form's branch table. Values layer as defaults, then YAML, then environment.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
	"go.lorenzomilicia.dev/report-collage/internal/normalize"
	"go.lorenzomilicia.dev/report-collage/internal/report"
	"go.lorenzomilicia.dev/report-collage/internal/resource"
	"go.lorenzomilicia.dev/report-collage/internal/telemetry"
	"go.lorenzomilicia.dev/report-collage/internal/util"
)

type Config struct {
	Server  ServerConfig          `yaml:"server"`
	Upload  UploadConfig          `yaml:"upload"`
	Canvas  CanvasConfig          `yaml:"canvas"`
	Layout  LayoutConfig          `yaml:"layout"`
	Fit     FitConfig             `yaml:"fit"`
	Header  HeaderConfig          `yaml:"header"`
	Output  OutputConfig          `yaml:"output"`
	Form    FormConfig            `yaml:"form"`
	Storage resource.S3Config     `yaml:"storage"`
	Tracing telemetry.TraceConfig `yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type UploadConfig struct {
	// MaxBodyBytes caps the whole multipart body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	// MaxImageBytes caps one payload before it is decoded. Zero falls back
	// to MaxBodyBytes.
	MaxImageBytes int64 `yaml:"max_image_bytes"`
	MaxImages     int   `yaml:"max_images"`
	// MaxSide bounds the longer edge of a decoded image.
	MaxSide int  `yaml:"max_side"`
	Dedupe  bool `yaml:"dedupe"`
}

type CanvasConfig struct {
	// Width fixes the output width; zero lets it follow the grid.
	Width      int     `yaml:"width"`
	Margin     int     `yaml:"margin"`
	Gap        int     `yaml:"gap"`
	CellWidth  int     `yaml:"cell_width"`
	CellHeight int     `yaml:"cell_height"`
	CellAspect float64 `yaml:"cell_aspect"`
	Background string  `yaml:"background"`
}

type LayoutConfig struct {
	Table        map[int]layout.Shape `yaml:"table"`
	HeroTopSlots map[int]int          `yaml:"hero_top_slots"`
}

type FitConfig struct {
	Mode                 string  `yaml:"mode"`
	AllowRequestOverride bool    `yaml:"allow_request_override"`
	TallRatio            float64 `yaml:"tall_ratio"`
}

type HeaderConfig struct {
	// Fonts are tried in order: local paths or s3://bucket/key.
	Fonts         []string    `yaml:"fonts"`
	AllowFallback bool        `yaml:"allow_fallback"`
	LineGap       int         `yaml:"line_gap"`
	DPI           float64     `yaml:"dpi"`
	Title         StyleConfig `yaml:"title"`
	Date          StyleConfig `yaml:"date"`
	Detail        StyleConfig `yaml:"detail"`
}

type StyleConfig struct {
	Size        float64 `yaml:"size"`
	Color       string  `yaml:"color"`
	SpaceBefore int     `yaml:"space_before"`
}

type OutputConfig struct {
	Format      string  `yaml:"format"`
	JPEGQuality int     `yaml:"jpeg_quality"`
	WebPQuality float32 `yaml:"webp_quality"`
}

// Branch is one entry of the form's branch select. The key is submitted and
// resolved back to Name, which becomes the header title.
type Branch struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
}

type FormConfig struct {
	Branches      []Branch `yaml:"branches"`
	DetailPresets []string `yaml:"detail_presets"`
	LayoutChoices []string `yaml:"layout_choices"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     60 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Upload: UploadConfig{
			MaxBodyBytes:  64 << 20,
			MaxImageBytes: 32 << 20,
			MaxImages:     60,
			MaxSide:       2200,
			Dedupe:        true,
		},
		Canvas: CanvasConfig{
			Margin:     14,
			Gap:        14,
			CellWidth:  420,
			CellHeight: 420,
			Background: "#ffffff",
		},
		Layout: LayoutConfig{
			Table:        layout.DefaultTable(),
			HeroTopSlots: layout.DefaultHeroTopSlots(),
		},
		Fit: FitConfig{
			Mode:      string(fit.Cover),
			TallRatio: 0.7,
		},
		Header: HeaderConfig{
			Fonts: []string{
				"fonts/THSarabunNew.ttf",
				"/usr/share/fonts/truetype/thai/THSarabunNew.ttf",
				"/usr/share/fonts/truetype/tlwg/Garuda.ttf",
				"/usr/share/fonts/truetype/noto/NotoSansThai-Regular.ttf",
			},
			AllowFallback: true,
			LineGap:       header.DefaultLineGap,
			DPI:           72,
			Title:         StyleConfig{Size: 72, Color: "#000000"},
			Date:          StyleConfig{Size: 54, Color: "#000000"},
			Detail:        StyleConfig{Size: 58, Color: "#000000", SpaceBefore: 6},
		},
		Output: OutputConfig{
			Format:      string(compose.JPEG),
			JPEGQuality: 92,
			WebPQuality: 90,
		},
		Form: FormConfig{
			LayoutChoices: []string{"auto", "1", "2", "3", "4", "6", "8", "9", "12", "15", "18"},
		},
		Tracing: telemetry.TraceConfig{
			ServiceName: "report-collage",
			Exporter:    "none",
		},
	}
}

// Load returns defaults overlaid with the YAML file at path (if any) and the
// environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := util.LoadYAML(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Upload.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("upload.max_body_bytes must be positive"))
	}
	if c.Upload.MaxImageBytes < 0 {
		errs = append(errs, errors.New("upload.max_image_bytes must not be negative"))
	}
	if c.Upload.MaxImages < 0 {
		errs = append(errs, errors.New("upload.max_images must not be negative"))
	}
	if c.Upload.MaxSide < 0 {
		errs = append(errs, errors.New("upload.max_side must not be negative"))
	}
	if c.Canvas.Margin < 0 || c.Canvas.Gap < 0 {
		errs = append(errs, errors.New("canvas.margin and canvas.gap must not be negative"))
	}
	if c.Canvas.Width < 0 || c.Canvas.CellWidth < 0 || c.Canvas.CellHeight < 0 || c.Canvas.CellAspect < 0 {
		errs = append(errs, errors.New("canvas sizes must not be negative"))
	}
	for n, s := range c.Layout.Table {
		if n < 1 || s.Rows < 1 || s.Cols < 1 {
			errs = append(errs, fmt.Errorf("layout.table entry %d: %s is not a valid shape", n, s))
		}
	}
	if _, err := fit.ParseMode(c.Fit.Mode); err != nil {
		errs = append(errs, fmt.Errorf("fit.mode: %w", err))
	}
	if _, err := compose.ParseFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}
	if q := c.Output.JPEGQuality; q < 1 || q > 100 {
		errs = append(errs, fmt.Errorf("output.jpeg_quality %d is outside 1-100", q))
	}
	if !c.Header.AllowFallback && len(c.Header.Fonts) == 0 {
		errs = append(errs, errors.New("header.fonts is empty and the fallback font is disabled"))
	}
	for name, value := range map[string]string{
		"canvas.background":   c.Canvas.Background,
		"header.title.color":  c.Header.Title.Color,
		"header.date.color":   c.Header.Date.Color,
		"header.detail.color": c.Header.Detail.Color,
	} {
		if _, err := ParseColor(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// BranchName resolves a submitted branch key. Unknown keys are returned as
// they are so free-text titles still work.
func (c Config) BranchName(key string) string {
	key = strings.TrimSpace(key)
	for _, b := range c.Form.Branches {
		if b.Key == key {
			return b.Name
		}
	}
	return key
}

func (c Config) NormalizeOptions() normalize.Options {
	maxBytes := c.Upload.MaxImageBytes
	if maxBytes == 0 {
		maxBytes = c.Upload.MaxBodyBytes
	}
	return normalize.Options{
		MaxSide:  c.Upload.MaxSide,
		Dedupe:   c.Upload.Dedupe,
		MaxBytes: maxBytes,
	}
}

func (c Config) PlannerOptions() layout.Options {
	return layout.Options{
		Table:        c.Layout.Table,
		CanvasWidth:  c.Canvas.Width,
		Margin:       c.Canvas.Margin,
		Gap:          c.Canvas.Gap,
		CellWidth:    c.Canvas.CellWidth,
		CellHeight:   c.Canvas.CellHeight,
		CellAspect:   c.Canvas.CellAspect,
		HeroTopSlots: c.Layout.HeroTopSlots,
	}
}

func (c Config) ComposeOptions() compose.Options {
	bg, _ := ParseColor(c.Canvas.Background)
	return compose.Options{
		CanvasWidth: c.Canvas.Width,
		Margin:      c.Canvas.Margin,
		Background:  bg,
	}
}

func (c Config) HeaderOptions() header.Options {
	style := func(s StyleConfig) header.Style {
		col, _ := ParseColor(s.Color)
		return header.Style{Size: s.Size, Color: col, SpaceBefore: s.SpaceBefore}
	}
	lineGap := c.Header.LineGap
	if lineGap == 0 {
		lineGap = -1
	}
	return header.Options{
		Styles: map[header.Role]header.Style{
			header.RoleTitle:  style(c.Header.Title),
			header.RoleDate:   style(c.Header.Date),
			header.RoleDetail: style(c.Header.Detail),
		},
		LineGap: lineGap,
		DPI:     c.Header.DPI,
	}
}

func (c Config) ReportOptions() report.Options {
	mode, _ := fit.ParseMode(c.Fit.Mode)
	format, _ := compose.ParseFormat(c.Output.Format)
	bg, _ := ParseColor(c.Canvas.Background)
	return report.Options{
		MaxImages:     c.Upload.MaxImages,
		DefaultFit:    mode,
		Fit:           fit.Options{Background: bg, TallRatio: c.Fit.TallRatio},
		DefaultFormat: format,
		Encode: compose.EncodeOptions{
			JPEGQuality: c.Output.JPEGQuality,
			WebPQuality: c.Output.WebPQuality,
		},
	}
}

// ParseColor accepts #rgb or #rrggbb.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 0:
		return color.NRGBA{}, errors.New("color is empty")
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return color.NRGBA{}, fmt.Errorf("color %q is not #rgb or #rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q is not hexadecimal", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}
