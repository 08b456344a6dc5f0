package config

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.lorenzomilicia.dev/report-collage/internal/compose"
	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collage.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  read_timeout: 5s
canvas:
  width: 2480
  margin: 40
fit:
  mode: contain
form:
  branches:
    - key: hq
      name: Head Office
layout:
  table:
    11: {rows: 4, cols: 3}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Canvas.Width != 2480 || cfg.Canvas.Margin != 40 {
		t.Errorf("canvas = %+v", cfg.Canvas)
	}
	if cfg.Canvas.Gap != 14 {
		t.Errorf("unset gap lost its default: %d", cfg.Canvas.Gap)
	}
	if cfg.ReportOptions().DefaultFit != fit.Contain {
		t.Errorf("fit mode = %q", cfg.ReportOptions().DefaultFit)
	}
	if got := cfg.Layout.Table[11]; got != (layout.Shape{Rows: 4, Cols: 3}) {
		t.Errorf("table[11] = %s", got)
	}
	if cfg.BranchName("hq") != "Head Office" || cfg.BranchName("Somewhere") != "Somewhere" {
		t.Error("branch resolution failed")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	if _, err := Load(writeConfig(t, "canvas:\n  widht: 10\n")); err == nil {
		t.Fatal("expected error for misspelt key")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COLLAGE_ADDR", ":7000")
	t.Setenv("COLLAGE_MAX_IMAGES", "12")
	t.Setenv("COLLAGE_FONTS", "/a.ttf, s3://fonts/b.ttf ,")
	t.Setenv("COLLAGE_OUTPUT_FORMAT", "webp")
	t.Setenv("COLLAGE_MAX_SIDE", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" || cfg.Upload.MaxImages != 12 {
		t.Errorf("env not applied: %+v %+v", cfg.Server, cfg.Upload)
	}
	if strings.Join(cfg.Header.Fonts, "|") != "/a.ttf|s3://fonts/b.ttf" {
		t.Errorf("fonts = %v", cfg.Header.Fonts)
	}
	if cfg.ReportOptions().DefaultFormat != compose.WebP {
		t.Errorf("format = %q", cfg.ReportOptions().DefaultFormat)
	}
	if cfg.Upload.MaxSide != 2200 {
		t.Errorf("bad env value should keep default, got %d", cfg.Upload.MaxSide)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "fit mode", mutate: func(c *Config) { c.Fit.Mode = "stretch" }},
		{name: "format", mutate: func(c *Config) { c.Output.Format = "gif" }},
		{name: "quality", mutate: func(c *Config) { c.Output.JPEGQuality = 101 }},
		{name: "body cap", mutate: func(c *Config) { c.Upload.MaxBodyBytes = 0 }},
		{name: "table shape", mutate: func(c *Config) { c.Layout.Table[4] = layout.Shape{Rows: 0, Cols: 2} }},
		{name: "colour", mutate: func(c *Config) { c.Header.Title.Color = "black" }},
		{name: "empty text colour", mutate: func(c *Config) { c.Header.Title.Color = "" }},
		{name: "image cap", mutate: func(c *Config) { c.Upload.MaxImageBytes = -1 }},
		{name: "no fonts", mutate: func(c *Config) { c.Header.Fonts = nil; c.Header.AllowFallback = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNormalizeOptionsCapsPayload(t *testing.T) {
	cfg := Default()
	if got := cfg.NormalizeOptions().MaxBytes; got != 32<<20 {
		t.Errorf("default MaxBytes = %d, want %d", got, 32<<20)
	}

	cfg.Upload.MaxImageBytes = 0
	if got := cfg.NormalizeOptions().MaxBytes; got != cfg.Upload.MaxBodyBytes {
		t.Errorf("MaxBytes without an image cap = %d, want the body cap %d", got, cfg.Upload.MaxBodyBytes)
	}

	t.Setenv("COLLAGE_MAX_IMAGE_BYTES", "1024")
	loaded, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := loaded.NormalizeOptions().MaxBytes; got != 1024 {
		t.Errorf("env MaxBytes = %d, want 1024", got)
	}
}

func TestLoadRejectsEmptyTextColour(t *testing.T) {
	_, err := Load(writeConfig(t, "header:\n  title:\n    color: \"\"\n"))
	if err == nil || !strings.Contains(err.Error(), "header.title.color") {
		t.Fatalf("expected header.title.color error, got %v", err)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{in: "#000000", want: color.NRGBA{0, 0, 0, 255}},
		{in: "#fff", want: color.NRGBA{255, 255, 255, 255}},
		{in: "1a2B3c", want: color.NRGBA{0x1a, 0x2b, 0x3c, 255}},
		{in: "", wantErr: true},
		{in: "  ", wantErr: true},
		{in: "#12345", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestHeaderOptions(t *testing.T) {
	cfg := Default()
	opts := cfg.HeaderOptions()
	if opts.LineGap != header.DefaultLineGap {
		t.Errorf("LineGap = %d", opts.LineGap)
	}
	if opts.Styles[header.RoleDetail].SpaceBefore != 6 || opts.Styles[header.RoleTitle].Size != 72 {
		t.Errorf("styles = %+v", opts.Styles)
	}

	cfg.Header.LineGap = 0
	if cfg.HeaderOptions().LineGap >= 0 {
		t.Error("explicit zero gap should map to none")
	}
}
