package normalize

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"go.lorenzomilicia.dev/report-collage/internal/reporterr"
)

func encode(t *testing.T, img image.Image, format imaging.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return buf.Bytes()
}

func pngOf(t *testing.T, w, h int, c color.Color) []byte {
	return encode(t, imaging.New(w, h, c), imaging.PNG)
}

func TestNormalizeDedupesByContent(t *testing.T) {
	red := pngOf(t, 10, 10, color.NRGBA{255, 0, 0, 255})
	blue := pngOf(t, 10, 10, color.NRGBA{0, 0, 255, 255})

	sources := []Source{
		&BytesSource{Filename: "a.png", Data: red},
		&BytesSource{Filename: "b.png", Data: blue},
		&BytesSource{Filename: "a-copy.png", Data: red},
	}

	images, err := New(Options{Dedupe: true}).Normalize(context.Background(), sources)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("got %d images, want 2", len(images))
	}
	if images[0].Name != "a.png" || images[1].Name != "b.png" {
		t.Errorf("order = %s, %s; first occurrence should win", images[0].Name, images[1].Name)
	}
	if images[0].Hash != ComputeHash(red) {
		t.Errorf("hash mismatch")
	}
}

func TestNormalizeKeepsDuplicatesWhenDisabled(t *testing.T) {
	red := pngOf(t, 10, 10, color.NRGBA{255, 0, 0, 255})
	sources := []Source{
		&BytesSource{Filename: "a.png", Data: red},
		&BytesSource{Filename: "b.png", Data: red},
	}
	images, err := New(Options{}).Normalize(context.Background(), sources)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(images) != 2 {
		t.Errorf("got %d images, want 2", len(images))
	}
}

func TestNormalizeDecodeErrorNamesFile(t *testing.T) {
	sources := []Source{
		&BytesSource{Filename: "ok.png", Data: pngOf(t, 4, 4, color.White)},
		&BytesSource{Filename: "notes.txt", Data: []byte("definitely not an image")},
	}
	_, err := New(Options{}).Normalize(context.Background(), sources)

	var decodeErr *reporterr.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if decodeErr.Filename != "notes.txt" {
		t.Errorf("Filename = %q", decodeErr.Filename)
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Errorf("message %q does not name the file", err.Error())
	}
}

func TestNormalizeTruncatedPayload(t *testing.T) {
	data := encode(t, imaging.New(64, 64, color.Black), imaging.JPEG)
	_, err := New(Options{}).Normalize(context.Background(), []Source{
		&BytesSource{Filename: "cut.jpg", Data: data[:len(data)/3]},
	})
	var decodeErr *reporterr.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestNormalizeDownscalesKeepingAspect(t *testing.T) {
	src := &BytesSource{Filename: "wide.jpg", Data: encode(t, imaging.New(800, 300, color.Black), imaging.JPEG)}
	images, err := New(Options{MaxSide: 200}).Normalize(context.Background(), []Source{src})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	img := images[0]
	if max(img.Width(), img.Height()) != 200 {
		t.Errorf("size = %dx%d, longer side should be 200", img.Width(), img.Height())
	}
	if !img.Downscaled() {
		t.Error("Downscaled() = false")
	}
	before := float64(800) / 300
	after := float64(img.Width()) / float64(img.Height())
	if math.Abs(before-after)/before > 0.01 {
		t.Errorf("aspect drifted from %.3f to %.3f", before, after)
	}
}

func TestNormalizeNeverUpscales(t *testing.T) {
	src := &BytesSource{Filename: "small.png", Data: pngOf(t, 30, 20, color.White)}
	images, err := New(Options{MaxSide: 2200}).Normalize(context.Background(), []Source{src})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if images[0].Width() != 30 || images[0].Height() != 20 || images[0].Downscaled() {
		t.Errorf("size = %dx%d", images[0].Width(), images[0].Height())
	}
}

func TestNormalizeFlattensAlphaOnWhite(t *testing.T) {
	src := &BytesSource{Filename: "clear.png", Data: pngOf(t, 8, 8, color.NRGBA{0, 0, 0, 0})}
	images, err := New(Options{}).Normalize(context.Background(), []Source{src})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if c := images[0].Pixels.NRGBAAt(4, 4); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("pixel = %v, want opaque white", c)
	}
	if !images[0].Pixels.Opaque() {
		t.Error("normalized image is not opaque")
	}
}

func TestNormalizeNoImages(t *testing.T) {
	tests := []struct {
		name    string
		sources []Source
	}{
		{name: "nothing uploaded", sources: nil},
		{name: "empty parts", sources: []Source{&BytesSource{Filename: ""}, &BytesSource{Filename: "x.png"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Options{}).Normalize(context.Background(), tt.sources)
			var noImages *reporterr.NoImagesError
			if !errors.As(err, &noImages) {
				t.Fatalf("expected NoImagesError, got %v", err)
			}
		})
	}
}

func TestNormalizePerImageLimit(t *testing.T) {
	src := &BytesSource{Filename: "big.png", Data: pngOf(t, 64, 64, color.White)}
	_, err := New(Options{MaxBytes: 16}).Normalize(context.Background(), []Source{src})
	var tooLarge *reporterr.PayloadTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("expected PayloadTooLargeError, got %v", err)
	}
}

func TestNormalizeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Normalize(ctx, []Source{&BytesSource{Filename: "a.png", Data: pngOf(t, 2, 2, color.White)}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := os.WriteFile(path, pngOf(t, 5, 5, color.White), 0644); err != nil {
		t.Fatal(err)
	}
	src := &FileSource{Path: path}
	if src.Name() != "photo.png" {
		t.Errorf("Name() = %q", src.Name())
	}
	images, err := New(Options{}).Normalize(context.Background(), []Source{src})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if images[0].Format != "png" {
		t.Errorf("Format = %q", images[0].Format)
	}
}
