// Package normalize turns uploaded payloads into opaque, upright, size-bounded
// images ready for tiling.
package normalize

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	_ "github.com/chai2010/webp" // Register WebP decoder
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"go.lorenzomilicia.dev/report-collage/internal/reporterr"
)

// Options controls normalization.
type Options struct {
	// MaxSide bounds the longer edge after orientation. Zero disables the clamp.
	MaxSide int
	// Dedupe drops payloads whose content hash was already seen.
	Dedupe bool
	// MaxBytes bounds a single payload. Zero disables the check.
	MaxBytes int64
}

// Image is a decoded upload. Pixels is always fully opaque.
type Image struct {
	Name   string
	Hash   string
	Format string
	Pixels *image.NRGBA
	// SourceWidth and SourceHeight are the oriented size before any downscale.
	SourceWidth  int
	SourceHeight int
}

// Width returns the normalized width.
func (i Image) Width() int {
	return i.Pixels.Bounds().Dx()
}

// Height returns the normalized height.
func (i Image) Height() int {
	return i.Pixels.Bounds().Dy()
}

// Downscaled reports whether the max side clamp was applied.
func (i Image) Downscaled() bool {
	return i.Width() != i.SourceWidth || i.Height() != i.SourceHeight
}

// Normalizer decodes and cleans up uploads. It is safe for concurrent use.
type Normalizer struct {
	opts Options
}

// New creates a Normalizer.
func New(opts Options) *Normalizer {
	return &Normalizer{opts: opts}
}

// Normalize processes sources in order. It fails on the first undecodable
// payload and returns NoImagesError when nothing is left.
func (n *Normalizer) Normalize(ctx context.Context, sources []Source) ([]Image, error) {
	images := make([]Image, 0, len(sources))
	seen := make(map[string]bool, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := n.read(src)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			log.Debug().Str("file", src.Name()).Msg("Skipping empty upload")
			continue
		}

		hash := ComputeHash(data)
		if n.opts.Dedupe && seen[hash] {
			log.Debug().Str("file", src.Name()).Str("hash", hash[:12]).Msg("Dropping duplicate upload")
			continue
		}
		seen[hash] = true

		img, err := n.decode(src.Name(), data)
		if err != nil {
			return nil, err
		}
		img.Hash = hash
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, &reporterr.NoImagesError{}
	}
	return images, nil
}

func (n *Normalizer) read(src Source) ([]byte, error) {
	reader, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src.Name(), err)
	}
	defer reader.Close()

	if n.opts.MaxBytes <= 0 {
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src.Name(), err)
		}
		return data, nil
	}

	data, err := io.ReadAll(io.LimitReader(reader, n.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	if int64(len(data)) > n.opts.MaxBytes {
		return nil, &reporterr.PayloadTooLargeError{Limit: n.opts.MaxBytes}
	}
	return data, nil
}

// decode verifies the header on one reader and decodes from a fresh one, so
// the check never consumes bytes the real decode needs.
func (n *Normalizer) decode(name string, data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, &reporterr.DecodeError{Filename: name, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, &reporterr.DecodeError{Filename: name, Err: errors.New("image has no pixels")}
	}

	decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Image{}, &reporterr.DecodeError{Filename: name, Err: err}
	}

	bounds := decoded.Bounds()
	img := Image{
		Name:         name,
		Format:       format,
		SourceWidth:  bounds.Dx(),
		SourceHeight: bounds.Dy(),
	}

	if n.opts.MaxSide > 0 && max(bounds.Dx(), bounds.Dy()) > n.opts.MaxSide {
		decoded = imaging.Fit(decoded, n.opts.MaxSide, n.opts.MaxSide, imaging.Lanczos)
		log.Debug().
			Str("file", name).
			Int("fromWidth", bounds.Dx()).
			Int("fromHeight", bounds.Dy()).
			Int("toWidth", decoded.Bounds().Dx()).
			Int("toHeight", decoded.Bounds().Dy()).
			Msg("Downscaled oversized image")
	}

	img.Pixels = Flatten(decoded)
	return img, nil
}

// Flatten composites img onto white, dropping alpha and palette information.
func Flatten(img image.Image) *image.NRGBA {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	background := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
}

// ComputeHash returns the hex SHA-256 of a payload.
func ComputeHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
