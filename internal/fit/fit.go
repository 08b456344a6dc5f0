// Package fit maps a source photo onto a fixed-size cell.
//
// Three policies exist and a deployment picks one:
//
//   - cover crops to fill the cell, nothing is letterboxed
//   - contain letterboxes on the background colour, nothing is cropped
//   - square pre-crops to a square chosen by aspect ratio, then fills the cell
package fit

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// Mode names a fitting policy.
type Mode string

const (
	Cover   Mode = "cover"
	Contain Mode = "contain"
	Square  Mode = "square"
)

// ParseMode accepts a policy name, case-insensitively. Empty means cover.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", Cover:
		return Cover, nil
	case Contain:
		return Contain, nil
	case Square:
		return Square, nil
	default:
		return "", fmt.Errorf("unknown fit mode %q (want cover, contain or square)", s)
	}
}

// Options configures a Fitter.
type Options struct {
	Mode       Mode
	Background color.Color
	// TallRatio is the width/height below which the square policy keeps the
	// top of the photo instead of its center.
	TallRatio float64
	Filter    imaging.ResampleFilter
}

// Fitter produces a tile of exactly width x height pixels.
type Fitter interface {
	Fit(src image.Image, width, height int) *image.NRGBA
}

// New returns the Fitter for opts.Mode.
func New(opts Options) (Fitter, error) {
	if opts.Background == nil {
		opts.Background = color.White
	}
	if opts.TallRatio <= 0 {
		opts.TallRatio = 0.7
	}
	if opts.Filter.Support == 0 && opts.Filter.Kernel == nil {
		opts.Filter = imaging.Lanczos
	}

	switch opts.Mode {
	case "", Cover:
		return coverFitter{filter: opts.Filter}, nil
	case Contain:
		return containFitter{filter: opts.Filter, background: opts.Background}, nil
	case Square:
		return squareFitter{filter: opts.Filter, tall: opts.TallRatio}, nil
	default:
		return nil, fmt.Errorf("unknown fit mode %q", opts.Mode)
	}
}

type coverFitter struct {
	filter imaging.ResampleFilter
}

// Fit scales by max(tw/sw, th/sh) and center-crops the overflow.
func (f coverFitter) Fit(src image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(src, width, height, imaging.Center, f.filter)
}

type containFitter struct {
	filter     imaging.ResampleFilter
	background color.Color
}

// Fit scales by min(tw/sw, th/sh), upscaling small sources, and centers the
// result on a background-filled cell.
func (f containFitter) Fit(src image.Image, width, height int) *image.NRGBA {
	cell := imaging.New(width, height, f.background)

	w, h := ContainSize(src.Bounds().Dx(), src.Bounds().Dy(), width, height)
	if w == 0 || h == 0 {
		return cell
	}

	scaled := imaging.Resize(src, w, h, f.filter)
	return imaging.PasteCenter(cell, scaled)
}

// ContainSize returns the largest size with the source aspect ratio that fits
// inside the target. Dimensions are floored and at least one pixel.
func ContainSize(srcW, srcH, targetW, targetH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || targetW <= 0 || targetH <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
	// 1e-9 absorbs float error so an exact ratio is not floored a pixel short.
	w := min(targetW, max(1, int(math.Floor(float64(srcW)*scale+1e-9))))
	h := min(targetH, max(1, int(math.Floor(float64(srcH)*scale+1e-9))))
	return w, h
}

type squareFitter struct {
	filter imaging.ResampleFilter
	tall   float64
}

// Fit crops the largest square first. Tall photos keep their top, everything
// else keeps its center.
func (f squareFitter) Fit(src image.Image, width, height int) *image.NRGBA {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())

	anchor := imaging.Center
	if ratio := float64(b.Dx()) / float64(b.Dy()); ratio < f.tall {
		anchor = imaging.Top
	}

	square := imaging.CropAnchor(src, side, side, anchor)
	if width == height {
		return imaging.Resize(square, width, height, f.filter)
	}
	return imaging.Fill(square, width, height, imaging.Center, f.filter)
}
