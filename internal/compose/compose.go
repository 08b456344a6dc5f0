// Package compose allocates the report canvas and places the header and the
// fitted tiles on it.
package compose

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
)

// Options holds the canvas constants.
type Options struct {
	// CanvasWidth fixes the output width. Zero means 2*Margin + grid width.
	CanvasWidth int
	Margin      int
	Background  color.Color
}

// Composer builds canvases. It holds no per-request state.
type Composer struct {
	opts Options
}

// New creates a Composer.
func New(opts Options) *Composer {
	if opts.Background == nil {
		opts.Background = color.White
	}
	return &Composer{opts: opts}
}

// Canvas is a finished report image plus where things landed on it.
type Canvas struct {
	Image        *image.NRGBA
	HeaderHeight int
	GridOrigin   image.Point
	// Tiles holds the absolute rectangle of every slot, in slot order.
	Tiles []image.Rectangle
}

// Width returns the canvas width for plan and a header whose widest line is
// textWidth. Without a fixed width the canvas grows so the header fits
// between the margins. The header must be laid out against this width before
// Compose is called.
func (c *Composer) Width(plan layout.Plan, textWidth int) int {
	if c.opts.CanvasWidth > 0 {
		return c.opts.CanvasWidth
	}
	return 2*c.opts.Margin + max(plan.GridWidth(), textWidth)
}

// Size returns the canvas dimensions for plan and a measured header.
func (c *Composer) Size(plan layout.Plan, headerHeight, textWidth int) image.Point {
	return image.Pt(c.Width(plan, textWidth), 2*c.opts.Margin+headerHeight+plan.GridHeight())
}

// Compose allocates the canvas once, draws the header, then fits and pastes
// images[plan.Order[slot]] into each slot. len(images) must equal plan.Count.
func (c *Composer) Compose(ctx context.Context, plan layout.Plan, images []image.Image, head *header.Block, fitter fit.Fitter) (*Canvas, error) {
	if len(images) != plan.Count {
		return nil, fmt.Errorf("plan expects %d images, got %d", plan.Count, len(images))
	}
	if len(plan.Order) != plan.Count {
		return nil, fmt.Errorf("plan order has %d entries for %d images", len(plan.Order), plan.Count)
	}

	headerHeight := head.Height()
	size := c.Size(plan, headerHeight, head.Width())
	m := c.opts.Margin

	origin := image.Pt(m+(size.X-2*m-plan.GridWidth())/2, m+headerHeight)
	if origin.X < 0 {
		return nil, fmt.Errorf("grid width %d does not fit canvas width %d", plan.GridWidth(), size.X)
	}

	canvas := imaging.New(size.X, size.Y, c.opts.Background)
	head.Draw(canvas, image.Pt(0, m))

	slots := Placements(plan)
	tiles := make([]image.Rectangle, len(slots))
	for slot, rect := range slots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := rect.Add(origin)
		tile := fitter.Fit(images[plan.Order[slot]], dst.Dx(), dst.Dy())
		draw.Draw(canvas, dst, tile, image.Point{}, draw.Src)
		tiles[slot] = dst
	}

	log.Debug().
		Int("width", size.X).
		Int("height", size.Y).
		Int("headerHeight", headerHeight).
		Int("tiles", len(tiles)).
		Str("mode", string(plan.Mode)).
		Msg("Canvas composed")

	return &Canvas{
		Image:        canvas,
		HeaderHeight: headerHeight,
		GridOrigin:   origin,
		Tiles:        tiles,
	}, nil
}

// Placements returns one rectangle per image slot, relative to the grid
// origin. Grid plans fill row-major and center a partial last row; hero plans
// split each zone into equal slots along its strip.
func Placements(plan layout.Plan) []image.Rectangle {
	if plan.Mode == layout.ModeHero {
		return zonePlacements(plan)
	}

	rects := make([]image.Rectangle, 0, plan.Count)
	cols := max(plan.Cols, 1)
	stepX := plan.CellWidth + plan.Gap
	stepY := plan.CellHeight + plan.Gap

	lastRow := (plan.Count - 1) / cols
	lastRowOffset := 0
	if filled := plan.Count - lastRow*cols; filled < cols {
		lastRowOffset = (cols - filled) * stepX / 2
	}

	for i := 0; i < plan.Count; i++ {
		r, c := i/cols, i%cols
		x := c * stepX
		if r == lastRow {
			x += lastRowOffset
		}
		y := r * stepY
		rects = append(rects, image.Rect(x, y, x+plan.CellWidth, y+plan.CellHeight))
	}
	return rects
}

func zonePlacements(plan layout.Plan) []image.Rectangle {
	rects := make([]image.Rectangle, 0, plan.Count)
	for _, z := range plan.Zones {
		rects = append(rects, splitZone(z, plan.Gap)...)
	}
	return rects
}

// splitZone divides a zone into equal slots, centering the pixels left over
// by flooring.
func splitZone(z layout.Zone, gap int) []image.Rectangle {
	if z.Slots <= 0 {
		return nil
	}
	length := z.Rect.Dx()
	if z.Vertical {
		length = z.Rect.Dy()
	}
	slot := (length - (z.Slots-1)*gap) / z.Slots
	lead := (length - (z.Slots*slot + (z.Slots-1)*gap)) / 2

	rects := make([]image.Rectangle, z.Slots)
	for i := range rects {
		offset := lead + i*(slot+gap)
		if z.Vertical {
			y := z.Rect.Min.Y + offset
			rects[i] = image.Rect(z.Rect.Min.X, y, z.Rect.Max.X, y+slot)
		} else {
			x := z.Rect.Min.X + offset
			rects[i] = image.Rect(x, z.Rect.Min.Y, x+slot, z.Rect.Max.Y)
		}
	}
	return rects
}
