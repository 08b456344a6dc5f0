package compose

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"regexp"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"go.lorenzomilicia.dev/report-collage/internal/fit"
	"go.lorenzomilicia.dev/report-collage/internal/header"
	"go.lorenzomilicia.dev/report-collage/internal/layout"
)

func gridPlan(t *testing.T, n int) layout.Plan {
	t.Helper()
	plan, err := layout.NewPlanner(layout.Options{CellWidth: 100, CellHeight: 100, Gap: 10}).Plan(layout.Request{Count: n})
	if err != nil {
		t.Fatalf("Plan(%d) failed: %v", n, err)
	}
	return plan
}

func solids(n int, c color.Color) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = imaging.New(300, 200, c)
	}
	return out
}

func TestPlacementsCenterPartialLastRow(t *testing.T) {
	plan := gridPlan(t, 7) // 3x3
	rects := Placements(plan)
	if len(rects) != 7 {
		t.Fatalf("got %d placements", len(rects))
	}

	last := rects[6]
	if want := image.Rect(110, 220, 210, 320); last != want {
		t.Errorf("last tile = %v, want %v (middle column)", last, want)
	}

	left := last.Min.X
	right := plan.GridWidth() - last.Max.X
	if left != right {
		t.Errorf("last row not centered: %d left, %d right", left, right)
	}
}

func TestPlacementsTwoInLastRow(t *testing.T) {
	plan := gridPlan(t, 11) // 3x4, last row holds 3
	rects := Placements(plan)
	first := rects[8]
	lastTile := rects[10]
	if first.Min.X != plan.GridWidth()-lastTile.Max.X {
		t.Errorf("last row spans %d..%d of %d", first.Min.X, lastTile.Max.X, plan.GridWidth())
	}
}

func TestPlacementsFullRowsUntouched(t *testing.T) {
	plan := gridPlan(t, 6) // 2x3
	for i, r := range Placements(plan) {
		want := image.Rect((i%3)*110, (i/3)*110, (i%3)*110+100, (i/3)*110+100)
		if r != want {
			t.Errorf("tile %d = %v, want %v", i, r, want)
		}
	}
}

func TestPlacementsHero(t *testing.T) {
	planner := layout.NewPlanner(layout.Options{CellWidth: 100, CellHeight: 100, Gap: 10})
	for _, n := range []int{17, 18} {
		plan, err := planner.Plan(layout.Request{Count: n, Hero: 1})
		if err != nil {
			t.Fatal(err)
		}
		rects := Placements(plan)
		if len(rects) != n {
			t.Fatalf("hero %d: got %d placements", n, len(rects))
		}
		bounds := image.Rect(0, 0, plan.GridWidth(), plan.GridHeight())
		for i, r := range rects {
			if r.Empty() || !r.In(bounds) {
				t.Errorf("hero %d: slot %d = %v outside %v", n, i, r, bounds)
			}
			for j := i + 1; j < len(rects); j++ {
				if r.Overlaps(rects[j]) {
					t.Errorf("hero %d: slots %d and %d overlap", n, i, j)
				}
			}
		}
		if rects[0].Dx() <= rects[1].Dx() {
			t.Errorf("hero %d: hero slot %v is not the largest", n, rects[0])
		}
	}
}

func TestCanvasSizeFormula(t *testing.T) {
	c := New(Options{Margin: 20})
	plan := gridPlan(t, 4)

	got := c.Size(plan, 150, 0)
	want := image.Pt(2*20+210, 2*20+150+210)
	if got != want {
		t.Errorf("Size() = %v, want %v", got, want)
	}

	if got := c.Size(plan, 150, 500); got.X != 2*20+500 {
		t.Errorf("wide header width = %d, want %d", got.X, 2*20+500)
	}
}

func TestWidthGrowsForHeader(t *testing.T) {
	plan := gridPlan(t, 1)

	tests := []struct {
		name      string
		opts      Options
		textWidth int
		want      int
	}{
		{name: "grid wider than text", opts: Options{Margin: 14}, textWidth: 50, want: 2*14 + plan.GridWidth()},
		{name: "text wider than grid", opts: Options{Margin: 14}, textWidth: 888, want: 2*14 + 888},
		{name: "fixed width wins", opts: Options{Margin: 14, CanvasWidth: 600}, textWidth: 888, want: 600},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(tt.opts).Width(plan, tt.textWidth); got != tt.want {
				t.Errorf("Width() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComposeWideHeaderStaysOnCanvas(t *testing.T) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	c := New(Options{Margin: 14})
	plan := gridPlan(t, 1)
	renderer := header.NewRenderer(f, header.Options{})
	spec := header.NewSpec("Head Office Monthly Report", "", "")

	textWidth, err := renderer.TextWidth(spec)
	if err != nil {
		t.Fatal(err)
	}
	if textWidth <= plan.GridWidth() {
		t.Fatalf("title width %d does not exceed grid width %d", textWidth, plan.GridWidth())
	}
	width := c.Width(plan, textWidth)
	block, err := renderer.Layout(spec, width)
	if err != nil {
		t.Fatal(err)
	}
	defer block.Close()

	fitter, _ := fit.New(fit.Options{Mode: fit.Cover})
	canvas, err := c.Compose(context.Background(), plan, solids(1, color.NRGBA{200, 0, 0, 255}), block, fitter)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	b := canvas.Image.Bounds()
	if b.Dx() != width {
		t.Errorf("canvas width = %d, want %d", b.Dx(), width)
	}
	for _, ink := range block.InkBounds() {
		if ink.Min.X < 14 || ink.Max.X > b.Dx()-14 {
			t.Errorf("header ink %v leaves the margins of a %d px canvas", ink, b.Dx())
		}
	}
	tile := canvas.Tiles[0]
	if left, right := tile.Min.X, b.Dx()-tile.Max.X; left-right > 1 || right-left > 1 {
		t.Errorf("tile %v is not centered on a %d px canvas", tile, b.Dx())
	}
}

func TestComposeWithHeader(t *testing.T) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	c := New(Options{Margin: 14})
	plan := gridPlan(t, 4)

	renderer := header.NewRenderer(f, header.Options{})
	spec := header.NewSpec("Title", "Date", "Detail")
	textWidth, err := renderer.TextWidth(spec)
	if err != nil {
		t.Fatal(err)
	}
	width := c.Width(plan, textWidth)
	block, err := renderer.Layout(spec, width)
	if err != nil {
		t.Fatal(err)
	}
	defer block.Close()

	fitter, _ := fit.New(fit.Options{Mode: fit.Cover})
	canvas, err := c.Compose(context.Background(), plan, solids(4, color.NRGBA{200, 0, 0, 255}), block, fitter)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	b := canvas.Image.Bounds()
	if b.Dx() != width || width < 2*14+210 {
		t.Errorf("width = %d, want %d", b.Dx(), width)
	}
	if want := 2*14 + block.Height() + 210; b.Dy() != want {
		t.Errorf("height = %d, want %d", b.Dy(), want)
	}
	if canvas.GridOrigin.Y != 14+block.Height() {
		t.Errorf("grid origin = %v", canvas.GridOrigin)
	}
	for i, tile := range canvas.Tiles {
		center := image.Pt((tile.Min.X+tile.Max.X)/2, (tile.Min.Y+tile.Max.Y)/2)
		if px := canvas.Image.NRGBAAt(center.X, center.Y); px.R < 150 || px.G > 50 {
			t.Errorf("tile %d center = %v, want red", i, px)
		}
	}
	if px := canvas.Image.NRGBAAt(0, b.Dy()-1); px != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("margin pixel = %v, want white", px)
	}
}

func TestComposeFollowsOrder(t *testing.T) {
	planner := layout.NewPlanner(layout.Options{CellWidth: 50, CellHeight: 50, Gap: 4})
	plan, err := planner.Plan(layout.Request{Count: 17, Hero: 3})
	if err != nil {
		t.Fatal(err)
	}
	images := solids(17, color.White)
	images[2] = imaging.New(300, 200, color.Black)

	fitter, _ := fit.New(fit.Options{})
	canvas, err := New(Options{}).Compose(context.Background(), plan, images, nil, fitter)
	if err != nil {
		t.Fatal(err)
	}
	hero := canvas.Tiles[0]
	if px := canvas.Image.NRGBAAt(hero.Min.X+hero.Dx()/2, hero.Min.Y+hero.Dy()/2); px.R > 10 {
		t.Errorf("hero slot pixel = %v, want the black hero image", px)
	}
}

func TestComposeCountMismatch(t *testing.T) {
	fitter, _ := fit.New(fit.Options{})
	_, err := New(Options{}).Compose(context.Background(), gridPlan(t, 4), solids(3, color.Black), nil, fitter)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestComposeFixedWidthCentersGrid(t *testing.T) {
	planner := layout.NewPlanner(layout.Options{CanvasWidth: 1000, Margin: 10, Gap: 10})
	plan, err := planner.Plan(layout.Request{Count: 3})
	if err != nil {
		t.Fatal(err)
	}
	fitter, _ := fit.New(fit.Options{})
	canvas, err := New(Options{CanvasWidth: 1000, Margin: 10}).Compose(context.Background(), plan, solids(3, color.Black), nil, fitter)
	if err != nil {
		t.Fatal(err)
	}
	left := canvas.GridOrigin.X
	right := 1000 - (canvas.GridOrigin.X + plan.GridWidth())
	if left-right > 1 || right-left > 1 {
		t.Errorf("grid not centered: left %d right %d", left, right)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": JPEG, "JPG": JPEG, "jpeg": JPEG, "png": PNG, " webp ": WebP}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}

func TestEncode(t *testing.T) {
	img := imaging.New(40, 30, color.NRGBA{10, 120, 200, 255})
	for _, format := range []Format{JPEG, PNG, WebP} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, img, format, DefaultEncodeOptions()); err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			cfg, name, err := image.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("DecodeConfig failed: %v", err)
			}
			if name != string(format) || cfg.Width != 40 || cfg.Height != 30 {
				t.Errorf("decoded %s %dx%d", name, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestFilename(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 5, 7, 0, time.UTC)
	pattern := regexp.MustCompile(`^report-20261018-090507-[0-9a-f]{6}\.(jpg|png|webp)$`)
	for _, format := range []Format{JPEG, PNG, WebP} {
		if name := Filename(now, format); !pattern.MatchString(name) {
			t.Errorf("Filename(%s) = %q", format, name)
		}
	}
}
