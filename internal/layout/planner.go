package layout

import (
	"fmt"
	"image"
	"math"
)

// Options holds the sizing constants of the planner.
type Options struct {
	// Table maps an image count to a hand-tuned shape. Counts that are not in
	// the table use Columns.
	Table map[int]Shape

	// CanvasWidth fixes the output width. When zero the cells keep CellWidth x
	// CellHeight and the canvas grows with the column count.
	CanvasWidth int
	Margin      int
	Gap         int
	CellWidth   int
	CellHeight  int
	// CellAspect is height/width of a derived cell when CanvasWidth is set.
	CellAspect float64

	// HeroTopSlots maps an image count to the slot count of the top strip.
	HeroTopSlots map[int]int
}

// DefaultHeroTopSlots returns the hero totals: 4+3+1+3+6 and 5+3+1+3+6.
func DefaultHeroTopSlots() map[int]int {
	return map[int]int{17: 4, 18: 5}
}

// Request describes what to plan.
type Request struct {
	Count    int
	Override Override
	// Hero is the 1-based index of the featured image, 0 for none.
	Hero int
}

// Planner turns an image count into a Plan. It holds no per-request state.
type Planner struct {
	opts Options
}

// NewPlanner creates a planner, filling unset options with defaults.
func NewPlanner(opts Options) *Planner {
	if opts.Table == nil {
		opts.Table = DefaultTable()
	}
	if opts.HeroTopSlots == nil {
		opts.HeroTopSlots = DefaultHeroTopSlots()
	}
	if opts.CellWidth <= 0 {
		opts.CellWidth = 420
	}
	if opts.CellHeight <= 0 {
		opts.CellHeight = opts.CellWidth
	}
	if opts.CellAspect <= 0 {
		opts.CellAspect = float64(opts.CellHeight) / float64(opts.CellWidth)
	}
	return &Planner{opts: opts}
}

// Columns is the fallback column count for counts missing from the table.
func Columns(n int) int {
	switch {
	case n <= 3:
		return max(n, 1)
	case n <= 6:
		return 3
	case n <= 8:
		return 4
	case n <= 12:
		return 4
	case n <= 18:
		return 6
	default:
		return 6
	}
}

// Shape picks rows and columns for n images, honouring the override. The
// result always holds at least n cells.
func (p *Planner) Shape(n int, override Override) Shape {
	var s Shape
	switch {
	case override.Rows > 0 && override.Cols > 0:
		s = Shape{Rows: override.Rows, Cols: override.Cols}
	case override.Count > 0:
		s = p.lookup(override.Count)
	default:
		s = p.lookup(n)
	}

	if s.Capacity() < n {
		s.Rows = ceilDiv(n, s.Cols)
	}
	return s
}

func (p *Planner) lookup(n int) Shape {
	if s, ok := p.opts.Table[n]; ok && s.Rows > 0 && s.Cols > 0 {
		return s
	}
	cols := Columns(n)
	return Shape{Rows: ceilDiv(n, cols), Cols: cols}
}

// Plan resolves req into concrete cell geometry. A hero request whose count
// has no zone arrangement, or whose index is out of range, falls back to the
// uniform grid.
func (p *Planner) Plan(req Request) (Plan, error) {
	if req.Count < 1 {
		return Plan{}, fmt.Errorf("cannot plan a layout for %d images", req.Count)
	}

	if plan, ok, err := p.hero(req); err != nil || ok {
		return plan, err
	}
	return p.grid(req)
}

func (p *Planner) grid(req Request) (Plan, error) {
	shape := p.Shape(req.Count, req.Override)

	cellW, cellH, err := p.cellSize(shape.Cols)
	if err != nil {
		return Plan{}, err
	}

	return Plan{
		Mode:       ModeGrid,
		Count:      req.Count,
		Rows:       shape.Rows,
		Cols:       shape.Cols,
		CellWidth:  cellW,
		CellHeight: cellH,
		Gap:        p.opts.Gap,
		Order:      identity(req.Count),
	}, nil
}

// cellSize floors so the grid never exceeds the canvas.
func (p *Planner) cellSize(cols int) (int, int, error) {
	if p.opts.CanvasWidth <= 0 {
		return p.opts.CellWidth, p.opts.CellHeight, nil
	}

	avail := p.opts.CanvasWidth - 2*p.opts.Margin - (cols-1)*p.opts.Gap
	w := avail / cols
	if w < 1 {
		return 0, 0, fmt.Errorf("%w: width %d, %d columns", ErrCanvasTooNarrow, p.opts.CanvasWidth, cols)
	}
	h := int(math.Floor(float64(w) * p.opts.CellAspect))
	return w, max(h, 1), nil
}

// hero lays out a featured image surrounded by strips:
//
//	+---------------- top ----------------+
//	| L |                             | R |
//	| L |            hero             | R |
//	| L |                             | R |
//	+--------------- bottom --------------+
//
// The unit cell is one sixth of the bottom strip.
func (p *Planner) hero(req Request) (Plan, bool, error) {
	top, ok := p.opts.HeroTopSlots[req.Count]
	if !ok || req.Hero < 1 || req.Hero > req.Count {
		return Plan{}, false, nil
	}
	const (
		side   = 3
		bottom = 6
	)
	if top+2*side+bottom+1 != req.Count {
		return Plan{}, false, nil
	}

	uw, uh, err := p.cellSize(bottom)
	if err != nil {
		return Plan{}, false, err
	}
	gap := p.opts.Gap

	gridW := bottom*uw + (bottom-1)*gap
	midY := uh + gap
	midH := side*uh + (side-1)*gap
	bottomY := midY + midH + gap

	zones := []Zone{
		{Kind: ZoneHero, Slots: 1, Rect: image.Rect(uw+gap, midY, gridW-uw-gap, midY+midH)},
		{Kind: ZoneTop, Slots: top, Rect: image.Rect(0, 0, gridW, uh)},
		{Kind: ZoneLeft, Slots: side, Rect: image.Rect(0, midY, uw, midY+midH), Vertical: true},
		{Kind: ZoneRight, Slots: side, Rect: image.Rect(gridW-uw, midY, gridW, midY+midH), Vertical: true},
		{Kind: ZoneBottom, Slots: bottom, Rect: image.Rect(0, bottomY, gridW, bottomY+uh)},
	}

	order := make([]int, 0, req.Count)
	order = append(order, req.Hero-1)
	for i := 0; i < req.Count; i++ {
		if i != req.Hero-1 {
			order = append(order, i)
		}
	}

	return Plan{
		Mode:       ModeHero,
		Count:      req.Count,
		Rows:       5,
		Cols:       bottom,
		CellWidth:  uw,
		CellHeight: uh,
		Gap:        gap,
		Order:      order,
		Zones:      zones,
	}, true, nil
}

func identity(n int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	return order
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
