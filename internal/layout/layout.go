package layout

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// Mode selects how cells are arranged on the canvas.
type Mode string

const (
	ModeGrid Mode = "grid"
	ModeHero Mode = "hero"
)

// Shape is a rows x columns grid.
type Shape struct {
	Rows int `yaml:"rows" json:"rows"`
	Cols int `yaml:"cols" json:"cols"`
}

// Capacity returns the number of cells of the shape.
func (s Shape) Capacity() int {
	return s.Rows * s.Cols
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Rows, s.Cols)
}

// DefaultTable returns the hand-tuned count -> shape table.
func DefaultTable() map[int]Shape {
	return map[int]Shape{
		1:  {Rows: 1, Cols: 1},
		2:  {Rows: 1, Cols: 2},
		3:  {Rows: 1, Cols: 3},
		4:  {Rows: 2, Cols: 2},
		5:  {Rows: 3, Cols: 2},
		6:  {Rows: 2, Cols: 3},
		7:  {Rows: 3, Cols: 3},
		8:  {Rows: 2, Cols: 4},
		9:  {Rows: 3, Cols: 3},
		10: {Rows: 3, Cols: 4},
		12: {Rows: 3, Cols: 4},
		15: {Rows: 3, Cols: 5},
		18: {Rows: 3, Cols: 6},
	}
}

// Override is an explicit layout hint from the form. At most one of Count or
// Rows/Cols is set; the zero value means "auto".
type Override struct {
	Count int
	Rows  int
	Cols  int
}

// IsZero reports whether the override carries no hint.
func (o Override) IsZero() bool {
	return o.Count == 0 && o.Rows == 0 && o.Cols == 0
}

func (o Override) String() string {
	switch {
	case o.Rows > 0 && o.Cols > 0:
		return fmt.Sprintf("%dx%d", o.Rows, o.Cols)
	case o.Count > 0:
		return strconv.Itoa(o.Count)
	default:
		return "auto"
	}
}

// ParseOverride accepts "", "auto", a positive count ("12") or a rows x cols
// pair ("3x4", "3X4", "3*4").
func ParseOverride(s string) (Override, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return Override{}, nil
	}

	if i := strings.IndexAny(s, "x*"); i >= 0 {
		rows, errR := strconv.Atoi(strings.TrimSpace(s[:i]))
		cols, errC := strconv.Atoi(strings.TrimSpace(s[i+1:]))
		if errR != nil || errC != nil || rows < 1 || cols < 1 {
			return Override{}, fmt.Errorf("layout %q is not a rows x columns pair", s)
		}
		return Override{Rows: rows, Cols: cols}, nil
	}

	count, err := strconv.Atoi(s)
	if err != nil || count < 1 {
		return Override{}, fmt.Errorf("layout %q is not a positive image count", s)
	}
	return Override{Count: count}, nil
}

// ZoneKind names a region of a hero layout.
type ZoneKind string

const (
	ZoneHero   ZoneKind = "hero"
	ZoneTop    ZoneKind = "top"
	ZoneLeft   ZoneKind = "left"
	ZoneRight  ZoneKind = "right"
	ZoneBottom ZoneKind = "bottom"
)

// Zone is a strip of equally sized slots. Rect is relative to the grid origin.
type Zone struct {
	Kind     ZoneKind        `json:"kind"`
	Slots    int             `json:"slots"`
	Rect     image.Rectangle `json:"rect"`
	Vertical bool            `json:"vertical"`
}

// Plan is the resolved arrangement for one report.
type Plan struct {
	Mode       Mode   `json:"mode"`
	Count      int    `json:"count"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	CellWidth  int    `json:"cellWidth"`
	CellHeight int    `json:"cellHeight"`
	Gap        int    `json:"gap"`
	Order      []int  `json:"order"`
	Zones      []Zone `json:"zones,omitempty"`
}

// Capacity is the number of image slots the plan provides.
func (p Plan) Capacity() int {
	if p.Mode == ModeHero {
		total := 0
		for _, z := range p.Zones {
			total += z.Slots
		}
		return total
	}
	return p.Rows * p.Cols
}

// GridWidth is the pixel width of the image area.
func (p Plan) GridWidth() int {
	if p.Mode == ModeHero {
		return zonesBounds(p.Zones).Dx()
	}
	return p.Cols*p.CellWidth + (p.Cols-1)*p.Gap
}

// GridHeight is the pixel height of the image area.
func (p Plan) GridHeight() int {
	if p.Mode == ModeHero {
		return zonesBounds(p.Zones).Dy()
	}
	return p.Rows*p.CellHeight + (p.Rows-1)*p.Gap
}

func zonesBounds(zones []Zone) image.Rectangle {
	var r image.Rectangle
	for _, z := range zones {
		r = r.Union(z.Rect)
	}
	return r
}

// ErrCanvasTooNarrow is returned when the fixed canvas width leaves no room
// for a cell.
var ErrCanvasTooNarrow = errors.New("canvas too narrow for the requested columns")
