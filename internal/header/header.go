// Package header measures and draws the centered text block above the grid.
//
// Layout happens once: Renderer.Layout measures every line and fixes its
// position, and the returned Block both reports the height and draws from
// those same positions.
package header

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Role selects the style of a line.
type Role string

const (
	RoleTitle  Role = "title"
	RoleDate   Role = "date"
	RoleDetail Role = "detail"
)

// Line is one header line.
type Line struct {
	Text string
	Role Role
}

// Spec is the ordered list of header lines.
type Spec struct {
	Lines []Line
}

// NewSpec builds the usual title/date/detail header.
func NewSpec(title, date, detail string) Spec {
	return Spec{Lines: []Line{
		{Text: title, Role: RoleTitle},
		{Text: date, Role: RoleDate},
		{Text: detail, Role: RoleDetail},
	}}
}

// Style is the look of a role.
type Style struct {
	Size        float64
	Color       color.Color
	SpaceBefore int
}

// DefaultStyles returns the stock sizes: title 72, date 54, detail 58 with a
// 6px lead.
func DefaultStyles() map[Role]Style {
	return map[Role]Style{
		RoleTitle:  {Size: 72, Color: color.Black},
		RoleDate:   {Size: 54, Color: color.Black},
		RoleDetail: {Size: 58, Color: color.Black, SpaceBefore: 6},
	}
}

// DefaultLineGap is the space after each drawn line.
const DefaultLineGap = 8

// Options configures a Renderer.
type Options struct {
	Styles map[Role]Style
	// LineGap of zero means DefaultLineGap, negative means none.
	LineGap int
	DPI     float64
}

// Renderer lays out header text with a shared parsed font. Faces are created
// per Layout call, so a Renderer is safe for concurrent use.
type Renderer struct {
	font *opentype.Font
	opts Options
}

// NewRenderer creates a Renderer, filling unset options with defaults.
func NewRenderer(f *opentype.Font, opts Options) *Renderer {
	styles := DefaultStyles()
	for role, s := range opts.Styles {
		if s.Size <= 0 {
			s.Size = styles[role].Size
		}
		if s.Color == nil {
			s.Color = color.Black
		}
		styles[role] = s
	}
	opts.Styles = styles
	switch {
	case opts.LineGap == 0:
		opts.LineGap = DefaultLineGap
	case opts.LineGap < 0:
		opts.LineGap = 0
	}
	if opts.DPI <= 0 {
		opts.DPI = 72
	}
	return &Renderer{font: f, opts: opts}
}

// Measure returns the header height for spec without drawing.
func (r *Renderer) Measure(spec Spec, canvasWidth int) (int, error) {
	b, err := r.Layout(spec, canvasWidth)
	if err != nil {
		return 0, err
	}
	defer b.Close()
	return b.Height(), nil
}

// TextWidth returns the widest line of spec, in pixels.
func (r *Renderer) TextWidth(spec Spec) (int, error) {
	b, err := r.Layout(spec, 0)
	if err != nil {
		return 0, err
	}
	defer b.Close()
	return b.Width(), nil
}

// Layout measures every non-blank line and fixes its position. The caller
// must Close the block once drawn.
func (r *Renderer) Layout(spec Spec, canvasWidth int) (*Block, error) {
	b := &Block{faces: make(map[Role]font.Face)}
	cursor := 0

	for _, line := range spec.Lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		style, ok := r.opts.Styles[line.Role]
		if !ok {
			b.Close()
			return nil, fmt.Errorf("no style for header role %q", line.Role)
		}

		face, err := b.face(r.font, line.Role, style.Size, r.opts.DPI)
		if err != nil {
			b.Close()
			return nil, err
		}

		bounds, _ := font.BoundString(face, text)
		width := (bounds.Max.X - bounds.Min.X).Ceil()
		height := (bounds.Max.Y - bounds.Min.Y).Ceil()

		cursor += style.SpaceBefore
		ink := image.Rect(0, cursor, width, cursor+height).Add(image.Pt((canvasWidth-width)/2, 0))

		b.lines = append(b.lines, placedLine{
			text:  text,
			role:  line.Role,
			color: style.Color,
			ink:   ink,
			// BoundString is relative to the dot, so shift the dot to put the
			// ink box's top-left corner on ink.Min.
			dot: fixed.Point26_6{
				X: fixed.I(ink.Min.X) - bounds.Min.X,
				Y: fixed.I(ink.Min.Y) - bounds.Min.Y,
			},
		})

		cursor += height + r.opts.LineGap
	}

	b.height = cursor
	return b, nil
}

type placedLine struct {
	text  string
	role  Role
	color color.Color
	ink   image.Rectangle
	dot   fixed.Point26_6
}

// Block is a measured header ready to draw.
type Block struct {
	lines  []placedLine
	faces  map[Role]font.Face
	height int
}

// Height is the vertical space the block occupies, zero when every line is
// blank.
func (b *Block) Height() int {
	if b == nil {
		return 0
	}
	return b.height
}

// Width is the widest ink box of the block.
func (b *Block) Width() int {
	if b == nil {
		return 0
	}
	w := 0
	for _, l := range b.lines {
		w = max(w, l.ink.Dx())
	}
	return w
}

// Lines returns the placed text in drawing order.
func (b *Block) Lines() []string {
	out := make([]string, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.text
	}
	return out
}

// InkBounds returns the measured ink box of each line, relative to the block.
func (b *Block) InkBounds() []image.Rectangle {
	out := make([]image.Rectangle, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.ink
	}
	return out
}

// Draw renders the block with its top-left corner at origin.
func (b *Block) Draw(dst draw.Image, origin image.Point) {
	if b == nil {
		return
	}
	offset := fixed.P(origin.X, origin.Y)
	for _, l := range b.lines {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(l.color),
			Face: b.faces[l.role],
			Dot:  l.dot.Add(offset),
		}
		d.DrawString(l.text)
	}
}

// Close releases the faces.
func (b *Block) Close() error {
	if b == nil {
		return nil
	}
	for role, f := range b.faces {
		f.Close()
		delete(b.faces, role)
	}
	return nil
}

func (b *Block) face(f *opentype.Font, role Role, size, dpi float64) (font.Face, error) {
	if face, ok := b.faces[role]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     dpi,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	b.faces[role] = face
	return face, nil
}
