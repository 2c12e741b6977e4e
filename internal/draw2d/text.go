package draw2d

import "math"

// glyphUnits is the fixed width and height of a glyph's design space;
// glyphDescender is how many of those units fall below the baseline. Actual
// glyph tables are an external collaborator (out of scope here, per the
// library/CLI split) — this package only supplies the interpreter that
// scales, rotates, and plots whatever Font it is given.
const (
	glyphUnits     = 21
	glyphDescender = 9
)

// A GlyphCmd is one step of a glyph's outline: either move the pen without
// drawing, or draw a line from the pen's current position to (X, Y), both
// in glyph design units with the origin at the glyph's baseline start.
type GlyphCmd struct {
	Move bool
	X, Y int
}

// A Glyph is one character's outline plus its advance width in design
// units.
type Glyph struct {
	Commands []GlyphCmd
	Width    int
}

// A Font maps runes to glyphs.
type Font struct {
	Glyphs map[rune]Glyph
}

// DrawText renders text starting at origin, scaling the glyphs' 21x21
// design space so the full glyph height maps to sizePixels pixels, rotating
// by angleDeg integer degrees, and plotting each stroke with Line. Runes
// absent from font are skipped (their advance width is taken to be zero).
func DrawText(dc *DrawContext, origin Point, text string, sizePixels, angleDeg int, font *Font, plot PlotFunc, userdata interface{}) {
	scale := float64(sizePixels) / glyphUnits
	rad := float64(angleDeg) * math.Pi / 180
	cosA, sinA := math.Cos(rad), math.Sin(rad)

	pen := origin
	for _, r := range text {
		g, ok := font.Glyphs[r]
		if !ok {
			continue
		}
		cur := origin
		for _, cmd := range g.Commands {
			p := transformGlyphPoint(pen, cmd.X, cmd.Y, scale, cosA, sinA)
			if cmd.Move {
				cur = p
				continue
			}
			Line(dc, cur, p, plot, userdata)
			cur = p
		}
		pen = advancePen(pen, g.Width, scale, cosA, sinA)
	}
}

// TextExtents runs the same glyph interpreter as DrawText with a no-op plot
// callback, returning the smallest rectangle (as opposing corners) covering
// every point the glyphs would have touched. Unlike DrawText, it never
// clips: the caller may be probing a layout before choosing where to place
// text that would otherwise run off the raster.
func TextExtents(origin Point, text string, sizePixels, angleDeg int, font *Font) (min, max Point) {
	scale := float64(sizePixels) / glyphUnits
	rad := float64(angleDeg) * math.Pi / 180
	cosA, sinA := math.Cos(rad), math.Sin(rad)

	first := true
	grow := func(p Point) {
		if first {
			min, max = p, p
			first = false
			return
		}
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}

	pen := origin
	for _, r := range text {
		g, ok := font.Glyphs[r]
		if !ok {
			continue
		}
		for _, cmd := range g.Commands {
			grow(transformGlyphPoint(pen, cmd.X, cmd.Y, scale, cosA, sinA))
		}
		pen = advancePen(pen, g.Width, scale, cosA, sinA)
	}
	return min, max
}

func transformGlyphPoint(pen Point, x, y int, scale, cosA, sinA float64) Point {
	sx, sy := float64(x)*scale, float64(y)*scale
	rx := sx*cosA - sy*sinA
	ry := sx*sinA + sy*cosA
	return Point{X: pen.X + round(rx), Y: pen.Y + round(ry)}
}

func advancePen(pen Point, width int, scale, cosA, sinA float64) Point {
	w := float64(width) * scale
	return Point{X: pen.X + round(w*cosA), Y: pen.Y + round(w*sinA)}
}
