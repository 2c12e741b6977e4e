// Package draw2d implements the polymorphic 2-D drawing engine: clipped
// lines, splines, circles, scanline polygon fill, and stroked vector text,
// all driven through a caller-supplied per-pixel plot callback. Unlike the
// reference implementation this engine is built against, line-type,
// line-clip, and the fill accumulator live on an explicit DrawContext value
// rather than in package-level mutable state, so a program can drive several
// independent drawing surfaces concurrently.
package draw2d

// A Point is one raster coordinate, (0,0) at the top-left corner.
type Point struct {
	X, Y int
}

// LineType selects how the engine connects consecutive pixels on a line.
type LineType int

const (
	// LineNormal allows 8-connected (diagonal) steps.
	LineNormal LineType = iota
	// LineNoDiagonals inserts an extra plot whenever a step would move
	// diagonally, so the result is 4-connected.
	LineNoDiagonals
)

// PlotFunc is invoked once per pixel touched by a drawing operation. raster
// geometry (Cols, Rows, Maxval) is reachable through dc; userdata is an
// opaque value threaded through from the call that started the operation,
// letting the caller choose color, blending, masking, or mere counting.
type PlotFunc func(dc *DrawContext, p Point, userdata interface{})

// A DrawContext holds the raster geometry a drawing operation clips against
// plus the mutable line-type, line-clip, and fill-accumulator state the
// reference implementation kept as module globals.
type DrawContext struct {
	Cols, Rows, Maxval int
	LineType           LineType
	LineClip           bool
	fill               *fillAccumulator
}

// NewDrawContext returns a context for a cols x rows raster with the given
// sample maxval. LineClip defaults to true: every operation clips to the
// raster rectangle unless explicitly disabled.
func NewDrawContext(cols, rows, maxval int) *DrawContext {
	return &DrawContext{Cols: cols, Rows: rows, Maxval: maxval, LineClip: true}
}

// inBounds reports whether p lies within the raster rectangle.
func (dc *DrawContext) inBounds(p Point) bool {
	return p.X >= 0 && p.X < dc.Cols && p.Y >= 0 && p.Y < dc.Rows
}
