package draw2d

import "sort"

// A fillPoint is one pixel recorded while tracing a polygon's outline for
// scanline fill: its raster position plus the edge (polygon side) it was
// plotted from.
type fillPoint struct {
	X, Y, Edge int
}

// fillAccumulator collects the outline trail between BeginFill and
// FillFlush. curEdge increments once per call to NextEdge, so consecutive
// sides of the polygon are distinguishable when the trail is paired up.
type fillAccumulator struct {
	points  []fillPoint
	curEdge int
	lastPt  fillPoint
	hasLast bool
}

// BeginFill starts a new fill accumulation on dc, replacing any prior one.
// The caller then draws the polygon's closed outline using the PlotFunc
// returned by FillPlot in place of its normal plot callback, calling
// NextEdge between sides, and finally calls FillFlush.
func BeginFill(dc *DrawContext) {
	dc.fill = &fillAccumulator{}
}

// NextEdge starts a new polygon side in dc's fill accumulator. Call it
// between each pair of vertices as the outline is traced.
func NextEdge(dc *DrawContext) {
	if dc.fill == nil {
		return
	}
	dc.fill.curEdge++
	dc.fill.hasLast = false
}

// FillPlot returns a PlotFunc that records outline pixels into dc's fill
// accumulator instead of plotting them directly. Consecutive identical
// points on the same edge are deduplicated (a line's DDA can repeat a
// lattice point at shallow angles); that is the "segment-break" pass the
// spec's accumulator performs inline.
func FillPlot(dc *DrawContext) PlotFunc {
	return func(_ *DrawContext, p Point, userdata interface{}) {
		f := dc.fill
		if f == nil {
			return
		}
		fp := fillPoint{X: p.X, Y: p.Y, Edge: f.curEdge}
		if f.hasLast && f.lastPt == fp {
			return
		}
		f.points = append(f.points, fp)
		f.lastPt = fp
		f.hasLast = true
	}
}

// FillFlush sorts the accumulated outline trail by (Y, X), breaking ties by
// edge, then emits a horizontal span between each consecutive pair of
// points on the same row via plot. The accumulator is cleared and detached
// from dc before returning.
func FillFlush(dc *DrawContext, plot PlotFunc, userdata interface{}) {
	f := dc.fill
	dc.fill = nil
	if f == nil || len(f.points) == 0 {
		return
	}

	sort.Slice(f.points, func(i, j int) bool {
		a, b := f.points[i], f.points[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Edge < b.Edge
	})

	i := 0
	for i < len(f.points) {
		row := f.points[i].Y
		j := i
		for j < len(f.points) && f.points[j].Y == row {
			j++
		}
		rowPts := f.points[i:j]
		for k := 0; k+1 < len(rowPts); k += 2 {
			x0, x1 := rowPts[k].X, rowPts[k+1].X
			for x := x0; x <= x1; x++ {
				p := Point{X: x, Y: row}
				if dc.inBounds(p) {
					plot(dc, p, userdata)
				}
			}
		}
		i = j
	}
}
