package draw2d

// dgaScale is the DDA fixed-point scale factor: all line accumulators carry
// this many fractional bits so the incremental slope can be added as an
// integer each step without drifting.
const dgaScale = 8192

// clipLine clips the segment p0-p1 to the raster rectangle [0,Cols) x
// [0,Rows) using a parametric (Liang-Barsky) test against all four edges.
// ok is false when the entire segment lies in one outside half-plane.
func clipLine(dc *DrawContext, p0, p1 Point) (cp0, cp1 Point, ok bool) {
	x0, y0 := float64(p0.X), float64(p0.Y)
	x1, y1 := float64(p1.X), float64(p1.Y)
	dx, dy := x1-x0, y1-y0

	tMin, tMax := 0.0, 1.0
	edges := [4]struct{ p, q float64 }{
		{-dx, x0 - 0},
		{dx, float64(dc.Cols-1) - x0},
		{-dy, y0 - 0},
		{dy, float64(dc.Rows-1) - y0},
	}
	for _, e := range edges {
		if e.p == 0 {
			if e.q < 0 {
				return Point{}, Point{}, false
			}
			continue
		}
		t := e.q / e.p
		if e.p < 0 {
			if t > tMax {
				return Point{}, Point{}, false
			}
			if t > tMin {
				tMin = t
			}
		} else {
			if t < tMin {
				return Point{}, Point{}, false
			}
			if t < tMax {
				tMax = t
			}
		}
	}
	if tMin > tMax {
		return Point{}, Point{}, false
	}
	cp0 = Point{X: round(x0 + tMin*dx), Y: round(y0 + tMin*dy)}
	cp1 = Point{X: round(x0 + tMax*dx), Y: round(y0 + tMax*dy)}
	return cp0, cp1, true
}

func round(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}

// Line draws the segment p0-p1, clipping it to the raster first unless
// dc.LineClip is false. If |dx| >= |dy| it steps over X with a DDA
// accumulator scaled by dgaScale; otherwise it steps over Y. In
// LineNoDiagonals mode, whenever a step would change both coordinates at
// once, an extra plot in the previous row or column is inserted first so
// the result stays 4-connected.
func Line(dc *DrawContext, p0, p1 Point, plot PlotFunc, userdata interface{}) {
	if dc.LineClip {
		var ok bool
		p0, p1, ok = clipLine(dc, p0, p1)
		if !ok {
			return
		}
	}

	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	if dx == 0 && dy == 0 {
		plot(dc, p0, userdata)
		return
	}

	var last Point
	first := true
	emit := func(p Point) {
		if dc.LineType == LineNoDiagonals && !first && p.X != last.X && p.Y != last.Y {
			plot(dc, Point{X: last.X, Y: p.Y}, userdata)
		}
		plot(dc, p, userdata)
		last = p
		first = false
	}

	if abs(dx) >= abs(dy) {
		step := sign(dx)
		n := abs(dx)
		inc := (dy * dgaScale) / n
		acc := p0.Y*dgaScale + dgaScale/2
		x := p0.X
		for i := 0; i <= n; i++ {
			y := acc / dgaScale
			emit(Point{X: x, Y: y})
			x += step
			acc += inc
		}
	} else {
		step := sign(dy)
		n := abs(dy)
		inc := (dx * dgaScale) / n
		acc := p0.X*dgaScale + dgaScale/2
		y := p0.Y
		for i := 0; i <= n; i++ {
			x := acc / dgaScale
			emit(Point{X: x, Y: y})
			y += step
			acc += inc
		}
	}
}
