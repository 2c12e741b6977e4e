package draw2d

// chebyshevThreshold is the fixed subdivision-stopping distance (in
// pixels) for quadratic spline drawing.
const chebyshevThreshold = 3

func midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

func chebyshev(a, b Point) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// QuadSpline draws the quadratic Bezier curve through control points p0
// (start), p1 (control), p2 (end) by recursive midpoint subdivision.
// Recursion stops, drawing a straight line instead, once the Chebyshev
// distance between the curve's true midpoint and the chord's midpoint
// falls below chebyshevThreshold.
func QuadSpline(dc *DrawContext, p0, p1, p2 Point, plot PlotFunc, userdata interface{}) {
	quadSplineRec(dc, p0, p1, p2, plot, userdata)
}

func quadSplineRec(dc *DrawContext, p0, p1, p2 Point, plot PlotFunc, userdata interface{}) {
	chordMid := midpoint(p0, p2)
	m01 := midpoint(p0, p1)
	m12 := midpoint(p1, p2)
	curveMid := midpoint(m01, m12)

	if chebyshev(curveMid, chordMid) < chebyshevThreshold {
		Line(dc, p0, p2, plot, userdata)
		return
	}
	quadSplineRec(dc, p0, m01, curveMid, plot, userdata)
	quadSplineRec(dc, curveMid, m12, p2, plot, userdata)
}

// PolySpline draws a sequence of control points as successive quadratics
// joined at the midpoints between consecutive points, so the composite
// curve passes through the first and last points and is tangent-continuous
// at the internal joins. Fewer than two points is a no-op; exactly two
// points draws a straight line.
func PolySpline(dc *DrawContext, points []Point, plot PlotFunc, userdata interface{}) {
	n := len(points)
	if n < 2 {
		return
	}
	if n == 2 {
		Line(dc, points[0], points[1], plot, userdata)
		return
	}

	start := points[0]
	for i := 1; i < n; i++ {
		var end Point
		if i == n-1 {
			end = points[i]
		} else {
			end = midpoint(points[i], points[i+1])
		}
		QuadSpline(dc, start, points[i], end, plot, userdata)
		start = end
	}
}
