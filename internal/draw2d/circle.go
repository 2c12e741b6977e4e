package draw2d

import "math"

// Circle draws the circle of radius r centered at center using a
// second-order DDA: starting at (r, 0) relative to the center, it rotates
// by 1/r radians per step (applying the incremental rotation matrix rather
// than recomputing sin/cos from scratch) until the starting angle is
// revisited. Each distinct integer point visited is plotted exactly once.
func Circle(dc *DrawContext, center Point, r int, plot PlotFunc, userdata interface{}) {
	if r < 0 {
		r = -r
	}
	if r == 0 {
		plot(dc, center, userdata)
		return
	}

	angleStep := 1.0 / float64(r)
	cosStep, sinStep := math.Cos(angleStep), math.Sin(angleStep)
	x, y := float64(r), 0.0

	steps := int(math.Ceil(2*math.Pi/angleStep)) + 1
	visited := make(map[Point]bool, steps)
	for i := 0; i < steps; i++ {
		p := Point{X: center.X + round(x), Y: center.Y + round(y)}
		if !visited[p] {
			visited[p] = true
			plot(dc, p, userdata)
		}
		x, y = x*cosStep-y*sinStep, x*sinStep+y*cosStep
	}
}
