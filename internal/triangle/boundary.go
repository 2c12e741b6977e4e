package triangle

import "sort"

// sortedVertices returns v0, v1, v2 ordered top-to-bottom by Y, ties
// broken by X, matching the reference rasterizer's sort3.
func sortedVertices(a, b, c Vertex) (top, mid, bot Vertex) {
	vs := []Vertex{a, b, c}
	sort.SliceStable(vs, func(i, j int) bool {
		if vs[i].Y != vs[j].Y {
			return vs[i].Y < vs[j].Y
		}
		return vs[i].X < vs[j].X
	})
	return vs[0], vs[1], vs[2]
}

// boundaryRow holds the left/right screen X for one visible scanline.
type boundaryRow struct {
	left, right int
}

// boundaryInfo is the precomputed per-scanline boundary for one triangle,
// built in a single top-to-bottom pass before any pixel is touched.
type boundaryInfo struct {
	startScanline int // first visible row, or -1 if none
	rows          []boundaryRow
	degenerate    bool // all three Y equal: a horizontal line, handled separately
}

// computeBoundary builds the left/right boundary for every visible
// scanline of the triangle (top, mid, bot already sorted by Y).
func computeBoundary(top, mid, bot Vertex, width, height int) boundaryInfo {
	bi := boundaryInfo{startScanline: -1}

	if bot.Y < 0 || top.Y >= height {
		return bi
	}
	leftmostX, rightmostX := top.X, top.X
	for _, v := range []Vertex{mid, bot} {
		if v.X < leftmostX {
			leftmostX = v.X
		}
		if v.X > rightmostX {
			rightmostX = v.X
		}
	}
	if rightmostX < 0 || leftmostX >= width {
		return bi
	}

	if top.Y == mid.Y && mid.Y == bot.Y {
		bi.startScanline = top.Y
		bi.degenerate = true
		return bi
	}

	firstRow := top.Y
	if firstRow < 0 {
		firstRow = 0
	}
	lastRow := bot.Y
	if lastRow >= height {
		lastRow = height - 1
	}
	if firstRow > lastRow {
		return bi
	}

	rows := make([]boundaryRow, 0, lastRow-firstRow+1)
	for y := firstRow; y <= lastRow; y++ {
		left, right := edgeXAt(top, mid, bot, y)
		rows = append(rows, boundaryRow{left: left, right: right})
	}

	bi.startScanline = firstRow
	bi.rows = rows
	return bi
}

// edgeXAt returns the left/right screen X bounding the triangle at
// scanline y, using the long edge (top-bot) and whichever short edge
// (top-mid above the middle vertex, mid-bot below it) covers that row.
func edgeXAt(top, mid, bot Vertex, y int) (left, right int) {
	longX := lerpX(top, bot, y)

	var shortX int
	if y < mid.Y || (y == mid.Y && top.Y != mid.Y) {
		shortX = lerpX(top, mid, y)
	} else {
		shortX = lerpX(mid, bot, y)
	}

	if longX <= shortX {
		return longX, shortX
	}
	return shortX, longX
}

// lerpX linearly interpolates the X coordinate of the edge a->b at row y,
// clamping to a's or b's X when the edge is horizontal.
func lerpX(a, b Vertex, y int) int {
	if a.Y == b.Y {
		return a.X
	}
	t := float64(y-a.Y) / float64(b.Y-a.Y)
	return a.X + int(t*float64(b.X-a.X)+0.5*sign(b.X-a.X))
}

func sign(v int) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
