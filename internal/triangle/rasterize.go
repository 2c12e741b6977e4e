package triangle

// vertexParams is the perspective-correct parameter vector computed once
// per vertex: [0] = 1/w, [1..NumAttribs] = attr/w, [NumAttribs+1] = (MaxZ-z)/w.
// Interpolating these linearly in screen space and dividing by the
// interpolated 1/w at each pixel reproduces perspective-correct
// interpolation of the original attributes and Z.
func vertexParams(v Vertex, numAttribs int) []float64 {
	p := make([]float64, numAttribs+2)
	invW := 1.0 / float64(v.W)
	p[0] = invW
	for k := 0; k < numAttribs && k < len(v.Attrs); k++ {
		p[1+k] = float64(v.Attrs[k]) * invW
	}
	p[numAttribs+1] = float64(MaxZ-v.Z) * invW
	return p
}

// lerpParams linearly interpolates every channel of a and b's parameter
// vectors at row y, given their Y coordinates.
func lerpParams(ay int, a []float64, by int, b []float64, y int) []float64 {
	out := make([]float64, len(a))
	if ay == by {
		copy(out, a)
		return out
	}
	t := float64(y-ay) / float64(by-ay)
	for i := range a {
		out[i] = a[i] + t*(b[i]-a[i])
	}
	return out
}

func lerpParamsX(a []float64, b []float64, t float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + t*(b[i]-a[i])
	}
	return out
}

// DrawTriangle rasterizes one triangle into the context's image and Z
// buffers, interpolating attributes perspective-correctly and performing
// the Z-buffer test at each covered pixel.
func (c *Context) DrawTriangle(v0, v1, v2 Vertex) {
	top, mid, bot := sortedVertices(v0, v1, v2)
	bi := computeBoundary(top, mid, bot, c.Width, c.Height)
	if bi.startScanline < 0 {
		return
	}

	pTop := vertexParams(top, c.NumAttribs)
	pMid := vertexParams(mid, c.NumAttribs)
	pBot := vertexParams(bot, c.NumAttribs)

	if bi.degenerate {
		c.drawSpan(top, pTop, mid, pMid)
		c.drawSpan(mid, pMid, bot, pBot)
		c.drawSpan(top, pTop, bot, pBot)
		return
	}

	for i, row := range bi.rows {
		y := bi.startScanline + i
		longParams := lerpParams(top.Y, pTop, bot.Y, pBot, y)
		longX := lerpX(top, bot, y)

		var shortParams []float64
		var shortX int
		if y < mid.Y || (y == mid.Y && top.Y != mid.Y) {
			shortParams = lerpParams(top.Y, pTop, mid.Y, pMid, y)
			shortX = lerpX(top, mid, y)
		} else {
			shortParams = lerpParams(mid.Y, pMid, bot.Y, pBot, y)
			shortX = lerpX(mid, bot, y)
		}

		leftParams, rightParams := longParams, shortParams
		if longX > shortX {
			leftParams, rightParams = shortParams, longParams
		}
		c.fillRow(y, row.left, row.right, leftParams, rightParams)
	}
}

// fillRow walks pixels leftX..rightX at row y, interpolating between
// leftParams and rightParams, applying the Z-buffer test, and writing the
// image/Z/alpha planes on success.
func (c *Context) fillRow(y, leftX, rightX int, leftParams, rightParams []float64) {
	if y < 0 || y >= c.Height {
		return
	}
	if rightX < leftX {
		leftX, rightX = rightX, leftX
		leftParams, rightParams = rightParams, leftParams
	}
	if rightX < 0 || leftX >= c.Width {
		return
	}
	if leftX < 0 {
		leftX = 0
	}
	if rightX >= c.Width {
		rightX = c.Width - 1
	}

	span := rightX - leftX
	for x := leftX; x <= rightX; x++ {
		t := 0.0
		if span > 0 {
			t = float64(x-leftX) / float64(span)
		}
		params := lerpParamsX(leftParams, rightParams, t)
		c.plotPixel(x, y, params)
	}
}

// drawSpan handles the degenerate (all-Y-equal) case: a single-row span
// between two vertices, interpolated by X rather than Y.
func (c *Context) drawSpan(a Vertex, pa []float64, b Vertex, pb []float64) {
	y := a.Y
	if y < 0 || y >= c.Height {
		return
	}
	leftX, rightX := a.X, a.X
	leftParams, rightParams := pa, pb
	if b.X < a.X {
		leftX, rightX = b.X, a.X
		leftParams, rightParams = pb, pa
	} else {
		rightX = b.X
	}
	c.fillRow(y, leftX, rightX, leftParams, rightParams)
}

// plotPixel performs the perspective divide, Z-buffer test, and (on
// success) writes the image and alpha planes at (x, y).
func (c *Context) plotPixel(x, y int, params []float64) {
	if !c.inBounds(x, y) {
		return
	}
	invW := params[0]
	if invW == 0 {
		return
	}
	zVal := params[len(params)-1] / invW
	if zVal < 0 {
		zVal = 0
	}
	z := uint32(zVal + 0.5)

	idx := y*c.Width + x
	if z < c.ZBuf[idx] {
		return
	}
	c.ZBuf[idx] = z

	off := c.pixelOffset(x, y)
	planes := planeCount(c.NumAttribs)
	for k := 0; k < c.NumAttribs; k++ {
		v := params[1+k] / invW
		c.Image[off+k] = clampInt(int(v+0.5), 0, c.Maxval)
	}
	c.Image[off+planes-1] = c.Maxval // alpha
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
