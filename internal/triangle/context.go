// Package triangle implements the perspective-correct 3-D triangle
// rasterizer: a Z-buffered frame with N user attributes per pixel, driven
// either directly (DrawTriangle) or through a scripted text command
// protocol (the Interpreter in command.go).
package triangle

import "github.com/pkg/errors"

// MaxAttribs is the fixed ceiling on the number of user attributes a
// Context may carry per pixel.
const MaxAttribs = 20

// MaxZ bounds the input Z range; the depth buffer stores MaxZ-z so that
// "closer" maps to "larger buffer value".
const MaxZ = 1<<30 - 1

// MaxW bounds the perspective denominator w.
const MaxW = 1<<20 - 1

// A Vertex is one triangle corner: 2-D screen position, depth, perspective
// denominator, and a user attribute vector (length == Context.NumAttribs).
type Vertex struct {
	X, Y  int
	Z     int
	W     int
	Attrs []int
}

// A Context owns one rasterizer's image buffer, Z-buffer, and
// configuration. Planes are laid out pixel-major: Image[y*Width*planes +
// x*planes + p], with the trailing plane (index NumAttribs) holding alpha.
type Context struct {
	Width, Height int
	Maxval        int
	NumAttribs    int
	TupleType     string

	Image  []int
	ZBuf   []uint32
}

func planeCount(numAttribs int) int { return numAttribs + 1 } // + alpha

// NewContext allocates a rasterizer of the given size and attribute count.
func NewContext(width, height, maxval, numAttribs int, tupleType string) (*Context, error) {
	if numAttribs < 0 || numAttribs > MaxAttribs {
		return nil, errors.Errorf("triangle: attribute count %d exceeds the cap of %d", numAttribs, MaxAttribs)
	}
	c := &Context{
		Width: width, Height: height, Maxval: maxval,
		NumAttribs: numAttribs, TupleType: tupleType,
	}
	c.ClearImage()
	c.ClearDepth()
	return c, nil
}

// ClearImage zeroes the image buffer (all planes, including alpha).
func (c *Context) ClearImage() {
	c.Image = make([]int, c.Width*c.Height*planeCount(c.NumAttribs))
}

// ClearDepth zeroes the Z-buffer, discarding every prior depth test result.
func (c *Context) ClearDepth() {
	c.ZBuf = make([]uint32, c.Width*c.Height)
}

// Reset reconfigures the image buffer for a new maxval/attribute count/
// tuple type. Per spec this clears the image buffer but leaves the
// Z-buffer untouched.
func (c *Context) Reset(maxval, numAttribs int, tupleType string) error {
	if numAttribs < 0 || numAttribs > MaxAttribs {
		return errors.Errorf("triangle: attribute count %d exceeds the cap of %d", numAttribs, MaxAttribs)
	}
	c.Maxval = maxval
	c.NumAttribs = numAttribs
	c.TupleType = tupleType
	c.ClearImage()
	return nil
}

func (c *Context) pixelOffset(x, y int) int {
	return (y*c.Width + x) * planeCount(c.NumAttribs)
}

func (c *Context) inBounds(x, y int) bool {
	return x >= 0 && x < c.Width && y >= 0 && y < c.Height
}
