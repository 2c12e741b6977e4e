// Package arith implements the per-pixel image arithmetic and masked
// multi-image blending operators: dyadic/N-ary arithmetic and bitwise
// combination of same-sized rasters, plus average/random/mask-guided
// blending of a stack of images.
package arith

import (
	"math"

	"github.com/netpbm-go/netpbm/internal/raster"
	"github.com/pkg/errors"
)

// Function selects one pixel-combining operator.
type Function int

const (
	FnAdd Function = iota
	FnSubtract
	FnMultiply
	FnDivide
	FnDifference
	FnMinimum
	FnMaximum
	FnMean
	FnEqual
	FnCompare
	FnAnd
	FnOr
	FnNand
	FnNor
	FnXor
	FnShiftLeft
	FnShiftRight
)

// defaultCloseness matches the reference tool's default -closeness epsilon
// for "equal" when the caller doesn't override it.
const defaultCloseness = 1.0e-5

// isDyadic reports whether fn takes exactly two operands with a fixed
// left/right role (as opposed to an arbitrary-length commutative N-ary
// reduction).
func isDyadic(fn Function) bool {
	switch fn {
	case FnSubtract, FnDifference, FnCompare, FnDivide, FnShiftLeft, FnShiftRight:
		return true
	default:
		return false
	}
}

func isBitstring(fn Function) bool {
	switch fn {
	case FnAnd, FnOr, FnNand, FnNor, FnXor:
		return true
	default:
		return false
	}
}

func isShift(fn Function) bool {
	return fn == FnShiftLeft || fn == FnShiftRight
}

// An Image is an in-memory multi-plane raster: Rows[y] holds width tuples,
// each of depth samples in [0, Maxval].
type Image struct {
	Width, Height int
	Depth         int
	Maxval        int
	Rows          [][]raster.Tuple
}

func maxDepth(images []*Image) int {
	d := images[0].Depth
	for _, im := range images[1:] {
		if im.Depth > d {
			d = im.Depth
		}
	}
	return d
}

func maxMaxval(images []*Image) int {
	m := images[0].Maxval
	for _, im := range images[1:] {
		if im.Maxval > m {
			m = im.Maxval
		}
	}
	return m
}

// isFullBinaryCount reports whether maxval is of the form 2^k - 1.
func isFullBinaryCount(maxval int) bool {
	return maxval > 0 && (maxval&(maxval+1)) == 0
}

// Combine computes the per-pixel result of applying fn across images,
// matching pamarith's rules for depth/maxval promotion, plane saturation,
// and per-function output range. closeness is the equal-test epsilon in
// normalized [0,1] sample space; pass 0 to get the tool's default.
func Combine(images []*Image, fn Function, closeness float64) (*Image, error) {
	if len(images) == 0 {
		return nil, errors.New("arith: no input images")
	}
	if isDyadic(fn) && len(images) != 2 {
		return nil, errors.Errorf("arith: function requires exactly 2 operands, got %d", len(images))
	}
	if !isDyadic(fn) && len(images) < 2 {
		return nil, errors.New("arith: function requires at least 2 operands")
	}
	w, h := images[0].Width, images[0].Height
	for _, im := range images[1:] {
		if im.Width != w || im.Height != h {
			return nil, errors.New("arith: input images must share dimensions")
		}
	}
	if closeness == 0 {
		closeness = defaultCloseness
	}

	out := &Image{Width: w, Height: h, Depth: maxDepth(images)}

	switch {
	case fn == FnCompare:
		out.Maxval = 2
	case fn == FnEqual:
		out.Maxval = 1
	case isBitstring(fn) || isShift(fn):
		base := images[0].Maxval
		for _, im := range images {
			if im.Maxval != base {
				return nil, errors.New("arith: bitwise/shift operations require identical input maxvals")
			}
		}
		if !isFullBinaryCount(base) {
			return nil, errors.Errorf("arith: bitwise/shift maxval %d is not of the form 2^k-1", base)
		}
		out.Maxval = base
	default:
		out.Maxval = maxMaxval(images)
	}

	out.Rows = make([][]raster.Tuple, h)
	operandsNorm := make([]float64, len(images))
	operandsInt := make([]int, len(images))

	for y := 0; y < h; y++ {
		row := make([]raster.Tuple, w)
		for x := 0; x < w; x++ {
			t := make(raster.Tuple, out.Depth)
			for plane := 0; plane < out.Depth; plane++ {
				for i, im := range images {
					srcPlane := plane
					if srcPlane >= im.Depth {
						srcPlane = im.Depth - 1
					}
					s := im.Rows[y][x][srcPlane]
					if isBitstring(fn) || isShift(fn) {
						operandsInt[i] = int(s)
					} else {
						operandsNorm[i] = float64(s) / float64(im.Maxval)
					}
				}
				if isBitstring(fn) || isShift(fn) {
					t[plane] = uint16(applyBitwise(fn, operandsInt, out.Maxval))
				} else {
					r := applyNormalized(fn, operandsNorm, closeness)
					t[plane] = uint16(math.Round(r * float64(out.Maxval)))
				}
			}
			row[x] = t
		}
		out.Rows[y] = row
	}
	return out, nil
}

// applyNormalized mirrors applyNormalizedFunction: every operator works on
// samples scaled to [0,1], independent of the images' native maxvals.
func applyNormalized(fn Function, ops []float64, closeness float64) float64 {
	switch fn {
	case FnAdd:
		sum := 0.0
		for _, o := range ops {
			sum += o
		}
		if sum > 1 {
			sum = 1
		}
		return sum
	case FnSubtract:
		d := ops[0] - ops[1]
		if d < 0 {
			d = 0
		}
		return d
	case FnMultiply:
		product := 1.0
		for _, o := range ops {
			product *= o
		}
		return product
	case FnDivide:
		if ops[1] > ops[0] {
			return ops[0] / ops[1]
		}
		return 1.0
	case FnDifference:
		if ops[0] > ops[1] {
			return ops[0] - ops[1]
		}
		return ops[1] - ops[0]
	case FnMinimum:
		m := ops[0]
		for _, o := range ops[1:] {
			if o < m {
				m = o
			}
		}
		return m
	case FnMaximum:
		m := ops[0]
		for _, o := range ops[1:] {
			if o > m {
				m = o
			}
		}
		return m
	case FnMean:
		sum := 0.0
		for _, o := range ops {
			sum += o
		}
		return sum / float64(len(ops))
	case FnEqual:
		for _, o := range ops[1:] {
			if math.Abs(o-ops[0]) > closeness {
				return 0
			}
		}
		return 1
	case FnCompare:
		switch {
		case ops[0] > ops[1]:
			return 1
		case ops[0] < ops[1]:
			return 0
		default:
			return 0.5
		}
	default:
		return 0
	}
}

// applyBitwise mirrors applyUnNormalizedFunction's bitwise/shift cases,
// which operate on raw sample integers rather than normalized fractions.
func applyBitwise(fn Function, ops []int, maxval int) int {
	switch fn {
	case FnAnd:
		acc := ops[0]
		for _, o := range ops[1:] {
			acc &= o
		}
		return acc
	case FnOr:
		acc := ops[0]
		for _, o := range ops[1:] {
			acc |= o
		}
		return acc
	case FnNand:
		acc := ops[0]
		for _, o := range ops[1:] {
			acc &= o
		}
		return ^acc & maxval
	case FnNor:
		acc := ops[0]
		for _, o := range ops[1:] {
			acc |= o
		}
		return ^acc & maxval
	case FnXor:
		acc := ops[0]
		for _, o := range ops[1:] {
			acc ^= o
		}
		return acc
	case FnShiftLeft:
		return (ops[0] << uint(ops[1])) & maxval
	case FnShiftRight:
		return ops[0] >> uint(ops[1])
	default:
		return 0
	}
}
