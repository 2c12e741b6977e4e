// Package raster implements the L2 raster utilities shared by the
// quantizer and the dithering filters: tuple hashing and histograms,
// HSV/gamma color-space conversions, and Floyd-Steinberg error diffusion.
package raster

// A Tuple is one pixel: depth samples, each in [0, maxval]. Planes 0/1/2
// are red/green/blue for color tuple types; plane 0 is luminance for
// grayscale; the alpha plane, when present, is always last.
type Tuple []uint16

// Equal reports whether two tuples have identical samples.
func (t Tuple) Equal(o Tuple) bool {
	if len(t) != len(o) {
		return false
	}
	for i, s := range t {
		if o[i] != s {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of t.
func (t Tuple) Clone() Tuple {
	c := make(Tuple, len(t))
	copy(c, t)
	return c
}

// hashKey computes the fixed linear combination of the red/green/blue
// samples (planes 0, 1, 2, or just plane 0 for single-plane tuples) used
// to bucket a tuple in the histogram's chained hash.
func hashKey(t Tuple) uint64 {
	var r, g, b uint64
	switch {
	case len(t) >= 3:
		r, g, b = uint64(t[0]), uint64(t[1]), uint64(t[2])
	case len(t) == 1:
		r, g, b = uint64(t[0]), uint64(t[0]), uint64(t[0])
	default:
		r = uint64(t[0])
	}
	return r*2654435761 + g*40503 + b
}
