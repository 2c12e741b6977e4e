// Package quant implements the median-cut color quantizer: given a color
// histogram, produce a palette of at most K representative tuples.
package quant

import (
	"sort"

	"github.com/netpbm-go/netpbm/internal/raster"
	"github.com/pkg/errors"
)

// SplitPolicy selects which box the quantizer splits next.
type SplitPolicy int

const (
	// SplitMaxPixels splits the box covering the most pixels.
	SplitMaxPixels SplitPolicy = iota
	// SplitMaxColors splits the box covering the most distinct colors.
	SplitMaxColors
	// SplitMaxSpread splits the box with the widest range on its
	// largest-spread plane.
	SplitMaxSpread
)

// DimensionPolicy selects which plane a box is split along.
type DimensionPolicy int

const (
	// DimNorm picks the plane with the greatest max-min spread.
	DimNorm DimensionPolicy = iota
	// DimLuminosity weights the spread by fixed RGB luminosity
	// coefficients before comparing planes.
	DimLuminosity
)

// RepresentativePolicy selects how a finished box's output tuple is
// computed.
type RepresentativePolicy int

const (
	// RepCenter takes the midpoint of each plane's min and max.
	RepCenter RepresentativePolicy = iota
	// RepMeanColor takes the unweighted mean of the box's tuples.
	RepMeanColor
	// RepMeanPixel takes the pixel-count-weighted mean.
	RepMeanPixel
)

// Options configures a Quantize call. The zero value selects
// SplitMaxPixels, DimNorm, and RepCenter, matching the worked example in
// spec.md §8.
type Options struct {
	Split          SplitPolicy
	Dimension      DimensionPolicy
	Representative RepresentativePolicy
}

// box designates a contiguous, half-open index range [Start, End) in the
// working color table, plus the serial number assigned when it was
// created (used to break split-order and sort ties deterministically).
type box struct {
	Start, End int
	Serial     int
}

func (b box) size() int { return b.End - b.Start }

// Quantize reduces hist to at most k representative tuples using the given
// policies, returning them in the order their boxes were finalized.
func Quantize(hist *raster.Histogram, k int, opts Options) ([]raster.Tuple, error) {
	if k < 1 {
		return nil, errors.New("quant: palette size must be at least 1")
	}
	n := hist.Len()
	if n == 0 {
		return nil, errors.New("quant: empty histogram")
	}

	// Copy entries into an independently sortable working table.
	table := make([]raster.Entry, n)
	copy(table, hist.Entries)

	boxes := []box{{Start: 0, End: n, Serial: 0}}
	nextSerial := 1

	for len(boxes) < k {
		splitIdx, ok := pickSplitBox(boxes, table, opts.Split)
		if !ok {
			break // No box has >= 2 colors left.
		}
		b := boxes[splitIdx]
		dim := pickDimension(table[b.Start:b.End], opts.Dimension)
		sortBoxByPlane(table[b.Start:b.End], dim)
		mid := medianCut(table[b.Start:b.End])
		if mid >= b.size() {
			// The last entry alone brings the count to half: cut just
			// before it so both halves keep at least one color.
			mid = b.size() - 1
		}
		left := box{Start: b.Start, End: b.Start + mid, Serial: nextSerial}
		nextSerial++
		right := box{Start: b.Start + mid, End: b.End, Serial: nextSerial}
		nextSerial++
		boxes = append(boxes[:splitIdx], append([]box{left, right}, boxes[splitIdx+1:]...)...)
	}

	out := make([]raster.Tuple, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, representative(table[b.Start:b.End], opts.Representative))
	}
	return out, nil
}

func removeBox(boxes []box, i int) []box {
	return append(boxes[:i], boxes[i+1:]...)
}

// pickSplitBox selects the next box to split, per policy, breaking ties by
// serial number. It returns ok=false when no remaining box has >= 2
// distinct colors.
func pickSplitBox(boxes []box, table []raster.Entry, policy SplitPolicy) (int, bool) {
	best := -1
	var bestScore float64
	for i, b := range boxes {
		if b.size() < 2 {
			continue
		}
		var score float64
		switch policy {
		case SplitMaxColors:
			score = float64(b.size())
		case SplitMaxSpread:
			score = spread(table[b.Start:b.End], DimNorm)
		default: // SplitMaxPixels
			score = float64(boxPixelCount(table[b.Start:b.End]))
		}
		if best == -1 || score > bestScore ||
			(score == bestScore && boxes[i].Serial < boxes[best].Serial) {
			best, bestScore = i, score
		}
	}
	return best, best != -1
}

func boxPixelCount(entries []raster.Entry) int {
	n := 0
	for _, e := range entries {
		n += e.Count
	}
	return n
}

func planeRange(entries []raster.Entry, plane int) (min, max uint16) {
	min, max = entries[0].Tuple[plane], entries[0].Tuple[plane]
	for _, e := range entries[1:] {
		v := e.Tuple[plane]
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return
}

func spread(entries []raster.Entry, policy DimensionPolicy) float64 {
	_, s := pickDimensionScored(entries, policy)
	return s
}

// pickDimension returns the plane index a box should be split along.
func pickDimension(entries []raster.Entry, policy DimensionPolicy) int {
	d, _ := pickDimensionScored(entries, policy)
	return d
}

func pickDimensionScored(entries []raster.Entry, policy DimensionPolicy) (int, float64) {
	depth := len(entries[0].Tuple)
	if depth == 1 {
		min, max := planeRange(entries, 0)
		return 0, float64(max) - float64(min)
	}
	coeffs := [3]float64{1, 1, 1}
	if policy == DimLuminosity && depth >= 3 {
		coeffs = [3]float64{0.299, 0.587, 0.114}
	}
	best, bestScore := 0, -1.0
	for p := 0; p < depth; p++ {
		min, max := planeRange(entries, p)
		c := 1.0
		if p < 3 {
			c = coeffs[p]
		}
		score := (float64(max) - float64(min)) * c
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best, bestScore
}

// sortBoxByPlane sorts entries by the given plane, breaking ties by
// comparing the remaining planes in order so the sort is total and
// deterministic.
func sortBoxByPlane(entries []raster.Entry, plane int) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := entries[i].Tuple, entries[j].Tuple
		if ti[plane] != tj[plane] {
			return ti[plane] < tj[plane]
		}
		for p := range ti {
			if p == plane {
				continue
			}
			if ti[p] != tj[p] {
				return ti[p] < tj[p]
			}
		}
		return false
	})
}

// medianCut finds the smallest prefix length whose cumulative pixel count
// reaches half the box's total, and returns it as the split point.
func medianCut(entries []raster.Entry) int {
	total := boxPixelCount(entries)
	half := (total + 1) / 2
	acc := 0
	for i, e := range entries {
		acc += e.Count
		if acc >= half {
			return i + 1
		}
	}
	return len(entries)
}

// representative computes a box's output tuple per policy.
func representative(entries []raster.Entry, policy RepresentativePolicy) raster.Tuple {
	depth := len(entries[0].Tuple)
	out := make(raster.Tuple, depth)
	switch policy {
	case RepMeanColor:
		sums := make([]float64, depth)
		for _, e := range entries {
			for p := 0; p < depth; p++ {
				sums[p] += float64(e.Tuple[p])
			}
		}
		for p := range out {
			out[p] = uint16(sums[p] / float64(len(entries)))
		}
	case RepMeanPixel:
		sums := make([]float64, depth)
		total := 0
		for _, e := range entries {
			total += e.Count
			for p := 0; p < depth; p++ {
				sums[p] += float64(e.Tuple[p]) * float64(e.Count)
			}
		}
		for p := range out {
			out[p] = uint16(sums[p] / float64(total))
		}
	default: // RepCenter
		for p := 0; p < depth; p++ {
			min, max := planeRange(entries, p)
			out[p] = (min + max) / 2
		}
	}
	return out
}
