package arith

import (
	"math"

	"github.com/netpbm-go/netpbm/internal/prng"
	"github.com/netpbm-go/netpbm/internal/raster"
	"github.com/pkg/errors"
)

// BlendMode selects how a stack of images is combined at each pixel,
// guided by a per-pixel mask sample.
type BlendMode int

const (
	BlendAverage BlendMode = iota
	BlendRandom
	BlendMask
)

// randSamplesPerImage is how many Gaussian-perturbed picks contribute to
// the mask-mode weight histogram for each input image, at each mask gray
// level; the weight vector for a level therefore sums to
// randSamplesPerImage * len(images).
const randSamplesPerImage = 64

// Blend combines images (all equal dimensions and depth) guided by mask
// (a single-plane image whose samples select a gray level in
// [0, mask.Maxval]). Mode Mask requires p for its Gaussian weight draws;
// Average and Random ignore closeness/sigma concerns entirely (Random
// still needs p to choose the source image per pixel).
func Blend(images []*Image, mask *Image, mode BlendMode, p *prng.PRNG) (*Image, error) {
	if len(images) < 2 {
		return nil, errors.New("arith: blend requires at least 2 input images")
	}
	w, h, depth := images[0].Width, images[0].Height, images[0].Depth
	maxval := maxMaxval(images)
	for _, im := range images[1:] {
		if im.Width != w || im.Height != h {
			return nil, errors.New("arith: blend inputs must share dimensions")
		}
	}
	if mask.Width != w || mask.Height != h {
		return nil, errors.New("arith: mask must share the input images' dimensions")
	}

	out := &Image{Width: w, Height: h, Depth: depth, Maxval: maxval}
	out.Rows = make([][]raster.Tuple, h)

	var weights [][]int // weights[grayLevel][imageIndex]
	if mode == BlendMask {
		if p == nil {
			return nil, errors.New("arith: mask-mode blend requires a PRNG")
		}
		weights = buildMaskWeights(mask.Maxval, len(images), p)
	}

	for y := 0; y < h; y++ {
		row := make([]raster.Tuple, w)
		for x := 0; x < w; x++ {
			t := make(raster.Tuple, depth)
			switch mode {
			case BlendAverage:
				for plane := 0; plane < depth; plane++ {
					sum := 0
					for _, im := range images {
						sum += planeSample(im, x, y, plane, maxval)
					}
					t[plane] = uint16(int(math.Round(float64(sum) / float64(len(images)))))
				}
			case BlendRandom:
				idx := int(p.Rand() % uint32(len(images)))
				for plane := 0; plane < depth; plane++ {
					t[plane] = uint16(planeSample(images[idx], x, y, plane, maxval))
				}
			case BlendMask:
				g := int(mask.Rows[y][x][0])
				if g > mask.Maxval {
					g = mask.Maxval
				}
				w := weights[g]
				for plane := 0; plane < depth; plane++ {
					sum := 0
					total := 0
					for i, im := range images {
						sum += planeSample(im, x, y, plane, maxval) * w[i]
						total += w[i]
					}
					if total == 0 {
						t[plane] = 0
					} else {
						t[plane] = uint16(int(math.Round(float64(sum) / float64(total))))
					}
				}
			}
			row[x] = t
		}
		out.Rows[y] = row
	}
	return out, nil
}

// planeSample reads one sample, saturating the plane index to an image's
// own depth and rescaling to the shared output maxval.
func planeSample(im *Image, x, y, plane, outMaxval int) int {
	srcPlane := plane
	if srcPlane >= im.Depth {
		srcPlane = im.Depth - 1
	}
	s := int(im.Rows[y][x][srcPlane])
	if im.Maxval == outMaxval {
		return s
	}
	return int(math.Round(float64(s) / float64(im.Maxval) * float64(outMaxval)))
}

// buildMaskWeights precomputes, for each mask gray level g in
// [0, maskMaxval], a nonnegative integer weight vector over the N input
// images summing to randSamplesPerImage*N. Weights are drawn by
// perturbing the linear target index mu(g) = g/maskMaxval * (N-1) with
// Gaussian noise (sigma chosen so the spread covers roughly the full
// image range), rounding to the nearest image index, and tallying.
func buildMaskWeights(maskMaxval, n int, p *prng.PRNG) [][]int {
	sigma := float64(n) / 4.0
	if sigma < 0.5 {
		sigma = 0.5
	}
	total := randSamplesPerImage * n

	out := make([][]int, maskMaxval+1)
	for g := 0; g <= maskMaxval; g++ {
		mu := 0.0
		if maskMaxval > 0 {
			mu = float64(g) / float64(maskMaxval) * float64(n-1)
		}
		w := make([]int, n)
		drawn := 0
		for drawn < total {
			r1, r2 := p.Gauss2()
			for _, r := range [2]float64{r1, r2} {
				if drawn >= total {
					break
				}
				idx := int(math.Round(mu + r*sigma))
				if idx < 0 {
					idx = 0
				}
				if idx > n-1 {
					idx = n - 1
				}
				w[idx]++
				drawn++
			}
		}
		out[g] = w
	}
	return out
}
