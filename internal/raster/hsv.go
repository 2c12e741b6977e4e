package raster

import "math"

// RGBToHSV converts normalized (0-1) RGB samples to normalized HSV, with
// hue in [0, 360).
func RGBToHSV(r, g, b float64) (h, s, v float64) {
	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	v = max
	delta := max - min
	if max == 0 {
		return 0, 0, v
	}
	s = delta / max
	if delta == 0 {
		return 0, s, v
	}
	switch max {
	case r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case g:
		h = 60 * ((b-r)/delta + 2)
	case b:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}

// HSVToRGB converts normalized HSV (hue in [0,360)) to normalized RGB.
func HSVToRGB(h, s, v float64) (r, g, b float64) {
	if s == 0 {
		return v, v, v
	}
	hh := math.Mod(h, 360) / 60
	i := int(math.Floor(hh))
	f := hh - float64(i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch i {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}

// Gamma applies a power-law gamma correction to a normalized (0-1) sample.
func Gamma(sample, gamma float64) float64 {
	if sample <= 0 {
		return 0
	}
	return math.Pow(sample, 1/gamma)
}

// Luminosity returns the weighted (ITU-R-ish) luminosity of an RGB tuple,
// using the same 0.299/0.587/0.114 coefficients the quantizer's
// largest-dimension luminosity policy uses.
func Luminosity(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}
