// This file defines the top-level Image, Format, DecodeOptions, and
// EncodeOptions contracts that the per-format codecs (pbm.go, pgm.go,
// ppm.go, pam.go) implement and dispatch through.

package netpbm

import (
	"bufio"
	"fmt"
	"image"
	"io"
)

// A Format identifies one of the four Netpbm image formats.  The zero value
// is not a valid format; it is used by DecodeOptions and EncodeOptions to
// mean "unspecified."
type Format int

// These are the Netpbm formats this package supports.
const (
	_   Format = iota // Zero value: unspecified
	PBM               // Portable BitMap (black & white)
	PGM               // Portable GrayMap (grayscale)
	PPM               // Portable PixMap (color)
	PAM               // Portable Arbitrary Map (arbitrary tuples)
)

// String returns the name of a Format ("PBM", "PGM", "PPM", or "PAM").
func (f Format) String() string {
	switch f {
	case PBM:
		return "PBM"
	case PGM:
		return "PGM"
	case PPM:
		return "PPM"
	case PAM:
		return "PAM"
	default:
		return "unspecified"
	}
}

// formatRank orders PBM < PGM < PPM by generality so Decode can promote a
// less general image up to a more general target format.  PAM sits outside
// this chain: every other format can already be described as a PAM tuple
// stream, so Decode never has to convert a concrete image's representation
// to satisfy a PAM target.
func formatRank(f Format) int {
	switch f {
	case PBM:
		return 0
	case PGM:
		return 1
	case PPM:
		return 2
	default:
		return -1
	}
}

// An Image extends image.Image with the metadata every Netpbm image
// carries: its maximum channel value, which of the four formats it either
// came from or will be written as, and whether it carries an alpha channel.
type Image interface {
	image.Image

	// MaxValue returns the value that represents 100% intensity on any
	// channel.
	MaxValue() uint16

	// Format reports which of PBM, PGM, PPM, or PAM the image represents.
	Format() Format

	// HasAlpha reports whether the image carries an alpha channel.
	HasAlpha() bool
}

// DecodeOptions customizes how Decode interprets an input image.
type DecodeOptions struct {
	// Target is the most specific format the caller is willing to
	// receive.  The zero value leaves the image in whatever format it
	// was actually encoded in.  A non-zero Target causes Decode to
	// promote a less general native format up to Target (e.g. PBM to
	// PPM) unless Target is PAM, which every native format already
	// satisfies without any representational change.
	Target Format

	// Exact, if true, requires the native format to equal Target exactly
	// (no promotion); Decode fails rather than promote.
	Exact bool

	// PBMMaxValue gives the 100%-white sample value to use when
	// promoting a PBM image to PGM or PPM.  Zero selects 255.
	PBMMaxValue uint16
}

// EncodeOptions customizes how Encode writes an image.
type EncodeOptions struct {
	// Format is the Netpbm format to write.  There is no default; the
	// caller must specify one of PBM, PGM, PPM, or PAM.
	Format Format

	// Plain selects ASCII ("plain") sample encoding when true and binary
	// ("raw") encoding when false.  PAM has no plain form and ignores
	// this field.
	Plain bool

	// MaxValue is the maximum channel value to encode.  Zero derives it
	// from the source image's own MaxValue.
	MaxValue uint16

	// TupleType is the PAM tuple-type string (e.g. "RGB_ALPHA") to
	// write.  An empty string derives it from the source image's format
	// and alpha channel.  PBM, PGM, and PPM ignore this field.
	TupleType string

	// Comment, if non-empty, is written as a single comment line.  Only
	// the PBM encoder writes it; PGM, PPM, and PAM ignore this field.
	Comment string

	// Comments, if non-empty, is written as one comment line per
	// element.  The PGM, PPM, and PAM encoders write it; PBM ignores
	// this field.
	Comments []string
}

// decodeNative sniffs the two-character Netpbm magic number from r and
// dispatches to the matching format-specific decoder, returning the decoded
// image (as a netpbm.Image, not just an image.Image) and any header
// comments.
func decodeNative(r io.Reader) (Image, []string, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	magic, err := br.Peek(2)
	if err != nil {
		return nil, nil, err
	}
	var img image.Image
	var comments []string
	switch string(magic) {
	case "P1":
		img, err = decodePBMPlain(br)
	case "P4":
		img, err = decodePBM(br)
	case "P2":
		img, comments, err = decodePGMPlainWithComments(br)
	case "P5":
		img, comments, err = decodePGMWithComments(br)
	case "P3":
		img, comments, err = decodePPMPlainWithComments(br)
	case "P6":
		img, comments, err = decodePPMWithComments(br)
	case "P7":
		img, comments, err = decodePAMWithComments(br)
	default:
		return nil, nil, MalformedInputError("netpbm: unrecognized magic number %q", magic)
	}
	if err != nil {
		return nil, nil, err
	}
	nimg, ok := img.(Image)
	if !ok {
		return nil, nil, UnsupportedError("netpbm: internal error decoding a %q image", magic)
	}
	return nimg, comments, nil
}

// promote converts img to the next more general format in the PBM -> PGM ->
// PPM chain, using pbmMaxVal as the 100%-white value on a PBM -> PGM step.
func promote(img Image, pbmMaxVal uint16) (Image, error) {
	switch v := img.(type) {
	case *BW:
		if pbmMaxVal == 0 {
			pbmMaxVal = 255
		}
		if pbmMaxVal < 256 {
			return v.PromoteToGrayM(uint8(pbmMaxVal)), nil
		}
		return v.PromoteToGrayM32(pbmMaxVal), nil
	case *GrayM:
		return v.PromoteToRGBM(), nil
	case *GrayM32:
		return v.PromoteToRGBM64(), nil
	default:
		return nil, UnsupportedError("netpbm: a %s image cannot be promoted further", img.Format())
	}
}

// applyTarget converts native to satisfy opts.Target, per DecodeOptions'
// documented promotion rules.
func applyTarget(native Image, opts *DecodeOptions) (Image, error) {
	target := opts.Target
	if target == 0 || target == PAM || native.Format() == target {
		return native, nil
	}
	if opts.Exact {
		return nil, MalformedInputError("netpbm: image is %s, not %s", native.Format(), target)
	}
	nr, tr := formatRank(native.Format()), formatRank(target)
	if nr < 0 || tr < 0 || tr < nr {
		return nil, UnsupportedError("netpbm: cannot convert a %s image to %s", native.Format(), target)
	}
	cur := native
	for formatRank(cur.Format()) < tr {
		next, err := promote(cur, opts.PBMMaxValue)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Decode reads and decodes a Netpbm image (PBM, PGM, PPM, or PAM; raw or
// plain) from r.  A nil opts behaves like &DecodeOptions{}: the image is
// returned in whatever format it was encoded in.
func Decode(r io.Reader, opts *DecodeOptions) (Image, error) {
	if opts == nil {
		opts = &DecodeOptions{}
	}
	native, _, err := decodeNative(r)
	if err != nil {
		return nil, err
	}
	return applyTarget(native, opts)
}

// DecodeConfig reads and parses the header of a Netpbm image without
// decoding the full image, returning its dimensions and color model.
func DecodeConfig(r io.Reader) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(r)
	return cfg, err
}

// tupleTypeOf infers the PAM tuple-type string a generic image.Image should
// be written with when the caller did not specify one explicitly.
func tupleTypeOf(img image.Image) string {
	nimg, ok := img.(Image)
	if !ok {
		return "RGB"
	}
	switch nimg.Format() {
	case PBM:
		return "BLACKANDWHITE"
	case PGM:
		if nimg.HasAlpha() {
			return "GRAYSCALE_ALPHA"
		}
		return "GRAYSCALE"
	default:
		if nimg.HasAlpha() {
			return "RGB_ALPHA"
		}
		return "RGB"
	}
}

// writeRawData drains samples, writing each as a big-endian value of
// nBytes bytes (1 for 8-bit channels, 2 for 16-bit channels). It is shared
// by the PGM, PPM, and PAM raw encoders.
func writeRawData(w io.Writer, samples <-chan uint16, nBytes int) error {
	wb, ok := w.(*bufio.Writer)
	if !ok {
		wb = bufio.NewWriter(w)
	}
	for s := range samples {
		if nBytes == 1 {
			if err := wb.WriteByte(byte(s)); err != nil {
				return err
			}
			continue
		}
		if err := wb.WriteByte(byte(s >> 8)); err != nil {
			return err
		}
		if err := wb.WriteByte(byte(s)); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// writePlainData drains samples, writing each as an ASCII decimal number
// and wrapping lines at 70 characters. It is shared by the PGM and PPM
// plain encoders.
func writePlainData(w io.Writer, samples <-chan uint16) error {
	var line string
	for s := range samples {
		word := fmt.Sprintf("%d ", s)
		if len(line)+len(word) <= 70 {
			line += word
			continue
		}
		lineBytes := []byte(line)
		lineBytes[len(lineBytes)-1] = '\n'
		if _, err := w.Write(lineBytes); err != nil {
			return err
		}
		line = word
	}
	if line != "" {
		lineBytes := []byte(line)
		lineBytes[len(lineBytes)-1] = '\n'
		if _, err := w.Write(lineBytes); err != nil {
			return err
		}
	}
	return nil
}

// Encode writes img in the format named by opts.Format, filling in a
// MaxValue and TupleType from img itself when opts leaves them zero.
func Encode(w io.Writer, img image.Image, opts *EncodeOptions) error {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	o := *opts
	if o.MaxValue == 0 {
		if nimg, ok := img.(Image); ok {
			o.MaxValue = nimg.MaxValue()
		} else {
			o.MaxValue = 255
		}
	}
	if o.TupleType == "" {
		o.TupleType = tupleTypeOf(img)
	}
	switch o.Format {
	case PBM:
		return encodePBM(w, img, &o)
	case PGM:
		return encodePGM(w, img, &o)
	case PPM:
		return encodePPM(w, img, &o)
	case PAM:
		return encodePAM(w, img, &o)
	default:
		return UnsupportedError("netpbm: EncodeOptions.Format must be PBM, PGM, PPM, or PAM")
	}
}
