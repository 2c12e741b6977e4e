// This file implements a row-at-a-time streaming codec alongside the
// whole-image decoders in pam.go, pbm.go, pgm.go, and ppm.go. Those
// decoders satisfy image.Image / image.Decode; StreamReader and StreamWriter
// expose the same header/row/packed-row grammar one row at a time and, on
// the read side, across more than one image in a single stream.
package netpbm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode"

	"github.com/netpbm-go/netpbm/internal/bitrow"
	"github.com/pkg/errors"
)

// formatFromMagic maps a two-character Netpbm magic number to its Format.
func formatFromMagic(magic string) Format {
	switch magic {
	case "P1", "P4":
		return PBM
	case "P2", "P5":
		return PGM
	case "P3", "P6":
		return PPM
	case "P7":
		return PAM
	default:
		return 0
	}
}

// selectNarrowestFormat picks the most specific format that can represent a
// tuple of the given depth and maxval: PBM for 1-bit single-plane data, PGM
// for multi-valued single-plane data, PPM for 3-plane data, and PAM for
// everything else (any alpha channel, or depth outside 1/3).
func selectNarrowestFormat(depth, maxval int, tupleType string) Format {
	hasAlpha := strings.HasSuffix(tupleType, "_ALPHA")
	switch {
	case depth == 1 && maxval == 1 && !hasAlpha:
		return PBM
	case depth == 1 && !hasAlpha:
		return PGM
	case depth == 3 && !hasAlpha:
		return PPM
	default:
		return PAM
	}
}

// tupleTypeForDepth infers the default PAM tuple type for a plane count that
// was not given one explicitly.
func tupleTypeForDepth(depth int) (string, error) {
	switch depth {
	case 1:
		return "GRAYSCALE", nil
	case 2:
		return "GRAYSCALE_ALPHA", nil
	case 3:
		return "RGB", nil
	case 4:
		return "RGB_ALPHA", nil
	default:
		return "", UnsupportedError("netpbm: depth %d has no default PAM tuple type", depth)
	}
}

// A StreamReader reads one or more Netpbm images from a single io.Reader a
// row at a time, without materializing a whole image.Image. Call ReadInit
// once, then ReadRow (or ReadRowNorm) Height times, then NextImage to check
// for and advance to a following image in the same stream.
type StreamReader struct {
	br *bufio.Reader
	nr *netpbmReader

	Format    Format
	Width     int
	Height    int
	Depth     int
	Maxval    int
	TupleType string
	Comments  []string

	plain    bool
	rowsRead int
	rowBuf   []uint16
}

// ReadInit reads and parses the header of the next image on r, populating
// the StreamReader's Width, Height, Depth, Maxval, and TupleType fields.
func (sr *StreamReader) ReadInit(r io.Reader) error {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	sr.br = br
	return sr.readHeader()
}

// readHeader parses one image header from sr.br, which must already be
// positioned at (or before) a magic number.
func (sr *StreamReader) readHeader() error {
	magic, err := sr.br.Peek(2)
	if err != nil {
		return errors.Wrap(err, "netpbm: peeking at magic number")
	}
	nr := newNetpbmReader(sr.br)
	var header netpbmHeader
	var ok bool
	switch string(magic) {
	case "P1", "P2", "P3", "P4", "P5", "P6":
		header, ok = nr.GetNetpbmHeader()
		if !ok {
			if e := nr.Err(); e != nil {
				return e
			}
			return MalformedInputError("Invalid Netpbm header")
		}
	case "P7":
		header, ok = nr.GetPamHeader()
		if !ok {
			if e := nr.Err(); e != nil {
				return e
			}
			return MalformedInputError("Invalid PAM header")
		}
	default:
		return MalformedInputError("netpbm: unrecognized magic number %q", magic)
	}
	sr.setFromHeader(header)
	sr.nr = nr
	sr.rowsRead = 0
	return nil
}

// setFromHeader populates the exported fields from a parsed header.
func (sr *StreamReader) setFromHeader(header netpbmHeader) {
	sr.Format = formatFromMagic(header.Magic)
	sr.plain = header.Magic == "P1" || header.Magic == "P2" || header.Magic == "P3"
	sr.Width = header.Width
	sr.Height = header.Height
	sr.Maxval = header.Maxval
	sr.Comments = header.Comments
	switch header.Magic {
	case "P1", "P4":
		sr.Depth = 1
		sr.TupleType = "BLACKANDWHITE"
	case "P2", "P5":
		sr.Depth = 1
		sr.TupleType = "GRAYSCALE"
	case "P3", "P6":
		sr.Depth = 3
		sr.TupleType = "RGB"
	case "P7":
		sr.Depth = header.Depth
		sr.TupleType = header.TupleType
	}
}

// ReadRow reads one row of Width*Depth raw (un-normalized) samples into row,
// which must have that exact length.
func (sr *StreamReader) ReadRow(row []uint16) error {
	if sr.nr == nil {
		return MalformedInputError("netpbm: ReadInit must be called before ReadRow")
	}
	if want := sr.Width * sr.Depth; len(row) != want {
		return MalformedInputError("netpbm: row buffer has length %d, want %d", len(row), want)
	}
	if sr.rowsRead >= sr.Height {
		return io.EOF
	}
	var err error
	switch {
	case sr.Format == PBM && !sr.plain:
		err = sr.readPackedBitsRow(row)
	case sr.Format == PBM && sr.plain:
		err = sr.readPlainBitsRow(row)
	case sr.plain:
		err = sr.readPlainSamplesRow(row)
	default:
		err = sr.readRawSamplesRow(row)
	}
	if err != nil {
		return err
	}
	sr.rowsRead++
	return nil
}

// ReadRowNorm reads one row like ReadRow but normalizes each sample to the
// range [0, 1] by dividing by Maxval.
func (sr *StreamReader) ReadRowNorm(row []float64) error {
	if want := sr.Width * sr.Depth; len(row) != want {
		return MalformedInputError("netpbm: row buffer has length %d, want %d", len(row), want)
	}
	if len(sr.rowBuf) != len(row) {
		sr.rowBuf = make([]uint16, len(row))
	}
	if err := sr.ReadRow(sr.rowBuf); err != nil {
		return err
	}
	maxval := float64(sr.Maxval)
	for i, s := range sr.rowBuf {
		row[i] = float64(s) / maxval
	}
	return nil
}

// readPackedBitsRow reads one row of raw (binary) PBM data: the row is
// packed MSB-first into PackedLen(Width) bytes, padded to a byte boundary.
func (sr *StreamReader) readPackedBitsRow(row []uint16) error {
	packed := make([]byte, bitrow.PackedLen(sr.Width))
	if _, err := io.ReadFull(sr.br, packed); err != nil {
		return errors.Wrap(err, "netpbm: reading packed PBM row")
	}
	tmp := make([]uint8, sr.Width)
	bitrow.UnpackRowInto(packed, sr.Width, tmp)
	for i, v := range tmp {
		row[i] = uint16(v)
	}
	return nil
}

// readPlainBitsRow reads one row of plain (ASCII) PBM data: Width '0' or '1'
// characters with no required separator between them.
func (sr *StreamReader) readPlainBitsRow(row []uint16) error {
	for i := 0; i < sr.Width; {
		ch := sr.nr.GetNextByteAsRune()
		switch {
		case sr.nr.Err() != nil:
			return MalformedInputError("Failed to parse ASCII PBM data")
		case unicode.IsSpace(ch):
			continue
		case ch == '0' || ch == '1':
			row[i] = uint16(ch - '0')
			i++
		default:
			return MalformedInputError("Failed to parse ASCII PBM data")
		}
	}
	return nil
}

// readPlainSamplesRow reads one row of whitespace-delimited ASCII decimal
// samples, used by plain PGM and PPM.
func (sr *StreamReader) readPlainSamplesRow(row []uint16) error {
	for i := range row {
		v := sr.nr.GetNextInt()
		if sr.nr.Err() != nil {
			return MalformedInputError("Failed to parse ASCII sample data")
		}
		row[i] = uint16(v)
	}
	return nil
}

// readRawSamplesRow reads one row of binary samples, one or two bytes per
// sample depending on Maxval, used by raw PGM, PPM, and PAM.
func (sr *StreamReader) readRawSamplesRow(row []uint16) error {
	if sr.Maxval < 256 {
		buf := make([]byte, len(row))
		if _, err := io.ReadFull(sr.br, buf); err != nil {
			return errors.Wrap(err, "netpbm: reading raw sample row")
		}
		for i, b := range buf {
			row[i] = uint16(b)
		}
		return nil
	}
	buf := make([]byte, len(row)*2)
	if _, err := io.ReadFull(sr.br, buf); err != nil {
		return errors.Wrap(err, "netpbm: reading raw sample row")
	}
	for i := range row {
		row[i] = uint16(buf[2*i])<<8 | uint16(buf[2*i+1])
	}
	return nil
}

// NextImage reports whether another image follows the one just fully read
// in the same stream, parsing and switching to its header if so. It returns
// false, nil at a clean end of stream.
func (sr *StreamReader) NextImage() (bool, error) {
	if sr.nr == nil {
		return false, MalformedInputError("netpbm: ReadInit must be called before NextImage")
	}
	if sr.rowsRead < sr.Height {
		return false, MalformedInputError("netpbm: NextImage called before all %d rows of the current image were read", sr.Height)
	}
	if _, err := sr.br.Peek(1); err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, errors.Wrap(err, "netpbm: peeking for a following image")
	}
	if err := sr.readHeader(); err != nil {
		return false, err
	}
	return true, nil
}

// StreamEncodeOptions configures one image written by a StreamWriter.
type StreamEncodeOptions struct {
	// Format is the Netpbm format to write. The zero value selects the
	// narrowest format able to represent Depth, Maxval, and TupleType
	// (PBM for 1-bit single-plane data, PGM for single-plane, PPM for
	// three-plane, PAM for anything else).
	Format Format

	Width, Height, Depth int
	Maxval               int

	// TupleType is the PAM tuple-type string. It is required only when
	// Format (or the inferred format) is PAM and Depth does not map to
	// an unambiguous default (1, 2, 3, or 4 planes).
	TupleType string

	// Plain selects ASCII sample encoding. PAM has no plain form and
	// ignores this field.
	Plain bool

	Comment  string
	Comments []string
}

// A StreamWriter writes one or more Netpbm images to a single io.Writer a
// row at a time. Call WriteInit once, then WriteRow (or WriteRowNorm) Height
// times, then either Flush to finish the stream or NextImage to begin
// another image in the same stream.
type StreamWriter struct {
	w    *bufio.Writer
	opts StreamEncodeOptions

	format      Format
	rowsWritten int
	rowBuf      []uint16
}

// WriteInit begins writing a new stream to w, writing the header described
// by opts.
func (sw *StreamWriter) WriteInit(w io.Writer, opts *StreamEncodeOptions) error {
	bw, ok := w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(w)
	}
	sw.w = bw
	return sw.beginImage(opts)
}

// NextImage begins writing another image to the same underlying stream,
// writing the header described by opts. The previous image's rows must all
// have been written first.
func (sw *StreamWriter) NextImage(opts *StreamEncodeOptions) error {
	if sw.w == nil {
		return MalformedInputError("netpbm: WriteInit must be called before NextImage")
	}
	if sw.rowsWritten < sw.opts.Height {
		return MalformedInputError("netpbm: NextImage called before all %d rows of the current image were written", sw.opts.Height)
	}
	return sw.beginImage(opts)
}

// beginImage validates opts, resolves the format and PAM tuple type, and
// writes the header.
func (sw *StreamWriter) beginImage(opts *StreamEncodeOptions) error {
	o := *opts
	if o.Width <= 0 || o.Height <= 0 || o.Depth <= 0 {
		return MalformedInputError("netpbm: Width, Height, and Depth must all be positive")
	}
	if o.Maxval <= 0 {
		o.Maxval = 255
	}
	if o.Maxval > 65535 {
		return MalformedInputError("netpbm: Maxval %d exceeds 65535", o.Maxval)
	}
	format := o.Format
	if format == 0 {
		format = selectNarrowestFormat(o.Depth, o.Maxval, o.TupleType)
	}
	if format == PAM && o.TupleType == "" {
		tt, err := tupleTypeForDepth(o.Depth)
		if err != nil {
			return err
		}
		o.TupleType = tt
	}
	sw.opts = o
	sw.format = format
	sw.rowsWritten = 0
	return sw.writeHeader()
}

// writeComments emits the header's comment lines, preferring Comments (one
// line per element) over the single-line Comment field.
func (sw *StreamWriter) writeComments() {
	if len(sw.opts.Comments) > 0 {
		for _, c := range sw.opts.Comments {
			c = strings.ReplaceAll(strings.ReplaceAll(c, "\n", " "), "\r", " ")
			fmt.Fprintf(sw.w, "# %s\n", c)
		}
		return
	}
	if sw.opts.Comment != "" {
		fmt.Fprintf(sw.w, "# %s\n", strings.Replace(sw.opts.Comment, "\n", "# ", -1))
	}
}

func (sw *StreamWriter) writeHeader() error {
	switch sw.format {
	case PBM:
		magic := "P4"
		if sw.opts.Plain {
			magic = "P1"
		}
		fmt.Fprintln(sw.w, magic)
		sw.writeComments()
		fmt.Fprintf(sw.w, "%d %d\n", sw.opts.Width, sw.opts.Height)
	case PGM:
		magic := "P5"
		if sw.opts.Plain {
			magic = "P2"
		}
		fmt.Fprintln(sw.w, magic)
		sw.writeComments()
		fmt.Fprintf(sw.w, "%d %d\n", sw.opts.Width, sw.opts.Height)
		fmt.Fprintf(sw.w, "%d\n", sw.opts.Maxval)
	case PPM:
		magic := "P6"
		if sw.opts.Plain {
			magic = "P3"
		}
		fmt.Fprintln(sw.w, magic)
		sw.writeComments()
		fmt.Fprintf(sw.w, "%d %d\n", sw.opts.Width, sw.opts.Height)
		fmt.Fprintf(sw.w, "%d\n", sw.opts.Maxval)
	case PAM:
		fmt.Fprintln(sw.w, "P7")
		sw.writeComments()
		fmt.Fprintf(sw.w, "WIDTH %d\n", sw.opts.Width)
		fmt.Fprintf(sw.w, "HEIGHT %d\n", sw.opts.Height)
		fmt.Fprintf(sw.w, "DEPTH %d\n", sw.opts.Depth)
		fmt.Fprintf(sw.w, "MAXVAL %d\n", sw.opts.Maxval)
		fmt.Fprintf(sw.w, "TUPLTYPE %s\n", sw.opts.TupleType)
		fmt.Fprintln(sw.w, "ENDHDR")
	default:
		return UnsupportedError("netpbm: cannot determine a format to write")
	}
	return nil
}

// WriteRow writes one row of Width*Depth raw (un-normalized) samples.
func (sw *StreamWriter) WriteRow(row []uint16) error {
	if sw.w == nil {
		return MalformedInputError("netpbm: WriteInit must be called before WriteRow")
	}
	if want := sw.opts.Width * sw.opts.Depth; len(row) != want {
		return MalformedInputError("netpbm: row buffer has length %d, want %d", len(row), want)
	}
	if sw.rowsWritten >= sw.opts.Height {
		return MalformedInputError("netpbm: all %d rows have already been written", sw.opts.Height)
	}
	var err error
	switch {
	case sw.format == PBM && !sw.opts.Plain:
		err = sw.writePackedBitsRow(row)
	case sw.format == PBM && sw.opts.Plain:
		err = sw.writePlainBitsRow(row)
	case sw.opts.Plain:
		err = sw.writePlainSamplesRow(row)
	default:
		err = sw.writeRawSamplesRow(row)
	}
	if err != nil {
		return err
	}
	sw.rowsWritten++
	return nil
}

// WriteRowNorm writes one row like WriteRow, scaling each sample in [0, 1]
// up to [0, Maxval] and rounding to the nearest integer.
func (sw *StreamWriter) WriteRowNorm(row []float64) error {
	if want := sw.opts.Width * sw.opts.Depth; len(row) != want {
		return MalformedInputError("netpbm: row buffer has length %d, want %d", len(row), want)
	}
	if len(sw.rowBuf) != len(row) {
		sw.rowBuf = make([]uint16, len(row))
	}
	maxval := float64(sw.opts.Maxval)
	for i, v := range row {
		s := v * maxval
		switch {
		case s < 0:
			s = 0
		case s > maxval:
			s = maxval
		}
		sw.rowBuf[i] = uint16(math.Round(s))
	}
	return sw.WriteRow(sw.rowBuf)
}

func (sw *StreamWriter) writePackedBitsRow(row []uint16) error {
	tmp := make([]uint8, sw.opts.Width)
	for i, v := range row {
		tmp[i] = uint8(v)
	}
	packed := bitrow.PackRow(tmp, sw.opts.Width)
	_, err := sw.w.Write(packed)
	return err
}

func (sw *StreamWriter) writePlainBitsRow(row []uint16) error {
	for _, v := range row {
		if err := sw.w.WriteByte(byte('0' + v)); err != nil {
			return err
		}
	}
	return sw.w.WriteByte('\n')
}

func (sw *StreamWriter) writePlainSamplesRow(row []uint16) error {
	for _, v := range row {
		if _, err := fmt.Fprintf(sw.w, "%d ", v); err != nil {
			return err
		}
	}
	return sw.w.WriteByte('\n')
}

func (sw *StreamWriter) writeRawSamplesRow(row []uint16) error {
	if sw.opts.Maxval < 256 {
		for _, v := range row {
			if err := sw.w.WriteByte(byte(v)); err != nil {
				return err
			}
		}
		return nil
	}
	for _, v := range row {
		if err := sw.w.WriteByte(byte(v >> 8)); err != nil {
			return err
		}
		if err := sw.w.WriteByte(byte(v)); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes any buffered output to the underlying io.Writer. Call it
// once after the final image's rows have all been written.
func (sw *StreamWriter) Flush() error {
	if sw.w == nil {
		return nil
	}
	return sw.w.Flush()
}
