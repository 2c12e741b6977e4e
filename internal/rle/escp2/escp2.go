// Package escp2 implements the Epson ESC/P2 stripe raster format: a
// headerless stream of ESC '.' stripes, each a fixed 6-byte stripe header
// followed by an uncompressed or run-length-coded packed bitmap band.
package escp2

import (
	"bufio"
	"io"

	"github.com/netpbm-go/netpbm/internal/bitrow"
	"github.com/pkg/errors"
)

const esc = 0x1b

// Compression modes carried in a stripe header's first byte.
const (
	ModeUncompressed = 0
	ModeRLE          = 1
)

// A Warning is a non-fatal condition surfaced by Decode rather than logged.
type Warning struct {
	Message string
}

// A Stripe is one decoded band: Rows packed-bit rows, each bitrow.PackedLen(Width) bytes.
type Stripe struct {
	Rows        int
	Width       int
	Compression int
	Data        [][]byte // one packed row per entry
}

// Image is the full raster assembled from every stripe: Rows total 1-bit
// rows, Width bits wide.
type Image struct {
	Width  int
	Height int
	Rows   [][]uint8 // one unpacked 0/1 row per scanline
}

// validStripeRows reports whether n is one of the three row counts the
// Epson manual allows for a stripe (1, 8, or 24); other values are
// tolerated with a warning.
func validStripeRows(n int) bool {
	return n == 1 || n == 8 || n == 24
}

// Decode reads a full ESC/P2 stream, concatenating every stripe's rows
// into one Image. It does not require a leading global header, matching
// the format: width is established by the first stripe and may not change
// afterward.
func Decode(r io.Reader) (*Image, []Warning, error) {
	br := bufio.NewReader(r)
	var warnings []Warning
	var rows [][]uint8
	width := 0

	for {
		found, err := huntEsc(br)
		if err != nil {
			return nil, warnings, err
		}
		if !found {
			break
		}

		hdr := make([]byte, 6)
		if _, err := io.ReadFull(br, hdr); err != nil {
			return nil, warnings, errors.Wrap(err, "escp2: read stripe header")
		}
		compression := int(hdr[0])
		stripeRows := int(hdr[3])
		stripeWidth := int(hdr[5])*256 + int(hdr[4])

		if stripeWidth == 0 || stripeRows == 0 {
			return nil, warnings, errors.New("escp2: stripe header has zero width or height")
		}
		if compression != ModeUncompressed && compression != ModeRLE {
			return nil, warnings, errors.Errorf("escp2: unknown compression mode %d", compression)
		}
		if !validStripeRows(stripeRows) {
			warnings = append(warnings, Warning{Message: "abnormal stripe row count (ignoring)"})
		}
		if width == 0 {
			width = stripeWidth
		} else if width != stripeWidth {
			return nil, warnings, errors.Errorf("escp2: width changed mid-image, from %d to %d", width, stripeWidth)
		}

		widthBytes := bitrow.PackedLen(stripeWidth)
		blockSize := stripeRows * widthBytes
		var packed []byte
		if compression == ModeUncompressed {
			packed = make([]byte, blockSize)
			if _, err := io.ReadFull(br, packed); err != nil {
				return nil, warnings, errors.Wrap(err, "escp2: read uncompressed stripe data")
			}
		} else {
			var w []Warning
			packed, w, err = decodeRLE(br, blockSize)
			warnings = append(warnings, w...)
			if err != nil {
				return nil, warnings, err
			}
		}

		for i := 0; i < stripeRows; i++ {
			rowBytes := packed[i*widthBytes : (i+1)*widthBytes]
			rows = append(rows, bitrow.UnpackRow(rowBytes, stripeWidth))
		}
	}

	return &Image{Width: width, Height: len(rows), Rows: rows}, warnings, nil
}

// huntEsc advances br past any bytes that are not the start of an ESC '.'
// stripe header, returning found=false at end of stream.
func huntEsc(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if b != esc {
			continue
		}
		b2, err := br.ReadByte()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if b2 == '.' {
			return true, nil
		}
	}
}

// decodeRLE expands Epson's control-byte RLE into exactly blockSize bytes.
func decodeRLE(br *bufio.Reader, blockSize int) ([]byte, []Warning, error) {
	var warnings []Warning
	out := make([]byte, 0, blockSize)
	for len(out) < blockSize {
		flag, err := br.ReadByte()
		if err != nil {
			return nil, warnings, errors.Wrap(err, "escp2: corrupt RLE: truncated control byte")
		}
		switch {
		case flag < 128:
			n := int(flag) + 1
			lit := make([]byte, n)
			if _, err := io.ReadFull(br, lit); err != nil {
				return nil, warnings, errors.Wrap(err, "escp2: corrupt RLE: truncated literal run")
			}
			out = append(out, lit...)
		case flag == 128:
			warnings = append(warnings, Warning{Message: "code 128 detected in compressed input data: ignored"})
		default:
			n := 257 - int(flag)
			b, err := br.ReadByte()
			if err != nil {
				return nil, warnings, errors.Wrap(err, "escp2: corrupt RLE: truncated run byte")
			}
			for i := 0; i < n; i++ {
				out = append(out, b)
			}
		}
	}
	if len(out) != blockSize {
		return nil, warnings, errors.New("escp2: corrupt RLE: run overran stripe block size")
	}
	return out, warnings, nil
}

// EncodeOptions controls how Encode splits an image into stripes.
type EncodeOptions struct {
	StripeRows  int // must be 1, 8, or 24; defaults to 24
	Compression int // ModeUncompressed or ModeRLE
}

// Encode writes img as a sequence of ESC/P2 stripes.
func Encode(w io.Writer, img *Image, opts EncodeOptions) error {
	stripeRows := opts.StripeRows
	if stripeRows == 0 {
		stripeRows = 24
	}
	if !validStripeRows(stripeRows) {
		return errors.Errorf("escp2: stripe row count %d must be 1, 8, or 24", stripeRows)
	}

	bw := bufio.NewWriter(w)
	widthBytes := bitrow.PackedLen(img.Width)

	for y := 0; y < img.Height; {
		rows := stripeRows
		if y+rows > img.Height {
			// A short final band goes out as single-row stripes so that
			// every stripe keeps a valid row count.
			rows = 1
		}

		packed := make([]byte, 0, rows*widthBytes)
		for i := 0; i < rows; i++ {
			packed = append(packed, bitrow.PackRow(img.Rows[y+i], img.Width)...)
		}

		if _, err := bw.Write([]byte{esc, '.'}); err != nil {
			return err
		}
		hdr := []byte{
			byte(opts.Compression),
			0, // vertical resolution, unused by this codec
			0, // horizontal resolution, unused by this codec
			byte(rows),
			byte(img.Width & 0xff),
			byte(img.Width >> 8),
		}
		if _, err := bw.Write(hdr); err != nil {
			return err
		}

		if opts.Compression == ModeUncompressed {
			if _, err := bw.Write(packed); err != nil {
				return err
			}
		} else {
			if err := encodeRLE(bw, packed); err != nil {
				return err
			}
		}
		y += rows
	}

	return bw.Flush()
}

// encodeRLE writes data using Epson's control-byte run/literal scheme.
func encodeRLE(bw *bufio.Writer, data []byte) error {
	i := 0
	for i < len(data) {
		runLen := 1
		for runLen < 128 && i+runLen < len(data) && data[i+runLen] == data[i] {
			runLen++
		}
		if runLen >= 2 {
			if err := bw.WriteByte(byte(257 - runLen)); err != nil {
				return err
			}
			if err := bw.WriteByte(data[i]); err != nil {
				return err
			}
			i += runLen
			continue
		}

		litStart := i
		i++
		for i < len(data) && i-litStart < 128 {
			if i+1 < len(data) && data[i] == data[i+1] {
				break
			}
			i++
		}
		lit := data[litStart:i]
		if err := bw.WriteByte(byte(len(lit) - 1)); err != nil {
			return err
		}
		if _, err := bw.Write(lit); err != nil {
			return err
		}
	}
	return nil
}
