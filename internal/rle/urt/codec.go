package urt

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// An Image is a decoded (or to-be-encoded) RLE raster: a header plus one
// plane per color channel, each Width*Height bytes in row-major order, and
// (when Header.HasAlpha) one more trailing plane for the alpha channel.
type Image struct {
	Header Header
	Planes [][]byte
}

func (img *Image) planeCount() int {
	n := img.Header.NChannels
	if img.Header.HasAlpha {
		n++
	}
	return n
}

// channelSelector returns the SetColorOp channel number for plane index i.
func (img *Image) channelSelector(i int) int {
	if img.Header.HasAlpha && i == img.Header.NChannels {
		return AlphaChannel
	}
	return i
}

func (img *Image) backgroundFor(i int) byte {
	if img.Header.HasAlpha && i == img.Header.NChannels {
		return 0
	}
	if i < len(img.Header.Background) {
		return img.Header.Background[i]
	}
	return 0
}

const minRunLength = 3

// Encode writes img's header and instruction stream to w.
func Encode(w io.Writer, img *Image) error {
	h := &img.Header
	width, height := h.Width, h.Height
	if got := img.planeCount(); len(img.Planes) != got {
		return errors.Errorf("urt: expected %d planes, got %d", got, len(img.Planes))
	}
	for i, p := range img.Planes {
		if len(p) != width*height {
			return errors.Errorf("urt: plane %d has %d bytes, want %d", i, len(p), width*height)
		}
	}

	bw := bufio.NewWriter(w)
	if err := WriteHeader(bw, h); err != nil {
		return errors.Wrap(err, "urt: write header")
	}

	skipRows := 0
	for y := 0; y < height; y++ {
		allBackground := !h.NoBackground
		if allBackground {
			for i, plane := range img.Planes {
				if !allEqual(plane[y*width:(y+1)*width], img.backgroundFor(i)) {
					allBackground = false
					break
				}
			}
		}
		if allBackground {
			skipRows++
			continue
		}
		if skipRows > 0 {
			if err := writeInst(bw, skipLinesOp, skipRows); err != nil {
				return err
			}
			skipRows = 0
		}
		for i, plane := range img.Planes {
			row := plane[y*width : (y+1)*width]
			if err := writeInst(bw, setColorOp, img.channelSelector(i)); err != nil {
				return err
			}
			if err := writeRow(bw, row); err != nil {
				return err
			}
		}
		if y+1 < height {
			if err := writeInst(bw, skipLinesOp, 1); err != nil {
				return err
			}
		}
	}

	if err := writeInst(bw, eofOp, 0); err != nil {
		return err
	}
	return bw.Flush()
}

func allEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}

// writeRow emits one row's bytes as an alternating sequence of RunDataOp
// and ByteDataOp instructions, matching the PackBits-style run/literal
// split used elsewhere in the codec family.
func writeRow(bw *bufio.Writer, row []byte) error {
	i := 0
	for i < len(row) {
		runLen := 1
		for i+runLen < len(row) && row[i+runLen] == row[i] {
			runLen++
		}
		if runLen >= minRunLength {
			if err := writeRunData(bw, runLen, row[i]); err != nil {
				return err
			}
			i += runLen
			continue
		}
		litStart := i
		i++
		for i < len(row) {
			rem := len(row) - i
			if rem >= minRunLength && row[i] == row[i+1] && row[i] == row[i+2] {
				break
			}
			i++
		}
		if err := writeByteData(bw, row[litStart:i]); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads an RLE header and instruction stream from r.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)
	h, err := ReadHeader(br)
	if err != nil {
		return nil, errors.Wrap(err, "urt: read header")
	}

	img := &Image{Header: *h}
	n := img.planeCount()
	img.Planes = make([][]byte, n)
	for i := range img.Planes {
		plane := make([]byte, h.Width*h.Height)
		if !h.NoBackground {
			bg := img.backgroundFor(i)
			for j := range plane {
				plane[j] = bg
			}
		}
		img.Planes[i] = plane
	}

	curChannel := -1
	y := 0
	x := 0
	for {
		in, err := readInst(br)
		if err != nil {
			return nil, errors.Wrap(err, "urt: corrupt RLE: truncated instruction stream")
		}
		switch in.op {
		case eofOp:
			return img, nil
		case skipLinesOp:
			y += in.datum
		case setColorOp:
			// SetColorOp also performs a "carriage return": X resets to
			// the start of the row. Plane addressing is local to the
			// raster (column 0 == Xmin); Xmin/Ymin are bounding-box
			// metadata only.
			curChannel = planeIndexFor(img, in.datum)
			x = 0
		case skipPixelsOp:
			x += in.datum
		case runDataOp:
			color, err := readRunColor(br)
			if err != nil {
				return nil, err
			}
			n := in.datum + 1
			if err := putRun(img, curChannel, x, y, n, color); err != nil {
				return nil, err
			}
			x += n
		case byteDataOp:
			n := in.datum + 1
			data, err := readByteData(br, n)
			if err != nil {
				return nil, err
			}
			if err := putBytes(img, curChannel, x, y, data); err != nil {
				return nil, err
			}
			x += n
		default:
			return nil, errors.Errorf("urt: corrupt RLE: unknown opcode %d", in.op)
		}
	}
}

func planeIndexFor(img *Image, selector int) int {
	if selector == AlphaChannel && img.Header.HasAlpha {
		return img.Header.NChannels
	}
	return selector
}

func putRun(img *Image, channel, x, y, n int, color byte) error {
	if channel < 0 || channel >= len(img.Planes) {
		return errors.New("urt: corrupt RLE: RunData before SetColor")
	}
	if y < 0 || y >= img.Header.Height || x < 0 || x+n > img.Header.Width {
		return errors.New("urt: corrupt RLE: run out of raster bounds")
	}
	row := img.Planes[channel][y*img.Header.Width : (y+1)*img.Header.Width]
	for i := 0; i < n; i++ {
		row[x+i] = color
	}
	return nil
}

func putBytes(img *Image, channel, x, y int, data []byte) error {
	if channel < 0 || channel >= len(img.Planes) {
		return errors.New("urt: corrupt RLE: ByteData before SetColor")
	}
	if y < 0 || y >= img.Header.Height || x < 0 || x+len(data) > img.Header.Width {
		return errors.New("urt: corrupt RLE: byte data out of raster bounds")
	}
	row := img.Planes[channel][y*img.Header.Width : (y+1)*img.Header.Width]
	copy(row[x:x+len(data)], data)
	return nil
}

// EncodeBytes is a convenience wrapper returning the encoded bytes directly.
func EncodeBytes(img *Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
