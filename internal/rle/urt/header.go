// Package urt implements the Utah Raster Toolkit RLE stream format: a
// fixed-layout header (bounding box, background color, optional color map
// and comment block) followed by a per-channel instruction stream.
package urt

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// magic is the 16-bit value that opens every RLE file. The original_source
// pack did not carry the opcode/magic header (rle_code.h was not part of
// the retrieval), so this is the well-known Utah RLE magic number rather
// than something read out of the C sources.
const magic uint16 = 0xcc52

const (
	flagClearFirst  = 1 << 0
	flagNoBackground = 1 << 1
	flagAlpha       = 1 << 2
	flagComment     = 1 << 3
)

// AlphaChannel is the SetColorOp channel selector reserved for the alpha
// plane.
const AlphaChannel = 255

// A Header describes an RLE image's geometry, background, optional color
// map, and optional comment block.
type Header struct {
	ClearFirst   bool
	NoBackground bool
	HasAlpha     bool

	NChannels            int
	Xmin, Ymin           int
	Width, Height        int
	Background           []byte // len == NChannels, ignored if NoBackground
	ColorMapChannels     int
	ColorMapLog2Len      int
	ColorMap             []uint16 // channel-major, len == ColorMapChannels << ColorMapLog2Len
	Comment              string   // already-joined NUL-delimited "KEY=value" text, sans trailing pad
}

func (h *Header) flags() byte {
	var f byte
	if h.ClearFirst {
		f |= flagClearFirst
	}
	if h.NoBackground {
		f |= flagNoBackground
	}
	if h.HasAlpha {
		f |= flagAlpha
	}
	if h.Comment != "" {
		f |= flagComment
	}
	return f
}

// WriteHeader serializes h to bw. The caller owns bw's lifetime (and
// flushing) so the instruction stream that follows can share the same
// buffer.
func WriteHeader(bw *bufio.Writer, h *Header) error {
	if err := binary.Write(bw, binary.LittleEndian, magic); err != nil {
		return errors.Wrap(err, "urt: write magic")
	}
	if h.NChannels > 255 {
		return errors.Errorf("urt: too many channels (%d), maximum is 255", h.NChannels)
	}
	if err := bw.WriteByte(h.flags()); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(h.NChannels)); err != nil {
		return err
	}
	if err := bw.WriteByte(8); err != nil { // pixel bit depth, fixed
		return err
	}
	for _, v := range []int{h.Xmin, h.Ymin, h.Width, h.Height} {
		if err := binary.Write(bw, binary.LittleEndian, uint16(v)); err != nil {
			return err
		}
	}

	if !h.NoBackground {
		bg := make([]byte, h.NChannels)
		copy(bg, h.Background)
		if len(bg)%2 != 0 {
			bg = append(bg, 0)
		}
		if _, err := bw.Write(bg); err != nil {
			return err
		}
	}

	if err := bw.WriteByte(byte(h.ColorMapChannels)); err != nil {
		return err
	}
	if err := bw.WriteByte(byte(h.ColorMapLog2Len)); err != nil {
		return err
	}
	if h.ColorMapChannels > 0 {
		for _, v := range h.ColorMap {
			if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}

	if h.Comment != "" {
		body := []byte(h.Comment)
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(body))); err != nil {
			return err
		}
		if _, err := bw.Write(body); err != nil {
			return err
		}
		if len(body)%2 != 0 {
			if err := bw.WriteByte(0); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadHeader deserializes a Header from br. The caller supplies the
// *bufio.Reader (rather than ReadHeader wrapping one internally) so the
// instruction stream that immediately follows the header can be read from
// the same buffer without losing any read-ahead bytes.
func ReadHeader(br *bufio.Reader) (*Header, error) {
	var gotMagic uint16
	if err := binary.Read(br, binary.LittleEndian, &gotMagic); err != nil {
		return nil, errors.Wrap(err, "urt: read magic")
	}
	if gotMagic != magic {
		return nil, errors.Errorf("urt: bad magic 0x%04x", gotMagic)
	}

	flags, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	ncolors, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := br.ReadByte(); err != nil { // pixelbits, always 8
		return nil, err
	}

	h := &Header{
		ClearFirst:   flags&flagClearFirst != 0,
		NoBackground: flags&flagNoBackground != 0,
		HasAlpha:     flags&flagAlpha != 0,
		NChannels:    int(ncolors),
	}

	var xmin, ymin, width, height uint16
	for _, p := range []*uint16{&xmin, &ymin, &width, &height} {
		if err := binary.Read(br, binary.LittleEndian, p); err != nil {
			return nil, err
		}
	}
	h.Xmin, h.Ymin, h.Width, h.Height = int(xmin), int(ymin), int(width), int(height)

	if !h.NoBackground {
		n := h.NChannels
		if n%2 != 0 {
			n++
		}
		bg := make([]byte, n)
		if _, err := io.ReadFull(br, bg); err != nil {
			return nil, errors.Wrap(err, "urt: read background")
		}
		h.Background = bg[:h.NChannels]
	}

	cmapChannels, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	cmapLog2Len, err := br.ReadByte()
	if err != nil {
		return nil, err
	}
	h.ColorMapChannels, h.ColorMapLog2Len = int(cmapChannels), int(cmapLog2Len)
	if h.ColorMapChannels > 0 {
		n := h.ColorMapChannels << uint(h.ColorMapLog2Len)
		cmap := make([]uint16, n)
		for i := range cmap {
			if err := binary.Read(br, binary.LittleEndian, &cmap[i]); err != nil {
				return nil, errors.Wrap(err, "urt: read color map")
			}
		}
		h.ColorMap = cmap
	}

	if flags&flagComment != 0 {
		var comlen uint16
		if err := binary.Read(br, binary.LittleEndian, &comlen); err != nil {
			return nil, err
		}
		body := make([]byte, comlen)
		if _, err := io.ReadFull(br, body); err != nil {
			return nil, errors.Wrap(err, "urt: read comment")
		}
		if comlen%2 != 0 {
			if _, err := br.ReadByte(); err != nil {
				return nil, err
			}
		}
		h.Comment = string(body)
	}

	return h, nil
}
