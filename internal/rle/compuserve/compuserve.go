// Package compuserve implements the CompuServe RLE image format: a
// printable-ASCII run-length stream bracketed by ESC G magic/terminator
// sequences, alternating implicitly between background and foreground
// runs.
package compuserve

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

const esc = 0x1b

// Screen sizes selected by the magic sequence's third byte.
const (
	ScreenM = 'M' // 128x96
	ScreenH = 'H' // 256x192
)

const maxRunLength = 0x5e // 94: runs of 0x5e or longer are split

// ScreenDimensions returns the fixed width/height for a screen code, or
// ok=false if the code is unrecognized.
func ScreenDimensions(screen byte) (width, height int, ok bool) {
	switch screen {
	case ScreenM:
		return 128, 96, true
	case ScreenH:
		return 256, 192, true
	default:
		return 0, 0, false
	}
}

// An Image is a decoded CompuServe raster: one 0/1 byte per pixel,
// row-major, width*height long.
type Image struct {
	Width, Height int
	Pixels        []byte
}

// Decode reads the 3-byte magic, the coded body, and the 3-byte
// terminator.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, 3)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, errors.Wrap(err, "compuserve: read magic")
	}
	if magic[0] != esc || magic[1] != 'G' {
		return nil, errors.New("compuserve: bad magic")
	}
	width, height, ok := ScreenDimensions(magic[2])
	if !ok {
		return nil, errors.Errorf("compuserve: unknown screen code %q", magic[2])
	}

	total := width * height
	pixels := make([]byte, 0, total)
	background := byte(0)
	current := background

	for len(pixels) < total {
		b, err := br.ReadByte()
		if err != nil {
			return nil, errors.Wrap(err, "compuserve: corrupt RLE: truncated coded body")
		}
		if b < 0x20 || b > 0x7e {
			return nil, errors.Errorf("compuserve: corrupt RLE: non-printable byte 0x%02x in coded body", b)
		}
		n := int(b) - 0x20
		if n >= maxRunLength {
			return nil, errors.Errorf("compuserve: corrupt RLE: run length %d must be < 0x5e", n)
		}
		if len(pixels)+n > total {
			return nil, errors.New("compuserve: corrupt RLE: run overruns image size")
		}
		for i := 0; i < n; i++ {
			pixels = append(pixels, current)
		}
		current ^= 1 // alternate background/foreground
	}

	term := make([]byte, 3)
	if _, err := io.ReadFull(br, term); err != nil {
		return nil, errors.Wrap(err, "compuserve: read terminator")
	}
	if term[0] != esc || term[1] != 'G' || term[2] != 'N' {
		return nil, errors.New("compuserve: missing ESC G N terminator")
	}

	return &Image{Width: width, Height: height, Pixels: pixels}, nil
}

// Encode writes img as a CompuServe RLE stream with the given screen code.
func Encode(w io.Writer, img *Image, screen byte) error {
	width, height, ok := ScreenDimensions(screen)
	if !ok {
		return errors.Errorf("compuserve: unknown screen code %q", screen)
	}
	if width*height > len(img.Pixels) {
		return errors.New("compuserve: pixel buffer smaller than the selected screen size")
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write([]byte{esc, 'G', screen}); err != nil {
		return err
	}

	const maxSingle = maxRunLength - 1 // longest run a single byte can carry

	current := byte(0) // runs always start with the background color
	i := 0
	pixels := img.Pixels[:width*height]
	for i < len(pixels) {
		remaining := runLenAdvance(pixels, i, current)
		i += remaining
		for {
			chunk := remaining
			if chunk > maxSingle {
				chunk = maxSingle
			}
			if err := bw.WriteByte(byte(chunk + 0x20)); err != nil {
				return err
			}
			remaining -= chunk
			current ^= 1
			if remaining == 0 {
				break
			}
			// More of the same color remains: emit a zero-length run of
			// the (now current) opposite color to flip parity back.
			if err := bw.WriteByte(byte(0x20)); err != nil {
				return err
			}
			current ^= 1
		}
	}

	if _, err := bw.Write([]byte{esc, 'G', 'N'}); err != nil {
		return err
	}
	return bw.Flush()
}

// runLenAdvance returns how many pixels of value cur appear starting at i.
func runLenAdvance(pixels []byte, i int, cur byte) int {
	n := 0
	for i+n < len(pixels) && pixels[i+n] == cur {
		n++
	}
	return n
}
