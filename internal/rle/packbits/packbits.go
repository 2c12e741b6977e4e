// Package packbits implements the IPDB flavor of the PackBits run-length
// scheme: a one-byte control code followed either by a literal run or by a
// single byte to repeat.
package packbits

import "github.com/pkg/errors"

// maxSegment is the byte count after which the encoder always flushes a
// literal or run segment, even mid-stream, matching the IPDB encoder's
// 128-byte segment boundary.
const maxSegment = 128

// Encode compresses src, emitting a match only when it shortens the stream
// (a run of at least 2 repeated bytes).
func Encode(src []byte) []byte {
	var out []byte
	i := 0
	for i < len(src) {
		runLen := 1
		for runLen < maxSegment && i+runLen < len(src) && src[i+runLen] == src[i] {
			runLen++
		}
		if runLen >= 2 {
			out = append(out, byte(0x80+runLen-1), src[i])
			i += runLen
			continue
		}

		// Accumulate a literal run until a repeat of >= 2 is found or the
		// segment boundary is hit.
		litStart := i
		i++
		for i < len(src) && i-litStart < maxSegment {
			if i+1 < len(src) && src[i] == src[i+1] {
				break
			}
			i++
		}
		lit := src[litStart:i]
		out = append(out, byte(len(lit)-1))
		out = append(out, lit...)
	}
	return out
}

// Decode expands coded bytes read from src until exactly want bytes have
// been produced. It is an error for the stream to end before want bytes
// are emitted, or to claim more bytes than want.
func Decode(src []byte, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	i := 0
	for len(out) < want {
		if i >= len(src) {
			return nil, errors.New("packbits: corrupt RLE: stream ended before requested byte count")
		}
		c := src[i]
		i++
		switch {
		case c > 0x80:
			n := int(c) + 1 - 0x80
			if i >= len(src) {
				return nil, errors.New("packbits: corrupt RLE: truncated run")
			}
			b := src[i]
			i++
			if len(out)+n > want {
				return nil, errors.New("packbits: corrupt RLE: run overruns requested byte count")
			}
			for j := 0; j < n; j++ {
				out = append(out, b)
			}
		default:
			n := int(c) + 1
			if i+n > len(src) {
				return nil, errors.New("packbits: corrupt RLE: truncated literal run")
			}
			if len(out)+n > want {
				return nil, errors.New("packbits: corrupt RLE: literal run overruns requested byte count")
			}
			out = append(out, src[i:i+n]...)
			i += n
		}
	}
	return out, nil
}
