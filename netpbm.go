/*

	Package netpbm implements image decoders and encoders for the
	Netpbm image formats.

	The Netpbm home page is at http://netpbm.sourceforge.net/.
*/
package netpbm

import (
	"bufio"
	"image/color"
	"strings"
	"unicode"
)

// A netpbmReader extends bufio.Reader with the ability to read bytes
// and numbers while skipping over comments.
type netpbmReader struct {
	*bufio.Reader          // Inherit Read, UnreadByte, etc.
	err           error    // Sticky error state
	comments      []string // Comment-line bodies encountered so far, in order
}

// newNetpbmReader allocates, initializes, and returns a new netpbmReader.
func newNetpbmReader(r *bufio.Reader) *netpbmReader {
	return &netpbmReader{Reader: r}
}

// Err returns the netpbmReader's current error state.
func (nr netpbmReader) Err() error {
	return nr.err
}

// GetNextByteAsRune returns the next byte, cast to a rune, or 0 on error (and
// errors are sticky).
func (nr *netpbmReader) GetNextByteAsRune() rune {
	if nr.err != nil {
		return 0
	}
	var b byte
	b, nr.err = nr.ReadByte()
	if nr.err != nil {
		return 0
	}
	return rune(b)
}

// GetNextInt returns the next base-10 integer read from a netpbmReader,
// skipping preceding whitespace and comments.
func (nr *netpbmReader) GetNextInt() int {
	// Find the first digit.
	var c rune
	for nr.err == nil && !unicode.IsDigit(c) {
		for c = nr.GetNextByteAsRune(); unicode.IsSpace(c); c = nr.GetNextByteAsRune() {
		}
		if c == '#' {
			// Comment -- keep the text, discard the rest of the line.
			var cmt strings.Builder
			for c = nr.GetNextByteAsRune(); nr.err == nil && c != '\n'; c = nr.GetNextByteAsRune() {
				cmt.WriteRune(c)
			}
			nr.comments = append(nr.comments, strings.TrimSpace(cmt.String()))
		}
	}
	if nr.err != nil {
		return -1
	}

	// Read while we have base-10 digits.  Return the resulting int.
	value := int(c - '0')
	for c = nr.GetNextByteAsRune(); unicode.IsDigit(c); c = nr.GetNextByteAsRune() {
		value = value*10 + int(c-'0')
	}
	if nr.err != nil {
		return -1
	}
	nr.err = nr.UnreadByte()
	if nr.err != nil {
		return -1
	}
	return value
}

// A netpbmHeader encapsulates the components of an image header.
type netpbmHeader struct {
	Magic     string      // Two-character magic value (e.g., "P6" for PPM)
	Width     int         // Image width in pixels
	Height    int         // Image height in pixels
	Maxval    int         // Maximum channel value (0-65535)
	Depth     int         // Tuple depth (PAM only)
	TupleType string      // Tuple-type name (PAM only, e.g. "RGB_ALPHA")
	Comments  []string    // Comment-line bodies, in file order
	Model     color.Model // Color model represented by this image
}

// GetLineAsKeyValue reads one line of a PAM-style "KEY value" header,
// skipping blank lines and normalizing comment lines to a {"#", text} pair.
// It returns nil for a blank line, a one-element slice for a bare token
// (e.g. "ENDHDR"), or a two-element {key, value} slice otherwise.
func (nr *netpbmReader) GetLineAsKeyValue() []string {
	line, err := nr.ReadString('\n')
	if err != nil {
		nr.err = err
		if line == "" {
			return nil
		}
	}
	line = strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		return nil
	case strings.HasPrefix(trimmed, "#"):
		return []string{"#", strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))}
	}
	fields := strings.SplitN(trimmed, " ", 2)
	if len(fields) == 1 {
		return fields
	}
	return []string{fields[0], strings.TrimSpace(fields[1])}
}

// We let netpbmHeader implement color.Model.  This lets us piggyback all of
// our image metadata into an image.Config.
func (nh netpbmHeader) Convert(c color.Color) color.Color {
	return nh.Model.Convert(c)
}

// GetNetpbmHeader parses the entire header (PBM, PGM, or PPM; raw or
// plain) and returns it as a netpbmHeader (plus a success value).
func (nr *netpbmReader) GetNetpbmHeader() (netpbmHeader, bool) {
	var header netpbmHeader

	// Read the magic value and skip the following whitespace.
	rune1 := nr.GetNextByteAsRune()
	if rune1 != 'P' {
		return netpbmHeader{}, false
	}
	rune2 := nr.GetNextByteAsRune()
	if rune2 < '1' || rune2 > '6' {
		return netpbmHeader{}, false
	}
	if !unicode.IsSpace(nr.GetNextByteAsRune()) {
		return netpbmHeader{}, false
	}
	header.Magic = string(rune1) + string(rune2)

	// Read the width and height.
	header.Width = nr.GetNextInt()
	header.Height = nr.GetNextInt()

	// PBM files (raw or plain) don't specify a maximum channel.  All other
	// formats do.
	switch header.Magic {
	case "P1", "P4":
		header.Maxval = 1
	default:
		header.Maxval = nr.GetNextInt()
	}
	if nr.Err() != nil || !unicode.IsSpace(nr.GetNextByteAsRune()) ||
		header.Maxval < 1 || header.Maxval > 65535 {
		return netpbmHeader{}, false
	}

	// Return the header and a success code.
	header.Comments = nr.comments
	return header, true
}
