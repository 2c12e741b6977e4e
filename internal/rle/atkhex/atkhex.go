// Package atkhex implements the Andrew Toolkit (ATK) BE2 raster's
// ASCII-hex run-length row encoding: a per-character state machine that
// mixes literal hex bytes with compact white/black run codes.
package atkhex

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
)

const (
	whiteByte = 0x00
	blackByte = 0xff
)

// Row terminators returned by ReadRow.
const (
	TermRow    = '|' // correct end of row; row was padded with white as needed
	TermLength = 0   // requested length satisfied before a terminator arrived
	TermAbort  = 1   // '{' or '\\' seen; pushed back, row was padded with white as needed
)

type state int

const (
	stateReady state = iota
	stateHexDigitPending
	stateRepeatPending
	stateRepeatAndDigit
)

// ReadRow reads one ATK-hex-encoded row of exactly length bytes from br.
// It returns the terminator code (TermRow, TermLength, or TermAbort) that
// ended the row, or io.EOF if the stream ended first. '{' and '\\' are
// pushed back onto br so the caller can continue parsing the stream.
func ReadRow(br *bufio.Reader, length int) ([]byte, byte, error) {
	row := make([]byte, 0, length)
	remaining := length
	st := stateReady
	var repeatCount, pendingHex int

	store := func(hexval int) {
		if remaining < repeatCount {
			repeatCount = remaining
		}
		remaining -= repeatCount
		for i := 0; i < repeatCount; i++ {
			row = append(row, byte(hexval))
		}
		st = stateReady
	}

	for {
		c, err := br.ReadByte()
		if err == io.EOF {
			padWhite(&row, remaining)
			return row, 0, io.EOF
		}
		if err != nil {
			return row, 0, err
		}

		switch {
		case isControlOrSpace(c):
			// ignored

		case c == '{' || c == '\\':
			if err := br.UnreadByte(); err != nil {
				return row, 0, err
			}
			padWhite(&row, remaining)
			return row, TermAbort, nil

		case c == '|':
			padWhite(&row, remaining)
			return row, TermRow, nil

		case c >= '!' && c <= '/':
			if remaining <= 0 {
				if err := br.UnreadByte(); err != nil {
					return row, 0, err
				}
				return row, TermLength, nil
			}
			repeatCount = int(c) - 0x1f
			st = stateRepeatPending

		case isHexDigitByte(c):
			hexval := hexDigitValue(c)
			if remaining <= 0 {
				if err := br.UnreadByte(); err != nil {
					return row, 0, err
				}
				return row, TermLength, nil
			}
			switch st {
			case stateReady:
				st = stateHexDigitPending
				pendingHex = hexval << 4
			case stateHexDigitPending:
				repeatCount = 1
				store(hexval | pendingHex)
			case stateRepeatPending:
				st = stateRepeatAndDigit
				pendingHex = hexval << 4
			case stateRepeatAndDigit:
				store(hexval | pendingHex)
			}

		case c >= 'g' && c <= 'z':
			if remaining <= 0 {
				if err := br.UnreadByte(); err != nil {
					return row, 0, err
				}
				return row, TermLength, nil
			}
			repeatCount = int(c) - 'f'
			store(whiteByte)

		case c >= 'G' && c <= 'Z':
			if remaining <= 0 {
				if err := br.UnreadByte(); err != nil {
					return row, 0, err
				}
				return row, TermLength, nil
			}
			repeatCount = int(c) - 'F'
			store(blackByte)

		default:
			// Unrecognized code: reset state and continue, matching the
			// reference decoder's error recovery.
			st = stateReady
		}
	}
}

func padWhite(row *[]byte, remaining int) {
	for i := 0; i < remaining; i++ {
		*row = append(*row, whiteByte)
	}
}

func isControlOrSpace(c byte) bool {
	return c < 0x20 || c == ' '
}

func isHexDigitByte(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 0xa
	default: // 'a'..'f'
		return int(c-'a') + 0xa
	}
}

// DecodeImage reads rows (each width bytes, 0x00=white or 0xff=black once
// the caller thresholds them, though this package leaves values as raw
// bytes for the caller to interpret) until a full raster of the given
// height has been read or the stream is exhausted.
func DecodeImage(r io.Reader, width, height int) ([][]byte, error) {
	br := bufio.NewReader(r)
	rows := make([][]byte, 0, height)
	for y := 0; y < height; y++ {
		row, term, err := ReadRow(br, width)
		if err != nil && err != io.EOF {
			return rows, errors.Wrap(err, "atkhex: read row")
		}
		rows = append(rows, row)
		if err == io.EOF {
			return rows, nil
		}
		if term == TermAbort {
			return rows, errors.Errorf("atkhex: row %d aborted by '{' or '\\\\'", y)
		}
	}
	return rows, nil
}

// EncodeRow writes one row using the most compact mix of white/black run
// codes and literal hex-digit bytes, terminated by '|'.
func EncodeRow(bw *bufio.Writer, row []byte) error {
	i := 0
	for i < len(row) {
		b := row[i]
		runLen := 1
		for runLen < 20 && i+runLen < len(row) && row[i+runLen] == b {
			runLen++
		}
		switch b {
		case whiteByte:
			if err := bw.WriteByte(byte('f' + runLen)); err != nil {
				return err
			}
			i += runLen
			continue
		case blackByte:
			if err := bw.WriteByte(byte('F' + runLen)); err != nil {
				return err
			}
			i += runLen
			continue
		}
		if err := writeHexByte(bw, b); err != nil {
			return err
		}
		i++
	}
	return bw.WriteByte('|')
}

// EncodeImage writes every row in rows, each terminated by '|'.
func EncodeImage(w io.Writer, rows [][]byte) error {
	bw := bufio.NewWriter(w)
	for _, row := range rows {
		if err := EncodeRow(bw, row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeHexByte(bw *bufio.Writer, b byte) error {
	const digits = "0123456789ABCDEF"
	if err := bw.WriteByte(digits[b>>4]); err != nil {
		return err
	}
	return bw.WriteByte(digits[b&0xf])
}
