package urt

import (
	"bufio"
	"encoding/binary"

	"github.com/pkg/errors"
)

type opcode byte

const (
	skipLinesOp opcode = 1
	setColorOp  opcode = 2
	skipPixelsOp opcode = 3
	byteDataOp  opcode = 5
	runDataOp   opcode = 6
	eofOp       opcode = 7
)

// longFlag is the top bit of an instruction's opcode byte: when set, the
// datum is the following 16-bit little-endian word (after a padding byte)
// rather than the single byte immediately after the opcode.
const longFlag byte = 0x80

// writeInst writes one instruction with the given datum, choosing the
// short (single byte) or long (16-bit word) encoding automatically.
func writeInst(bw *bufio.Writer, op opcode, datum int) error {
	if datum <= 0xff {
		if err := bw.WriteByte(byte(op)); err != nil {
			return err
		}
		return bw.WriteByte(byte(datum))
	}
	if err := bw.WriteByte(byte(op) | longFlag); err != nil {
		return err
	}
	if err := bw.WriteByte(0); err != nil {
		return err
	}
	return binary.Write(bw, binary.LittleEndian, uint16(datum))
}

// writeRunData writes a RunDataOp: datum+1 copies of color.
func writeRunData(bw *bufio.Writer, runLen int, color byte) error {
	if err := writeInst(bw, runDataOp, runLen-1); err != nil {
		return err
	}
	return binary.Write(bw, binary.LittleEndian, uint16(color))
}

// writeByteData writes a ByteDataOp followed by the literal bytes, padded
// to an even length.
func writeByteData(bw *bufio.Writer, data []byte) error {
	if err := writeInst(bw, byteDataOp, len(data)-1); err != nil {
		return err
	}
	if _, err := bw.Write(data); err != nil {
		return err
	}
	if len(data)%2 != 0 {
		return bw.WriteByte(0)
	}
	return nil
}

// inst is one decoded instruction.
type inst struct {
	op    opcode
	datum int
}

func readInst(br *bufio.Reader) (inst, error) {
	opByte, err := br.ReadByte()
	if err != nil {
		return inst{}, err
	}
	long := opByte&longFlag != 0
	op := opcode(opByte &^ longFlag)

	if !long {
		b, err := br.ReadByte()
		if err != nil {
			return inst{}, err
		}
		return inst{op: op, datum: int(b)}, nil
	}
	if _, err := br.ReadByte(); err != nil { // padding
		return inst{}, err
	}
	var word uint16
	if err := binary.Read(br, binary.LittleEndian, &word); err != nil {
		return inst{}, err
	}
	return inst{op: op, datum: int(word)}, nil
}

func readRunColor(br *bufio.Reader) (byte, error) {
	var word uint16
	if err := binary.Read(br, binary.LittleEndian, &word); err != nil {
		return 0, err
	}
	return byte(word), nil
}

func readByteData(br *bufio.Reader, n int) ([]byte, error) {
	data := make([]byte, n)
	if _, err := readFull(br, data); err != nil {
		return nil, errors.Wrap(err, "urt: corrupt RLE: truncated byte data")
	}
	if n%2 != 0 {
		if _, err := br.ReadByte(); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func readFull(br *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := br.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
