// Package pngmeta ferries textual metadata to and from a PNG stream's
// ancillary tEXt/zTXt chunks. It does not decode or encode PNG image data
// (the stdlib's image/png already does that); it only reads and writes the
// chunk framing that carries (keyword, value, compressed?) triples,
// keeping the library's PNG collaboration limited to the contract the
// wire format actually needs.
package pngmeta

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/adler32"
	"hash/crc32"
	"io"

	"github.com/pkg/errors"
)

var pngSignature = [8]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// A TextEntry is one ferried metadata triple: Keyword is Latin-1 (1-79
// bytes per the PNG spec), Value is the (decompressed) text, and
// Compressed records whether it arrived/will be written as zTXt.
type TextEntry struct {
	Keyword    string
	Value      string
	Compressed bool
}

type chunk struct {
	typ  [4]byte
	data []byte
}

// ReadTextEntries scans every chunk of a PNG stream and returns the
// tEXt/zTXt entries found, in file order. Non-text chunks (including the
// image data itself) are skipped untouched.
func ReadTextEntries(r io.Reader) ([]TextEntry, error) {
	br := newChunkReader(r)
	if err := br.readSignature(); err != nil {
		return nil, err
	}

	var entries []TextEntry
	for {
		c, err := br.readChunk()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch string(c.typ[:]) {
		case "tEXt":
			e, err := parseTEXt(c.data)
			if err != nil {
				return nil, errors.Wrap(err, "pngmeta: tEXt chunk")
			}
			entries = append(entries, e)
		case "zTXt":
			e, err := parseZTXt(c.data)
			if err != nil {
				return nil, errors.Wrap(err, "pngmeta: zTXt chunk")
			}
			entries = append(entries, e)
		case "IEND":
			return entries, nil
		}
	}
	return entries, nil
}

// WriteWithText copies every chunk of src to w verbatim, inserting the
// given text entries as tEXt/zTXt chunks immediately before IEND.
func WriteWithText(w io.Writer, src io.Reader, entries []TextEntry) error {
	br := newChunkReader(src)
	if err := br.readSignature(); err != nil {
		return err
	}
	if _, err := w.Write(pngSignature[:]); err != nil {
		return err
	}

	for {
		c, err := br.readChunk()
		if err == io.EOF {
			return errors.New("pngmeta: source stream has no IEND chunk")
		}
		if err != nil {
			return err
		}
		if string(c.typ[:]) == "IEND" {
			for _, e := range entries {
				encoded, err := encodeTextEntry(e)
				if err != nil {
					return err
				}
				if err := writeChunk(w, encoded.typ, encoded.data); err != nil {
					return err
				}
			}
			return writeChunk(w, c.typ, c.data)
		}
		if err := writeChunk(w, c.typ, c.data); err != nil {
			return err
		}
	}
}

func parseTEXt(data []byte) (TextEntry, error) {
	kw, rest, err := splitKeyword(data)
	if err != nil {
		return TextEntry{}, err
	}
	return TextEntry{Keyword: kw, Value: string(rest)}, nil
}

func parseZTXt(data []byte) (TextEntry, error) {
	kw, rest, err := splitKeyword(data)
	if err != nil {
		return TextEntry{}, err
	}
	if len(rest) < 1 {
		return TextEntry{}, errors.New("missing compression method byte")
	}
	if rest[0] != 0 {
		return TextEntry{}, errors.Errorf("unsupported compression method %d", rest[0])
	}
	plain, err := inflateZlib(rest[1:])
	if err != nil {
		return TextEntry{}, errors.Wrap(err, "inflating zTXt payload")
	}
	return TextEntry{Keyword: kw, Value: string(plain), Compressed: true}, nil
}

func splitKeyword(data []byte) (keyword string, rest []byte, err error) {
	i := bytes.IndexByte(data, 0)
	if i < 0 {
		return "", nil, errors.New("missing null-terminated keyword")
	}
	if i == 0 || i > 79 {
		return "", nil, errors.Errorf("keyword length %d out of range [1,79]", i)
	}
	return string(data[:i]), data[i+1:], nil
}

func encodeTextEntry(e TextEntry) (chunk, error) {
	if len(e.Keyword) == 0 || len(e.Keyword) > 79 {
		return chunk{}, errors.Errorf("pngmeta: keyword length %d out of range [1,79]", len(e.Keyword))
	}
	if !e.Compressed {
		var buf bytes.Buffer
		buf.WriteString(e.Keyword)
		buf.WriteByte(0)
		buf.WriteString(e.Value)
		return chunk{typ: [4]byte{'t', 'E', 'X', 't'}, data: buf.Bytes()}, nil
	}

	compressed, err := deflateZlib([]byte(e.Value))
	if err != nil {
		return chunk{}, err
	}
	var buf bytes.Buffer
	buf.WriteString(e.Keyword)
	buf.WriteByte(0)
	buf.WriteByte(0) // compression method: deflate
	buf.Write(compressed)
	return chunk{typ: [4]byte{'z', 'T', 'X', 't'}, data: buf.Bytes()}, nil
}

// inflateZlib strips the 2-byte zlib header and 4-byte Adler-32 trailer
// PNG's zTXt/iTXt/iCCP chunks wrap their deflate stream in, decompressing
// the interior with stdlib's raw-flate reader (PNG's chunk framing already
// gives us the exact compressed length, so we don't need zlib's own
// framing — only its header/trailer need to be stripped).
func inflateZlib(data []byte) ([]byte, error) {
	if len(data) < 6 {
		return nil, errors.New("zlib payload too short")
	}
	fr := flate.NewReader(bytes.NewReader(data[2 : len(data)-4]))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func deflateZlib(plain []byte) ([]byte, error) {
	var body bytes.Buffer
	fw, err := flate.NewWriter(&body, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(plain); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Write([]byte{0x78, 0x9c}) // zlib header: deflate, 32K window, default level
	out.Write(body.Bytes())
	var sumBuf [4]byte
	binary.BigEndian.PutUint32(sumBuf[:], adler32.Checksum(plain))
	out.Write(sumBuf[:])
	return out.Bytes(), nil
}

type chunkReader struct {
	r io.Reader
}

func newChunkReader(r io.Reader) *chunkReader { return &chunkReader{r: r} }

func (cr *chunkReader) readSignature() error {
	var sig [8]byte
	if _, err := io.ReadFull(cr.r, sig[:]); err != nil {
		return errors.Wrap(err, "pngmeta: reading signature")
	}
	if sig != pngSignature {
		return errors.New("pngmeta: not a PNG stream")
	}
	return nil
}

func (cr *chunkReader) readChunk() (chunk, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(cr.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return chunk{}, io.EOF
		}
		return chunk{}, errors.Wrap(err, "pngmeta: reading chunk length")
	}
	length := binary.BigEndian.Uint32(lenBuf[:])

	var c chunk
	if _, err := io.ReadFull(cr.r, c.typ[:]); err != nil {
		return chunk{}, errors.Wrap(err, "pngmeta: reading chunk type")
	}
	c.data = make([]byte, length)
	if _, err := io.ReadFull(cr.r, c.data); err != nil {
		return chunk{}, errors.Wrap(err, "pngmeta: reading chunk data")
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(cr.r, crcBuf[:]); err != nil {
		return chunk{}, errors.Wrap(err, "pngmeta: reading chunk CRC")
	}
	want := binary.BigEndian.Uint32(crcBuf[:])
	got := chunkCRC(c.typ, c.data)
	if want != got {
		return chunk{}, errors.Errorf("pngmeta: CRC mismatch in %q chunk", c.typ)
	}
	return c, nil
}

func writeChunk(w io.Writer, typ [4]byte, data []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(typ[:]); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], chunkCRC(typ, data))
	_, err := w.Write(crcBuf[:])
	return err
}

func chunkCRC(typ [4]byte, data []byte) uint32 {
	h := crc32.NewIEEE()
	h.Write(typ[:])
	h.Write(data)
	return h.Sum32()
}
