package ecat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// BlockSize is the ECAT record size. Every structure in the container (main
// header, directory blocks, subheaders) occupies a whole number of blocks.
const BlockSize = 512

// magicPrefix identifies an ECAT 7.x main header. The field is ASCII and
// therefore byte-order neutral; the byte order of the numeric fields is
// resolved separately from the software-version word.
const magicPrefix = "MATRIX"

// ByteSource is a seekable, endianness-aware cursor over one ECAT file. The
// byte order is detected once at construction and applies to every multi-byte
// read for the remainder of the file.
type ByteSource struct {
	r      io.ReaderAt
	size   int64
	order  binary.ByteOrder
	closer io.Closer
}

// Open opens the file at path and detects its byte order.
func Open(path string) (*ByteSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ecat file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat ecat file: %w", err)
	}
	src, err := FromReaderAt(f, info.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	src.closer = f
	return src, nil
}

// FromReaderAt builds a ByteSource over an already open reader of known size.
func FromReaderAt(r io.ReaderAt, size int64) (*ByteSource, error) {
	src := &ByteSource{r: r, size: size}
	order, err := src.detectByteOrder()
	if err != nil {
		return nil, err
	}
	src.order = order
	return src, nil
}

// Close releases the underlying file when the source was built with Open.
func (s *ByteSource) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// Size returns the total length of the source in bytes.
func (s *ByteSource) Size() int64 { return s.size }

// Order returns the detected byte order.
func (s *ByteSource) Order() binary.ByteOrder { return s.order }

// ReadExact reads exactly n bytes starting at off.
func (s *ByteSource) ReadExact(off int64, n int) ([]byte, error) {
	if off < 0 || off+int64(n) > s.size {
		return nil, decodeErr(ErrTruncatedFile, "read", off,
			"need %d bytes, file ends at %d", n, s.size)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(s.r, off, int64(n)), buf); err != nil {
		return nil, decodeErr(ErrTruncatedFile, "read", off, "%v", err)
	}
	return buf, nil
}

// detectByteOrder inspects the main header magic and the software version
// word. ECAT 7 files are natively big-endian; byte-swapped files exist and
// are accepted when the version word is only plausible the other way round.
func (s *ByteSource) detectByteOrder() (binary.ByteOrder, error) {
	if s.size < BlockSize {
		return nil, decodeErr(ErrTruncatedFile, "byte-order detection", 0,
			"main header needs %d bytes, file has %d", BlockSize, s.size)
	}
	head := make([]byte, 48)
	if _, err := io.ReadFull(io.NewSectionReader(s.r, 0, 48), head); err != nil {
		return nil, decodeErr(ErrTruncatedFile, "byte-order detection", 0, "%v", err)
	}
	if !bytes.HasPrefix(head, []byte(magicPrefix)) {
		return nil, decodeErr(ErrUnrecognizedFormat, "byte-order detection", 0,
			"magic %q does not start with %q", trimmedString(head[:14]), magicPrefix)
	}
	// sw_version lives at offset 46. ECAT 7.x writes values like 72 or 73;
	// anything in 1..999 under exactly one byte order settles the question.
	if v := binary.BigEndian.Uint16(head[46:48]); plausibleVersion(v) {
		return binary.BigEndian, nil
	}
	if v := binary.LittleEndian.Uint16(head[46:48]); plausibleVersion(v) {
		return binary.LittleEndian, nil
	}
	return nil, decodeErr(ErrUnrecognizedFormat, "byte-order detection", 46,
		"software version word is implausible under either byte order")
}

func plausibleVersion(v uint16) bool { return v >= 1 && v <= 999 }

// block wraps one fixed-size record for typed field access in the source's
// byte order. Offsets are relative to the start of the record.
type block struct {
	buf   []byte
	order binary.ByteOrder
}

// Block reads one BlockSize record starting at off.
func (s *ByteSource) Block(off int64) (block, error) {
	buf, err := s.ReadExact(off, BlockSize)
	if err != nil {
		return block{}, err
	}
	return block{buf: buf, order: s.order}, nil
}

func (b block) uint16(off int) uint16 { return b.order.Uint16(b.buf[off : off+2]) }
func (b block) int16(off int) int16   { return int16(b.uint16(off)) }
func (b block) uint32(off int) uint32 { return b.order.Uint32(b.buf[off : off+4]) }
func (b block) int32(off int) int32   { return int32(b.uint32(off)) }
func (b block) float32(off int) float32 {
	return math.Float32frombits(b.uint32(off))
}
func (b block) string(off, n int) string {
	return trimmedString(b.buf[off : off+n])
}

// trimmedString converts a fixed-width ECAT text field, dropping the NUL
// terminator and padding.
func trimmedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
