// Package ecattest builds synthetic ECAT 7.3 files for tests: a main header
// block, one directory block, and per-frame subheader plus pixel blocks,
// written in a chosen byte order.
package ecattest

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const blockSize = 512

// Sample data type codes as stored in subheaders.
const (
	DataTypeByte    = 1
	DataTypeFloat32 = 5
	DataTypeInt16   = 6
	DataTypeInt32   = 7
)

// Frame describes one synthetic matrix. Samples are raw stored values; the
// decoder applies Scale on top.
type Frame struct {
	Index    int
	Dims     [3]int16
	DataType int16 // defaults to DataTypeInt16
	Scale    float32

	Int16Samples   []int16
	Float32Samples []float32
	ByteSamples    []byte
	Int32Samples   []int32

	StartTime uint32     // ms
	Duration  uint32     // ms
	PixelSize [3]float32 // cm
	DecayCorr float32

	// Status overrides the directory status word; zero means "exists" (1).
	Status int32

	// ShortBlocks shrinks the directory's end-block so the matrix claims
	// fewer pixel bytes than the dimensions require.
	ShortBlocks int32
}

// Builder assembles the file. Zero value fields fall back to a valid
// single-bed brain acquisition.
type Builder struct {
	Order       binary.ByteOrder // defaults to big-endian, the native ECAT order
	SwVersion   uint16           // defaults to 73
	SystemType  uint16           // defaults to 962 (HR+)
	NumFrames   int16            // declared count; defaults to len(frames)
	Calibration float32
	IsotopeName string
	ScanStart   uint32

	frames []Frame
}

// AddFrame appends one frame; directory order follows call order, which need
// not be frame-index order.
func (b *Builder) AddFrame(f Frame) *Builder {
	b.frames = append(b.frames, f)
	return b
}

func (b *Builder) order() binary.ByteOrder {
	if b.Order == nil {
		return binary.BigEndian
	}
	return b.Order
}

func (f *Frame) dataType() int16 {
	if f.DataType == 0 {
		return DataTypeInt16
	}
	return f.DataType
}

func (f *Frame) elementSize() int {
	switch f.dataType() {
	case DataTypeByte:
		return 1
	case DataTypeInt16:
		return 2
	default:
		return 4
	}
}

func (f *Frame) sampleBytes(order binary.ByteOrder) []byte {
	switch f.dataType() {
	case DataTypeByte:
		return f.ByteSamples
	case DataTypeInt16:
		out := make([]byte, 2*len(f.Int16Samples))
		for i, v := range f.Int16Samples {
			order.PutUint16(out[i*2:], uint16(v))
		}
		return out
	case DataTypeInt32:
		out := make([]byte, 4*len(f.Int32Samples))
		for i, v := range f.Int32Samples {
			order.PutUint32(out[i*4:], uint32(v))
		}
		return out
	default:
		out := make([]byte, 4*len(f.Float32Samples))
		for i, v := range f.Float32Samples {
			order.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out
	}
}

// matNum encodes frame/plane/gate/data/bed per the CTI bit layout.
func matNum(frame int) uint32 {
	return uint32(frame&0x1FF) | 1<<16 | 1<<24
}

// Bytes lays out the complete file.
func (b *Builder) Bytes() []byte {
	order := b.order()

	// Main header.
	main := make([]byte, blockSize)
	copy(main, "MATRIX72v")
	sw := b.SwVersion
	if sw == 0 {
		sw = 73
	}
	order.PutUint16(main[46:], sw)
	sys := b.SystemType
	if sys == 0 {
		sys = 962
	}
	order.PutUint16(main[48:], sys)
	order.PutUint16(main[50:], 7) // volume 16 file type
	copy(main[52:], "1234567890")
	order.PutUint32(main[62:], b.ScanStart)
	iso := b.IsotopeName
	if iso == "" {
		iso = "F-18"
	}
	copy(main[66:], iso)
	order.PutUint32(main[144:], math.Float32bits(b.Calibration))
	copy(main[332:], "TESTLAB")
	nf := b.NumFrames
	if nf == 0 {
		nf = int16(len(b.frames))
	}
	order.PutUint16(main[354:], uint16(nf))

	// Directory block plus frame blocks.
	dir := make([]byte, blockSize)
	putInt32 := func(buf []byte, off int, v int32) {
		order.PutUint32(buf[off:], uint32(v))
	}
	putInt32(dir, 0, int32(31-len(b.frames))) // free entries
	putInt32(dir, 4, 2)                       // next: sentinel, end of chain
	putInt32(dir, 8, 2)                       // prev
	putInt32(dir, 12, int32(len(b.frames)))   // used entries

	var body []byte
	nextBlock := int32(3)
	for i, f := range b.frames {
		nVox := int(f.Dims[0]) * int(f.Dims[1]) * int(f.Dims[2])
		dataBytes := nVox * f.elementSize()
		dataBlocks := int32((dataBytes + blockSize - 1) / blockSize)
		startBlock := nextBlock
		endBlock := startBlock + dataBlocks - f.ShortBlocks

		status := f.Status
		if status == 0 {
			status = 1
		}
		base := (i + 1) * 16
		putInt32(dir, base, int32(matNum(f.Index)))
		putInt32(dir, base+4, startBlock)
		putInt32(dir, base+8, endBlock)
		putInt32(dir, base+12, status)

		sub := make([]byte, blockSize)
		order.PutUint16(sub[0:], uint16(f.dataType()))
		order.PutUint16(sub[2:], 3)
		order.PutUint16(sub[4:], uint16(f.Dims[0]))
		order.PutUint16(sub[6:], uint16(f.Dims[1]))
		order.PutUint16(sub[8:], uint16(f.Dims[2]))
		order.PutUint32(sub[26:], math.Float32bits(f.Scale))
		px := f.PixelSize
		if px == ([3]float32{}) {
			px = [3]float32{0.2, 0.2, 0.2}
		}
		order.PutUint32(sub[34:], math.Float32bits(px[0]))
		order.PutUint32(sub[38:], math.Float32bits(px[1]))
		order.PutUint32(sub[42:], math.Float32bits(px[2]))
		order.PutUint32(sub[46:], f.Duration)
		order.PutUint32(sub[50:], f.StartTime)
		order.PutUint32(sub[80:], math.Float32bits(f.DecayCorr))

		data := make([]byte, int(dataBlocks)*blockSize)
		copy(data, f.sampleBytes(order))

		body = append(body, sub...)
		body = append(body, data...)
		nextBlock = startBlock + dataBlocks + 1
	}

	out := append(main, dir...)
	return append(out, body...)
}

// WriteFile writes the synthetic file under dir and returns its path.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b.Bytes(), 0644); err != nil {
		t.Fatalf("write synthetic ecat file: %v", err)
	}
	return path
}
