package ecat

import "math"

// DecodedFrame is one frame's calibrated sample array together with the
// subheader it was derived from. len(Samples) == x*y*z always holds; a
// mismatch during decode is an error, never a truncation.
type DecodedFrame struct {
	Subheader *FrameSubheader
	Entry     MatrixDirectoryEntry
	Samples   []float32
}

// DecodePixelBlock converts the raw pixel bytes of one frame into float32
// samples, applying the frame's scale factor. The block is processed in one
// pass; the output slice is the only allocation.
func DecodePixelBlock(src *ByteSource, entry MatrixDirectoryEntry, sub *FrameSubheader) (*DecodedFrame, error) {
	count := sub.SampleCount()
	elemSize := sub.DataType.ElementSize()
	need := int64(count) * int64(elemSize)
	dataOff := entry.DataOffset()

	if avail := entry.Length - BlockSize; avail < need {
		return nil, decodeErr(ErrTruncatedPixelData, "pixel block", dataOff,
			"frame %d needs %d bytes for %dx%dx%d %s samples, matrix holds %d",
			entry.ID.Frame, need, sub.XDimension, sub.YDimension, sub.ZDimension,
			sub.DataType, avail)
	}
	raw, err := src.ReadExact(dataOff, int(need))
	if err != nil {
		return nil, decodeErr(ErrTruncatedPixelData, "pixel block", dataOff,
			"frame %d pixel bytes unreadable: %v", entry.ID.Frame, err)
	}

	scale := sub.EffectiveScale()
	order := src.Order()
	samples := make([]float32, count)
	switch sub.DataType {
	case DataTypeByte:
		for i := 0; i < count; i++ {
			samples[i] = float32(raw[i]) * scale
		}
	case DataTypeInt16:
		for i := 0; i < count; i++ {
			v := int16(order.Uint16(raw[i*2 : i*2+2]))
			samples[i] = float32(v) * scale
		}
	case DataTypeInt32:
		for i := 0; i < count; i++ {
			v := int32(order.Uint32(raw[i*4 : i*4+4]))
			samples[i] = float32(v) * scale
		}
	case DataTypeFloat32:
		for i := 0; i < count; i++ {
			v := math.Float32frombits(order.Uint32(raw[i*4 : i*4+4]))
			samples[i] = v * scale
		}
	default:
		// DecodeFrameSubheader rejects these before we get here.
		return nil, decodeErr(ErrInvalidSubheader, "pixel block", entry.Offset,
			"unsupported data type %s", sub.DataType)
	}
	return &DecodedFrame{Subheader: sub, Entry: entry, Samples: samples}, nil
}

// DecodeFrame decodes subheader and pixel block for one directory entry.
func DecodeFrame(src *ByteSource, entry MatrixDirectoryEntry) (*DecodedFrame, error) {
	sub, err := DecodeFrameSubheader(src, entry)
	if err != nil {
		return nil, err
	}
	return DecodePixelBlock(src, entry, sub)
}
