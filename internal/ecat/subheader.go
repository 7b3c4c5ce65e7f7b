package ecat

// DataType is the sample encoding code of one stored matrix.
type DataType uint16

const (
	DataTypeByte     DataType = 1
	DataTypeVAXInt16 DataType = 2
	DataTypeVAXInt32 DataType = 3
	DataTypeVAXFloat DataType = 4
	DataTypeFloat32  DataType = 5
	DataTypeInt16    DataType = 6 // "SUN short", byte order per file
	DataTypeInt32    DataType = 7 // "SUN long"
)

func (d DataType) String() string {
	switch d {
	case DataTypeByte:
		return "uint8"
	case DataTypeVAXInt16:
		return "vax-int16"
	case DataTypeVAXInt32:
		return "vax-int32"
	case DataTypeVAXFloat:
		return "vax-float32"
	case DataTypeFloat32:
		return "float32"
	case DataTypeInt16:
		return "int16"
	case DataTypeInt32:
		return "int32"
	}
	return "unknown"
}

// ElementSize returns the stored size of one sample in bytes, or 0 when the
// code is not a supported encoding.
func (d DataType) ElementSize() int {
	switch d {
	case DataTypeByte:
		return 1
	case DataTypeInt16:
		return 2
	case DataTypeFloat32, DataTypeInt32:
		return 4
	}
	return 0
}

// FrameSubheader is the decoded 512-byte image subheader that precedes each
// pixel block. Each subheader is owned by exactly one frame.
type FrameSubheader struct {
	DataType       DataType
	NumDimensions  int16
	XDimension     int16
	YDimension     int16
	ZDimension     int16
	XOffset        float32 // cm
	YOffset        float32
	ZOffset        float32
	ReconZoom      float32
	ScaleFactor    float32
	ImageMin       int16
	ImageMax       int16
	XPixelSize     float32 // cm
	YPixelSize     float32
	ZPixelSize     float32
	FrameDuration  uint32 // ms
	FrameStartTime uint32 // ms
	FilterCode     int16
	XResolution    float32
	YResolution    float32
	ZResolution    float32
	DecayCorrFctr  float32
	ProcessingCode int32
}

// SampleCount is the number of voxels declared by the subheader.
func (s *FrameSubheader) SampleCount() int {
	return int(s.XDimension) * int(s.YDimension) * int(s.ZDimension)
}

// EffectiveScale applies the documented ECAT convention that a stored scale
// factor of exactly zero means "no scaling applied". Only exact zero is
// special; small non-zero factors are used as written.
func (s *FrameSubheader) EffectiveScale() float32 {
	if s.ScaleFactor == 0 {
		return 1.0
	}
	return s.ScaleFactor
}

// DecodeFrameSubheader reads the subheader located at a directory entry's
// byte offset.
func DecodeFrameSubheader(src *ByteSource, entry MatrixDirectoryEntry) (*FrameSubheader, error) {
	blk, err := src.Block(entry.Offset)
	if err != nil {
		return nil, err
	}
	s := &FrameSubheader{
		DataType:       DataType(blk.uint16(0)),
		NumDimensions:  blk.int16(2),
		XDimension:     blk.int16(4),
		YDimension:     blk.int16(6),
		ZDimension:     blk.int16(8),
		XOffset:        blk.float32(10),
		YOffset:        blk.float32(14),
		ZOffset:        blk.float32(18),
		ReconZoom:      blk.float32(22),
		ScaleFactor:    blk.float32(26),
		ImageMin:       blk.int16(30),
		ImageMax:       blk.int16(32),
		XPixelSize:     blk.float32(34),
		YPixelSize:     blk.float32(38),
		ZPixelSize:     blk.float32(42),
		FrameDuration:  blk.uint32(46),
		FrameStartTime: blk.uint32(50),
		FilterCode:     blk.int16(54),
		XResolution:    blk.float32(56),
		YResolution:    blk.float32(60),
		ZResolution:    blk.float32(64),
		DecayCorrFctr:  blk.float32(80),
		ProcessingCode: blk.int32(84),
	}
	if s.XDimension <= 0 || s.YDimension <= 0 || s.ZDimension <= 0 {
		return nil, decodeErr(ErrInvalidSubheader, "frame subheader", entry.Offset,
			"non-positive dimensions (%d,%d,%d) for frame %d",
			s.XDimension, s.YDimension, s.ZDimension, entry.ID.Frame)
	}
	switch s.DataType {
	case DataTypeByte, DataTypeFloat32, DataTypeInt16, DataTypeInt32:
		// supported
	case DataTypeVAXInt16, DataTypeVAXInt32, DataTypeVAXFloat:
		return nil, decodeErr(ErrInvalidSubheader, "frame subheader", entry.Offset,
			"VAX sample encoding %s is not supported", s.DataType)
	default:
		return nil, decodeErr(ErrInvalidSubheader, "frame subheader", entry.Offset,
			"unrecognized sample data type code %d", uint16(s.DataType))
	}
	return s, nil
}
