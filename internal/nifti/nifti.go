// Package nifti serializes assembled PET volumes as NIfTI-1 single-file
// images (.nii): a 348-byte header, a 4-byte extension pad, then one
// contiguous float32 sample buffer.
//
// Header layout per the official definition,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"errors"
)

// ErrEncoding reports a resource-level failure while writing the output.
// Geometry and type issues are caught before encoding begins.
var ErrEncoding = errors.New("nifti: encoding failed")

// NIfTI-1 header constants.
const (
	headerSize = 348
	voxOffset  = 352 // header + 4-byte extension pad

	dtFloat32     = 16
	bitPixFloat32 = 32

	// xyzt_units: spatial mm (2) | temporal sec (8)
	unitsMMSec = 10

	// sform code: scanner-anatomical coordinates
	xformScannerAnat = 1
)

// Header is the fixed 348-byte NIfTI-1 header, field for field.
type Header struct {
	SizeOfHdr      int32
	DataTypeUnused [10]byte
	DBNameUnused   [18]byte
	ExtentsUnused  int32
	SessionError   int16
	RegularUnused  byte
	DimInfo        byte

	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	DataType      int16
	BitPix        int16
	SliceStart    int16
	PixDim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XYZTUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	TOffset       float32
	GlMaxUnused   int32
	GlMinUnused   int32

	Descrip [80]byte
	AuxFile [24]byte

	QFormCode int16
	SFormCode int16

	QuaternB float32
	QuaternC float32
	QuaternD float32
	QOffsetX float32
	QOffsetY float32
	QOffsetZ float32

	SRowX [4]float32
	SRowY [4]float32
	SRowZ [4]float32

	IntentName [16]byte

	Magic [4]byte
}

// Image is the serialized target: header plus one contiguous sample buffer in
// x-fastest order. It owns its own copy of the samples, independent of the
// source volume, and is never mutated after construction.
type Image struct {
	Header Header
	Data   []float32
}
