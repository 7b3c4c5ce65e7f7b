package ecat

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openneuropet/ecat2nii/internal/ecat/ecattest"
)

func TestDecodeMainHeader(t *testing.T) {
	b := &ecattest.Builder{
		Calibration: 1.5,
		IsotopeName: "C-11",
		ScanStart:   3600,
	}
	b.AddFrame(ecattest.Frame{Index: 1, Dims: [3]int16{2, 2, 1}, Int16Samples: []int16{1, 2, 3, 4}})
	src := sourceFromBytes(t, b.Bytes())

	hdr, err := DecodeMainHeader(src)
	require.NoError(t, err)
	assert.Equal(t, "MATRIX72v", hdr.Magic)
	assert.Equal(t, uint16(73), hdr.SwVersion)
	assert.Equal(t, uint16(962), hdr.SystemType)
	assert.Equal(t, "HR+ 962", hdr.SystemModel())
	assert.Equal(t, uint16(7), hdr.FileType)
	assert.Equal(t, "1234567890", hdr.SerialNumber)
	assert.Equal(t, uint32(3600), hdr.ScanStartTime)
	assert.Equal(t, "C-11", hdr.IsotopeName)
	assert.Equal(t, float32(1.5), hdr.CalibrationFactor)
	assert.Equal(t, "TESTLAB", hdr.FacilityName)
	assert.Equal(t, int16(1), hdr.NumFrames)
}

func TestDecodeMainHeader_ZeroFrames(t *testing.T) {
	b := &ecattest.Builder{}
	b.AddFrame(ecattest.Frame{Index: 1, Dims: [3]int16{2, 2, 1}, Int16Samples: []int16{1, 2, 3, 4}})
	raw := b.Bytes()
	binary.BigEndian.PutUint16(raw[354:], 0)

	src, err := FromReaderAt(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	_, err = DecodeMainHeader(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.Contains(t, err.Error(), "frame count")
}

func TestDecodeMainHeader_NegativeFrames(t *testing.T) {
	b := &ecattest.Builder{}
	b.AddFrame(ecattest.Frame{Index: 1, Dims: [3]int16{2, 2, 1}, Int16Samples: []int16{1, 2, 3, 4}})
	raw := b.Bytes()
	binary.BigEndian.PutUint16(raw[354:], uint16(0xFFFF)) // -1

	src, err := FromReaderAt(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	_, err = DecodeMainHeader(src)
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecodeMainHeader_UnknownSystemType(t *testing.T) {
	b := &ecattest.Builder{SystemType: 4242}
	b.AddFrame(ecattest.Frame{Index: 1, Dims: [3]int16{2, 2, 1}, Int16Samples: []int16{1, 2, 3, 4}})
	src := sourceFromBytes(t, b.Bytes())

	_, err := DecodeMainHeader(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidHeader)
	assert.Contains(t, err.Error(), "system type")

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "main header", derr.Stage)
	assert.Equal(t, int64(48), derr.Offset)
}

func TestDecodeMainHeader_LittleEndian(t *testing.T) {
	b := &ecattest.Builder{Order: binary.LittleEndian, Calibration: 2.25}
	b.AddFrame(ecattest.Frame{Index: 1, Dims: [3]int16{2, 2, 1}, Int16Samples: []int16{1, 2, 3, 4}})
	src := sourceFromBytes(t, b.Bytes())

	hdr, err := DecodeMainHeader(src)
	require.NoError(t, err)
	assert.Equal(t, uint16(962), hdr.SystemType)
	assert.Equal(t, float32(2.25), hdr.CalibrationFactor)
	assert.Equal(t, int16(1), hdr.NumFrames)
}
