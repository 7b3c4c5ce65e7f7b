// Package sniff identifies the container format of an input file before the
// decode pipeline commits to it. PET data arrives as ECAT from older
// CTI/Siemens systems but frequently as DICOM from newer ones; pointing the
// user at the right converter beats a bare "unrecognized format".
package sniff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Format is the detected container kind.
type Format int

const (
	FormatUnknown Format = iota
	FormatECAT
	FormatDICOM
	FormatNIfTI
)

func (f Format) String() string {
	switch f {
	case FormatECAT:
		return "ECAT"
	case FormatDICOM:
		return "DICOM"
	case FormatNIfTI:
		return "NIfTI"
	}
	return "unknown"
}

// Detect inspects the file's magic fields. ECAT main headers start with
// "MATRIX"; DICOM part-10 files carry "DICM" after the 128-byte preamble;
// NIfTI-1 headers begin with sizeof_hdr == 348 in either byte order.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	head := make([]byte, 132)
	n, _ := f.Read(head)
	head = head[:n]

	if bytes.HasPrefix(head, []byte("MATRIX")) {
		return FormatECAT, nil
	}
	if len(head) >= 132 && bytes.Equal(head[128:132], []byte("DICM")) {
		return FormatDICOM, nil
	}
	if len(head) >= 4 {
		if binary.LittleEndian.Uint32(head[:4]) == 348 || binary.BigEndian.Uint32(head[:4]) == 348 {
			return FormatNIfTI, nil
		}
	}
	return FormatUnknown, nil
}

// DICOMSummary is the minimal identification of a DICOM input, enough for
// the user to route it to a DICOM converter.
type DICOMSummary struct {
	Modality          string
	Manufacturer      string
	ModelName         string
	SeriesDescription string
}

// SummarizeDICOM parses the dataset and extracts identifying tags. Missing
// tags are left empty; only a parse failure is an error.
func SummarizeDICOM(path string) (*DICOMSummary, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("parse dicom %s: %w", path, err)
	}
	s := &DICOMSummary{
		Modality:          firstString(ds, tag.Modality),
		Manufacturer:      firstString(ds, tag.Manufacturer),
		ModelName:         firstString(ds, tag.ManufacturerModelName),
		SeriesDescription: firstString(ds, tag.SeriesDescription),
	}
	return s, nil
}

func firstString(ds dicom.Dataset, t tag.Tag) string {
	elem, err := ds.FindElementByTag(t)
	if err != nil {
		return ""
	}
	if strs, ok := elem.Value.GetValue().([]string); ok && len(strs) > 0 {
		return strs[0]
	}
	return ""
}
