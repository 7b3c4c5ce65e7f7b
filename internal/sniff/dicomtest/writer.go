// Package dicomtest writes minimal synthetic DICOM part-10 files for format
// detection tests: one small monochrome frame plus the identifying tags the
// sniffer extracts.
package dicomtest

import (
	"fmt"
	"os"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Fixture describes the identifying tags of the synthetic file. Zero values
// fall back to a plausible PET acquisition.
type Fixture struct {
	Modality          string
	Manufacturer      string
	ModelName         string
	SeriesDescription string
}

func mustNewElement(t tag.Tag, value interface{}) *dicom.Element {
	elem, err := dicom.NewElement(t, value)
	if err != nil {
		panic(fmt.Sprintf("failed to create element %v: %v", t, err))
	}
	return elem
}

// WriteFile writes the fixture dataset to path.
func (fx Fixture) WriteFile(path string) error {
	if fx.Modality == "" {
		fx.Modality = "PT"
	}
	if fx.Manufacturer == "" {
		fx.Manufacturer = "SIEMENS"
	}
	if fx.ModelName == "" {
		fx.ModelName = "Biograph 64"
	}
	if fx.SeriesDescription == "" {
		fx.SeriesDescription = "PET WB"
	}

	const width, height = 16, 16
	nativeFrame := frame.NewNativeFrame[uint16](16, height, width, width*height, 1)
	for i := range nativeFrame.RawData {
		nativeFrame.RawData[i] = uint16(i)
	}
	pixelDataInfo := dicom.PixelDataInfo{
		Frames: []*frame.Frame{
			{
				Encapsulated: false,
				NativeData:   nativeFrame,
			},
		},
	}

	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustNewElement(tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
		mustNewElement(tag.SOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.128"}),
		mustNewElement(tag.SOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1143.1"}),
		mustNewElement(tag.PatientID, []string{"TEST001"}),
		mustNewElement(tag.Modality, []string{fx.Modality}),
		mustNewElement(tag.Manufacturer, []string{fx.Manufacturer}),
		mustNewElement(tag.ManufacturerModelName, []string{fx.ModelName}),
		mustNewElement(tag.SeriesDescription, []string{fx.SeriesDescription}),
		mustNewElement(tag.Rows, []int{height}),
		mustNewElement(tag.Columns, []int{width}),
		mustNewElement(tag.BitsAllocated, []int{16}),
		mustNewElement(tag.BitsStored, []int{16}),
		mustNewElement(tag.HighBit, []int{15}),
		mustNewElement(tag.PixelRepresentation, []int{0}),
		mustNewElement(tag.SamplesPerPixel, []int{1}),
		mustNewElement(tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		mustNewElement(tag.PixelData, pixelDataInfo),
	}}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return dicom.Write(f, ds)
}
