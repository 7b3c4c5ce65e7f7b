// Package sidecar builds the BIDS PET JSON sidecar from decoded ECAT header
// scalars and a caller-supplied defaults record. The core decoder contributes
// frame timing, dimensions and voxel sizes; tracer and injection values come
// from the defaults.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openneuropet/ecat2nii/internal/ecat"
	"github.com/openneuropet/ecat2nii/internal/volume"
)

// Sidecar enumerates every recognized BIDS PET metadata field. The set is
// closed: fields outside this struct are rejected when defaults are loaded,
// not silently ignored. Mandatory fields carry no omitempty so they survive
// serialization even when unpopulated; optional fields are pruned when empty.
type Sidecar struct {
	// Mandatory BIDS fields.
	TracerName                 string  `json:"TracerName"`
	TracerRadionuclide         string  `json:"TracerRadionuclide"`
	InjectedRadioactivity      float64 `json:"InjectedRadioactivity"`
	InjectedRadioactivityUnits string  `json:"InjectedRadioactivityUnits"`
	InjectedMass               float64 `json:"InjectedMass"`
	InjectedMassUnits          string  `json:"InjectedMassUnits"`
	MolarActivity              float64 `json:"MolarActivity"`
	MolarActivityUnits         string  `json:"MolarActivityUnits"`
	TimeZero                   string  `json:"TimeZero"`
	Units                      string  `json:"Units"`
	BodyPart                   string  `json:"BodyPart"`
	ModeOfAdministration       string  `json:"ModeOfAdministration"`

	// Header-derived fields, populated by Build.
	Manufacturer           string    `json:"Manufacturer,omitempty"`
	ManufacturersModelName string    `json:"ManufacturersModelName,omitempty"`
	PharmaceuticalName     string    `json:"PharmaceuticalName,omitempty"`
	AcquisitionTime        string    `json:"AcquisitionTime,omitempty"`
	ScanStart              string    `json:"ScanStart,omitempty"`
	PharmaceuticalDoseTime string    `json:"PharmaceuticalDoseTime,omitempty"`
	FrameTimesStart        []float64 `json:"FrameTimesStart,omitempty"`
	FrameDuration          []float64 `json:"FrameDuration,omitempty"`
	DecayCorrectionFactor  []float64 `json:"DecayCorrectionFactor,omitempty"`
	ScaleFactor            []float64 `json:"ScaleFactor,omitempty"`
	CalibrationFactor      float64   `json:"CalibrationFactor,omitempty"`
	ImageSize              []int     `json:"ImageSize,omitempty"`
	PixelDimensions        []float64 `json:"PixelDimensions,omitempty"`
	Filename               string    `json:"Filename,omitempty"`

	// Optional reconstruction fields.
	ImageDecayCorrected      *bool  `json:"ImageDecayCorrected,omitempty"`
	ImageDecayCorrectionTime string `json:"ImageDecayCorrectionTime,omitempty"`
	ReconMethodName          string `json:"ReconMethodName,omitempty"`
	ReconFilterType          string `json:"ReconFilterType,omitempty"`
	ReconFilterSize          string `json:"ReconFilterSize,omitempty"`
	AttenuationCorrection    string `json:"AttenuationCorrection,omitempty"`
}

// Build combines header-derived scalars with the defaults record into one
// sidecar. niftiPath names the image file the sidecar accompanies.
func Build(hdr *ecat.MainHeader, vol *volume.Volume, d *Defaults, niftiPath string) *Sidecar {
	s := d.sidecarSeed()

	// ECAT files are Siemens/CTI containers.
	s.Manufacturer = "Siemens"
	s.ManufacturersModelName = hdr.SystemModel()
	if s.TracerRadionuclide == "" {
		s.TracerRadionuclide = hdr.IsotopeName
	}
	s.PharmaceuticalName = hdr.Radiopharmaceutical
	s.CalibrationFactor = float64(hdr.CalibrationFactor)
	s.AcquisitionTime = formatEpoch(hdr.ScanStartTime)
	s.ScanStart = s.AcquisitionTime
	s.PharmaceuticalDoseTime = formatEpoch(hdr.DoseStartTime)
	s.Filename = filepath.Base(niftiPath)

	decayCorrected := false
	for _, f := range vol.Frames {
		sub := f.Subheader
		s.FrameTimesStart = append(s.FrameTimesStart, float64(sub.FrameStartTime)/1000)
		s.FrameDuration = append(s.FrameDuration, float64(sub.FrameDuration)/1000)
		s.DecayCorrectionFactor = append(s.DecayCorrectionFactor, float64(sub.DecayCorrFctr))
		s.ScaleFactor = append(s.ScaleFactor, float64(sub.ScaleFactor))
		if sub.DecayCorrFctr != 0 {
			decayCorrected = true
		}
	}
	if s.ImageDecayCorrected == nil && decayCorrected {
		t := true
		s.ImageDecayCorrected = &t
	}

	nx, ny, nz := vol.Dimensions()
	s.ImageSize = []int{nx, ny, nz, vol.FrameCount()}
	sub := vol.Frames[0].Subheader
	s.PixelDimensions = []float64{
		float64(sub.XPixelSize) * 10,
		float64(sub.YPixelSize) * 10,
		float64(sub.ZPixelSize) * 10,
	}
	return s
}

// WriteFile serializes the sidecar as indented JSON next to the image.
func (s *Sidecar) WriteFile(path string) error {
	buf, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path, append(buf, '\n'), 0644); err != nil {
		return fmt.Errorf("write sidecar %s: %w", path, err)
	}
	return nil
}

func formatEpoch(sec uint32) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format("15:04:05")
}
