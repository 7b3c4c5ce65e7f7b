package ecat

import (
	"fmt"
	"io"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Dump-mode rendering of decoded headers for diagnostic use. Nothing here
// runs the assemble/encode path.

// DumpMainHeader writes the main header as key: value lines.
func DumpMainHeader(w io.Writer, h *MainHeader) {
	fmt.Fprintf(w, "MAGIC_NUMBER: %s\n", h.Magic)
	fmt.Fprintf(w, "ORIGINAL_FILE_NAME: %s\n", h.OriginalFileName)
	fmt.Fprintf(w, "SW_VERSION: %d\n", h.SwVersion)
	fmt.Fprintf(w, "SYSTEM_TYPE: %d (%s)\n", h.SystemType, h.SystemModel())
	fmt.Fprintf(w, "FILE_TYPE: %d\n", h.FileType)
	fmt.Fprintf(w, "SERIAL_NUMBER: %s\n", h.SerialNumber)
	fmt.Fprintf(w, "SCAN_START_TIME: %s\n", formatEpoch(h.ScanStartTime))
	fmt.Fprintf(w, "ISOTOPE_NAME: %s\n", h.IsotopeName)
	fmt.Fprintf(w, "ISOTOPE_HALFLIFE: %g\n", h.IsotopeHalflife)
	fmt.Fprintf(w, "RADIOPHARMACEUTICAL: %s\n", h.Radiopharmaceutical)
	fmt.Fprintf(w, "ECAT_CALIBRATION_FACTOR: %g\n", h.CalibrationFactor)
	fmt.Fprintf(w, "CALIBRATION_UNITS: %d\n", h.CalibrationUnits)
	fmt.Fprintf(w, "STUDY_TYPE: %s\n", h.StudyType)
	fmt.Fprintf(w, "STUDY_DESCRIPTION: %s\n", h.StudyDescription)
	fmt.Fprintf(w, "PATIENT_ID: %s\n", h.PatientID)
	fmt.Fprintf(w, "PATIENT_NAME: %s\n", h.PatientName)
	fmt.Fprintf(w, "FACILITY_NAME: %s\n", h.FacilityName)
	fmt.Fprintf(w, "NUM_PLANES: %d\n", h.NumPlanes)
	fmt.Fprintf(w, "NUM_FRAMES: %d\n", h.NumFrames)
	fmt.Fprintf(w, "NUM_GATES: %d\n", h.NumGates)
	fmt.Fprintf(w, "NUM_BED_POS: %d\n", h.NumBedPos)
	fmt.Fprintf(w, "PLANE_SEPARATION: %g\n", h.PlaneSeparation)
	fmt.Fprintf(w, "BRANCHING_FRACTION: %g\n", h.BranchingFraction)
	fmt.Fprintf(w, "DOSE_START_TIME: %s\n", formatEpoch(h.DoseStartTime))
	fmt.Fprintf(w, "DOSAGE: %g\n", h.Dosage)
	fmt.Fprintf(w, "DATA_UNITS: %s\n", h.DataUnits)
}

// DumpSubheader writes one frame subheader as key: value lines.
func DumpSubheader(w io.Writer, id MatrixID, s *FrameSubheader) {
	fmt.Fprintf(w, "--- frame %d (plane %d, gate %d, bed %d) ---\n", id.Frame, id.Plane, id.Gate, id.Bed)
	fmt.Fprintf(w, "DATA_TYPE: %s\n", s.DataType)
	fmt.Fprintf(w, "X_DIMENSION: %d\n", s.XDimension)
	fmt.Fprintf(w, "Y_DIMENSION: %d\n", s.YDimension)
	fmt.Fprintf(w, "Z_DIMENSION: %d\n", s.ZDimension)
	fmt.Fprintf(w, "X_PIXEL_SIZE: %g\n", s.XPixelSize)
	fmt.Fprintf(w, "Y_PIXEL_SIZE: %g\n", s.YPixelSize)
	fmt.Fprintf(w, "Z_PIXEL_SIZE: %g\n", s.ZPixelSize)
	fmt.Fprintf(w, "SCALE_FACTOR: %g\n", s.ScaleFactor)
	fmt.Fprintf(w, "IMAGE_MIN: %d\n", s.ImageMin)
	fmt.Fprintf(w, "IMAGE_MAX: %d\n", s.ImageMax)
	fmt.Fprintf(w, "FRAME_START_TIME: %d\n", s.FrameStartTime)
	fmt.Fprintf(w, "FRAME_DURATION: %d\n", s.FrameDuration)
	fmt.Fprintf(w, "DECAY_CORR_FCTR: %g\n", s.DecayCorrFctr)
	fmt.Fprintf(w, "RECON_ZOOM: %g\n", s.ReconZoom)
	fmt.Fprintf(w, "FILTER_CODE: %d\n", s.FilterCode)
}

// DumpFrameStats writes summary statistics for one decoded frame.
func DumpFrameStats(w io.Writer, f *DecodedFrame) {
	vals := make([]float64, len(f.Samples))
	min, max := float64(f.Samples[0]), float64(f.Samples[0])
	for i, s := range f.Samples {
		v := float64(s)
		vals[i] = v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean, std := stat.MeanStdDev(vals, nil)
	fmt.Fprintf(w, "frame %d: min=%g max=%g mean=%g std=%g voxels=%d\n",
		f.Entry.ID.Frame, min, max, mean, std, len(f.Samples))
}

// formatEpoch renders an ECAT epoch-seconds field as HH:MM:SS, the way the
// acquisition and dose start times appear in the BIDS sidecar.
func formatEpoch(sec uint32) string {
	if sec == 0 {
		return ""
	}
	return time.Unix(int64(sec), 0).UTC().Format("15:04:05")
}
