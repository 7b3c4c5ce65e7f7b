package tests

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/openneuropet/ecat2nii/internal/convert"
	"github.com/openneuropet/ecat2nii/internal/ecat/ecattest"
	"github.com/openneuropet/ecat2nii/internal/sidecar"
)

// niftiHeader is the slice of NIfTI-1 header fields the integration tests
// verify, at their fixed offsets in the 348-byte header.
type niftiHeader struct {
	SizeOfHdr int32
	Dim       [8]int16
	DataType  int16
	BitPix    int16
	PixDim    [8]float32
	VoxOffset float32
	Magic     [4]byte
}

func readNifti(t *testing.T, path string) (niftiHeader, []float32) {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(raw) < 352 {
		t.Fatalf("output too short: %d bytes", len(raw))
	}

	var h niftiHeader
	h.SizeOfHdr = int32(binary.LittleEndian.Uint32(raw[0:]))
	for i := range h.Dim {
		h.Dim[i] = int16(binary.LittleEndian.Uint16(raw[40+i*2:]))
	}
	h.DataType = int16(binary.LittleEndian.Uint16(raw[70:]))
	h.BitPix = int16(binary.LittleEndian.Uint16(raw[72:]))
	for i := range h.PixDim {
		bits := binary.LittleEndian.Uint32(raw[76+i*4:])
		h.PixDim[i] = float32frombits(bits)
	}
	h.VoxOffset = float32frombits(binary.LittleEndian.Uint32(raw[108:]))
	copy(h.Magic[:], raw[344:348])

	data := make([]float32, (len(raw)-352)/4)
	if err := binary.Read(bytes.NewReader(raw[352:]), binary.LittleEndian, &data); err != nil {
		t.Fatalf("read sample buffer: %v", err)
	}
	return h, data
}

func float32frombits(b uint32) float32 {
	return math.Float32frombits(b)
}

func twoFrameScan() *ecattest.Builder {
	b := &ecattest.Builder{IsotopeName: "F-18", ScanStart: 9 * 3600, Calibration: 1.0}
	b.AddFrame(ecattest.Frame{
		Index: 1, Dims: [3]int16{4, 4, 2},
		Int16Samples: rampInt16(32), Scale: 0.5,
		StartTime: 0, Duration: 30000,
		PixelSize: [3]float32{0.2, 0.2, 0.2},
	})
	b.AddFrame(ecattest.Frame{
		Index: 2, Dims: [3]int16{4, 4, 2},
		Int16Samples: rampInt16(32), Scale: 1.0,
		StartTime: 30000, Duration: 30000,
		PixelSize: [3]float32{0.2, 0.2, 0.2},
	})
	return b
}

func rampInt16(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(i)
	}
	return out
}

// TestConvert_RoundTrip converts a synthetic two-frame scan and verifies the
// emitted NIfTI geometry and samples.
func TestConvert_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	input := twoFrameScan().WriteFile(t, dir, "scan.v")
	output := filepath.Join(dir, "out.nii")

	res, err := convert.Run(context.Background(), convert.Options{
		InputPath:  input,
		OutputPath: output,
		Quiet:      true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Frames != 2 {
		t.Errorf("expected 2 frames, got %d", res.Frames)
	}
	if res.Dimensions != [3]int{4, 4, 2} {
		t.Errorf("unexpected dimensions: %v", res.Dimensions)
	}

	h, data := readNifti(t, output)
	if h.SizeOfHdr != 348 {
		t.Errorf("sizeof_hdr = %d, want 348", h.SizeOfHdr)
	}
	if h.Magic != [4]byte{'n', '+', '1', 0} {
		t.Errorf("bad magic: %v", h.Magic)
	}
	if h.Dim != [8]int16{4, 4, 4, 2, 2, 1, 1, 1} {
		t.Errorf("bad dim: %v", h.Dim)
	}
	if h.DataType != 16 || h.BitPix != 32 {
		t.Errorf("expected float32 storage, got datatype=%d bitpix=%d", h.DataType, h.BitPix)
	}
	if h.VoxOffset != 352 {
		t.Errorf("vox_offset = %g, want 352", h.VoxOffset)
	}
	// 0.2 cm voxels arrive as 2 mm; 30000 ms frames as 30 s.
	if h.PixDim[1] != 2 || h.PixDim[2] != 2 || h.PixDim[3] != 2 {
		t.Errorf("bad spatial pixdim: %v", h.PixDim)
	}
	if h.PixDim[4] != 30 {
		t.Errorf("bad temporal pixdim: %g", h.PixDim[4])
	}

	if len(data) != 4*4*2*2 {
		t.Fatalf("expected 64 samples, got %d", len(data))
	}
	// Frame 1 scaled by 0.5: the last stored sample (31) flips to the first
	// output voxel, carrying value 15.5.
	if data[0] != 15.5 {
		t.Errorf("frame 1 first voxel = %g, want 15.5", data[0])
	}
	// Frame 2 unscaled: same ramp at scale 1.
	if data[32] != 31 {
		t.Errorf("frame 2 first voxel = %g, want 31", data[32])
	}

	t.Logf("✓ round trip conversion verified: %s", res.NiftiPath)
}

// TestConvert_DefaultOutputPath verifies the .v extension is swapped for .nii
// when no output path is given.
func TestConvert_DefaultOutputPath(t *testing.T) {
	dir := t.TempDir()
	input := twoFrameScan().WriteFile(t, dir, "scan.v")

	res, err := convert.Run(context.Background(), convert.Options{InputPath: input, Quiet: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := filepath.Join(dir, "scan.nii")
	if res.NiftiPath != want {
		t.Errorf("output path = %s, want %s", res.NiftiPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Errorf("default output missing: %v", err)
	}
}

func TestOutputPathFor(t *testing.T) {
	cases := map[string]string{
		"scan.v":          "scan.nii",
		"/data/patient.v": "/data/patient.nii",
		"noextension":     "noextension.nii",
		"dotted.name.v":   "dotted.name.nii",
	}
	for in, want := range cases {
		if got := convert.OutputPathFor(in); got != want {
			t.Errorf("OutputPathFor(%q) = %q, want %q", in, got, want)
		}
	}
}

// TestConvert_WithSidecar verifies the BIDS sidecar lands next to the image
// with defaults and header scalars merged.
func TestConvert_WithSidecar(t *testing.T) {
	dir := t.TempDir()
	input := twoFrameScan().WriteFile(t, dir, "scan.v")

	defaults := &sidecar.Defaults{
		TracerName:            "FDG",
		TracerRadionuclide:    "F18",
		InjectedRadioactivity: 185,
		InjectedMass:          5,
		MolarActivity:         55.5,
		TimeZero:              "09:00:00",
		ModeOfAdministration:  "bolus",
	}
	if err := defaults.Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}

	res, err := convert.Run(context.Background(), convert.Options{
		InputPath:       input,
		SidecarDefaults: defaults,
		Quiet:           true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := filepath.Join(dir, "scan.json")
	if res.SidecarPath != want {
		t.Errorf("sidecar path = %s, want %s", res.SidecarPath, want)
	}

	raw, err := os.ReadFile(res.SidecarPath)
	if err != nil {
		t.Fatalf("read sidecar: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("sidecar is not valid JSON: %v", err)
	}
	if m["TracerName"] != "FDG" {
		t.Errorf("TracerName = %v", m["TracerName"])
	}
	if m["Manufacturer"] != "Siemens" {
		t.Errorf("Manufacturer = %v", m["Manufacturer"])
	}
	if m["AcquisitionTime"] != "09:00:00" {
		t.Errorf("AcquisitionTime = %v", m["AcquisitionTime"])
	}
	frames, ok := m["FrameTimesStart"].([]any)
	if !ok || len(frames) != 2 {
		t.Errorf("FrameTimesStart = %v", m["FrameTimesStart"])
	}

	t.Logf("✓ sidecar written and parsed: %s", res.SidecarPath)
}

// TestConvert_WithPreview verifies the montage PNG is produced.
func TestConvert_WithPreview(t *testing.T) {
	dir := t.TempDir()
	input := twoFrameScan().WriteFile(t, dir, "scan.v")
	preview := filepath.Join(dir, "scan.png")

	_, err := convert.Run(context.Background(), convert.Options{
		InputPath:   input,
		PreviewPath: preview,
		Quiet:       true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	info, err := os.Stat(preview)
	if err != nil {
		t.Fatalf("preview missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("preview is empty")
	}
}

// TestDump_PrintsHeadersAndStats exercises dump mode end to end.
func TestDump_PrintsHeadersAndStats(t *testing.T) {
	dir := t.TempDir()
	input := twoFrameScan().WriteFile(t, dir, "scan.v")

	var out bytes.Buffer
	if err := convert.Dump(&out, input); err != nil {
		t.Fatalf("Dump failed: %v", err)
	}
	s := out.String()
	for _, want := range []string{
		"MAGIC_NUMBER: MATRIX72v",
		"ISOTOPE_NAME: F-18",
		"2 live matrix entries",
		"--- frame 1",
		"--- frame 2",
		"X_DIMENSION: 4",
		"frame 1: min=",
		"AFFINE:",
	} {
		if !bytes.Contains(out.Bytes(), []byte(want)) {
			t.Errorf("dump output missing %q\n%s", want, s)
		}
	}
}
