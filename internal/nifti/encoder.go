package nifti

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/openneuropet/ecat2nii/internal/volume"
)

// FromVolume builds the serialized image from an assembled volume. Scale
// factors were applied during pixel decode, so the output slope/intercept are
// always 1/0 and the data type is always float32 regardless of the source
// encoding. The sample buffer is a fresh copy; the source file may be
// released as soon as this returns.
func FromVolume(vol *volume.Volume) (*Image, error) {
	nx, ny, nz := vol.Dimensions()
	nt := vol.FrameCount()
	sub := vol.Frames[0].Subheader

	data := make([]float32, nx*ny*nz*nt)
	frameLen := nx * ny * nz
	calMin, calMax := vol.Frames[0].Samples[0], vol.Frames[0].Samples[0]
	for t, f := range vol.Frames {
		reorient(data[t*frameLen:(t+1)*frameLen], f.Samples, nx, ny, nz)
		for _, s := range f.Samples {
			if s < calMin {
				calMin = s
			}
			if s > calMax {
				calMax = s
			}
		}
	}

	hdr := Header{
		SizeOfHdr: headerSize,
		Dim:       [8]int16{4, int16(nx), int16(ny), int16(nz), int16(nt), 1, 1, 1},
		DataType:  dtFloat32,
		BitPix:    bitPixFloat32,
		PixDim: [8]float32{
			1,
			sub.XPixelSize * 10,
			sub.YPixelSize * 10,
			sub.ZPixelSize * 10,
			float32(sub.FrameDuration) / 1000,
			1, 1, 1,
		},
		VoxOffset: voxOffset,
		SclSlope:  1,
		SclInter:  0,
		XYZTUnits: unitsMMSec,
		CalMax:    calMax,
		CalMin:    calMin,
		SFormCode: xformScannerAnat,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	affine := Affine(sub)
	hdr.SRowX, hdr.SRowY, hdr.SRowZ = srows(affine)
	hdr.QOffsetX = hdr.SRowX[3]
	hdr.QOffsetY = hdr.SRowY[3]
	hdr.QOffsetZ = hdr.SRowZ[3]
	copy(hdr.Descrip[:], "ecat2nii")

	return &Image{Header: hdr, Data: data}, nil
}

// reorient copies one frame into dst with all three spatial axes flipped,
// taking the volume from the scanner's native orientation to the NIfTI
// convention. This is an explicit copy into a new buffer, not a
// reinterpretation of the source bytes.
func reorient(dst, src []float32, nx, ny, nz int) {
	for z := 0; z < nz; z++ {
		zf := nz - 1 - z
		for y := 0; y < ny; y++ {
			yf := ny - 1 - y
			rowSrc := (z*ny + y) * nx
			rowDst := (zf*ny + yf) * nx
			for x := 0; x < nx; x++ {
				dst[rowDst+(nx-1-x)] = src[rowSrc+x]
			}
		}
	}
}

// WriteFile serializes the image to path. NIfTI permits either byte order;
// the writer always emits little-endian, the common choice of modern tools.
func (img *Image) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrEncoding, path, err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	if err := img.encode(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %v", ErrEncoding, path, err)
	}
	return f.Close()
}

func (img *Image) encode(w *bufio.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, &img.Header); err != nil {
		return fmt.Errorf("%w: header: %v", ErrEncoding, err)
	}
	// Extension indicator: four zero bytes, no extensions.
	if _, err := w.Write([]byte{0, 0, 0, 0}); err != nil {
		return fmt.Errorf("%w: extension pad: %v", ErrEncoding, err)
	}
	if err := binary.Write(w, binary.LittleEndian, img.Data); err != nil {
		return fmt.Errorf("%w: sample buffer: %v", ErrEncoding, err)
	}
	return nil
}
