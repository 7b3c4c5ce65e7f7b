package nifti

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/openneuropet/ecat2nii/internal/volume"
)

// previewTile is the rendered edge length of one frame's slice in the
// montage.
const previewTile = 256

// WritePreview renders the middle axial slice of every frame as a horizontal
// Gray16 montage and writes it as a PNG. Diagnostic output only; sample
// values are window-scaled to the volume's intensity range.
func WritePreview(path string, vol *volume.Volume) error {
	nx, ny, nz := vol.Dimensions()
	nt := vol.FrameCount()
	mid := nz / 2

	lo, hi := vol.Frames[0].Samples[0], vol.Frames[0].Samples[0]
	for _, f := range vol.Frames {
		for _, s := range f.Samples {
			if s < lo {
				lo = s
			}
			if s > hi {
				hi = s
			}
		}
	}
	window := hi - lo
	if window == 0 {
		window = 1
	}

	montage := image.NewGray16(image.Rect(0, 0, previewTile*nt, previewTile))
	for t, f := range vol.Frames {
		slice := image.NewGray16(image.Rect(0, 0, nx, ny))
		base := mid * nx * ny
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				v := (f.Samples[base+y*nx+x] - lo) / window
				g := uint16(v * 65535)
				i := slice.PixOffset(x, y)
				slice.Pix[i] = uint8(g >> 8)
				slice.Pix[i+1] = uint8(g)
			}
		}
		tile := image.Rect(t*previewTile, 0, (t+1)*previewTile, previewTile)
		draw.ApproxBiLinear.Scale(montage, tile, slice, slice.Bounds(), draw.Src, nil)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := png.Encode(f, montage); err != nil {
		return fmt.Errorf("encode preview %s: %w", path, err)
	}
	return f.Close()
}
