package nifti

import (
	"gonum.org/v1/gonum/mat"

	"github.com/openneuropet/ecat2nii/internal/ecat"
)

// Affine builds the 4x4 voxel-to-world transform for a volume whose geometry
// is described by sub. ECAT pixel sizes are stored in cm; NIfTI spatial units
// here are mm, so every spacing is scaled by 10. The world origin is placed
// at the volume centre.
func Affine(sub *ecat.FrameSubheader) *mat.Dense {
	dx := float64(sub.XPixelSize) * 10
	dy := float64(sub.YPixelSize) * 10
	dz := float64(sub.ZPixelSize) * 10

	scale := mat.NewDense(4, 4, []float64{
		dx, 0, 0, 0,
		0, dy, 0, 0,
		0, 0, dz, 0,
		0, 0, 0, 1,
	})
	center := mat.NewDense(4, 4, []float64{
		1, 0, 0, -float64(sub.XDimension-1) / 2,
		0, 1, 0, -float64(sub.YDimension-1) / 2,
		0, 0, 1, -float64(sub.ZDimension-1) / 2,
		0, 0, 0, 1,
	})

	var affine mat.Dense
	affine.Mul(scale, center)
	return &affine
}

// srows extracts the first three rows of the affine as float32 quadruples for
// the header's sform fields.
func srows(affine *mat.Dense) (x, y, z [4]float32) {
	for j := 0; j < 4; j++ {
		x[j] = float32(affine.At(0, j))
		y[j] = float32(affine.At(1, j))
		z[j] = float32(affine.At(2, j))
	}
	return x, y, z
}
