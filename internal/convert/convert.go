// Package convert drives one ECAT-to-NIfTI conversion end to end: decode,
// assemble, encode, and optionally emit the BIDS sidecar and a preview
// montage. All state is file-local; independent files convert concurrently
// with nothing shared.
package convert

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/openneuropet/ecat2nii/internal/ecat"
	"github.com/openneuropet/ecat2nii/internal/nifti"
	"github.com/openneuropet/ecat2nii/internal/sidecar"
	"github.com/openneuropet/ecat2nii/internal/volume"
)

// Options configures one conversion run.
type Options struct {
	InputPath  string
	OutputPath string // empty: input path with .nii extension

	// SidecarDefaults enables BIDS sidecar output next to the image.
	SidecarDefaults *sidecar.Defaults

	// PreviewPath, when set, writes a PNG slice montage for inspection.
	PreviewPath string

	// Workers bounds parallel frame decoding; zero means one per CPU core.
	Workers int

	Quiet bool
}

// Result reports what one conversion produced.
type Result struct {
	NiftiPath   string
	SidecarPath string
	Frames      int
	Dimensions  [3]int
}

// OutputPathFor derives the default output name: the input path with its
// extension swapped for .nii.
func OutputPathFor(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".nii"
}

// Run performs the conversion. Every decode failure aborts immediately with
// the stage and offset attached; no output file is written on failure.
func Run(ctx context.Context, opts Options) (*Result, error) {
	src, err := ecat.Open(opts.InputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	hdr, err := ecat.DecodeMainHeader(src)
	if err != nil {
		return nil, err
	}
	entries, err := ecat.ReadMatrixDirectory(src)
	if err != nil {
		return nil, err
	}

	vol, err := volume.Assemble(ctx, src, hdr, entries, volume.Options{Workers: opts.Workers})
	if err != nil {
		return nil, err
	}
	if vol.FrameCount() != vol.DeclaredFrames && !opts.Quiet {
		log.WithFields(log.Fields{
			"declared": vol.DeclaredFrames,
			"decoded":  vol.FrameCount(),
		}).Warn("frame count differs from main header declaration")
	}

	img, err := nifti.FromVolume(vol)
	if err != nil {
		return nil, err
	}

	out := opts.OutputPath
	if out == "" {
		out = OutputPathFor(opts.InputPath)
	}
	if err := img.WriteFile(out); err != nil {
		return nil, err
	}

	res := &Result{NiftiPath: out, Frames: vol.FrameCount()}
	res.Dimensions[0], res.Dimensions[1], res.Dimensions[2] = vol.Dimensions()

	if opts.SidecarDefaults != nil {
		sc := sidecar.Build(hdr, vol, opts.SidecarDefaults, out)
		scPath := strings.TrimSuffix(out, ".nii") + ".json"
		if err := sc.WriteFile(scPath); err != nil {
			return nil, err
		}
		res.SidecarPath = scPath
	}

	if opts.PreviewPath != "" {
		if err := nifti.WritePreview(opts.PreviewPath, vol); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Dump decodes headers and frames and writes them as human-readable text
// without running the assemble/encode path.
func Dump(w io.Writer, inputPath string) error {
	src, err := ecat.Open(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	hdr, err := ecat.DecodeMainHeader(src)
	if err != nil {
		return err
	}
	ecat.DumpMainHeader(w, hdr)

	entries, err := ecat.ReadMatrixDirectory(src)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d live matrix entries\n", len(entries))
	for i, entry := range entries {
		sub, err := ecat.DecodeFrameSubheader(src, entry)
		if err != nil {
			return err
		}
		fmt.Fprintln(w)
		ecat.DumpSubheader(w, entry.ID, sub)
		frame, err := ecat.DecodePixelBlock(src, entry, sub)
		if err != nil {
			return err
		}
		ecat.DumpFrameStats(w, frame)

		if i == 0 {
			fmt.Fprintf(w, "\nAFFINE:\n%v\n", mat.Formatted(nifti.Affine(sub), mat.Prefix(""), mat.Squeeze()))
		}
	}
	return nil
}
