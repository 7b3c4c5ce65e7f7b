// Package volume stacks decoded ECAT frames into one ordered 4D volume.
package volume

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/openneuropet/ecat2nii/internal/ecat"
)

var (
	ErrDuplicateFrameIndex       = errors.New("volume: duplicate frame index")
	ErrInconsistentFrameGeometry = errors.New("volume: inconsistent frame geometry")
)

// Volume is an ordered sequence of decoded frames sharing one geometry.
// Frames are ordered by ascending frame index, the canonical temporal order.
type Volume struct {
	Frames []*ecat.DecodedFrame

	// DeclaredFrames is the main header's frame count. It may exceed
	// len(Frames) when directory entries were marked deleted; the
	// discrepancy is reported by the caller, never hidden here.
	DeclaredFrames int
}

// Dimensions returns the shared (x, y, z) extents.
func (v *Volume) Dimensions() (x, y, z int) {
	s := v.Frames[0].Subheader
	return int(s.XDimension), int(s.YDimension), int(s.ZDimension)
}

// FrameCount returns the number of assembled frames.
func (v *Volume) FrameCount() int { return len(v.Frames) }

// Options controls frame decoding during assembly.
type Options struct {
	// Workers is the number of parallel frame decoders. Zero means one per
	// CPU core. Frames have no data dependency on each other; the assembler
	// is the single join point.
	Workers int
}

// Assemble decodes every directory entry's frame and stacks the results into
// one Volume. Any frame failure aborts the whole assembly: in-flight sibling
// decodes finish cheaply but their results are discarded, and no partial
// Volume is returned.
func Assemble(ctx context.Context, src *ecat.ByteSource, hdr *ecat.MainHeader, entries []ecat.MatrixDirectoryEntry, opts Options) (*Volume, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("volume: no live matrix entries to assemble")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(entries) {
		workers = len(entries)
	}

	type result struct {
		index int
		frame *ecat.DecodedFrame
		err   error
	}

	taskCh := make(chan int, len(entries))
	resultCh := make(chan result, len(entries))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range taskCh {
				if ctx.Err() != nil {
					resultCh <- result{index: i, err: ctx.Err()}
					continue
				}
				frame, err := ecat.DecodeFrame(src, entries[i])
				resultCh <- result{index: i, frame: frame, err: err}
			}
		}()
	}
	for i := range entries {
		taskCh <- i
	}
	close(taskCh)
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	frames := make([]*ecat.DecodedFrame, len(entries))
	var firstErr error
	for r := range resultCh {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		frames[r.index] = r.frame
	}
	if firstErr != nil {
		return nil, firstErr
	}

	// Directory traversal order is not frame order; re-sort by frame index.
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Entry.ID.Frame < frames[j].Entry.ID.Frame
	})

	first := frames[0].Subheader
	for i, f := range frames {
		if i > 0 && f.Entry.ID.Frame == frames[i-1].Entry.ID.Frame {
			return nil, fmt.Errorf("%w: frame index %d appears more than once",
				ErrDuplicateFrameIndex, f.Entry.ID.Frame)
		}
		s := f.Subheader
		if s.XDimension != first.XDimension || s.YDimension != first.YDimension ||
			s.ZDimension != first.ZDimension {
			return nil, fmt.Errorf("%w: frame %d is (%d,%d,%d), frame %d is (%d,%d,%d)",
				ErrInconsistentFrameGeometry,
				frames[0].Entry.ID.Frame, first.XDimension, first.YDimension, first.ZDimension,
				f.Entry.ID.Frame, s.XDimension, s.YDimension, s.ZDimension)
		}
		if s.DataType != first.DataType {
			return nil, fmt.Errorf("%w: frame %d stores %s, frame %d stores %s",
				ErrInconsistentFrameGeometry,
				frames[0].Entry.ID.Frame, first.DataType, f.Entry.ID.Frame, s.DataType)
		}
	}

	return &Volume{Frames: frames, DeclaredFrames: int(hdr.NumFrames)}, nil
}
