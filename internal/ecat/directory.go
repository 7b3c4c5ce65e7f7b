package ecat

// The matrix directory is a linked chain of 512-byte blocks beginning at
// block 2 (byte offset 512). Each block holds 32 four-word int32 rows: row 0
// is bookkeeping [nfree, next, prev, nused]; rows 1..31 describe one stored
// matrix each as [matnum, startBlock, endBlock, status]. Block numbers are
// 1-based; the chain terminates when the next pointer is <= the first
// directory block.

const (
	firstDirectoryBlock = 2
	entriesPerBlock     = 31
	wordsPerEntry       = 4
)

// Matrix status codes as stored in the directory.
const (
	matrixStatusUnused  = 0
	matrixStatusExists  = 1
	matrixStatusDeleted = -1
)

// MatrixID is the decoded matnum word, identifying one stored matrix by its
// acquisition coordinates. The bit layout follows the CTI mat_numcod macro.
type MatrixID struct {
	Frame int
	Plane int
	Gate  int
	Data  int
	Bed   int
}

func decodeMatrixID(matnum int32) MatrixID {
	m := uint32(matnum)
	return MatrixID{
		Frame: int(m & 0x1FF),
		Plane: int((m>>16)&0xFF) | int((m>>9)&0x7)<<8,
		Gate:  int((m >> 24) & 0x3F),
		Data:  int((m >> 30) & 0x3),
		Bed:   int((m >> 12) & 0xF),
	}
}

// MatrixDirectoryEntry locates one stored matrix: the byte offset of its
// subheader block and the total byte length of subheader plus pixel data.
type MatrixDirectoryEntry struct {
	ID     MatrixID
	Offset int64 // subheader position
	Length int64 // subheader + pixel blocks
	Status int32
}

// DataOffset is the position of the raw pixel block, immediately after the
// one-block subheader.
func (e MatrixDirectoryEntry) DataOffset() int64 { return e.Offset + BlockSize }

// ReadMatrixDirectory walks the directory chain and returns every live
// matrix entry in traversal order, which is not necessarily frame order.
// Entries flagged unused or deleted are dropped, not decoded.
func ReadMatrixDirectory(src *ByteSource) ([]MatrixDirectoryEntry, error) {
	var entries []MatrixDirectoryEntry
	visited := map[int32]bool{}
	blockNo := int32(firstDirectoryBlock)
	for {
		if visited[blockNo] {
			return nil, decodeErr(ErrCorruptDirectory, "matrix directory", blockOffset(blockNo),
				"directory chain revisits block %d", blockNo)
		}
		visited[blockNo] = true

		off := blockOffset(blockNo)
		if off < 0 || off+BlockSize > src.Size() {
			return nil, decodeErr(ErrCorruptDirectory, "matrix directory", off,
				"directory block %d lies outside the file", blockNo)
		}
		blk, err := src.Block(off)
		if err != nil {
			return nil, err
		}

		next := blk.int32(4)
		nused := blk.int32(12)
		if nused < 0 || nused > entriesPerBlock {
			return nil, decodeErr(ErrCorruptDirectory, "matrix directory", off+12,
				"directory block %d claims %d entries (max %d)", blockNo, nused, entriesPerBlock)
		}

		for i := 1; i <= int(nused); i++ {
			base := i * wordsPerEntry * 4
			entry := MatrixDirectoryEntry{
				ID:     decodeMatrixID(blk.int32(base)),
				Status: blk.int32(base + 12),
			}
			start := blk.int32(base + 4)
			end := blk.int32(base + 8)
			if entry.Status != matrixStatusExists {
				continue
			}
			if start < 1 || end < start {
				return nil, decodeErr(ErrCorruptDirectory, "matrix directory", off+int64(base),
					"matrix blocks %d..%d are not a valid range", start, end)
			}
			entry.Offset = blockOffset(start)
			entry.Length = int64(end-start+1) * BlockSize
			if entry.Offset+entry.Length > src.Size() {
				return nil, decodeErr(ErrCorruptDirectory, "matrix directory", off+int64(base),
					"matrix at blocks %d..%d extends past end of file", start, end)
			}
			entries = append(entries, entry)
		}

		if next <= firstDirectoryBlock {
			return entries, nil
		}
		blockNo = next
	}
}

// blockOffset converts a 1-based ECAT block number to a byte offset.
func blockOffset(blockNo int32) int64 {
	return int64(blockNo-1) * BlockSize
}
