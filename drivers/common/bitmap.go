package common

import (
	bitmap "github.com/boljen/go-bitmap"

	"github.com/blackwhitefs/bwfs"
)

// Bitmap is the persisted block-allocation bitmap described in section 3 of
// the specification (block 1): bit i is set iff block i is in use. Byte
// ordering within the vector is little-endian (bit i lives at byte i/8,
// mask 1<<(i%8)), which is exactly how github.com/boljen/go-bitmap lays
// its backing slice out.
type Bitmap struct {
	bits        bitmap.Bitmap
	TotalBlocks uint32
}

// NewBitmap allocates an empty bitmap for a filesystem of `totalBlocks`
// blocks, with blocks 0 (superblock) and 1 (bitmap) pre-marked in use per
// invariant 1 of the specification.
func NewBitmap(totalBlocks uint32) *Bitmap {
	bm := &Bitmap{bits: bitmap.New(int(totalBlocks)), TotalBlocks: totalBlocks}
	bm.Set(SuperblockBlockID, true)
	bm.Set(BitmapBlockID, true)
	return bm
}

// Get reports whether block `id` is marked in use.
func (bm *Bitmap) Get(id BlockID) bool {
	return bm.bits.Get(int(id))
}

// Set marks block `id` used or free. It is a pure in-memory operation; call
// Write to persist it (section 4.3: "All persistent mutations MUST go
// through an explicit write").
func (bm *Bitmap) Set(id BlockID, used bool) {
	bm.bits.Set(int(id), used)
}

func (bm *Bitmap) sizeBytes() int {
	return (int(bm.TotalBlocks) + 7) / 8
}

// Write serializes ceil(TotalBlocks/8) bytes into block 1.
func (bm *Bitmap) Write(dir string) bwfs.DriverError {
	buf := make([]byte, bm.sizeBytes())
	copy(buf, bm.bits.Data(false))
	return WriteBlock(dir, BitmapBlockID, buf, len(buf))
}

// ReadBitmap loads the persisted bitmap for a filesystem already known (via
// the superblock) to have `totalBlocks` blocks.
func ReadBitmap(dir string, totalBlocks uint32) (*Bitmap, bwfs.DriverError) {
	bm := &Bitmap{bits: bitmap.New(int(totalBlocks)), TotalBlocks: totalBlocks}
	buf := make([]byte, bm.sizeBytes())
	if err := ReadBlock(dir, BitmapBlockID, buf, len(buf)); err != nil {
		return nil, err
	}
	copy(bm.bits, buf)
	return bm, nil
}

// PopCount returns the number of blocks currently marked in use.
func (bm *Bitmap) PopCount() int {
	count := 0
	for i := uint32(0); i < bm.TotalBlocks; i++ {
		if bm.bits.Get(int(i)) {
			count++
		}
	}
	return count
}
