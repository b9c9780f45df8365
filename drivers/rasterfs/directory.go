package rasterfs

import (
	"bytes"
	"encoding/binary"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
)

// slotSize and slotsPerBlock mirror bwfs.DirentRecordBytes/DirentsPerBlock;
// local aliases keep the arithmetic below readable.
const (
	slotSize      = bwfs.DirentRecordBytes
	slotsPerBlock = bwfs.DirentsPerBlock
)

// dirSlot is one in-memory directory record: a 32-bit inode number (0 means
// the slot is free) and a fixed-width name field. Section 4.6's "Open
// Question (c)" resolves comparisons to the first DirentNameBytes-1 bytes of
// the field, regardless of where any NUL terminator falls; see
// direntNameEquals.
type dirSlot struct {
	Ino  uint32
	Name [bwfs.DirentNameBytes]byte
}

// DirEntry is the name/inode pair ListEntries and the path resolver hand
// back to callers; unlike dirSlot it carries a real Go string and omits
// empty slots entirely.
type DirEntry struct {
	Ino  uint32
	Name string
}

func direntNameBytes(name string) [bwfs.DirentNameBytes]byte {
	var out [bwfs.DirentNameBytes]byte
	n := len(name)
	if n > bwfs.DirentNameBytes-1 {
		n = bwfs.DirentNameBytes - 1
	}
	copy(out[:], name[:n])
	return out
}

// direntNameEquals compares only the first DirentNameBytes-1 bytes of the
// stored name field against `name`, never the terminating NUL. Two names
// that are identical for the first 255 bytes and differ only afterward thus
// compare equal: section 4.6 explicitly requires this length-limited
// comparison rather than leaving it to whatever NUL-scanning would imply.
func direntNameEquals(stored [bwfs.DirentNameBytes]byte, name string) bool {
	const limit = bwfs.DirentNameBytes - 1
	candidate := direntNameBytes(name)
	return bytes.Equal(stored[:limit], candidate[:limit])
}

func direntNameString(stored [bwfs.DirentNameBytes]byte) string {
	end := bytes.IndexByte(stored[:], 0)
	if end < 0 {
		end = len(stored)
	}
	return string(stored[:end])
}

func readDirBlock(dir string, blockID common.BlockID) ([slotsPerBlock]dirSlot, bwfs.DriverError) {
	var slots [slotsPerBlock]dirSlot
	buf := make([]byte, slotsPerBlock*slotSize)
	if err := common.ReadBlock(dir, blockID, buf, len(buf)); err != nil {
		return slots, err
	}
	for i := 0; i < slotsPerBlock; i++ {
		off := i * slotSize
		slots[i].Ino = binary.LittleEndian.Uint32(buf[off : off+4])
		copy(slots[i].Name[:], buf[off+4:off+slotSize])
	}
	return slots, nil
}

func writeDirBlock(dir string, blockID common.BlockID, slots [slotsPerBlock]dirSlot) bwfs.DriverError {
	buf := make([]byte, slotsPerBlock*slotSize)
	for i := 0; i < slotsPerBlock; i++ {
		off := i * slotSize
		binary.LittleEndian.PutUint32(buf[off:off+4], slots[i].Ino)
		copy(buf[off+4:off+slotSize], slots[i].Name[:])
	}
	return common.WriteBlock(dir, blockID, buf, len(buf))
}

// ensureDirBlock allocates and persists the single data block backing
// `dirInode` the first time an entry is added to an empty directory.
func ensureDirBlock(dir string, bm *common.Bitmap, dirInode *Inode) bwfs.DriverError {
	if dirInode.BlockCount > 0 {
		return nil
	}

	start, ok := bm.AllocateContiguous(1)
	if !ok {
		return bwfs.ErrFull
	}
	if err := common.CreateEmptyBlock(dir, start); err != nil {
		bm.FreeBlocks(start, 1)
		return err
	}
	dirInode.Blocks[0] = uint32(start)
	dirInode.BlockCount = 1
	if err := bm.Write(dir); err != nil {
		bm.FreeBlocks(start, 1)
		dirInode.BlockCount = 0
		dirInode.Blocks[0] = 0
		return err
	}
	return WriteInode(dir, dirInode)
}

// AddEntry inserts a name/inode pair into `dirInode`'s single data block,
// allocating that block on first use. It fails with ErrExists if the name
// is already present (section 4.6 invariant: names unique within a
// directory) and ErrFull if every slot is occupied.
func AddEntry(dir string, bm *common.Bitmap, dirInode *Inode, name string, childIno uint32) bwfs.DriverError {
	if err := ensureDirBlock(dir, bm, dirInode); err != nil {
		return err
	}

	blockID := common.BlockID(dirInode.Blocks[0])
	slots, err := readDirBlock(dir, blockID)
	if err != nil {
		return err
	}

	freeIdx := -1
	for i, s := range slots {
		if s.Ino == 0 {
			if freeIdx == -1 {
				freeIdx = i
			}
			continue
		}
		if direntNameEquals(s.Name, name) {
			return bwfs.ErrExists
		}
	}
	if freeIdx == -1 {
		return bwfs.ErrFull
	}

	slots[freeIdx].Ino = childIno
	slots[freeIdx].Name = direntNameBytes(name)

	if err := writeDirBlock(dir, blockID, slots); err != nil {
		return err
	}
	dirInode.Size += slotSize
	return WriteInode(dir, dirInode)
}

// RemoveEntry deletes the entry named `name` from `dirInode`. It fails with
// ErrNotFound if no such entry exists.
func RemoveEntry(dir string, dirInode *Inode, name string) bwfs.DriverError {
	if dirInode.BlockCount == 0 {
		return bwfs.ErrNotFound
	}

	blockID := common.BlockID(dirInode.Blocks[0])
	slots, err := readDirBlock(dir, blockID)
	if err != nil {
		return err
	}

	for i := range slots {
		if slots[i].Ino == 0 || !direntNameEquals(slots[i].Name, name) {
			continue
		}
		slots[i].Ino = 0
		slots[i].Name = [bwfs.DirentNameBytes]byte{}
		if err := writeDirBlock(dir, blockID, slots); err != nil {
			return err
		}
		dirInode.Size -= slotSize
		return WriteInode(dir, dirInode)
	}
	return bwfs.ErrNotFound
}

// LookupEntry returns the inode number bound to `name` within `dirInode`.
func LookupEntry(dir string, dirInode *Inode, name string) (uint32, bwfs.DriverError) {
	if dirInode.BlockCount == 0 {
		return 0, bwfs.ErrNotFound
	}

	slots, err := readDirBlock(dir, common.BlockID(dirInode.Blocks[0]))
	if err != nil {
		return 0, err
	}
	for _, s := range slots {
		if s.Ino != 0 && direntNameEquals(s.Name, name) {
			return s.Ino, nil
		}
	}
	return 0, bwfs.ErrNotFound
}

// ListEntries returns every occupied slot in `dirInode`'s data block. An
// empty (never-written) directory returns a nil slice, not an error.
func ListEntries(dir string, dirInode *Inode) ([]DirEntry, bwfs.DriverError) {
	if dirInode.BlockCount == 0 {
		return nil, nil
	}

	slots, err := readDirBlock(dir, common.BlockID(dirInode.Blocks[0]))
	if err != nil {
		return nil, err
	}

	var out []DirEntry
	for _, s := range slots {
		if s.Ino != 0 {
			out = append(out, DirEntry{Ino: s.Ino, Name: direntNameString(s.Name)})
		}
	}
	return out, nil
}
