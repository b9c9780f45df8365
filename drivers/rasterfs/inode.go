package rasterfs

import (
	"encoding/binary"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
)

// inodeBlocksOffset and inodeIndirectOffset are the fixed wire offsets from
// section 6 of the specification. The indirect pointer is always encoded as
// zero: indirect blocks are out of scope (section 1 non-goals), but the
// field's slot is reserved on the wire so a future engine could use it
// without shifting every other offset.
const (
	inodeBlocksOffset   = 16
	inodeIndirectOffset = 56
)

// Inode mirrors the fixed bwfs.InodeRecordBytes-byte wire record: a 32-bit
// inode number, size, block count, a one-byte flag field, and ten direct
// block pointers. One inode lives at the start of its own block (the inode
// number doubles as the block ID holding it), exactly as section 3
// describes.
type Inode struct {
	Ino        uint32
	Size       uint32
	BlockCount uint32
	Flags      uint8
	Blocks     [bwfs.MaxDirectBlocks]uint32
}

// IsDir reports whether this inode's InodeFlagDirectory bit is set.
func (in *Inode) IsDir() bool { return in.Flags&bwfs.InodeFlagDirectory != 0 }

// Encode serializes the inode into a fresh bwfs.InodeRecordBytes-byte
// buffer. Bytes past the documented fields, including the reserved region
// beyond the indirect pointer, are left zero.
func (in *Inode) Encode() []byte {
	buf := make([]byte, bwfs.InodeRecordBytes)
	binary.LittleEndian.PutUint32(buf[0:4], in.Ino)
	binary.LittleEndian.PutUint32(buf[4:8], in.Size)
	binary.LittleEndian.PutUint32(buf[8:12], in.BlockCount)
	buf[12] = in.Flags
	for i, b := range in.Blocks {
		off := inodeBlocksOffset + i*4
		binary.LittleEndian.PutUint32(buf[off:off+4], b)
	}
	return buf
}

// DecodeInode parses a bwfs.InodeRecordBytes-byte buffer produced by Encode.
func DecodeInode(buf []byte) Inode {
	var in Inode
	in.Ino = binary.LittleEndian.Uint32(buf[0:4])
	in.Size = binary.LittleEndian.Uint32(buf[4:8])
	in.BlockCount = binary.LittleEndian.Uint32(buf[8:12])
	in.Flags = buf[12]
	for i := range in.Blocks {
		off := inodeBlocksOffset + i*4
		in.Blocks[i] = binary.LittleEndian.Uint32(buf[off : off+4])
	}
	return in
}

// WriteInode persists `in` to its own block (block ID == in.Ino).
func WriteInode(dir string, in *Inode) bwfs.DriverError {
	return common.WriteBlock(dir, common.BlockID(in.Ino), in.Encode(), bwfs.InodeRecordBytes)
}

// ReadInode loads the inode stored in block `ino`.
func ReadInode(dir string, ino uint32) (Inode, bwfs.DriverError) {
	buf := make([]byte, bwfs.InodeRecordBytes)
	if err := common.ReadBlock(dir, common.BlockID(ino), buf, len(buf)); err != nil {
		return Inode{}, err
	}
	return DecodeInode(buf), nil
}

// CreateInode allocates a fresh block for a new inode, zeroes it, writes the
// inode header into it, and persists the bitmap. On any failure the
// allocation is rolled back so the bitmap reflects no partial state.
func CreateInode(dir string, bm *common.Bitmap, isDir bool) (Inode, bwfs.DriverError) {
	start, ok := bm.AllocateContiguous(1)
	if !ok {
		return Inode{}, bwfs.ErrFull
	}

	in := Inode{Ino: uint32(start)}
	if isDir {
		in.Flags |= bwfs.InodeFlagDirectory
	}

	if err := common.CreateEmptyBlock(dir, start); err != nil {
		bm.FreeBlocks(start, 1)
		return Inode{}, err
	}
	if err := WriteInode(dir, &in); err != nil {
		bm.FreeBlocks(start, 1)
		return Inode{}, err
	}
	if err := bm.Write(dir); err != nil {
		bm.FreeBlocks(start, 1)
		return Inode{}, err
	}
	return in, nil
}

// Resize grows or shrinks `in` to `newSize` bytes, allocating or freeing
// direct blocks as needed and persisting both the bitmap and the inode.
// Growth beyond bwfs.MaxDirectBlocks worth of blocks fails with ErrFull and
// leaves `in` and the bitmap entirely unchanged (section 4.5's resize is
// all-or-nothing with respect to block_count).
func Resize(dir string, bm *common.Bitmap, in *Inode, newSize uint32) bwfs.DriverError {
	req := (newSize + bwfs.BlockBytes - 1) / bwfs.BlockBytes
	if req > bwfs.MaxDirectBlocks {
		return bwfs.ErrFull
	}

	switch {
	case req > in.BlockCount:
		if err := growInode(dir, bm, in, req); err != nil {
			return err
		}
	case req < in.BlockCount:
		for i := req; i < in.BlockCount; i++ {
			bm.FreeBlocks(common.BlockID(in.Blocks[i]), 1)
			in.Blocks[i] = 0
		}
		in.BlockCount = req
	}

	in.Size = newSize
	if err := bm.Write(dir); err != nil {
		return err
	}
	return WriteInode(dir, in)
}

func growInode(dir string, bm *common.Bitmap, in *Inode, req uint32) bwfs.DriverError {
	firstNew := in.BlockCount
	allocated := make([]common.BlockID, 0, req-firstNew)

	rollback := func() {
		for _, b := range allocated {
			bm.FreeBlocks(b, 1)
		}
		for i := firstNew; i < req; i++ {
			in.Blocks[i] = 0
		}
	}

	for i := firstNew; i < req; i++ {
		start, ok := bm.AllocateContiguous(1)
		if !ok {
			rollback()
			return bwfs.ErrFull
		}
		if err := common.CreateEmptyBlock(dir, start); err != nil {
			bm.FreeBlocks(start, 1)
			rollback()
			return err
		}
		in.Blocks[i] = uint32(start)
		allocated = append(allocated, start)
	}
	in.BlockCount = req
	return nil
}
