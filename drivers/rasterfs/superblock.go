package rasterfs

import (
	"encoding/binary"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
)

// Superblock is the fixed bwfs.SuperblockRecordBytes-byte header persisted
// in block 0, per section 3 of the specification.
type Superblock struct {
	Magic       uint32
	TotalBlocks uint32
	RootInode   uint32
	BlockSize   uint32
	Flags       uint32
}

// Encode serializes the superblock into a fresh bwfs.SuperblockRecordBytes-
// byte buffer; everything past the five documented fields is zero.
func (sb *Superblock) Encode() []byte {
	buf := make([]byte, bwfs.SuperblockRecordBytes)
	binary.LittleEndian.PutUint32(buf[0:4], sb.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], sb.TotalBlocks)
	binary.LittleEndian.PutUint32(buf[8:12], sb.RootInode)
	binary.LittleEndian.PutUint32(buf[12:16], sb.BlockSize)
	binary.LittleEndian.PutUint32(buf[16:20], sb.Flags)
	return buf
}

// DecodeSuperblock parses a bwfs.SuperblockRecordBytes-byte buffer produced
// by Encode.
func DecodeSuperblock(buf []byte) Superblock {
	return Superblock{
		Magic:       binary.LittleEndian.Uint32(buf[0:4]),
		TotalBlocks: binary.LittleEndian.Uint32(buf[4:8]),
		RootInode:   binary.LittleEndian.Uint32(buf[8:12]),
		BlockSize:   binary.LittleEndian.Uint32(buf[12:16]),
		Flags:       binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// WriteSuperblock persists `sb` to block 0.
func WriteSuperblock(dir string, sb *Superblock) bwfs.DriverError {
	return common.WriteBlock(dir, common.SuperblockBlockID, sb.Encode(), bwfs.SuperblockRecordBytes)
}

// ReadSuperblock loads and validates the superblock stored in block 0. It
// fails with ErrBadMagic or ErrBadBlockSize rather than handing back a
// Superblock a caller might trust blindly (section 4.2).
func ReadSuperblock(dir string) (Superblock, bwfs.DriverError) {
	buf := make([]byte, bwfs.SuperblockRecordBytes)
	if err := common.ReadBlock(dir, common.SuperblockBlockID, buf, len(buf)); err != nil {
		return Superblock{}, err
	}
	sb := DecodeSuperblock(buf)

	if sb.Magic != bwfs.SuperblockMagic {
		return Superblock{}, bwfs.ErrBadMagic
	}
	if sb.BlockSize != uint32(bwfs.BlockBits) {
		return Superblock{}, bwfs.ErrBadBlockSize
	}
	return sb, nil
}
