// Package bwfs implements a Unix-style filesystem whose persistent storage
// is a directory of fixed-size monochrome raster images: each logical block
// is one 1000x1000 single-bit-depth image, and every byte of user data is
// encoded as eight adjacent pixels.
package bwfs

import (
	"math"
	"os"
	"time"
)

// BlockBits is the bit capacity of a single logical block: a 1000x1000
// raster, one bit per pixel.
const BlockBits = 1_000_000

// BlockBytes is the byte capacity of a single logical block.
const BlockBytes = BlockBits / 8

// MaxDirectBlocks is the number of direct data-block pointers an inode
// carries. Indirect blocks are out of scope.
const MaxDirectBlocks = 10

// InodeRecordBytes is the on-disk size of the fixed inode header written
// into the first bytes of an inode's block.
const InodeRecordBytes = 128

// SuperblockRecordBytes is the on-disk size of the superblock header
// written into the first bytes of block 0.
const SuperblockRecordBytes = 64

// SuperblockMagic identifies a block 0 as holding a valid superblock.
const SuperblockMagic = 0x42465753

// DirentNameBytes is the fixed size of a directory entry's name field,
// including its terminating NUL.
const DirentNameBytes = 256

// DirentRecordBytes is the on-disk size of one directory slot.
const DirentRecordBytes = 4 + DirentNameBytes

// DirentsPerBlock is the number of directory slots that fit in one block.
const DirentsPerBlock = BlockBytes / DirentRecordBytes

// FileStat is a platform-independent description of a filesystem object,
// analogous to syscall.Stat_t.
type FileStat struct {
	InodeNumber  uint32
	ModeFlags    os.FileMode
	Size         int64
	BlockSize    int64
	NumBlocks    int64
	LastModified time.Time
}

func (stat *FileStat) IsDir() bool  { return stat.ModeFlags.IsDir() }
func (stat *FileStat) IsFile() bool { return stat.ModeFlags.IsRegular() }

// FSStat is a platform-independent form of syscall.Statfs_t, returned by the
// mount facade's Statfs operation (see section 6 of the specification).
type FSStat struct {
	BlockSize     int64
	TotalBlocks   uint64
	BlocksFree    uint64
	MaxNameLength int64
}

// UndefinedTimestamp is used as an invalid timestamp value, akin to nil for
// pointers. This filesystem records no timestamps, so the mount facade
// always reports FileStat.LastModified as this value.
var UndefinedTimestamp = time.UnixMicro(math.MaxInt64)

// FSFeatures describes the fixed feature set of this filesystem. Every
// instance reports the same values; the type exists so higher layers (the
// mount facade, `stat`-alike CLI glue) have a single place to query it
// instead of hard-coding constants.
type FSFeatures struct {
	HasDirectories   bool
	HasHardLinks     bool
	HasSymbolicLinks bool
	DefaultNameEncoding string
	DefaultBlockSize    int
	MaxNameLength       int
}

// Features is the single, fixed feature set this filesystem supports.
var Features = FSFeatures{
	HasDirectories:      true,
	HasHardLinks:        false,
	HasSymbolicLinks:    false,
	DefaultNameEncoding: "utf8",
	DefaultBlockSize:    BlockBytes,
	MaxNameLength:        DirentNameBytes - 1,
}
