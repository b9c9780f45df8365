package rasterfs

import (
	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/sirupsen/logrus"
)

// minFormattableBlocks is the smallest filesystem Format will build: block 0
// (superblock), block 1 (bitmap), and at least one block for the root
// directory's inode.
const minFormattableBlocks = 3

// Format lays a fresh filesystem of `totalBlocks` blocks out in `dir`: the
// superblock, an empty bitmap with the superblock/bitmap/root-inode blocks
// marked used, and an empty root directory inode. The root directory's data
// block is not allocated until its first entry (section 4.6); "." and ".."
// are synthesized by Readdir, never persisted (section 5).
func Format(dir string, totalBlocks uint32, log logrus.FieldLogger) (Superblock, bwfs.DriverError) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if totalBlocks < minFormattableBlocks {
		return Superblock{}, bwfs.ErrInvalid.WithMessage("filesystem too small to hold a superblock, bitmap, and root inode")
	}

	log.WithField("blocks", totalBlocks).Info("formatting filesystem")

	bm := common.NewBitmap(totalBlocks)

	root, err := CreateInode(dir, bm, true)
	if err != nil {
		return Superblock{}, err
	}

	sb := Superblock{
		Magic:       bwfs.SuperblockMagic,
		TotalBlocks: totalBlocks,
		RootInode:   root.Ino,
		BlockSize:   uint32(bwfs.BlockBits),
	}
	if err := WriteSuperblock(dir, &sb); err != nil {
		return Superblock{}, err
	}

	log.WithFields(logrus.Fields{"root_inode": root.Ino, "free_blocks": totalBlocks - uint32(bm.PopCount())}).
		Info("filesystem formatted")
	return sb, nil
}
