package rasterfs_test

import (
	"testing"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblock_EncodeDecodeRoundTrip(t *testing.T) {
	sb := rasterfs.Superblock{
		Magic:       bwfs.SuperblockMagic,
		TotalBlocks: 64,
		RootInode:   2,
		BlockSize:   uint32(bwfs.BlockBits),
		Flags:       bwfs.SuperblockFlagResizable,
	}

	buf := sb.Encode()
	require.Len(t, buf, bwfs.SuperblockRecordBytes)
	assert.Equal(t, sb, rasterfs.DecodeSuperblock(buf))
}

func TestWriteReadSuperblock_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	sb := rasterfs.Superblock{
		Magic:       bwfs.SuperblockMagic,
		TotalBlocks: 10,
		RootInode:   2,
		BlockSize:   uint32(bwfs.BlockBits),
	}

	require.Nil(t, rasterfs.WriteSuperblock(dir, &sb))

	got, err := rasterfs.ReadSuperblock(dir)
	require.Nil(t, err)
	assert.Equal(t, sb, got)
}

func TestReadSuperblock_RejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	sb := rasterfs.Superblock{Magic: 0xDEADBEEF, TotalBlocks: 10, BlockSize: uint32(bwfs.BlockBits)}
	require.Nil(t, rasterfs.WriteSuperblock(dir, &sb))

	_, err := rasterfs.ReadSuperblock(dir)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, bwfs.ErrBadMagic)
}

func TestReadSuperblock_RejectsBadBlockSize(t *testing.T) {
	dir := t.TempDir()
	sb := rasterfs.Superblock{Magic: bwfs.SuperblockMagic, TotalBlocks: 10, BlockSize: 4096}
	require.Nil(t, rasterfs.WriteSuperblock(dir, &sb))

	_, err := rasterfs.ReadSuperblock(dir)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, bwfs.ErrBadBlockSize)
}
