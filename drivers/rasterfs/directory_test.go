package rasterfs_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddLookupRemoveEntry(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, "hello.txt", 9))
	assert.EqualValues(t, 1, dirInode.BlockCount, "first entry must allocate the directory's data block")

	ino, err := rasterfs.LookupEntry(dir, &dirInode, "hello.txt")
	require.Nil(t, err)
	assert.EqualValues(t, 9, ino)

	require.Nil(t, rasterfs.RemoveEntry(dir, &dirInode, "hello.txt"))
	_, err = rasterfs.LookupEntry(dir, &dirInode, "hello.txt")
	assert.ErrorIs(t, err, bwfs.ErrNotFound)
}

func TestAddEntry_RejectsDuplicateName(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, "a", 9))
	err = rasterfs.AddEntry(dir, bm, &dirInode, "a", 10)
	assert.ErrorIs(t, err, bwfs.ErrExists)
}

func TestAddEntry_FailsWhenBlockFull(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(2000)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	for i := 0; i < bwfs.DirentsPerBlock; i++ {
		require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, fmt.Sprintf("entry%d", i), uint32(i+2)))
	}

	err = rasterfs.AddEntry(dir, bm, &dirInode, "overflow", 999)
	assert.ErrorIs(t, err, bwfs.ErrFull)
}

func TestRemoveEntry_NotFoundOnEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	err = rasterfs.RemoveEntry(dir, &dirInode, "nope")
	assert.ErrorIs(t, err, bwfs.ErrNotFound)
}

func TestListEntries_OmitsRemovedSlotsAndPreservesOrder(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, "one", 10))
	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, "two", 11))
	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, "three", 12))
	require.Nil(t, rasterfs.RemoveEntry(dir, &dirInode, "two"))

	entries, err := rasterfs.ListEntries(dir, &dirInode)
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "one", entries[0].Name)
	assert.Equal(t, "three", entries[1].Name)
}

func TestNameComparison_IgnoresBytesPastLimit(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	dirInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	long := strings.Repeat("a", bwfs.DirentNameBytes-1) + "x"
	require.Nil(t, rasterfs.AddEntry(dir, bm, &dirInode, long, 9))

	longButDifferentTail := strings.Repeat("a", bwfs.DirentNameBytes-1) + "y"
	err = rasterfs.AddEntry(dir, bm, &dirInode, longButDifferentTail, 10)
	assert.ErrorIs(t, err, bwfs.ErrExists, "names identical in their first 255 bytes must compare equal")
}
