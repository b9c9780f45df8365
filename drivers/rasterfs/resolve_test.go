package rasterfs_test

import (
	"testing"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree creates dir/sub/file.txt and returns the root, sub, and file
// inode numbers.
func buildTree(t *testing.T, dir string, bm *common.Bitmap) (root, sub, file uint32) {
	t.Helper()

	rootInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)

	subInode, err := rasterfs.CreateInode(dir, bm, true)
	require.Nil(t, err)
	require.Nil(t, rasterfs.AddEntry(dir, bm, &rootInode, "sub", subInode.Ino))

	fileInode, err := rasterfs.CreateInode(dir, bm, false)
	require.Nil(t, err)
	require.Nil(t, rasterfs.AddEntry(dir, bm, &subInode, "file.txt", fileInode.Ino))

	return rootInode.Ino, subInode.Ino, fileInode.Ino
}

func TestResolve_WalksNestedPath(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	root, sub, file := buildTree(t, dir, bm)

	got, err := rasterfs.Resolve(dir, root, "/sub/file.txt")
	require.Nil(t, err)
	assert.EqualValues(t, file, got)

	got, err = rasterfs.Resolve(dir, root, "/sub")
	require.Nil(t, err)
	assert.EqualValues(t, sub, got)

	got, err = rasterfs.Resolve(dir, root, "/")
	require.Nil(t, err)
	assert.EqualValues(t, root, got)
}

func TestResolve_NotFoundOnMissingComponent(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	root, _, _ := buildTree(t, dir, bm)

	_, err := rasterfs.Resolve(dir, root, "/sub/missing.txt")
	assert.ErrorIs(t, err, bwfs.ErrNotFound)
}

func TestResolve_NotDirWhenTraversingThroughAFile(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	root, _, _ := buildTree(t, dir, bm)

	_, err := rasterfs.Resolve(dir, root, "/sub/file.txt/nope")
	assert.ErrorIs(t, err, bwfs.ErrNotDir)
}

func TestResolveParent_SplitsOffFinalComponent(t *testing.T) {
	dir := t.TempDir()
	bm := common.NewBitmap(20)
	root, sub, _ := buildTree(t, dir, bm)

	parent, name, err := rasterfs.ResolveParent(dir, root, "/sub/file.txt")
	require.Nil(t, err)
	assert.EqualValues(t, sub, parent)
	assert.Equal(t, "file.txt", name)

	parent, name, err = rasterfs.ResolveParent(dir, root, "/sub")
	require.Nil(t, err)
	assert.EqualValues(t, root, parent)
	assert.Equal(t, "sub", name)
}
