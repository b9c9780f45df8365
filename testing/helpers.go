// Package testing holds shared fixtures for tests across the module. It is
// not itself a _test.go file so that more than one package's tests can
// import it, the same role the teacher's own testing package plays.
package testing

import (
	"crypto/rand"
	"testing"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
	"github.com/stretchr/testify/require"
)

// RandomPayload returns `n` random bytes, failing the test immediately if
// the system RNG is unavailable.
func RandomPayload(t *testing.T, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := rand.Read(buf)
	require.NoError(t, err)
	return buf
}

// NewFormattedFS formats a fresh filesystem of `totalBlocks` blocks in a
// fresh temporary directory and mounts it read-write, failing the test on
// any error. It is the one-line fixture most operation-level tests start
// from, analogous to the teacher's CreateDefaultCache.
func NewFormattedFS(t *testing.T, totalBlocks uint32) (*rasterfs.Driver, string) {
	t.Helper()
	dir := t.TempDir()

	_, err := rasterfs.Format(dir, totalBlocks, nil)
	require.Nil(t, err)

	drv, err := rasterfs.Mount(dir, bwfs.MountReadWrite, nil)
	require.Nil(t, err)
	return drv, dir
}
