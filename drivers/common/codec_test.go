package common_test

import (
	"bytes"
	"crypto/rand"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/stretchr/testify/require"
)

func blankPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestWriteReadBlock_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	payload := make([]byte, 4096)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	require.Nil(t, common.WriteBlock(dir, 5, payload, len(payload)))

	out := make([]byte, len(payload))
	require.Nil(t, common.ReadBlock(dir, 5, out, len(out)))
	require.True(t, bytes.Equal(payload, out))
}

func TestWriteReadBlock_TailIsZero(t *testing.T) {
	dir := t.TempDir()

	payload := []byte{0xFF, 0xAA, 0x55}
	require.Nil(t, common.WriteBlock(dir, 1, payload, len(payload)))

	out := make([]byte, 16)
	require.Nil(t, common.ReadBlock(dir, 1, out, len(out)))

	require.Equal(t, payload, out[:len(payload)])
	for _, b := range out[len(payload):] {
		require.Zero(t, b)
	}
}

func TestCreateEmptyBlock_AllZero(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, common.CreateEmptyBlock(dir, 0))

	out := make([]byte, common.BlockCapacityBytes)
	require.Nil(t, common.ReadBlock(dir, 0, out, len(out)))
	for _, b := range out {
		require.Zero(t, b)
	}
}

func TestReadBlock_RejectsWrongDimensions(t *testing.T) {
	dir := t.TempDir()
	require.Nil(t, common.CreateEmptyBlock(dir, 9))

	// Overwrite with a PNG of the wrong size.
	img := blankPNG(t, 10, 10)
	writeFile(t, common.BlockPath(dir, 9), img)

	out := make([]byte, 1)
	err := common.ReadBlock(dir, 9, out, 1)
	require.NotNil(t, err)
}
