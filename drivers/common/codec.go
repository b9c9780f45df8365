package common

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/blackwhitefs/bwfs"
)

// RasterWidth and RasterHeight are the fixed dimensions of every block
// image, per section 3 of the specification: exactly 1,000,000 bits.
const (
	RasterWidth  = 1000
	RasterHeight = 1000
)

// BlockCapacityBits and BlockCapacityBytes give the usable payload of a
// single block.
const (
	BlockCapacityBits  = RasterWidth * RasterHeight
	BlockCapacityBytes = BlockCapacityBits / 8
)

// blockFileExt is the file extension the formatter writes and the reader
// accepts. Section 4.1's "Open Question (a)" requires picking exactly one
// encoding; this engine standardizes on grayscale PNG, never raw binary.
const blockFileExt = ".png"

// BlockPath returns the path of the backing image file for block `id`
// inside the filesystem directory `dir`.
func BlockPath(dir string, id BlockID) string {
	return filepath.Join(dir, fmt.Sprintf("block%d%s", id, blockFileExt))
}

func grayForBit(bit byte) color.Gray {
	if bit == 1 {
		return color.Gray{Y: 255}
	}
	return color.Gray{Y: 0}
}

// CreateEmptyBlock creates the raster image backing block `id`, entirely
// black (every bit zero).
func CreateEmptyBlock(dir string, id BlockID) bwfs.DriverError {
	return WriteBlock(dir, id, nil, 0)
}

// WriteBlock encodes the first `length` bytes of `buf` (length <=
// BlockCapacityBytes) into block `id`'s raster image, MSB-first, eight
// pixels per byte, row stride 1000 samples. Any payload byte beyond
// `length`, hence any pixel beyond the `length`-byte prefix, is zeroed.
func WriteBlock(dir string, id BlockID, buf []byte, length int) bwfs.DriverError {
	if length > BlockCapacityBytes || length < 0 {
		return bwfs.ErrInvalid.WithMessage(
			fmt.Sprintf("write length %d exceeds block capacity of %d bytes", length, BlockCapacityBytes))
	}

	img := image.NewGray(image.Rect(0, 0, RasterWidth, RasterHeight))
	for i := 0; i < length; i++ {
		b := buf[i]
		bitBase := i * 8
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			bit := (b >> (7 - bitIdx)) & 1
			pixelIndex := bitBase + bitIdx
			img.SetGray(pixelIndex%RasterWidth, pixelIndex/RasterWidth, grayForBit(bit))
		}
	}

	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		return bwfs.ErrIO.Wrap(fmt.Errorf("encode block %d: %w", id, err))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return bwfs.ErrIO.Wrap(fmt.Errorf("create filesystem directory: %w", err))
	}
	if err := os.WriteFile(BlockPath(dir, id), encoded.Bytes(), 0o644); err != nil {
		return bwfs.ErrIO.Wrap(fmt.Errorf("write block %d: %w", id, err))
	}
	return nil
}

// ReadBlock decodes the first `length` bytes (<= BlockCapacityBytes) of
// block `id`'s raster image into `out`, which must be at least `length`
// bytes. A sample strictly greater than the 8-bit midpoint (127) decodes
// to bit 1, otherwise bit 0.
func ReadBlock(dir string, id BlockID, out []byte, length int) bwfs.DriverError {
	if length > BlockCapacityBytes || length < 0 {
		return bwfs.ErrInvalid.WithMessage(
			fmt.Sprintf("read length %d exceeds block capacity of %d bytes", length, BlockCapacityBytes))
	}

	f, err := os.Open(BlockPath(dir, id))
	if err != nil {
		return bwfs.ErrIO.Wrap(fmt.Errorf("open block %d: %w", id, err))
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return bwfs.ErrIO.Wrap(fmt.Errorf("decode block %d: %w", id, err))
	}

	bounds := img.Bounds()
	if bounds.Dx() != RasterWidth || bounds.Dy() != RasterHeight {
		return bwfs.ErrBadDimensions.WithMessage(
			fmt.Sprintf("block %d is %dx%d, want %dx%d", id, bounds.Dx(), bounds.Dy(), RasterWidth, RasterHeight))
	}

	for i := 0; i < length; i++ {
		var b byte
		bitBase := i * 8
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			pixelIndex := bitBase + bitIdx
			x := bounds.Min.X + pixelIndex%RasterWidth
			y := bounds.Min.Y + pixelIndex/RasterWidth
			r, _, _, _ := img.At(x, y).RGBA()
			bit := byte(0)
			if byte(r>>8) > 127 {
				bit = 1
			}
			b = (b << 1) | bit
		}
		out[i] = b
	}
	return nil
}
