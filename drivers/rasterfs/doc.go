/*
Package rasterfs implements the on-image filesystem engine described by the
specification: a classical Unix-style layout (superblock, allocation
bitmap, fixed-size inodes with ten direct block pointers, single-block
directories) persisted entirely as 1000x1000 monochrome raster images, one
per logical block, via github.com/blackwhitefs/bwfs/drivers/common.

This package is the engine only. It does not know about any particular
kernel-bridge collaborator; drivers/rasterfs/fusebridge adapts the
Operations table (see driver.go) to github.com/hanwen/go-fuse/v2 for callers
that want an actual mount point.
*/
package rasterfs
