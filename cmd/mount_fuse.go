//go:build fuse

package main

import (
	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs/fusebridge"
)

func runMount(dir, mountpoint string, readOnly bool) error {
	mode := bwfs.MountReadWrite
	if readOnly {
		mode = bwfs.MountReadOnly
	}

	drv, err := rasterfs.Mount(dir, mode, nil)
	if err != nil {
		return err
	}

	server, err := fusebridge.Mount(mountpoint, drv)
	if err != nil {
		return err
	}
	server.Wait()
	return nil
}
