//go:build !fuse

package main

import "errors"

func runMount(dir, mountpoint string, readOnly bool) error {
	return errors.New("mount support requires rebuilding with -tags fuse")
}
