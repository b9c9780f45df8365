package rasterfs

import (
	"strings"

	"github.com/blackwhitefs/bwfs"
)

// splitPath tokenizes a '/'-separated path into its non-empty, non-"."
// components, per section 4.7. There are no symbolic links in this
// filesystem (bwfs.Features.HasSymbolicLinks is false), so unlike the
// teacher's basedriver resolver there is no follow/no-follow distinction
// and no loop guard to apply here.
func splitPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if part != "" && part != "." {
			out = append(out, part)
		}
	}
	return out
}

// Resolve walks `path` component by component starting at `rootIno` and
// returns the inode number of the final component. It fails with
// ErrNotDir if a non-leaf component names a regular file, and ErrNotFound
// if any component is missing.
func Resolve(dir string, rootIno uint32, path string) (uint32, bwfs.DriverError) {
	current := rootIno
	for _, name := range splitPath(path) {
		in, err := ReadInode(dir, current)
		if err != nil {
			return 0, err
		}
		if !in.IsDir() {
			return 0, bwfs.ErrNotDir
		}
		child, err := LookupEntry(dir, &in, name)
		if err != nil {
			return 0, err
		}
		current = child
	}
	return current, nil
}

// ResolveParent walks every component of `path` except the last and returns
// the parent directory's inode number together with the final component's
// name, for operations (create, unlink, rename) that need to mutate a
// directory entry rather than follow it.
func ResolveParent(dir string, rootIno uint32, path string) (uint32, string, bwfs.DriverError) {
	components := splitPath(path)
	if len(components) == 0 {
		return 0, "", bwfs.ErrInvalid.WithMessage("path names no resolvable entry")
	}

	parentPath := strings.Join(components[:len(components)-1], "/")
	parent, err := Resolve(dir, rootIno, parentPath)
	if err != nil {
		return 0, "", err
	}
	return parent, components[len(components)-1], nil
}
