//go:build fuse

// Package fusebridge adapts a rasterfs.Operations table to a real mount
// point via github.com/hanwen/go-fuse/v2/fs. It is isolated behind the
// "fuse" build tag the same way KarpelesLab/squashfs keeps its own FUSE
// glue (inode_fuse.go) out of the default build: this package, and its
// cgo-adjacent dependency, simply never compile unless a caller opts in.
package fusebridge

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/rasterfs"
)

// Node is one fs.Inode backed by a path into a mounted rasterfs.Operations
// table. This filesystem has no raw handle below the mount facade, so
// unlike a block-cached driver a Node carries only the path it represents
// and re-resolves through Operations on every call.
type Node struct {
	fs.Inode
	ops  rasterfs.Operations
	path string
}

var (
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRmdirer   = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
)

// Root returns the fs.InodeEmbedder fs.Mount should use as the filesystem
// root for `ops`.
func Root(ops rasterfs.Operations) fs.InodeEmbedder {
	return &Node{ops: ops, path: "/"}
}

// Mount starts serving `ops` at `mountpoint`. Callers unmount by calling
// Unmount on the returned server; server.Wait() blocks until it is unmounted.
func Mount(mountpoint string, ops rasterfs.Operations) (*fuse.Server, error) {
	return fs.Mount(mountpoint, Root(ops), &fs.Options{})
}

func joinPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func errnoFrom(err bwfs.DriverError) syscall.Errno {
	if err == nil {
		return 0
	}
	return err.Errno()
}

func fillAttr(out *fuse.Attr, stat bwfs.FileStat) {
	out.Ino = uint64(stat.InodeNumber)
	out.Size = uint64(stat.Size)
	out.Blksize = uint32(stat.BlockSize)
	out.Mode = uint32(stat.ModeFlags.Perm())
	if stat.IsDir() {
		out.Mode |= syscall.S_IFDIR
	} else {
		out.Mode |= syscall.S_IFREG
	}
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	stat, err := n.ops.Stat(n.path)
	if err != nil {
		return errnoFrom(err)
	}
	fillAttr(&out.Attr, stat)
	return 0
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := joinPath(n.path, name)
	stat, err := n.ops.Stat(childPath)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fillAttr(&out.Attr, stat)

	mode := uint32(syscall.S_IFREG)
	if stat.IsDir() {
		mode = syscall.S_IFDIR
	}
	child := &Node{ops: n.ops, path: childPath}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: mode, Ino: uint64(stat.InodeNumber)}), 0
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.ops.ReadDir(n.path)
	if err != nil {
		return nil, errnoFrom(err)
	}

	list := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			list = append(list, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino), Mode: syscall.S_IFDIR})
			continue
		}
		mode := uint32(syscall.S_IFREG)
		if childStat, serr := n.ops.Stat(joinPath(n.path, e.Name)); serr == nil && childStat.IsDir() {
			mode = syscall.S_IFDIR
		}
		list = append(list, fuse.DirEntry{Name: e.Name, Ino: uint64(e.Ino), Mode: mode})
	}
	return fs.NewListDirStream(list), 0
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	nRead, err := n.ops.ReadFile(n.path, off, dest)
	if err != nil {
		return nil, errnoFrom(err)
	}
	return fuse.ReadResultData(dest[:nRead]), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	nWritten, err := n.ops.WriteFile(n.path, off, data)
	if err != nil {
		return 0, errnoFrom(err)
	}
	return uint32(nWritten), 0
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	childPath := joinPath(n.path, name)
	stat, err := n.ops.Create(childPath)
	if err != nil {
		return nil, nil, 0, errnoFrom(err)
	}
	fillAttr(&out.Attr, stat)
	child := &Node{ops: n.ops, path: childPath}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG, Ino: uint64(stat.InodeNumber)})
	return inode, nil, 0, 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	childPath := joinPath(n.path, name)
	stat, err := n.ops.MkDir(childPath)
	if err != nil {
		return nil, errnoFrom(err)
	}
	fillAttr(&out.Attr, stat)
	child := &Node{ops: n.ops, path: childPath}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR, Ino: uint64(stat.InodeNumber)}), 0
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return errnoFrom(n.ops.Remove(joinPath(n.path, name)))
}

func (n *Node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return errnoFrom(n.ops.Remove(joinPath(n.path, name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	newNode, ok := newParent.(*Node)
	if !ok {
		return syscall.EXDEV
	}
	return errnoFrom(n.ops.Rename(joinPath(n.path, name), joinPath(newNode.path, newName)))
}

func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if err := n.ops.Truncate(n.path, int64(size)); err != nil {
			return errnoFrom(err)
		}
	}
	stat, err := n.ops.Stat(n.path)
	if err != nil {
		return errnoFrom(err)
	}
	fillAttr(&out.Attr, stat)
	return 0
}
