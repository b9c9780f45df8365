package rasterfs

import (
	"os"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/sirupsen/logrus"
)

// Operations is the mount facade's operation table (section 6): the
// complete surface a kernel-bridge collaborator (see the fusebridge
// subpackage) needs to expose this filesystem through a real mount point.
type Operations interface {
	Stat(path string) (bwfs.FileStat, bwfs.DriverError)
	Statfs() bwfs.FSStat
	ReadDir(path string) ([]DirEntry, bwfs.DriverError)
	MkDir(path string) (bwfs.FileStat, bwfs.DriverError)
	Create(path string) (bwfs.FileStat, bwfs.DriverError)
	Remove(path string) bwfs.DriverError
	Rename(oldPath, newPath string) bwfs.DriverError
	ReadFile(path string, offset int64, buf []byte) (int, bwfs.DriverError)
	WriteFile(path string, offset int64, data []byte) (int, bwfs.DriverError)
	Truncate(path string, size int64) bwfs.DriverError
}

// Driver is the concrete Operations implementation: one open filesystem
// directory, its superblock, and its in-memory allocation bitmap.
type Driver struct {
	dir  string
	sb   Superblock
	bm   *common.Bitmap
	mode bwfs.MountMode
	log  logrus.FieldLogger
}

var _ Operations = (*Driver)(nil)

// Mount opens the filesystem stored in `dir`, loading and validating its
// superblock and bitmap. `mode` controls whether write-class operations are
// accepted (section 6).
func Mount(dir string, mode bwfs.MountMode, log logrus.FieldLogger) (*Driver, bwfs.DriverError) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	sb, err := ReadSuperblock(dir)
	if err != nil {
		return nil, err
	}
	bm, err := common.ReadBitmap(dir, sb.TotalBlocks)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"dir": dir, "mode": mode}).Info("mounted filesystem")
	return &Driver{dir: dir, sb: sb, bm: bm, mode: mode, log: log}, nil
}

func (d *Driver) checkWritable() bwfs.DriverError {
	if d.mode == bwfs.MountReadOnly {
		return bwfs.ErrReadOnly
	}
	return nil
}

func (d *Driver) statFromInode(in Inode) bwfs.FileStat {
	mode := os.FileMode(bwfs.DefaultFileMode)
	if in.IsDir() {
		mode = os.ModeDir | os.FileMode(bwfs.DefaultDirMode)
	}
	return bwfs.FileStat{
		InodeNumber:  in.Ino,
		ModeFlags:    mode,
		Size:         int64(in.Size),
		BlockSize:    int64(bwfs.BlockBytes),
		NumBlocks:    int64(in.BlockCount),
		LastModified: bwfs.UndefinedTimestamp,
	}
}

// Stat resolves `path` and returns its metadata.
func (d *Driver) Stat(path string) (bwfs.FileStat, bwfs.DriverError) {
	ino, err := Resolve(d.dir, d.sb.RootInode, path)
	if err != nil {
		return bwfs.FileStat{}, err
	}
	in, err := ReadInode(d.dir, ino)
	if err != nil {
		return bwfs.FileStat{}, err
	}
	return d.statFromInode(in), nil
}

// Statfs reports filesystem-wide capacity, akin to syscall.Statfs.
func (d *Driver) Statfs() bwfs.FSStat {
	return bwfs.FSStat{
		BlockSize:     int64(bwfs.BlockBytes),
		TotalBlocks:   uint64(d.sb.TotalBlocks),
		BlocksFree:    uint64(d.sb.TotalBlocks) - uint64(d.bm.PopCount()),
		MaxNameLength: int64(bwfs.Features.MaxNameLength),
	}
}

// ReadDir lists `path`'s entries, synthesizing "." and ".." the way a real
// directory's raw contents never do (section 5): those two names are never
// written to a data block, only produced here.
func (d *Driver) ReadDir(path string) ([]DirEntry, bwfs.DriverError) {
	selfIno, err := Resolve(d.dir, d.sb.RootInode, path)
	if err != nil {
		return nil, err
	}
	self, err := ReadInode(d.dir, selfIno)
	if err != nil {
		return nil, err
	}
	if !self.IsDir() {
		return nil, bwfs.ErrNotDir
	}

	entries, err := ListEntries(d.dir, &self)
	if err != nil {
		return nil, err
	}

	parentIno := d.sb.RootInode
	if selfIno != d.sb.RootInode {
		parentIno, _, err = ResolveParent(d.dir, d.sb.RootInode, path)
		if err != nil {
			return nil, err
		}
	}

	out := make([]DirEntry, 0, len(entries)+2)
	out = append(out, DirEntry{Ino: selfIno, Name: "."}, DirEntry{Ino: parentIno, Name: ".."})
	return append(out, entries...), nil
}

func (d *Driver) createEntry(path string, isDir bool) (Inode, bwfs.DriverError) {
	if err := d.checkWritable(); err != nil {
		return Inode{}, err
	}

	parentIno, name, err := ResolveParent(d.dir, d.sb.RootInode, path)
	if err != nil {
		return Inode{}, err
	}
	if len(name) > bwfs.Features.MaxNameLength {
		return Inode{}, bwfs.ErrInvalid.WithMessage("name exceeds maximum length")
	}

	parent, err := ReadInode(d.dir, parentIno)
	if err != nil {
		return Inode{}, err
	}
	if !parent.IsDir() {
		return Inode{}, bwfs.ErrNotDir
	}
	if _, lerr := LookupEntry(d.dir, &parent, name); lerr == nil {
		return Inode{}, bwfs.ErrExists
	}

	child, err := CreateInode(d.dir, d.bm, isDir)
	if err != nil {
		return Inode{}, err
	}

	if err := AddEntry(d.dir, d.bm, &parent, name, child.Ino); err != nil {
		d.bm.FreeBlocks(common.BlockID(child.Ino), 1)
		d.bm.Write(d.dir)
		return Inode{}, err
	}
	return child, nil
}

// MkDir creates an empty directory at `path`.
func (d *Driver) MkDir(path string) (bwfs.FileStat, bwfs.DriverError) {
	in, err := d.createEntry(path, true)
	if err != nil {
		return bwfs.FileStat{}, err
	}
	return d.statFromInode(in), nil
}

// Create creates an empty regular file at `path`.
func (d *Driver) Create(path string) (bwfs.FileStat, bwfs.DriverError) {
	in, err := d.createEntry(path, false)
	if err != nil {
		return bwfs.FileStat{}, err
	}
	return d.statFromInode(in), nil
}

// Remove deletes the file or empty directory at `path`, freeing its inode
// and data blocks. A non-empty directory fails with ErrNotEmpty.
func (d *Driver) Remove(path string) bwfs.DriverError {
	if err := d.checkWritable(); err != nil {
		return err
	}

	parentIno, name, err := ResolveParent(d.dir, d.sb.RootInode, path)
	if err != nil {
		return err
	}
	parent, err := ReadInode(d.dir, parentIno)
	if err != nil {
		return err
	}

	childIno, err := LookupEntry(d.dir, &parent, name)
	if err != nil {
		return err
	}
	child, err := ReadInode(d.dir, childIno)
	if err != nil {
		return err
	}

	if child.IsDir() {
		entries, err := ListEntries(d.dir, &child)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return bwfs.ErrNotEmpty
		}
	}

	for i := uint32(0); i < child.BlockCount; i++ {
		d.bm.FreeBlocks(common.BlockID(child.Blocks[i]), 1)
	}
	d.bm.FreeBlocks(common.BlockID(childIno), 1)

	if err := RemoveEntry(d.dir, &parent, name); err != nil {
		return err
	}
	return d.bm.Write(d.dir)
}

// Rename moves the entry at `oldPath` to `newPath`. Renames are restricted to
// the same parent directory; moving an entry to a different parent returns
// ErrCrossDevice rather than silently relocating it (section 6).
func (d *Driver) Rename(oldPath, newPath string) bwfs.DriverError {
	if err := d.checkWritable(); err != nil {
		return err
	}

	oldParentIno, oldName, err := ResolveParent(d.dir, d.sb.RootInode, oldPath)
	if err != nil {
		return err
	}
	oldParent, err := ReadInode(d.dir, oldParentIno)
	if err != nil {
		return err
	}

	childIno, err := LookupEntry(d.dir, &oldParent, oldName)
	if err != nil {
		return err
	}

	newParentIno, newName, err := ResolveParent(d.dir, d.sb.RootInode, newPath)
	if err != nil {
		return err
	}
	if newParentIno != oldParentIno {
		return bwfs.ErrCrossDevice
	}

	if err := AddEntry(d.dir, d.bm, &oldParent, newName, childIno); err != nil {
		return err
	}
	return RemoveEntry(d.dir, &oldParent, oldName)
}

// ReadFile reads into `buf` starting at byte `offset`, stopping at the
// file's size, and returns the number of bytes read.
func (d *Driver) ReadFile(path string, offset int64, buf []byte) (int, bwfs.DriverError) {
	ino, err := Resolve(d.dir, d.sb.RootInode, path)
	if err != nil {
		return 0, err
	}
	in, err := ReadInode(d.dir, ino)
	if err != nil {
		return 0, err
	}
	if in.IsDir() {
		return 0, bwfs.ErrIsDir
	}

	if offset >= int64(in.Size) || len(buf) == 0 {
		return 0, nil
	}
	end := offset + int64(len(buf))
	if end > int64(in.Size) {
		end = int64(in.Size)
	}

	blockBytes := int64(bwfs.BlockBytes)
	n := 0
	full := make([]byte, bwfs.BlockBytes)
	for pos := offset; pos < end; {
		blockIdx := pos / blockBytes
		if blockIdx >= int64(in.BlockCount) {
			break
		}
		inBlock := pos % blockBytes
		chunk := blockBytes - inBlock
		if remain := end - pos; chunk > remain {
			chunk = remain
		}

		if err := common.ReadBlock(d.dir, common.BlockID(in.Blocks[blockIdx]), full, len(full)); err != nil {
			return n, err
		}
		copy(buf[n:], full[inBlock:inBlock+chunk])
		n += int(chunk)
		pos += chunk
	}
	return n, nil
}

// WriteFile writes `data` at byte `offset`, growing the file (and
// allocating blocks) as needed, and returns the number of bytes written.
func (d *Driver) WriteFile(path string, offset int64, data []byte) (int, bwfs.DriverError) {
	if err := d.checkWritable(); err != nil {
		return 0, err
	}

	ino, err := Resolve(d.dir, d.sb.RootInode, path)
	if err != nil {
		return 0, err
	}
	in, err := ReadInode(d.dir, ino)
	if err != nil {
		return 0, err
	}
	if in.IsDir() {
		return 0, bwfs.ErrIsDir
	}

	blockBytes := int64(bwfs.BlockBytes)
	newEnd := offset + int64(len(data))
	if newEnd > int64(bwfs.MaxDirectBlocks)*blockBytes {
		return 0, bwfs.ErrFull
	}
	if newEnd > int64(in.Size) {
		if err := Resize(d.dir, d.bm, &in, uint32(newEnd)); err != nil {
			return 0, err
		}
	}

	n := 0
	full := make([]byte, bwfs.BlockBytes)
	for pos := offset; pos < newEnd; {
		blockIdx := pos / blockBytes
		inBlock := pos % blockBytes
		chunk := blockBytes - inBlock
		if remain := newEnd - pos; chunk > remain {
			chunk = remain
		}

		if err := common.ReadBlock(d.dir, common.BlockID(in.Blocks[blockIdx]), full, len(full)); err != nil {
			return n, err
		}
		copy(full[inBlock:inBlock+chunk], data[n:int64(n)+chunk])
		if err := common.WriteBlock(d.dir, common.BlockID(in.Blocks[blockIdx]), full, len(full)); err != nil {
			return n, err
		}
		n += int(chunk)
		pos += chunk
	}
	return n, nil
}

// Truncate grows or shrinks the file at `path` to exactly `size` bytes.
func (d *Driver) Truncate(path string, size int64) bwfs.DriverError {
	if err := d.checkWritable(); err != nil {
		return err
	}
	if size < 0 || size > int64(bwfs.MaxDirectBlocks)*int64(bwfs.BlockBytes) {
		return bwfs.ErrInvalid
	}

	ino, err := Resolve(d.dir, d.sb.RootInode, path)
	if err != nil {
		return err
	}
	in, err := ReadInode(d.dir, ino)
	if err != nil {
		return err
	}
	if in.IsDir() {
		return bwfs.ErrIsDir
	}
	return Resize(d.dir, d.bm, &in, uint32(size))
}
