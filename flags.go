package bwfs

// Fixed permission bits the mount facade reports for getattr (section 6):
// directories are always 0755, regular files always 0644. Permission
// enforcement itself is out of scope (section 1 non-goals).
const (
	DefaultDirMode  = 0755
	DefaultFileMode = 0644
)

// Inode.Flags bit 0, per section 3 of the specification.
const InodeFlagDirectory = 1 << 0

// Superblock.Flags reserved bits, per section 3. The engine never sets or
// interprets them; they exist so the wire format has a place for an
// out-of-core collaborator (optional metadata encryption, section 9) to
// record its state.
const (
	SuperblockFlagEncrypted = 1 << 0
	SuperblockFlagResizable = 1 << 1
)

// MountMode controls whether the mount facade accepts write-class
// operations. Permission bits below this (uid/gid/mode enforcement) are
// out of scope; this only distinguishes a fully read-only mount from a
// read-write one, the one ambient mount concern this filesystem needs.
type MountMode int

const (
	MountReadWrite MountMode = iota
	MountReadOnly
)
