package rasterfs

import (
	"fmt"

	"github.com/blackwhitefs/bwfs"
	"github.com/blackwhitefs/bwfs/drivers/common"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// maxCheckDepth bounds the directory-tree walk Check performs, per section
// 4.9: a filesystem whose directory graph nests deeper than this is
// reported dirty rather than risking an unbounded (or, on a corrupt cyclic
// tree, infinite) recursion.
const maxCheckDepth = 100

// CheckStatus classifies the outcome of a consistency check.
type CheckStatus int

const (
	CheckClean CheckStatus = iota
	CheckRepaired
	CheckDirty
)

func (s CheckStatus) String() string {
	switch s {
	case CheckClean:
		return "clean"
	case CheckRepaired:
		return "repaired"
	case CheckDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// CheckReport is the result of walking a filesystem's directory tree and
// running every reconciliation pass in section 4.9 against the persisted
// bitmap and inode records.
type CheckReport struct {
	Status      CheckStatus
	TotalBlocks uint32
	Reachable   int
	Repaired    []string
	// Orphans lists blocks holding a self-consistent inode (its own
	// ino field matches the block it lives in) that the walk never
	// reached from the root. These are reported, never auto-relocated.
	Orphans []string
	// Warnings lists non-fatal issues, currently only directory size
	// fields that disagree with their observed occupied-slot count.
	Warnings []string
	Errors   *multierror.Error
}

type checker struct {
	dir       string
	sb        Superblock
	bm        *common.Bitmap
	observed  *common.Bitmap
	reachable map[uint32]bool
	repair    bool

	bitmapMismatch bool
	inodeIssue     bool
	fatal          bool

	orphans  []string
	warnings []string
	repaired []string

	log  logrus.FieldLogger
	errs *multierror.Error
}

// Check reads the superblock and bitmap, then performs a depth-bounded
// depth-first walk of the directory tree starting at the root inode (section
// 4.9), reconciling the persisted bitmap and every visited inode against
// what the walk actually observes. Dangling directory entries, unreadable
// inodes, and depth-cap violations are fatal and always yield CheckDirty.
// Inode self-number mismatches, block_count mismatches, and oversized file
// lengths are each individually corrected when repair is true. Bitmap
// disagreements are corrected by rewriting the whole bitmap from the walk's
// observations, which happens only when repair is true and no fatal issue
// or orphan was found. An orphaned inode (self-consistent but unreachable)
// is only ever reported, never relocated, so its presence always leaves the
// filesystem CheckDirty.
func Check(dir string, repair bool, log logrus.FieldLogger) (*CheckReport, bwfs.DriverError) {
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

	c := &checker{
		dir:       dir,
		sb:        sb,
		bm:        bm,
		observed:  common.NewBitmap(sb.TotalBlocks),
		reachable: make(map[uint32]bool),
		repair:    repair,
		log:       log,
		errs:      &multierror.Error{},
	}

	c.walk(sb.RootInode, 0)
	c.reconcileBitmap()

	report := &CheckReport{
		TotalBlocks: sb.TotalBlocks,
		Reachable:   len(c.reachable),
		Orphans:     c.orphans,
		Warnings:    c.warnings,
		Repaired:    c.repaired,
		Errors:      c.errs,
	}

	switch {
	case !c.fatal && !c.bitmapMismatch && !c.inodeIssue && len(c.orphans) == 0:
		report.Status = CheckClean
	case !c.fatal && len(c.orphans) == 0 && repair:
		if werr := c.observed.Write(dir); werr != nil {
			return nil, werr
		}
		report.Repaired = append(report.Repaired, "rewrote allocation bitmap to match the reachability walk")
		report.Status = CheckRepaired
	default:
		report.Status = CheckDirty
	}
	return report, nil
}

func (c *checker) walk(ino uint32, depth int) {
	if depth > maxCheckDepth {
		c.errs = multierror.Append(c.errs, fmt.Errorf("inode %d: directory tree exceeds max depth %d", ino, maxCheckDepth))
		c.fatal = true
		return
	}
	if c.reachable[ino] {
		return
	}
	c.reachable[ino] = true
	c.observed.Set(common.BlockID(ino), true)

	in, err := ReadInode(c.dir, ino)
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("inode %d: %w", ino, err))
		c.fatal = true
		return
	}

	if depth == 0 && !in.IsDir() {
		c.errs = multierror.Append(c.errs, fmt.Errorf("inode %d: root inode is not a directory", ino))
		c.fatal = true
		return
	}

	dirty := c.reconcileInode(ino, &in)

	for i := uint32(0); i < in.BlockCount; i++ {
		c.observed.Set(common.BlockID(in.Blocks[i]), true)
	}

	if in.IsDir() {
		c.walkDirectory(ino, &in, depth)
	}

	if dirty && c.repair {
		if err := WriteInode(c.dir, &in); err != nil {
			c.errs = multierror.Append(c.errs, fmt.Errorf("inode %d: failed to persist repair: %w", ino, err))
			c.fatal = true
		}
	}
}

// reconcileInode runs the per-inode reconciliation passes from section 4.9
// that do not depend on the directory graph: self-number mismatch,
// block_count mismatch, and (for files) an oversized length. It reports
// `in` as dirty - i.e. in need of a WriteInode - whenever repair actually
// changed a field.
func (c *checker) reconcileInode(ino uint32, in *Inode) bool {
	dirty := false

	if in.Ino != ino {
		c.inodeIssue = true
		c.errs = multierror.Append(c.errs, fmt.Errorf("inode %d: self-number mismatch, record claims ino=%d", ino, in.Ino))
		if c.repair {
			in.Ino = ino
			c.repaired = append(c.repaired, fmt.Sprintf("inode %d: corrected self-number", ino))
			dirty = true
		}
	}

	if observed := observedBlockCountPrefix(in); observed != in.BlockCount {
		c.inodeIssue = true
		c.errs = multierror.Append(c.errs, fmt.Errorf(
			"inode %d: block_count %d disagrees with observed prefix length %d", ino, in.BlockCount, observed))
		if c.repair {
			in.BlockCount = observed
			c.repaired = append(c.repaired, fmt.Sprintf("inode %d: corrected block_count to %d", ino, observed))
			dirty = true
		}
	}

	if !in.IsDir() {
		maxSize := in.BlockCount * bwfs.BlockBytes
		if in.Size > maxSize {
			c.inodeIssue = true
			c.errs = multierror.Append(c.errs, fmt.Errorf(
				"inode %d: size %d exceeds block_count*%d = %d", ino, in.Size, bwfs.BlockBytes, maxSize))
			if c.repair {
				in.Size = maxSize
				c.repaired = append(c.repaired, fmt.Sprintf("inode %d: clamped size to %d", ino, maxSize))
				dirty = true
			}
		}
	}

	return dirty
}

// observedBlockCountPrefix returns the length of the leading run of
// non-zero entries in in.Blocks, the definition section 4.9 gives for the
// block_count a self-consistent inode should carry.
func observedBlockCountPrefix(in *Inode) uint32 {
	var n uint32
	for n < uint32(len(in.Blocks)) && in.Blocks[n] != 0 {
		n++
	}
	return n
}

func (c *checker) walkDirectory(ino uint32, in *Inode, depth int) {
	entries, err := ListEntries(c.dir, in)
	if err != nil {
		c.errs = multierror.Append(c.errs, fmt.Errorf("directory inode %d: %w", ino, err))
		c.fatal = true
		return
	}

	if expected := uint32(len(entries)) * slotSize; in.Size%slotSize != 0 || in.Size != expected {
		c.warnings = append(c.warnings, fmt.Sprintf(
			"directory inode %d: size %d inconsistent with %d occupied entries", ino, in.Size, len(entries)))
		c.log.WithFields(logrus.Fields{"inode": ino, "size": in.Size, "entries": len(entries)}).
			Warn("directory size disagrees with occupied entry count")
	}

	for _, e := range entries {
		if e.Ino == 0 || e.Ino >= c.sb.TotalBlocks {
			c.errs = multierror.Append(c.errs, fmt.Errorf("directory inode %d: entry %q references invalid inode %d", ino, e.Name, e.Ino))
			c.fatal = true
			continue
		}
		c.walk(e.Ino, depth+1)
	}
}

// reconcileBitmap compares the persisted bitmap against what the walk
// actually observed, block by block. A bit set in the persisted bitmap but
// never observed is either an orphaned inode (self-consistent, just
// unreached from root - reported, never auto-relocated) or a candidate
// leak (optionally cleared). A bit clear in the persisted bitmap but
// observed in use is a cross-link / under-allocation (optionally set).
func (c *checker) reconcileBitmap() {
	for i := common.BlockID(0); i < common.BlockID(c.sb.TotalBlocks); i++ {
		used := c.bm.Get(i)
		seen := c.observed.Get(i)
		if used == seen {
			continue
		}

		if used && !seen {
			if c.isOrphanedInode(i) {
				c.orphans = append(c.orphans, fmt.Sprintf("block %d", i))
				c.observed.Set(i, true)
				c.errs = multierror.Append(c.errs, fmt.Errorf("block %d: orphaned inode, not reachable from root", i))
				continue
			}
			c.bitmapMismatch = true
			c.errs = multierror.Append(c.errs, fmt.Errorf("block %d: candidate leak (bitmap marks used, walk found nothing)", i))
			c.log.WithField("block", i).Warn("candidate block leak")
			continue
		}

		label := "cross-link / under-allocation"
		if i == common.SuperblockBlockID || i == common.BitmapBlockID {
			label = "reserved superblock/bitmap bit unset"
		}
		c.bitmapMismatch = true
		c.errs = multierror.Append(c.errs, fmt.Errorf("block %d: %s (bitmap marks free, walk found it in use)", i, label))
		c.log.WithFields(logrus.Fields{"block": i, "kind": label}).Warn("allocation bitmap disagrees with reachability walk")
	}
}

// isOrphanedInode reports whether block `id` holds a self-consistent inode
// record (its own ino field equals the block it lives in), the signature
// section 4.9 uses to tell an orphaned inode apart from a plain leak.
func (c *checker) isOrphanedInode(id common.BlockID) bool {
	in, err := ReadInode(c.dir, uint32(id))
	if err != nil {
		return false
	}
	return in.Ino == uint32(id)
}
