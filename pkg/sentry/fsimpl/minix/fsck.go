package minix

import (
	"encoding/binary"
	"fmt"
)

// CheckReport summarizes one Check pass over a volume: occupancy counts
// plus every consistency finding, the data cmd/ir0's fsck subcommand
// prints (spec.md's ambient CLI section names "fsck" as an offline MINIX
// consistency check, not a repair tool).
type CheckReport struct {
	InodesTotal uint32
	InodesFree  uint32
	ZonesTotal  uint32
	ZonesFree   uint32
	Errors      []string
}

// Clean reports whether Check found no inconsistencies.
func (r CheckReport) Clean() bool { return len(r.Errors) == 0 }

// Check walks the directory tree from the root inode, cross-checking
// every reachable inode and zone against the bitmaps, then cross-checks
// the other direction: every bit the bitmaps mark allocated must have
// been reached by the walk. It is read-only — Check reports findings, it
// never repairs them — and assumes exclusive access to fs for the
// duration, the same offline assumption spec.md places on fsck.
func (fs *Filesystem) Check() (CheckReport, error) {
	report := CheckReport{
		InodesTotal: fs.sb.NInodes,
		ZonesTotal:  fs.sb.NZones - fs.sb.FirstDataZone,
	}
	for i := 0; i < fs.im.Len(); i++ {
		if fs.im.Test(i) {
			report.InodesFree++
		}
	}
	for i := 0; i < fs.zm.Len(); i++ {
		if fs.zm.Test(i) {
			report.ZonesFree++
		}
	}

	seenInodes := make(map[uint32]bool)
	seenZones := make(map[uint32]bool)

	var walk func(num uint32, wantDir bool)
	walk = func(num uint32, wantDir bool) {
		if seenInodes[num] {
			return
		}
		seenInodes[num] = true

		if num == 0 || num > fs.sb.NInodes {
			report.Errors = append(report.Errors, fmt.Sprintf("directory entry points at out-of-range inode %d", num))
			return
		}
		ino, err := fs.ReadInode(num)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: unreadable: %v", num, err))
			return
		}
		// An empty regular file owns no zones, so only a zero link count or
		// a directory without its entry zone marks an inode as freed.
		if ino.NLinks == 0 || (ino.Type() == ModeDirectory && ino.Free()) {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: reachable from the tree but looks freed", num))
			return
		}
		if fs.im.Test(int(num - 1)) {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: reachable but bitmap marks it free", num))
		}
		if wantDir && ino.Type() != ModeDirectory {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: expected directory, mode is %#x", num, ino.Mode))
			return
		}

		nblocks := (int(ino.Size) + BlockSize - 1) / BlockSize
		for b := 0; b < nblocks; b++ {
			zone, err := fs.BlockForOffset(&ino, int64(b)*BlockSize, false)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("inode %d: block %d: %v", num, b, err))
				continue
			}
			if zone == 0 {
				continue // sparse hole, not an error
			}
			fs.checkZone(&report, seenZones, num, zone)
		}
		fs.checkIndirectZones(&report, seenZones, num, ino)

		if ino.Type() != ModeDirectory {
			return
		}
		entries, err := fs.Readdir(ino)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: readdir: %v", num, err))
			return
		}
		for _, e := range entries {
			name := e.name()
			if name == "." || name == ".." {
				continue
			}
			child := uint32(e.Inode)
			wantChildDir := false
			if childIno, err := fs.ReadInode(child); err == nil {
				wantChildDir = childIno.Type() == ModeDirectory
			}
			walk(child, wantChildDir)
		}
	}

	walk(RootInodeNum, true)

	for i := 0; i < int(fs.sb.NInodes); i++ {
		n := uint32(i + 1)
		if !fs.im.Test(i) && !seenInodes[n] {
			report.Errors = append(report.Errors, fmt.Sprintf("inode %d: allocated but unreachable from the root", n))
		}
	}
	for i := 0; i < fs.zm.Len(); i++ {
		z := fs.sb.FirstDataZone + uint32(i)
		if !fs.zm.Test(i) && !seenZones[z] {
			report.Errors = append(report.Errors, fmt.Sprintf("zone %d: allocated but unreferenced by any reachable inode", z))
		}
	}

	return report, nil
}

// checkIndirectZones marks ino's single- and double-indirect blocks
// themselves (not just the data zones they point at, already covered by
// BlockForOffset in the caller's loop) as reached, so legitimately
// allocated indirect blocks aren't reported as leaked zones.
func (fs *Filesystem) checkIndirectZones(report *CheckReport, seen map[uint32]bool, owner uint32, ino DiskInode) {
	single := uint32(ino.Zone[DirectZones])
	if single != 0 {
		fs.checkZone(report, seen, owner, single)
	}
	double := uint32(ino.Zone[DirectZones+1])
	if double == 0 {
		return
	}
	fs.checkZone(report, seen, owner, double)
	blk, err := fs.readBlock(double)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("inode %d: double-indirect block %d: %v", owner, double, err))
		return
	}
	for i := 0; i < IndirectZones; i++ {
		off := i * zonePtrSize
		ptr := uint32(binary.LittleEndian.Uint16(blk[off : off+2]))
		if ptr != 0 {
			fs.checkZone(report, seen, owner, ptr)
		}
	}
}

// checkZone records zone as reached by owner, flagging it if it falls
// outside the data area, was already claimed by an earlier inode, or the
// bitmap disagrees with it being in use.
func (fs *Filesystem) checkZone(report *CheckReport, seen map[uint32]bool, owner, zone uint32) {
	if zone < fs.sb.FirstDataZone || zone >= fs.sb.NZones {
		report.Errors = append(report.Errors, fmt.Sprintf("inode %d: zone %d out of range", owner, zone))
		return
	}
	if seen[zone] {
		report.Errors = append(report.Errors, fmt.Sprintf("zone %d: referenced by more than one inode (last: %d)", zone, owner))
		return
	}
	seen[zone] = true
	if fs.zm.Test(int(zone - fs.sb.FirstDataZone)) {
		report.Errors = append(report.Errors, fmt.Sprintf("inode %d: zone %d in use but bitmap marks it free", owner, zone))
	}
}
