// Package inode implements the fixed-size, little-endian on-disk record
// that represents one filesystem object (component A of the VFS design).
package inode

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/filetree/vfscore/fs"
)

// RootIno is the reserved ino value every filesystem's root directory uses.
// No allocator may ever hand this value out for a non-root object.
const RootIno uint64 = 1

// Size is the fixed on-the-wire length of one inode record, in bytes:
//
//	ino(8) size(4) mode(4) nlink(2) uid(4) gid(4) flags(4) version(4)
//	atimeMs(8) mtimeMs(8) ctimeMs(8) birthtimeMs(8) = 66
const Size = 8 + 4 + 4 + 2 + 4 + 4 + 4 + 4 + 8 + 8 + 8 + 8

// Inode is the in-memory twin of the on-disk record. All fields are
// exported because the engine, the store, and the remote-port backend all
// need direct field access; Stats (package fs) is the POSIX-shaped view
// callers outside the engine actually see.
type Inode struct {
	Ino       uint64
	Size      uint32
	Mode      fs.FileMode
	Nlink     uint16
	UID       uint32
	GID       uint32
	Flags     fs.InodeFlags
	Version   uint32
	AtimeMs   uint64
	MtimeMs   uint64
	CtimeMs   uint64
	BirthtimeMs uint64
}

func nowMs() uint64 {
	return uint64(time.Now().UnixMilli())
}

// randomIno draws a candidate 64-bit ino, avoiding the reserved root value.
// The engine is responsible for rejection-sampling against collisions in
// the store (spec.md §4.C's maxInodeAllocTries loop); this just guarantees
// the candidate is never RootIno.
func randomIno() (uint64, error) {
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			return 0, err
		}
		v := binary.LittleEndian.Uint64(buf[:])
		if v != RootIno && v != 0 {
			return v, nil
		}
	}
}

// New builds a fresh inode: mode 0, nlink 1, all four timestamps set to
// now, uid/gid 0, and a freshly allocated ino.
func New() (*Inode, error) {
	ino, err := randomIno()
	if err != nil {
		return nil, err
	}
	now := nowMs()
	return &Inode{
		Ino:         ino,
		Nlink:       1,
		AtimeMs:     now,
		MtimeMs:     now,
		CtimeMs:     now,
		BirthtimeMs: now,
	}, nil
}

// NewRoot builds the reserved root directory inode: mode 0777|S_IFDIR, an
// empty listing (Size 0). Like every other inode, nlink starts at 1; this
// engine only tracks real hard links (via Link), not synthetic "."/".."
// bookkeeping entries.
func NewRoot() *Inode {
	now := nowMs()
	return &Inode{
		Ino:         RootIno,
		Mode:        fs.FileMode(0o777) | fs.S_IFDIR,
		Nlink:       1,
		AtimeMs:     now,
		MtimeMs:     now,
		CtimeMs:     now,
		BirthtimeMs: now,
	}
}

// ToStats converts the on-disk record to the POSIX-shaped value callers see.
func (n *Inode) ToStats() fs.Stats {
	return fs.Stats{
		Ino:       n.Ino,
		Size:      n.Size,
		Mode:      n.Mode,
		Nlink:     n.Nlink,
		UID:       n.UID,
		GID:       n.GID,
		Flags:     n.Flags,
		Version:   n.Version,
		Atime:     time.UnixMilli(int64(n.AtimeMs)),
		Mtime:     time.UnixMilli(int64(n.MtimeMs)),
		Ctime:     time.UnixMilli(int64(n.CtimeMs)),
		Birthtime: time.UnixMilli(int64(n.BirthtimeMs)),
	}
}

// FromStats overwrites n's fields from a Stats value (used when a caller
// writes back attributes the engine already resolved into a full Stats).
func (n *Inode) FromStats(s fs.Stats) {
	n.Ino = s.Ino
	n.Size = s.Size
	n.Mode = s.Mode
	n.Nlink = s.Nlink
	n.UID = s.UID
	n.GID = s.GID
	n.Flags = s.Flags
	n.Version = s.Version
	n.AtimeMs = uint64(s.Atime.UnixMilli())
	n.MtimeMs = uint64(s.Mtime.UnixMilli())
	n.CtimeMs = uint64(s.Ctime.UnixMilli())
	n.BirthtimeMs = uint64(s.Birthtime.UnixMilli())
}

// Update mutates only the provided fields (mirroring fs.Stats.Apply) and
// bumps Version and Ctime when anything actually changed, then reports
// whether it did — the engine uses this to skip redundant store writes.
func (n *Inode) Update(attrs fs.SetAttrs) bool {
	stats := n.ToStats()
	changed := stats.Apply(attrs)
	if changed {
		n.FromStats(stats)
		n.Version++
		n.CtimeMs = nowMs()
	}
	return changed
}

// Touch updates atime (read) or mtime+ctime (write), respecting NoAtime.
func (n *Inode) Touch(isWrite bool) {
	now := nowMs()
	if isWrite {
		n.MtimeMs = now
		n.CtimeMs = now
		return
	}
	if !n.Flags.Has(fs.FlagNoAtime) {
		n.AtimeMs = now
	}
}

// MarshalBinary implements encoding.BinaryMarshaler over the stable
// little-endian layout described in spec.md §3 and §6. Implementations may
// cross a process boundary (the remote-port backend, the bbolt store), so
// the layout is fixed rather than left to encoding/gob or JSON.
func (n *Inode) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	i := 0
	binary.LittleEndian.PutUint64(buf[i:], n.Ino)
	i += 8
	binary.LittleEndian.PutUint32(buf[i:], n.Size)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], uint32(n.Mode))
	i += 4
	binary.LittleEndian.PutUint16(buf[i:], n.Nlink)
	i += 2
	binary.LittleEndian.PutUint32(buf[i:], n.UID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], n.GID)
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], uint32(n.Flags))
	i += 4
	binary.LittleEndian.PutUint32(buf[i:], n.Version)
	i += 4
	binary.LittleEndian.PutUint64(buf[i:], n.AtimeMs)
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], n.MtimeMs)
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], n.CtimeMs)
	i += 8
	binary.LittleEndian.PutUint64(buf[i:], n.BirthtimeMs)
	i += 8
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, the inverse of
// MarshalBinary.
func (n *Inode) UnmarshalBinary(buf []byte) error {
	if len(buf) != Size {
		return fs.NewError(fs.EIO, "unmarshal", "", errShortInode(len(buf)))
	}
	i := 0
	n.Ino = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	n.Size = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	n.Mode = fs.FileMode(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	n.Nlink = binary.LittleEndian.Uint16(buf[i:])
	i += 2
	n.UID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	n.GID = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	n.Flags = fs.InodeFlags(binary.LittleEndian.Uint32(buf[i:]))
	i += 4
	n.Version = binary.LittleEndian.Uint32(buf[i:])
	i += 4
	n.AtimeMs = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	n.MtimeMs = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	n.CtimeMs = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	n.BirthtimeMs = binary.LittleEndian.Uint64(buf[i:])
	i += 8
	return nil
}

type errShortInode int

func (e errShortInode) Error() string {
	return fmt.Sprintf("short inode record: got %d bytes, want %d", int(e), Size)
}
