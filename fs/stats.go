package fs

import "time"

// Stats is the POSIX-shaped, mutable stat() result passed between the
// engine, the handle layer, and the facade. It is the in-memory twin of the
// on-disk Inode record (package fs/inode): Stats is what callers see and
// set; Inode is how it is laid out in the store.
type Stats struct {
	Ino       uint64
	Size      uint32
	Mode      FileMode
	Nlink     uint16
	UID       uint32
	GID       uint32
	Flags     InodeFlags
	Version   uint32
	Atime     time.Time
	Mtime     time.Time
	Ctime     time.Time
	Birthtime time.Time
}

// IsDir, IsRegular, IsSymlink, IsDevice delegate to Mode for convenience at
// call sites that only have a Stats in hand.
func (s Stats) IsDir() bool      { return s.Mode.IsDir() }
func (s Stats) IsRegular() bool  { return s.Mode.IsRegular() }
func (s Stats) IsSymlink() bool  { return s.Mode.IsSymlink() }
func (s Stats) IsDevice() bool   { return s.Mode.IsDevice() }

// SetAttrs carries the subset of fields a caller wants to change via
// chmod/chown/utimes/truncate; nil/zero-value fields mean "leave alone",
// distinguished with pointers exactly as POSIX's own "don't change" sentinel
// values work.
type SetAttrs struct {
	Mode  *FileMode
	UID   *uint32
	GID   *uint32
	Size  *uint32
	Atime *time.Time
	Mtime *time.Time
}

// Apply mutates s in place with whichever fields of a are non-nil, and
// reports whether anything actually changed — mirroring Inode.update's
// change-detection contract so the engine can skip redundant store writes.
func (s *Stats) Apply(a SetAttrs) (changed bool) {
	if a.Mode != nil && *a.Mode != s.Mode {
		s.Mode = *a.Mode
		changed = true
	}
	if a.UID != nil && *a.UID != s.UID {
		s.UID = *a.UID
		changed = true
	}
	if a.GID != nil && *a.GID != s.GID {
		s.GID = *a.GID
		changed = true
	}
	if a.Size != nil && *a.Size != s.Size {
		s.Size = *a.Size
		changed = true
	}
	if a.Atime != nil && !a.Atime.Equal(s.Atime) {
		s.Atime = *a.Atime
		changed = true
	}
	if a.Mtime != nil && !a.Mtime.Equal(s.Mtime) {
		s.Mtime = *a.Mtime
		changed = true
	}
	return changed
}
