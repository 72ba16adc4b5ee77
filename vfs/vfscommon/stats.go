package vfscommon

import "sync/atomic"

// Stats accumulates running operation counters for diagnostics, the way
// rclone's accounting package tracks transfer and error counts — narrowed
// here to the handful of counters a VFS facade can cheaply keep without a
// dedicated reporting goroutine.
type Stats struct {
	reads   int64
	writes  int64
	creates int64
	removes int64
	errors  int64
}

// AddRead, AddWrite, AddCreate, AddRemove, AddError bump their respective
// counters; they're safe to call from multiple goroutines since the
// facade's own locking only serializes per-mount, not across mounts.
func (s *Stats) AddRead()   { atomic.AddInt64(&s.reads, 1) }
func (s *Stats) AddWrite()  { atomic.AddInt64(&s.writes, 1) }
func (s *Stats) AddCreate() { atomic.AddInt64(&s.creates, 1) }
func (s *Stats) AddRemove() { atomic.AddInt64(&s.removes, 1) }
func (s *Stats) AddError()  { atomic.AddInt64(&s.errors, 1) }

// Snapshot is a point-in-time copy of the counters, safe to read after
// copying out of the live Stats.
type Snapshot struct {
	Reads, Writes, Creates, Removes, Errors int64
}

// Snapshot reads the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Reads:   atomic.LoadInt64(&s.reads),
		Writes:  atomic.LoadInt64(&s.writes),
		Creates: atomic.LoadInt64(&s.creates),
		Removes: atomic.LoadInt64(&s.removes),
		Errors:  atomic.LoadInt64(&s.errors),
	}
}
