// Package cpuset implements the CPU-bitmap membership protocol oplog's
// LoggedObject uses to track which CPUs currently cache a logger for an
// object: any CPU may set its own bit without a lock, but a bit may only
// be cleared by a caller already holding both the object's sync lock and
// the corresponding way's lock.
//
// Set cannot enforce that locking discipline itself — Go has no
// "requires lock held" annotation — so ClearLocked only documents the
// requirement; callers (oplog.LoggedObject.Synchronize) are responsible
// for it.
package cpuset

import "sync/atomic"

const bitsPerWord = 64

// Set is a fixed-width bitset over [0, n) CPUs.
type Set struct {
	words []atomic.Uint64
	n     int
}

// New returns a Set over n CPUs, all bits initially clear.
func New(n int) *Set {
	if n < 0 {
		n = 0
	}
	return &Set{
		words: make([]atomic.Uint64, (n+bitsPerWord-1)/bitsPerWord+1),
		n:     n,
	}
}

func (s *Set) check(cpu int) {
	if cpu < 0 || cpu >= s.n {
		panic("cpuset: cpu index out of range")
	}
}

// SetAtomic sets cpu's bit. Lock-free: any CPU may call this for its own
// (or, in principle, any) bit at any time, matching the "set without
// locks" half of the clearing invariant.
func (s *Set) SetAtomic(cpu int) {
	s.check(cpu)
	w, b := cpu/bitsPerWord, uint(cpu%bitsPerWord)
	for {
		old := s.words[w].Load()
		if old&(1<<b) != 0 {
			return
		}
		if s.words[w].CompareAndSwap(old, old|(1<<b)) {
			return
		}
	}
}

// ClearLocked clears cpu's bit. The caller must already hold the owning
// object's sync lock and the way lock for (cpu, object) — Set trusts the
// caller; this is the "clear only under both locks" half of the
// invariant.
func (s *Set) ClearLocked(cpu int) {
	s.check(cpu)
	w, b := cpu/bitsPerWord, uint(cpu%bitsPerWord)
	for {
		old := s.words[w].Load()
		if old&(1<<b) == 0 {
			return
		}
		if s.words[w].CompareAndSwap(old, old&^(1<<b)) {
			return
		}
	}
}

// IsSet reports whether cpu's bit is currently set.
func (s *Set) IsSet(cpu int) bool {
	s.check(cpu)
	w, b := cpu/bitsPerWord, uint(cpu%bitsPerWord)
	return s.words[w].Load()&(1<<b) != 0
}

// Empty reports whether no bits are set. Since only the sync-lock holder
// can clear bits, a sync-lock holder that sees every bit zero at once
// knows no unflushed entries remain. (Synchronize itself does not call
// Empty; it stops once an Iterate pass finds no set bit.)
func (s *Set) Empty() bool {
	for i := range s.words {
		if s.words[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Iterate calls fn once for every currently-set bit, in ascending CPU
// order. fn is not called concurrently. Bits set or cleared by another
// goroutine during iteration may or may not be observed, matching the
// core's own tolerance for scanning a moving target (see Set's doc
// comment and oplog.LoggedObject.Synchronize).
func (s *Set) Iterate(fn func(cpu int)) {
	for cpu := 0; cpu < s.n; cpu++ {
		if s.IsSet(cpu) {
			fn(cpu)
		}
	}
}
