// Package seqcount implements a sequence-counter lock: a lock-free
// write discipline that lets readers detect (and retry past) a
// concurrent writer instead of blocking on it.
//
// The writer increments the counter (making it odd), stores the
// protected value, then increments the counter again (making it even).
// A reader that observes an odd counter, or a counter that changed
// between the start and end of its read, knows it may have seen a torn
// value and must retry.
package seqcount

import (
	"runtime"
	"sync/atomic"
)

// SeqCount is a single sequence counter. The zero value is a valid,
// never-written counter at epoch 0.
//
// SeqCount does not itself serialize concurrent writers; callers with
// more than one writer must serialize BeginWrite/EndWrite pairs
// externally (a spinlock.Spinlock, a sync.Mutex, or — as
// oplog.MfsLoggedObject does — a per-CPU ownership discipline where
// only that CPU ever writes its own counter).
type SeqCount struct {
	epoch atomic.Uint64
}

// BeginWrite marks the start of a write, driving the counter from an
// even value to the next odd value.
func (s *SeqCount) BeginWrite() {
	e := s.epoch.Add(1)
	if e&1 == 0 {
		panic("seqcount: BeginWrite during an already-open writer section")
	}
}

// EndWrite marks the end of a write, driving the counter from the odd
// value back to even.
func (s *SeqCount) EndWrite() {
	e := s.epoch.Add(1)
	if e&1 != 0 {
		panic("seqcount: EndWrite outside a writer section")
	}
}

// ReadBegin returns the current epoch. If it is odd, a write is in
// progress; the caller should treat any value read concurrently as
// provisional and poll again.
func (s *SeqCount) ReadBegin() uint64 {
	return s.epoch.Load()
}

// ReadValid reports whether epoch (as returned by a prior ReadBegin) is
// even and the counter still reads the same value now — i.e. no write
// started, finished, or is in progress since the read began.
func (s *SeqCount) ReadValid(epoch uint64) bool {
	return epoch&1 == 0 && s.epoch.Load() == epoch
}

// WaitForChange busy-waits until the counter has moved past staleEpoch —
// that is, until a writer has both started and finished since
// staleEpoch was observed. This is the primitive behind
// oplog.MfsLoggedObject.WaitSynchronize's "wait until a new end_tsc has
// been published": waiting merely for "not currently mid-write" would
// return immediately if no writer had started yet, missing an operation
// that hasn't begun logging. Waiting for the epoch to advance past the
// last even value observed guarantees at least one full write has
// landed.
func (s *SeqCount) WaitForChange(staleEpoch uint64) {
	target := staleEpoch
	if target&1 != 0 {
		// staleEpoch was mid-write; the write that's about to finish
		// still doesn't count as "new", so wait for the one after it.
		target++
	}
	spins := 0
	for {
		e := s.epoch.Load()
		if e > target && e&1 == 0 {
			return
		}
		spins++
		if spins < 1000 {
			continue
		}
		runtime.Gosched()
	}
}
