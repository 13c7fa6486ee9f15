package oplog

import (
	"github.com/CreditWorthy/oplog/cpu"
	"github.com/CreditWorthy/oplog/cpuset"
	"github.com/CreditWorthy/oplog/spinlock"
)

// Policy supplies the two operations a concrete logged-object type plugs
// into the generic engine: how to drain one CPU's logger during a sync,
// and how to finalize a whole gather once every CPU's logger has been
// drained. TscLoggedObject and MfsLoggedObject are both, structurally,
// "LoggedObject[TscLogger] plus a Policy"; this is the strategy pattern
// spec.md §9 calls for in place of C++ subclassing.
type Policy[L any] interface {
	// FlushLogger consumes or re-homes l's entries and leaves l in its
	// initial state. Called with both the object's sync lock and the
	// relevant way's lock held; never concurrent with another flush for
	// the same object.
	FlushLogger(l *L)
	// FlushFinish is invoked once per Synchronize/WaitSynchronize, after
	// a consistent gather, to finalize observable state. Called holding
	// the sync lock only.
	FlushFinish()
}

// LoggedObject is the generic per-CPU log cache and synchronization
// engine (spec.md §4.2, component C2). It is the Go analogue of the
// C++ logged_object<Logger> base class, restructured as composition:
// a concrete type embeds a *LoggedObject[L] and supplies a Policy[L]
// instead of overriding virtual methods.
type LoggedObject[L any] struct {
	cache    *PerCPUCache[L]
	cpus     *cpuset.Set
	cpuProv  cpu.Provider
	syncLock spinlock.Spinlock
	policy   Policy[L]
}

// New constructs a LoggedObject around policy. Most callers use the
// TSC/MFS specializations' constructors instead of this directly.
func New[L any](policy Policy[L], opts ...Option) *LoggedObject[L] {
	cfg := applyOptions(opts)

	var pc *PerCPUCache[L]
	switch {
	case cfg.cache != nil:
		pc = cfg.cache.(*PerCPUCache[L])
	case cfg.cacheSlots > 0:
		pc = NewPerCPUCache[L](cfg.cpus.NumCPU(), cfg.cacheSlots)
	default:
		pc = sharedCache[L](cfg.cpus.NumCPU())
	}

	return &LoggedObject[L]{
		cache:   pc,
		cpus:    cpuset.New(cfg.cpus.NumCPU()),
		cpuProv: cfg.cpus,
		policy:  policy,
	}
}

// ScopedLogger is a lock-scoped handle to a CPU-local Logger instance,
// returned by GetLogger. The way lock it holds is released by Release;
// no other operation on the underlying Logger is safe without this
// handle held. Callers must not retain the handle beyond the scope that
// acquired it.
type ScopedLogger[L any] struct {
	guard  spinlock.Guard
	logger *L
}

// Logger returns the protected Logger instance. Valid only until
// Release is called.
func (h *ScopedLogger[L]) Logger() *L {
	return h.logger
}

// Release releases the way lock backing this handle.
func (h *ScopedLogger[L]) Release() {
	h.guard.Unlock()
}

// GetLogger returns a locked, CPU-local Logger for o (spec.md §4.2).
// It computes the calling CPU's way for o, evicting whatever object
// currently tags that way if necessary, and returns a handle the caller
// must Release when done logging.
func (o *LoggedObject[L]) GetLogger() *ScopedLogger[L] {
	id := o.cpuProv.ID()
	w := o.cache.hashWay(id, o)

	for {
		guard := spinlock.LockGuard(&w.lock)
		cur := w.tag.Load()

		if cur != o {
			if cur != nil {
				// Evict. Lock order is way-lock-then-sync-lock here, but
				// sync-lock-then-way-lock in Synchronize; a concurrent
				// Synchronize on cur may already hold cur's sync lock
				// and be waiting to reach this exact way. TryLock avoids
				// the deadlock by backing out instead of blocking.
				syncGuard, ok := spinlock.TryLockGuard(&cur.syncLock)
				if !ok {
					guard.Unlock()
					continue
				}
				cur.policy.FlushLogger(&w.logger)
				cur.cpus.ClearLocked(id)
				syncGuard.Unlock()
			}
			w.tag.Store(o)
		}
		if !o.cpus.IsSet(id) {
			o.cpus.SetAtomic(id)
		}
		return &ScopedLogger[L]{guard: guard, logger: &w.logger}
	}
}

// SyncGuard holds an object's sync lock for as long as the caller needs
// to observe its just-synchronized state without racing a concurrent
// sync epoch. It does not prevent further writes on other CPUs (those
// only need a way lock), only further flush epochs.
type SyncGuard struct {
	guard spinlock.Guard
}

// Release releases the sync lock.
func (g *SyncGuard) Release() {
	g.guard.Unlock()
}

// Synchronize gathers every CPU's cached logger for o, flushes each via
// the policy, calls FlushFinish once a consistent (empty cpus_) snapshot
// has been observed, and returns holding the sync lock (spec.md §4.2).
func (o *LoggedObject[L]) Synchronize() *SyncGuard {
	return o.synchronizeWith(o.policy.FlushFinish)
}

// synchronizeWith is Synchronize generalized over the finishing step, so
// that MfsLoggedObject.WaitSynchronize can reuse the gather loop with a
// different finisher (flushFinishMaxTimestamp) instead of the plain
// Policy.FlushFinish.
func (o *LoggedObject[L]) synchronizeWith(finish func()) *SyncGuard {
	guard := spinlock.LockGuard(&o.syncLock)
	o.gather()
	finish()
	return &SyncGuard{guard: guard}
}

// gather repeatedly scans cpus_ until a full pass observes it empty,
// flushing each set CPU's way along the way. Must be called holding the
// sync lock.
func (o *LoggedObject[L]) gather() {
	for {
		any := false
		o.cpus.Iterate(func(id int) {
			w := o.cache.hashWay(id, o)
			guard := spinlock.LockGuard(&w.lock)
			if w.tag.Load() != o {
				guard.Unlock()
				violatef("Synchronize", id, "way tagged a different object than the one being synchronized")
			}
			o.policy.FlushLogger(&w.logger)
			o.cpus.ClearLocked(id)
			guard.Unlock()
			any = true
		})
		if !any {
			return
		}
		// Barrier: make sure a subsequent scan observes any bit another
		// CPU set concurrently with this pass (invariant 2, spec.md §3).
		barrier()
	}
}

// NumCPU returns the number of CPUs o's cache and CPU bitset are sized
// for, per its cpu.Provider.
func (o *LoggedObject[L]) NumCPU() int {
	return o.cpuProv.NumCPU()
}
