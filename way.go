package oplog

import (
	"reflect"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/CreditWorthy/oplog/spinlock"
)

// way is one slot in a per-CPU cache: an atomic tag naming the object
// currently cached here (or nil), a lock serializing access to both the
// tag and the embedded logger, and the logger itself. At most one object
// tags a way at a time; eviction is the only way the tag changes
// (Empty -> Tagged(obj) -> Tagged(obj') ..., never explicitly back to
// Empty).
type way[L any] struct {
	lock spinlock.Spinlock
	tag  atomic.Pointer[LoggedObject[L]] // behind lock; nil means empty
	logger L
}

// perCPUCache is the fixed-size, hash-indexed table of ways for one CPU.
type perCPUCache[L any] struct {
	ways []way[L]
}

// PerCPUCache is the full, per-logger-type cache: one perCPUCache per
// CPU. Callers normally never construct one directly — LoggedObject's
// constructors fetch (or lazily create) the shared cache for their
// Logger type from a process-wide registry, matching spec.md's "one
// array per CPU" static storage. NewPerCPUCache is exposed so tests can
// build a small, isolated cache (e.g. CacheSlots=4) to force deterministic
// collisions without perturbing the shared production cache.
type PerCPUCache[L any] struct {
	perCPU []perCPUCache[L]
	slots  int
}

// NewPerCPUCache allocates a cache with ncpu per-CPU tables of slots
// ways each.
func NewPerCPUCache[L any](ncpu, slots int) *PerCPUCache[L] {
	if ncpu <= 0 {
		ncpu = 1
	}
	if slots <= 0 {
		slots = CacheSlots
	}
	pc := &PerCPUCache[L]{
		perCPU: make([]perCPUCache[L], ncpu),
		slots:  slots,
	}
	for i := range pc.perCPU {
		pc.perCPU[i].ways = make([]way[L], slots)
	}
	return pc
}

// hashWay returns the way on CPU `cpu` that `obj` maps to: a scramble
// hash of obj's identity modulo the cache's slot count, matching the
// Java HashMap re-hashing function the original source uses to defeat
// identity alignment. Two lookups for the same (cpu, obj) always agree.
func (pc *PerCPUCache[L]) hashWay(cpu int, obj *LoggedObject[L]) *way[L] {
	wayno := uint64(uintptr(unsafe.Pointer(obj)))
	wayno ^= (wayno >> 32) ^ (wayno >> 20) ^ (wayno >> 12)
	wayno ^= (wayno >> 7) ^ (wayno >> 4)
	wayno %= uint64(pc.slots)
	return &pc.perCPU[cpu].ways[wayno]
}

// registry is the process-wide, type-parameterized store of shared
// per-CPU caches, one per distinct Logger type L: every LoggedObject[L]
// that doesn't get its own cache via WithCache or WithCacheSlots shares
// this one, so
// that unrelated objects of the same Logger type really do contend for
// and evict each other out of the same bounded table, as spec.md
// intends. Go has no notion of a package-level variable parameterized
// by an unbound type, so the registry is keyed by reflect.Type instead —
// the "type-parameterized registry" strategy spec.md §9 names directly.
var (
	registryMu sync.Mutex
	registry   = map[reflect.Type]any{}
)

func sharedCache[L any](ncpu int) *PerCPUCache[L] {
	var zero L
	key := reflect.TypeOf(zero)

	registryMu.Lock()
	defer registryMu.Unlock()

	if existing, ok := registry[key]; ok {
		return existing.(*PerCPUCache[L])
	}
	pc := NewPerCPUCache[L](ncpu, CacheSlots)
	registry[key] = pc
	return pc
}
