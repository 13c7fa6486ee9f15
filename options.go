package oplog

import "github.com/CreditWorthy/oplog/cpu"

// Option configures a LoggedObject (or one of its TSC/MFS specializations)
// at construction time. This generalizes the teacher's StoreOption /
// applyOptions functional-options idiom (originally WithReadOnly /
// WithOneWriter on a mmap-backed Store) to OpLog's construction-time
// concerns: which CPU-id source to trust, which TSC source to stamp
// operations with, and how big (or which) per-CPU cache to use.
type Option func(*config)

type config struct {
	cpus       cpu.Provider
	tscReader  TSCReader
	cacheSlots int
	cache      any // *PerCPUCache[L], type-asserted by the constructor that knows L
}

// WithCPUProvider injects a cpu.Provider in place of the package default.
// Tests use this to pin specific goroutines to specific fake CPU ids
// deterministically instead of depending on scheduling.
func WithCPUProvider(p cpu.Provider) Option {
	return func(c *config) {
		c.cpus = p
	}
}

// WithTSCReader injects a TSCReader in place of the monotonic-clock
// default. Tests use this to construct the literal tsc values spec.md
// §8's scenarios specify.
func WithTSCReader(r TSCReader) Option {
	return func(c *config) {
		c.tscReader = r
	}
}

// WithCacheSlots overrides the default CacheSlots (4096) for a
// privately-owned cache dedicated to this single LoggedObject, instead
// of sharing the process-wide per-Logger-type cache. Required by
// spec.md §8 scenario 3, which needs a tiny cache to force deterministic
// collisions; since this cache isn't shared and each CPU has its own
// table, the object never collides with anything in it. To make two
// distinct objects collide with each other (the literal scenario),
// construct a shared cache with NewPerCPUCache and inject it into both
// objects with WithCache instead.
func WithCacheSlots(n int) Option {
	return func(c *config) {
		c.cacheSlots = n
	}
}

// WithCache injects a specific, possibly-shared PerCPUCache[L], overriding
// both the default shared registry and WithCacheSlots. Passing the same
// *PerCPUCache[L] to two different LoggedObject[L]s makes them compete
// for (and evict each other from) the same ways, exactly as two
// unrelated objects of the same Logger type do against the process-wide
// registry in production.
func WithCache[L any](c *PerCPUCache[L]) Option {
	return func(cfg *config) {
		cfg.cache = c
	}
}

func applyOptions(opts []Option) config {
	var cfg config
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.cpus == nil {
		cfg.cpus = cpu.Default
	}
	if cfg.tscReader == nil {
		cfg.tscReader = defaultTSCReader
	}
	return cfg
}
