// Package oplog implements OpLog, a concurrency primitive for objects
// that are written frequently from many CPUs but read rarely.
//
// Rather than applying every write immediately to shared state — which
// forces cache-line ownership to bounce between CPUs — a writer appends
// its operation to a small per-CPU log and returns. A reader that needs
// to observe the object's state calls Synchronize, which gathers every
// CPU's log for that object, applies the logged operations, and returns
// holding a lock under which the materialized state can be inspected.
//
// LoggedObject is the generic engine: it owns a bounded per-CPU cache of
// in-flight loggers keyed by object identity, and handles eviction and
// synchronization. TscLoggedObject specializes it with a logger that
// timestamps every operation with a hardware-style timestamp counter
// (TSC) and applies them in global TSC order on synchronize.
// MfsLoggedObject further adds wait-synchronize: reconciliation up to a
// caller-supplied TSC bound, waiting for in-flight operations on other
// CPUs whose linearization point may still land before that bound.
//
// The package also ships default implementations of the host
// collaborators the core needs — CPU identification, spinlocks, a
// sequence counter, a CPU bitset, and a TSC source — under cpu/,
// spinlock/, seqcount/, cpuset/, and internal/tsc. A host with its own
// CPU-id source or TSC reader (a kernel, a simulator) can supply it to
// the New* constructors via WithCPUProvider and WithTSCReader; the
// spinlock, sequence counter and CPU bitset are always the ones shipped
// here and cannot be replaced through options.
package oplog
