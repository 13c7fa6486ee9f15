package oplog

// CacheSlots is the default number of ways in each CPU's per-object-type
// logger cache. A way is evicted (and its logger flushed) on collision,
// so this bounds memory, not correctness.
const CacheSlots = 4096
