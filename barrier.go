package oplog

import "sync/atomic"

var barrierWord atomic.Uint32

// barrier issues a full memory barrier between successive scans of an
// object's CPU bitset during gather, so a bit another CPU sets
// concurrently with one scan is guaranteed visible on the next
// (spec.md §5/§9). Every access to cpuset.Set already goes through
// sync/atomic, which the Go memory model treats as sequentially
// consistent with respect to other atomic operations; this fence adds
// no further ordering on top of that; it exists to document, at the
// exact point spec.md calls for one, that ordering is deliberate rather
// than incidental.
func barrier() {
	barrierWord.Add(1)
}
