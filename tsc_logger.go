package oplog

import "sort"

// TscLogger is the Logger used by TscLoggedObject and MfsLoggedObject: a
// per-CPU, per-object ordered sequence of timestamped operation closures
// (spec.md §4.3, component C3). Its zero value is ready for PushWithTSC,
// SortOps, OpsBefore and Reset; Push needs the reader that
// TscLoggedObject.GetLogger sets and panics on a zero value. It is
// not safe for concurrent use by itself — callers only ever touch one
// through the way lock a ScopedLogger holds.
type TscLogger struct {
	// reader is the TSC source Push stamps entries with. Set by
	// TscLoggedObject.GetLogger (and, through it, MfsLoggedObject's)
	// every time a way is handed out, from the object's own configured
	// TSCReader (spec.md §4.6's WithTSCReader option) — never by the
	// caller, so Push itself takes no reader argument.
	reader TSCReader
	ops    []opRecord
}

// Push reads the object's configured TSC source and appends (tsc, cb).
// Per spec.md §4.3/§5, the caller must do this between acquiring and
// releasing the way lock backing the ScopedLogger this logger came from,
// so that the lock release implies a happens-before on the timestamp —
// which is exactly how ScopedLogger is structured (its Release is the
// only way to drop the lock, and the caller must still hold the handle
// when calling Push).
func (l *TscLogger) Push(cb Op) {
	l.ops = append(l.ops, opRecord{tsc: l.reader.Now(), op: cb})
}

// PushWithTSC appends cb using its own self-reported linearization
// timestamp instead of reading the clock, for callers (e.g. a
// filesystem op applied by MfsLoggedObject) that know their own
// timestamp.
func (l *TscLogger) PushWithTSC(cb TimestampedOp) {
	l.ops = append(l.ops, opRecord{tsc: cb.TSC(), op: cb})
}

// SortOps stably sorts the logger's entries by timestamp, preserving
// relative order among equal timestamps (invariant 6, spec.md §3).
func (l *TscLogger) SortOps() {
	sort.SliceStable(l.ops, func(i, j int) bool {
		return l.ops[i].tsc < l.ops[j].tsc
	})
}

// OpsBefore returns the index partitioning the (already-sorted) entries
// into [0, idx) with tsc < maxTSC and [idx, len) with tsc >= maxTSC.
func (l *TscLogger) OpsBefore(maxTSC uint64) int {
	idx := sort.Search(len(l.ops), func(i int) bool {
		return l.ops[i].tsc >= maxTSC
	})
	return idx
}

// Reset drops all entries, returning the logger to its initial state.
func (l *TscLogger) Reset() {
	l.ops = nil
}

// Len reports the number of currently-buffered entries.
func (l *TscLogger) Len() int {
	return len(l.ops)
}

// PrintOps emits every buffered operation via Op.Print, in current
// (not necessarily sorted) order.
func (l *TscLogger) PrintOps() {
	for _, r := range l.ops {
		r.op.Print()
	}
}
