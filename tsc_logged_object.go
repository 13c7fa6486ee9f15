package oplog

// TscLoggedObject applies deferred operations in global TSC order
// (spec.md §4.4, component C4): it wraps a LoggedObject[TscLogger] and,
// on synchronize, k-way merges every CPU's pending logger by timestamp
// before running the merged sequence.
type TscLoggedObject struct {
	engine    *LoggedObject[TscLogger]
	tscReader TSCReader

	// pending holds fully-owned loggers collected during a sync's
	// gather phase, one per CPU that had a way tagged for this object.
	// Exclusive to the holder of engine's sync lock.
	pending []TscLogger
}

// NewTscLoggedObject constructs a TscLoggedObject. See Option for the
// available construction-time overrides (CPU provider, TSC reader,
// cache sizing/sharing).
func NewTscLoggedObject(opts ...Option) *TscLoggedObject {
	cfg := applyOptions(opts)
	t := &TscLoggedObject{tscReader: cfg.tscReader}
	t.engine = New[TscLogger](t, opts...)
	return t
}

// GetLogger returns a locked, CPU-local TscLogger for t, stamped with
// t's configured TSCReader so Push needs no reader argument of its own.
func (t *TscLoggedObject) GetLogger() *ScopedLogger[TscLogger] {
	h := t.engine.GetLogger()
	h.Logger().reader = t.tscReader
	return h
}

// Synchronize flushes every CPU's logger for t and applies the merged
// operations in TSC order, returning holding the sync lock.
func (t *TscLoggedObject) Synchronize() *SyncGuard {
	return t.engine.Synchronize()
}

// NumCPU reports how many CPUs t's cache is sized for.
func (t *TscLoggedObject) NumCPU() int {
	return t.engine.NumCPU()
}

// FlushLogger implements Policy[TscLogger]: move l's entries into
// pending and reset l to its initial state.
func (t *TscLoggedObject) FlushLogger(l *TscLogger) {
	t.pending = append(t.pending, *l)
	l.Reset()
}

// FlushFinish implements Policy[TscLogger]: k-way merge every pending
// logger by timestamp and run the merged sequence in order, then clear
// pending (spec.md §4.4 step 2-5).
func (t *TscLoggedObject) FlushFinish() {
	if len(t.pending) == 0 {
		return
	}

	cursors := make([]*TscLogger, len(t.pending))
	for i := range t.pending {
		cursors[i] = &t.pending[i]
	}

	merged, _ := kwayMerge(cursors, noBound)
	for _, r := range merged {
		r.op.Run()
	}

	for i := range t.pending {
		t.pending[i].Reset()
	}
	t.pending = nil
}

// clearLoggers walks every CPU still cached for t and resets — without
// applying — each way's logger. Used only by Close, which presumes the
// caller has already guaranteed there are no concurrent GetLogger
// callers left to race (spec.md §3 "Lifecycle", §4.4 "Destructor").
func (t *TscLoggedObject) clearLoggers() {
	guard := t.engine.synchronizeWith(func() {
		for i := range t.pending {
			t.pending[i].Reset()
		}
		t.pending = nil
	})
	// clearLoggers diverges from a real FlushFinish: gather already
	// moved every logger's entries into pending via FlushLogger (the
	// normal policy), so the finisher above just discards them instead
	// of merging and running them, matching the source's
	// "reset without applying" destructor semantics.
	guard.Release()
}

// Close discards all outstanding, unapplied logged operations for t
// without running them. Call this only once no writer can still be
// calling GetLogger for t (spec.md §3's lifecycle precondition on
// destruction).
func (t *TscLoggedObject) Close() {
	t.clearLoggers()
}
