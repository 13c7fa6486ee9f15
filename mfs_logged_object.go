package oplog

import (
	"github.com/CreditWorthy/oplog/seqcount"
	"github.com/CreditWorthy/oplog/spinlock"
)

// mfsTSC is one CPU's (value, seqcount) pair: either the start or the
// end timestamp of that CPU's most recent in-flight metadata
// operation, as described by spec.md §3's "CPU-TSC pair".
type mfsTSC struct {
	value uint64
	seq   seqcount.SeqCount
}

func (p *mfsTSC) update(v uint64) {
	p.seq.BeginWrite()
	p.value = v
	p.seq.EndWrite()
}

func (p *mfsTSC) readWithEpoch() (value, epoch uint64) {
	for {
		e := p.seq.ReadBegin()
		v := p.value
		if p.seq.ReadValid(e) {
			return v, e
		}
	}
}

// MfsLoggedObject extends TscLoggedObject with wait-synchronize
// (spec.md §4.5, component C5): reconciliation up to a caller-supplied
// TSC bound, waiting first for any CPU whose advertised (start, end)
// pair indicates an in-flight operation that might still linearize
// before that bound.
type MfsLoggedObject struct {
	*TscLoggedObject

	startTSC []mfsTSC
	endTSC   []mfsTSC
}

// NewMfsLoggedObject constructs an MfsLoggedObject. See Option.
func NewMfsLoggedObject(opts ...Option) *MfsLoggedObject {
	t := NewTscLoggedObject(opts...)
	n := t.NumCPU()
	return &MfsLoggedObject{
		TscLoggedObject: t,
		startTSC:        make([]mfsTSC, n),
		endTSC:          make([]mfsTSC, n),
	}
}

// UpdateStartTSC records that the calling CPU is beginning a metadata
// operation whose linearization point will be at or after ts. Callers
// bump this before doing any work that will eventually Push a logged
// operation.
func (m *MfsLoggedObject) UpdateStartTSC(cpu int, ts uint64) {
	m.startTSC[cpu].update(ts)
}

// UpdateEndTSC records that the calling CPU's in-flight metadata
// operation has finished being logged. Callers bump this as the very
// last step of the operation, after the corresponding Push.
func (m *MfsLoggedObject) UpdateEndTSC(cpu int, ts uint64) {
	m.endTSC[cpu].update(ts)
}

// WaitSynchronize is Synchronize, except that before gathering it waits
// for any CPU whose advertised state shows end_tsc < start_tsc <
// waitTSC — an operation that has started but not yet been logged, and
// whose eventual linearization point might still land before waitTSC —
// to publish a newer end_tsc. Entries with tsc >= waitTSC are left
// deferred in their pending logger rather than lost or applied early
// (spec.md §4.5).
func (m *MfsLoggedObject) WaitSynchronize(waitTSC uint64) *SyncGuard {
	guard := spinlock.LockGuard(&m.engine.syncLock)

	for cpu := 0; cpu < m.NumCPU(); cpu++ {
		start, _ := m.startTSC[cpu].readWithEpoch()
		end, endEpoch := m.endTSC[cpu].readWithEpoch()
		if end < start && start < waitTSC {
			m.endTSC[cpu].seq.WaitForChange(endEpoch)
		}
	}

	m.engine.gather()
	m.flushFinishMaxTimestamp(waitTSC)

	return &SyncGuard{guard: guard}
}

// flushFinishMaxTimestamp k-way merges pending as FlushFinish does, but
// only runs operations with tsc < maxTSC; entries at or after maxTSC are
// left in their original pending logger (not moved out wholesale) for a
// future sync, and any pending logger that becomes empty is dropped
// (spec.md §4.5).
func (m *MfsLoggedObject) flushFinishMaxTimestamp(maxTSC uint64) {
	if len(m.pending) == 0 {
		return
	}

	cursors := make([]*TscLogger, len(m.pending))
	for i := range m.pending {
		cursors[i] = &m.pending[i]
	}

	merged, consumed := kwayMerge(cursors, maxTSC)
	for _, r := range merged {
		r.op.Run()
	}

	for i := range m.pending {
		m.pending[i].ops = m.pending[i].ops[consumed[i]:]
	}

	remaining := m.pending[:0]
	for _, l := range m.pending {
		if l.Len() > 0 {
			remaining = append(remaining, l)
		}
	}
	m.pending = remaining
}
