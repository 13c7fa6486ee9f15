package oplog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMfsLoggedObject_UpdateStartEndTSC(t *testing.T) {
	m := NewMfsLoggedObject(WithCPUProvider(fixedProvider{n: 2, id: 0}), WithCacheSlots(64))

	m.UpdateStartTSC(0, 10)
	m.UpdateEndTSC(0, 15)

	v, _ := m.startTSC[0].readWithEpoch()
	assert.Equal(t, uint64(10), v)
	v, _ = m.endTSC[0].readWithEpoch()
	assert.Equal(t, uint64(15), v)
}

func TestMfsLoggedObject_WaitSynchronize_AppliesOnlyBeforeBound(t *testing.T) {
	reader := &fakeTSCReader{}
	provider := &switchableProvider{n: 1, id: 0}
	m := NewMfsLoggedObject(WithCPUProvider(provider), WithTSCReader(reader), WithCacheSlots(64))

	var ran []uint64
	push := func(ts uint64) {
		h := m.GetLogger()
		reader.now = ts
		h.Logger().Push(OpFunc{Name: "op", Fn: func() { ran = append(ran, ts) }})
		h.Release()
	}

	push(5)
	push(15)
	push(25)

	m.UpdateEndTSC(0, 25) // this CPU has no later in-flight op to wait for

	m.WaitSynchronize(20).Release()

	require.Equal(t, []uint64{5, 15}, ran)
	require.Len(t, m.pending, 1)
	assert.Equal(t, 1, m.pending[0].Len(), "tsc=25 stays deferred")

	// A later WaitSynchronize past 25 picks up the deferred entry.
	m.WaitSynchronize(30).Release()
	assert.Equal(t, []uint64{5, 15, 25}, ran)
	assert.Empty(t, m.pending)
}

func TestMfsLoggedObject_WaitSynchronize_WaitsForInFlightEndTSC(t *testing.T) {
	reader := &fakeTSCReader{}
	provider := &switchableProvider{n: 1, id: 0}
	m := NewMfsLoggedObject(WithCPUProvider(provider), WithTSCReader(reader), WithCacheSlots(64))

	m.UpdateStartTSC(0, 50)
	m.UpdateEndTSC(0, 10) // end < start: an operation is in flight

	go func() {
		h := m.GetLogger()
		reader.now = 60
		h.Logger().Push(OpFunc{Name: "late", Fn: func() {}})
		h.Release()
		m.UpdateEndTSC(0, 60)
	}()

	// If WaitSynchronize observes end(10) < start(50) < waitTSC(100), it
	// must block on endTSC's seqcount until the goroutine above
	// publishes a new end_tsc; if the goroutine has already published
	// end(60), there is nothing to wait for. Either way the tsc=60 op is
	// gathered and applied.
	m.WaitSynchronize(100).Release()

	assert.Empty(t, m.pending)
}
