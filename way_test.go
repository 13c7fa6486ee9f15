package oplog

import "testing"

func TestNewPerCPUCache_DefaultsSlotsAndNCPU(t *testing.T) {
	pc := NewPerCPUCache[TscLogger](0, 0)
	if pc.slots != CacheSlots {
		t.Errorf("slots = %d, want %d", pc.slots, CacheSlots)
	}
	if len(pc.perCPU) != 1 {
		t.Errorf("perCPU len = %d, want 1", len(pc.perCPU))
	}
}

func TestHashWay_Deterministic(t *testing.T) {
	pc := NewPerCPUCache[TscLogger](2, 64)
	obj := &LoggedObject[TscLogger]{}

	w1 := pc.hashWay(0, obj)
	w2 := pc.hashWay(0, obj)
	if w1 != w2 {
		t.Error("hashWay should return the same way for the same (cpu, obj)")
	}
}

func TestHashWay_WithinBounds(t *testing.T) {
	pc := NewPerCPUCache[TscLogger](1, 8)
	for i := 0; i < 64; i++ {
		obj := &LoggedObject[TscLogger]{}
		w := pc.hashWay(0, obj)
		found := false
		for j := range pc.perCPU[0].ways {
			if &pc.perCPU[0].ways[j] == w {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("hashWay returned a way outside the per-CPU table")
		}
	}
}

func TestSharedCache_SameTypeShares(t *testing.T) {
	type marker1 struct{ TscLogger }
	a := sharedCache[marker1](4)
	b := sharedCache[marker1](4)
	if a != b {
		t.Error("sharedCache should return the same *PerCPUCache for repeated calls with the same L")
	}
}

func TestSharedCache_DistinctTypesDoNotShare(t *testing.T) {
	type markerA struct{ TscLogger }
	type markerB struct{ TscLogger }
	a := sharedCache[markerA](4)
	b := sharedCache[markerB](4)
	if any(a) == any(b) {
		t.Error("sharedCache should not share caches across distinct Logger types")
	}
}
