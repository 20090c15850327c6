package ring

import (
	"math"
	"testing"
)

func TestAssignSlot_InRangeForAnySeed(t *testing.T) {
	seeds := []int64{0, 1, -1, 107, 108, 115, -115, math.MaxInt64, math.MinInt64}
	for _, n := range []int{1, 7, 108, 250} {
		for _, ps := range seeds {
			for _, as := range seeds {
				got := AssignSlot(ps, as, n, nil)
				if got < 1 || got > n {
					t.Fatalf("AssignSlot(%d,%d,%d)=%d out of range", ps, as, n, got)
				}
				got = AssignSlot(ps, as, n, func(int) bool { return false })
				if got < 1 || got > n {
					t.Fatalf("AssignSlot(%d,%d,%d) with no slots=%d out of range", ps, as, n, got)
				}
			}
		}
	}
}

func TestAssignSlot_ProbesAtStride(t *testing.T) {
	// seed 115 on 108 points: base slot is 8; with 8 missing the next probe is 15.
	exists := func(idx int) bool { return idx != 8 }
	if got := AssignSlot(100, 15, 108, nil); got != 8 {
		t.Fatalf("base slot=%d want 8", got)
	}
	if got := AssignSlot(100, 15, 108, exists); got != 15 {
		t.Fatalf("probed slot=%d want 15", got)
	}

	exists = func(idx int) bool { return idx == 22 }
	if got := AssignSlot(100, 15, 108, exists); got != 22 {
		t.Fatalf("second probe=%d want 22", got)
	}
}

func TestAssignSlot_WrapsAroundRing(t *testing.T) {
	// base 106 -> probes 106, 5, 12 ...
	exists := func(idx int) bool { return idx == 5 }
	if got := AssignSlot(105, 0, 108, exists); got != 5 {
		t.Fatalf("wrapped probe=%d want 5", got)
	}
}

func TestAssignSlot_FallsBackToBase(t *testing.T) {
	if got := AssignSlot(115, 0, 108, func(int) bool { return false }); got != 8 {
		t.Fatalf("fallback=%d want 8", got)
	}
}

func TestAssignSlot_DefaultPoints(t *testing.T) {
	if got := AssignSlot(DefaultPoints+2, 0, 0, nil); got != 3 {
		t.Fatalf("default ring slot=%d want 3", got)
	}
}

func TestAssignSlot_SpreadsDistinctAttackers(t *testing.T) {
	seen := map[int]bool{}
	for a := int64(1); a <= 100; a++ {
		seen[AssignSlot(40, a, 108, nil)] = true
	}
	if len(seen) != 100 {
		t.Fatalf("expected 100 distinct slots for consecutive seeds, got %d", len(seen))
	}
}

func TestOffset(t *testing.T) {
	dx, dz := Offset(1, 4, 2)
	if math.Abs(dx-2) > 1e-9 || math.Abs(dz) > 1e-9 {
		t.Fatalf("slot 1 offset=(%f,%f)", dx, dz)
	}
	dx, dz = Offset(2, 4, 2)
	if math.Abs(dx) > 1e-9 || math.Abs(dz-2) > 1e-9 {
		t.Fatalf("slot 2 offset=(%f,%f)", dx, dz)
	}
}

func TestAssignSlot_TenthProbeIsLast(t *testing.T) {
	// base 8: the last candidate is 8+9*7=71; 78 would be an eleventh.
	if got := AssignSlot(115, 0, 108, func(idx int) bool { return idx == 71 }); got != 71 {
		t.Fatalf("tenth probe=%d want 71", got)
	}
	if got := AssignSlot(115, 0, 108, func(idx int) bool { return idx == 78 }); got != 8 {
		t.Fatalf("eleventh candidate used: %d want fallback 8", got)
	}
}
