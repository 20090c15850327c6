package world

import (
	"testing"
	"time"
)

func TestResolve_LiveTarget(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(16)
	defer cancel()
	w := newTestWorld(t, testConfig(1, 1), testCatalogs(crystal(10, 0)), Options{Bus: bus})
	r := spawnOrFail(t, w)

	h, ok := w.Resolve(r.Ref(), 17)
	if !ok {
		t.Fatalf("resolve missed a live resource")
	}
	if h.ResourceID() != r.ID || h.Slot() < 1 || h.Slot() > 108 {
		t.Fatalf("handle id=%d slot=%d", h.ResourceID(), h.Slot())
	}
	if h2, _ := w.Resolve(r.Ref(), 17); h2.Slot() != h.Slot() {
		t.Fatalf("slot not stable: %d vs %d", h2.Slot(), h.Slot())
	}
	pos, onRing := h.Position()
	if !onRing {
		t.Fatalf("slot %d blocked on an empty field", h.Slot())
	}
	if d := pos.PlanarDist(r.Pose.Pos); d < 3.99 || d > 4.01 {
		t.Fatalf("slot distance=%v want ring radius", d)
	}

	h.Join()
	h.Join()
	engaged := 0
	for len(ch) > 0 {
		if (<-ch).Kind == EventEngaged {
			engaged++
		}
	}
	if engaged != 1 || r.State() != StateEngaged {
		t.Fatalf("engaged events=%d state=%s", engaged, r.State())
	}
}

func TestResolve_Misses(t *testing.T) {
	cfg := testConfig(2, 2)
	cfg.DeathLinger = time.Hour
	w := newTestWorld(t, cfg, testCatalogs(crystal(1, 0)), Options{})
	r := spawnOrFail(t, w)

	ref := r.Ref()
	tests := []struct {
		name string
		ref  TargetRef
	}{
		{"other world", TargetRef{World: "CAVERN", ID: ref.ID, Type: ref.Type}},
		{"unknown id", TargetRef{World: ref.World, ID: ref.ID + 1, Type: ref.Type}},
		{"type changed", TargetRef{World: ref.World, ID: ref.ID, Type: "crystal_large"}},
	}
	for _, tc := range tests {
		if _, ok := w.Resolve(tc.ref, 1); ok {
			t.Fatalf("%s: resolved", tc.name)
		}
	}

	if _, err := w.ApplyDamage(r, "A1", 1); err != nil {
		t.Fatalf("damage: %v", err)
	}
	if _, ok := w.Get(r.ID); !ok {
		t.Fatalf("dead resource should still be registered while lingering")
	}
	if _, ok := w.Resolve(ref, 1); ok {
		t.Fatalf("resolved a dead resource")
	}
}
