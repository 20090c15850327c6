package worldtest

import (
	"testing"
)

func TestConfigs_SpawnTablesReferenceDefinedModels(t *testing.T) {
	cats, _, worlds := LoadConfigs(t)
	for _, id := range worlds.WorldIDs() {
		tbl := cats.Resources.SpawnTables[id]
		if len(tbl) == 0 {
			t.Fatalf("world %s has no spawn table", id)
		}
		for typ := range tbl {
			def, ok := cats.Def(typ)
			if !ok {
				t.Fatalf("world %s spawns undefined type %q", id, typ)
			}
			if def.Model == "" {
				t.Fatalf("type %q has no model", typ)
			}
		}
	}
}

func TestConfigs_EveryWorldFillsToCapacity(t *testing.T) {
	h := NewHarness(t, 7)
	want := 0
	for _, w := range h.Worlds.Worlds {
		want += w.MaxResources
	}
	if got := h.Fill(); got != want {
		t.Fatalf("spawned %d want %d", got, want)
	}
	for _, c := range h.Manager.Counters() {
		if c.Current != c.Max {
			t.Fatalf("world %s at %d/%d", c.World, c.Current, c.Max)
		}
	}
	// A second pass has no deficit.
	if got := h.Fill(); got != 0 {
		t.Fatalf("second fill spawned %d", got)
	}
}

func TestConfigs_SpawnedResourcesKeepMinDistance(t *testing.T) {
	h := NewHarness(t, 11)
	h.Fill()
	for _, id := range h.Manager.WorldIDs() {
		w := h.World(id)
		clearRadius := w.Placement().Config().ClearRadius
		live := w.Live()
		for i := range live {
			for j := i + 1; j < len(live); j++ {
				a, b := live[i].Pos, live[j].Pos
				dx, dz := a.X-b.X, a.Z-b.Z
				if dx*dx+dz*dz < clearRadius*clearRadius {
					t.Fatalf("world %s: %d and %d closer than clear radius %.1f", id, live[i].ID, live[j].ID, clearRadius)
				}
			}
		}
	}
}
