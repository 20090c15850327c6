package world

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"lootfall.ai/internal/sim/catalogs"
)

func testCatalogs(defs ...catalogs.ResourceDef) *catalogs.Catalogs {
	c := catalogs.Empty()
	for _, d := range defs {
		c.Resources.ByType[d.Type] = d
		c.Resources.Types = append(c.Resources.Types, d.Type)
	}
	sort.Strings(c.Resources.Types)
	return c
}

func crystal(maxHP, value int) catalogs.ResourceDef {
	return catalogs.ResourceDef{Type: "crystal_small", Model: "crystal_small.glb", MaxHP: maxHP, Value: value, Currency: "shards", Height: 1}
}

func gridAnchors(n int, spacing float64) []Anchor {
	out := make([]Anchor, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Anchor{ID: fmt.Sprintf("a%d", i), Pos: Vec3{X: float64(i) * spacing, Z: 0}})
	}
	return out
}

func testConfig(maxResources, anchors int) WorldConfig {
	return WorldConfig{
		ID:           "MEADOW",
		Seed:         42,
		MaxResources: maxResources,
		Anchors:      gridAnchors(anchors, 20),
		Placement: PlacementConfig{
			ClearRadius: 6,
			MinDistance: 8,
			EmbedRatio:  0.15,
			Upright:     true,
		},
		Ring:       RingConfig{Points: 108, Radius: 4, BlockRadius: 1.5},
		RespawnMin: 5 * time.Millisecond,
		RespawnMax: 10 * time.Millisecond,
		FillEvery:  time.Hour,
	}
}

func newTestWorld(t *testing.T, cfg WorldConfig, cats *catalogs.Catalogs, opts Options) *World {
	t.Helper()
	w, err := New(cfg, cats, opts)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	t.Cleanup(w.Close)
	return w
}

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
	fail  bool
}

type sinkCall struct {
	Attacker AttackerID
	Kind     string
	Amount   int
	Reason   string
}

func (s *recordingSink) AddCurrency(a AttackerID, kind string, amount int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, sinkCall{a, kind, amount, reason})
	if s.fail {
		return fmt.Errorf("wallet offline")
	}
	return nil
}

func (s *recordingSink) snapshot() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

type deathRecorder struct {
	mu   sync.Mutex
	recs []DeathRecord
}

func (d *deathRecorder) WriteDeath(rec DeathRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recs = append(d.recs, rec)
	return nil
}

func (d *deathRecorder) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.recs)
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", d)
}

func spawnOrFail(t *testing.T, w *World) *Resource {
	t.Helper()
	r, err := w.spawnOne()
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return r
}
