package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"lootfall.ai/internal/sim/catalogs"
)

func TestFillWorld_FillsToMax(t *testing.T) {
	w := newTestWorld(t, testConfig(6, 9), testCatalogs(crystal(10, 5)), Options{})
	if n := w.Scheduler().FillWorld(); n != 6 {
		t.Fatalf("spawned=%d want 6", n)
	}
	c := w.Counters()
	if c.Current != 6 || c.Max != 6 {
		t.Fatalf("counters=%+v", c)
	}
	if n := w.Scheduler().FillWorld(); n != 0 {
		t.Fatalf("second fill spawned %d", n)
	}
}

func TestFillWorld_DeficitAttemptsSkipWithoutAnchors(t *testing.T) {
	// Max=10 with 7 already live and only one free anchor: 3 attempts, 1 succeeds.
	w := newTestWorld(t, testConfig(10, 8), testCatalogs(crystal(10, 5)), Options{})
	for i := 0; i < 7; i++ {
		spawnOrFail(t, w)
	}
	if n := w.Scheduler().FillWorld(); n != 1 {
		t.Fatalf("spawned=%d want 1", n)
	}
	if c := w.Counters(); c.Current != 8 {
		t.Fatalf("current=%d want 8", c.Current)
	}
	if _, err := w.spawnOne(); !errors.Is(err, ErrNoAnchor) {
		t.Fatalf("err=%v want ErrNoAnchor", err)
	}
}

func TestFillWorld_SkipsBadCatalogEntries(t *testing.T) {
	cats := testCatalogs(catalogs.ResourceDef{Type: "ghost", MaxHP: 5})
	w := newTestWorld(t, testConfig(3, 3), cats, Options{})
	if n := w.Scheduler().FillWorld(); n != 0 {
		t.Fatalf("spawned=%d for a type without a model", n)
	}
	if _, err := w.spawnOne(); !errors.Is(err, ErrMissingModel) {
		t.Fatalf("err=%v want ErrMissingModel", err)
	}

	empty := newTestWorld(t, testConfig(3, 3), catalogs.Empty(), Options{})
	if _, err := empty.spawnOne(); !errors.Is(err, ErrEmptyCatalog) {
		t.Fatalf("err=%v want ErrEmptyCatalog", err)
	}
}

func TestFillWorld_ConcurrentNeverOvershoots(t *testing.T) {
	w := newTestWorld(t, testConfig(5, 40), testCatalogs(crystal(10, 5)), Options{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Scheduler().FillWorld()
		}()
	}
	wg.Wait()
	if c := w.Counters(); c.Current != 5 {
		t.Fatalf("current=%d want exactly max", c.Current)
	}
}

func TestRespawnAfterDeath(t *testing.T) {
	cfg := testConfig(2, 4)
	cfg.DeathLinger = 50 * time.Millisecond
	deaths := &deathRecorder{}
	w := newTestWorld(t, cfg, testCatalogs(crystal(1, 1)), Options{DeathSinks: []DeathSink{deaths}})
	w.Scheduler().FillWorld()
	live := w.Live()
	if len(live) != 2 {
		t.Fatalf("live=%d want 2", len(live))
	}

	r, _ := w.Get(live[0].ID)
	if res, _ := w.ApplyDamage(r, "A1", 1); !res.Killed {
		t.Fatalf("expected kill")
	}
	// Still counted while the death lingers.
	if c := w.Counters(); c.Current != 2 {
		t.Fatalf("current=%d during linger", c.Current)
	}
	waitFor(t, time.Second, func() bool { return r.State() == StateRemoved })
	waitFor(t, time.Second, func() bool {
		for _, v := range w.Live() {
			if v.ID == r.ID {
				return false
			}
		}
		return w.Counters().Current == 2
	})
	if deaths.count() != 1 {
		t.Fatalf("death records=%d want 1", deaths.count())
	}
}

func TestCloseCancelsPendingRespawns(t *testing.T) {
	cfg := testConfig(1, 1)
	cfg.RespawnMin, cfg.RespawnMax = time.Hour, time.Hour
	w, err := New(cfg, testCatalogs(crystal(1, 1)), Options{})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	r := spawnOrFail(t, w)
	if _, err := w.ApplyDamage(r, "A1", 1); err != nil {
		t.Fatalf("damage: %v", err)
	}

	done := make(chan struct{})
	go func() {
		w.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("close blocked on a pending respawn")
	}
	if _, err := w.spawnOne(); !errors.Is(err, ErrClosed) {
		t.Fatalf("spawn after close err=%v", err)
	}
	if c := w.Counters(); c.Current != 0 {
		t.Fatalf("current=%d after close", c.Current)
	}
}

func TestSchedulerRunFillsAndStops(t *testing.T) {
	cfg := testConfig(3, 3)
	cfg.FillEvery = 5 * time.Millisecond
	w := newTestWorld(t, cfg, testCatalogs(crystal(10, 5)), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return w.Counters().Current == 3 })
	if !w.Despawn(w.Live()[0].ID) {
		t.Fatalf("despawn failed")
	}
	waitFor(t, time.Second, func() bool { return w.Counters().Current == 3 })

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err=%v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestClose_RacingFillLeavesNothingLive(t *testing.T) {
	for i := 0; i < 200; i++ {
		w := newTestWorld(t, testConfig(5, 10), testCatalogs(crystal(10, 5)), Options{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				w.Scheduler().FillWorld()
			}
		}()
		w.Close()
		wg.Wait()
		if c := w.Counters(); c.Current != 0 {
			t.Fatalf("round %d: current=%d after close", i, c.Current)
		}
		if n := len(w.Live()); n != 0 {
			t.Fatalf("round %d: %d live after close", i, n)
		}
	}
}
