package economy

import (
	"errors"
	"sync"
	"testing"

	"lootfall.ai/internal/sim/world"
)

func TestWallets_AddAndHoldings(t *testing.T) {
	w := NewWallets()
	if err := w.AddCurrency("A2", "shards", 3, "breakable:crystal_small"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.AddCurrency("A1", "gold", 5, "breakable:ore_large"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := w.AddCurrency("A1", "shards", 2, "breakable:crystal_small"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := w.Balance("A1", "shards"); got != 2 {
		t.Fatalf("A1 shards=%d", got)
	}
	h := w.Holdings()
	if len(h) != 3 || h[0].Attacker != "A1" || h[0].Currency != "gold" || h[2].Attacker != "A2" {
		t.Fatalf("holdings=%+v", h)
	}
	if got := w.ByReason()["breakable:crystal_small"]; got != 5 {
		t.Fatalf("by reason=%d", got)
	}
}

func TestWallets_Rejects(t *testing.T) {
	w := NewWallets()
	if err := w.AddCurrency("", "shards", 1, "x"); !errors.Is(err, world.ErrUnattributed) {
		t.Fatalf("err=%v", err)
	}
	if err := w.AddCurrency("A1", "", 1, "x"); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	if err := w.AddCurrency("A1", "shards", -1, "x"); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestWallets_Concurrent(t *testing.T) {
	w := NewWallets()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = w.AddCurrency("A1", "shards", 1, "r")
			}
		}()
	}
	wg.Wait()
	if got := w.Balance("A1", "shards"); got != 1000 {
		t.Fatalf("balance=%d want 1000", got)
	}
}
