package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"lootfall.ai/internal/persistence/indexdb"
	"lootfall.ai/internal/sim/world"
)

func sampleDeaths() []world.DeathRecord {
	return []world.DeathRecord{
		{Time: "2026-01-02T03:04:05Z", World: "MEADOW", ResourceID: 1, Type: "crystal_small", Currency: "shards", Value: 10,
			Payouts: []world.Payout{{Attacker: "A1", Contribution: 6, Amount: 6, Top: true}, {Attacker: "A2", Contribution: 4, Amount: 4}}},
		{Time: "2026-01-02T03:04:06Z", World: "CAVERN", ResourceID: 2, Type: "geode", Currency: "shards", Value: 5,
			Payouts: []world.Payout{{Attacker: "A2", Contribution: 5, Amount: 5, Top: true}}},
	}
}

func TestFilterDeaths(t *testing.T) {
	got := filterDeaths(sampleDeaths(), "CAVERN", "")
	if len(got) != 1 || got[0].ResourceID != 2 {
		t.Fatalf("world filter: %+v", got)
	}
	got = filterDeaths(sampleDeaths(), "", "crystal_small")
	if len(got) != 1 || got[0].ResourceID != 1 {
		t.Fatalf("type filter: %+v", got)
	}
	if got := filterDeaths(sampleDeaths(), " ", ""); len(got) != 2 {
		t.Fatalf("blank filter kept %d", len(got))
	}
}

func TestSummarizeDeaths_SortsByEarned(t *testing.T) {
	rows := summarizeDeaths(sampleDeaths())
	if len(rows) != 2 {
		t.Fatalf("rows=%d want 2", len(rows))
	}
	if rows[0].Attacker != "A2" || rows[0].Earned != 9 || rows[0].Kills != 2 || rows[0].TopKills != 1 {
		t.Fatalf("first row: %+v", rows[0])
	}
	if rows[1].Attacker != "A1" || rows[1].Earned != 6 || rows[1].TopKills != 1 {
		t.Fatalf("second row: %+v", rows[1])
	}
}

func TestQueryPayouts_Filters(t *testing.T) {
	s, err := indexdb.OpenSQLite(filepath.Join(t.TempDir(), "index", "lootfall.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	for _, rec := range sampleDeaths() {
		if err := s.WriteDeath(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("sync: %v", err)
	}

	rows, err := queryPayouts(s.DB(), "", "A2", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("A2 payouts=%d want 2", len(rows))
	}
	rows, err = queryPayouts(s.DB(), "MEADOW", "", 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("MEADOW payouts=%d want 2", len(rows))
	}
	deaths, err := queryDeaths(s.DB(), "", 1)
	if err != nil {
		t.Fatalf("query deaths: %v", err)
	}
	if len(deaths) != 1 || deaths[0].(deathRow).ResourceID != 2 {
		t.Fatalf("latest death: %+v", deaths)
	}
}
