package log

import (
	"path/filepath"
	"testing"

	"lootfall.ai/internal/sim/world"
)

func TestDeathLogger_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := NewDeathLogger(dir)
	recs := []world.DeathRecord{
		{World: "MEADOW", ResourceID: 7, Type: "crystal_small", Currency: "shards", Value: 10, MaxHP: 3, TotalDamage: 3,
			Payouts: []world.Payout{{Attacker: "X", Contribution: 1, Amount: 4, Top: true}, {Attacker: "Y", Contribution: 2, Amount: 6}}},
		{World: "CAVERN", ResourceID: 9, Type: "ore_large", Currency: "gold", Value: 0, MaxHP: 50, TotalDamage: 50},
	}
	for _, r := range recs {
		if err := l.WriteDeath(r); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "deaths", "deaths-*.jsonl.zst"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no log files: %v", err)
	}
	var got []world.DeathRecord
	for _, f := range files {
		part, err := ReadDeaths(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		got = append(got, part...)
	}
	if len(got) != 2 {
		t.Fatalf("records=%d want 2", len(got))
	}
	if got[0].ResourceID != 7 || len(got[0].Payouts) != 2 || !got[0].Payouts[0].Top {
		t.Fatalf("first record=%+v", got[0])
	}
	if got[1].Type != "ore_large" || got[1].Payouts != nil {
		t.Fatalf("second record=%+v", got[1])
	}
}
