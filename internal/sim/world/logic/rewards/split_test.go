package rewards

import (
	"math/rand"
	"testing"
)

func byID(shares []Share) map[string]Share {
	out := map[string]Share{}
	for _, s := range shares {
		out[s.AttackerID] = s
	}
	return out
}

func TestSplit_ExactProportions(t *testing.T) {
	shares := Split(10, []Contribution{
		{AttackerID: "A1", Damage: 30, Seq: 1},
		{AttackerID: "A2", Damage: 70, Seq: 2},
	})
	m := byID(shares)
	if m["A1"].Amount != 3 || m["A2"].Amount != 7 {
		t.Fatalf("unexpected shares: %+v", shares)
	}
	if !m["A2"].Top {
		t.Fatalf("expected A2 to be top contributor")
	}
	if Total(shares) != 10 {
		t.Fatalf("total=%d want 10", Total(shares))
	}
}

func TestSplit_RemainderToTopContributor(t *testing.T) {
	shares := Split(10, []Contribution{
		{AttackerID: "A1", Damage: 33, Seq: 5},
		{AttackerID: "A2", Damage: 33, Seq: 6},
		{AttackerID: "A3", Damage: 34, Seq: 7},
	})
	m := byID(shares)
	if m["A1"].Amount != 3 || m["A2"].Amount != 3 || m["A3"].Amount != 4 {
		t.Fatalf("unexpected shares: %+v", shares)
	}
	if !m["A3"].Top || m["A1"].Top || m["A2"].Top {
		t.Fatalf("top flag mismatch: %+v", shares)
	}
}

func TestSplit_TieGoesToFirstToReachMax(t *testing.T) {
	shares := Split(10, []Contribution{
		{AttackerID: "A1", Damage: 1, Seq: 1},
		{AttackerID: "A2", Damage: 1, Seq: 9},
		{AttackerID: "A3", Damage: 1, Seq: 4},
	})
	m := byID(shares)
	if !m["A1"].Top {
		t.Fatalf("expected A1 (lowest seq) to take the remainder: %+v", shares)
	}
	if m["A1"].Amount != 4 || m["A2"].Amount != 3 || m["A3"].Amount != 3 {
		t.Fatalf("unexpected shares: %+v", shares)
	}

	shares = Split(10, []Contribution{
		{AttackerID: "A9", Damage: 5, Seq: 3},
		{AttackerID: "A2", Damage: 5, Seq: 3},
	})
	if !byID(shares)["A2"].Top {
		t.Fatalf("equal seq should fall back to lowest id: %+v", shares)
	}
}

func TestSplit_ZeroContributionPaysNothing(t *testing.T) {
	if got := Split(10, nil); len(got) != 0 {
		t.Fatalf("expected no shares, got %+v", got)
	}
	if got := Split(10, []Contribution{{AttackerID: "A1", Damage: 0}}); len(got) != 0 {
		t.Fatalf("expected no shares, got %+v", got)
	}
	if got := Split(0, []Contribution{{AttackerID: "A1", Damage: 5}}); Total(got) != 0 {
		t.Fatalf("zero value should pay nothing, got %+v", got)
	}
}

func TestSplit_AlwaysSumsToValue(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 500; round++ {
		n := 1 + rng.Intn(100)
		contribs := make([]Contribution, 0, n)
		for i := 0; i < n; i++ {
			contribs = append(contribs, Contribution{
				AttackerID: string(rune('a'+i%26)) + string(rune('a'+i/26)),
				Damage:     rng.Intn(50),
				Seq:        uint64(rng.Intn(1000)),
			})
		}
		value := rng.Intn(100000)
		shares := Split(value, contribs)
		if len(shares) == 0 {
			continue
		}
		if got := Total(shares); got != value {
			t.Fatalf("round %d: total=%d want %d", round, got, value)
		}
		tops := 0
		for _, s := range shares {
			if s.Amount < 0 {
				t.Fatalf("negative share: %+v", s)
			}
			if s.Top {
				tops++
			}
		}
		if tops != 1 {
			t.Fatalf("round %d: expected exactly one top, got %d", round, tops)
		}
	}
}
