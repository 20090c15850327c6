package weights

import (
	"math"
	"math/rand"
	"testing"
)

func TestSampleWeighted_Ratio(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	w := map[string]float64{"A": 1, "B": 3}
	counts := map[string]int{}
	const draws = 10000
	for i := 0; i < draws; i++ {
		counts[SampleWeighted(w, rng.Float64())]++
	}
	if counts["A"]+counts["B"] != draws {
		t.Fatalf("unexpected ids drawn: %v", counts)
	}
	// Expected A share 0.25, sd ~0.0043; allow ~5 sd.
	share := float64(counts["A"]) / draws
	if math.Abs(share-0.25) > 0.022 {
		t.Fatalf("A share=%f want ~0.25 (counts=%v)", share, counts)
	}
}

func TestSampleWeighted_Boundaries(t *testing.T) {
	w := map[string]float64{"A": 1, "B": 3, "C": 0}
	if got := SampleWeighted(w, 0); got != "A" {
		t.Fatalf("roll 0 -> %q want A", got)
	}
	if got := SampleWeighted(w, 0.2499); got != "A" {
		t.Fatalf("roll .2499 -> %q want A", got)
	}
	if got := SampleWeighted(w, 0.25); got != "B" {
		t.Fatalf("roll .25 -> %q want B", got)
	}
	if got := SampleWeighted(w, 0.9999999); got != "B" {
		t.Fatalf("roll ~1 -> %q want B", got)
	}
	if got := SampleWeighted(map[string]float64{"X": 0}, 0.5); got != "" {
		t.Fatalf("all-zero weights -> %q want empty", got)
	}
}

func TestUniform(t *testing.T) {
	ids := []string{"a", "b", "c"}
	if Uniform(ids, 0) != "a" || Uniform(ids, 0.5) != "b" || Uniform(ids, 0.99) != "c" {
		t.Fatalf("uniform mapping mismatch")
	}
	if Uniform(nil, 0.3) != "" {
		t.Fatalf("expected empty pick")
	}
}
