package rewards

import "sort"

// Contribution is one attacker's cumulative damage on a resource. Seq is the ledger
// sequence at which the attacker last raised its total.
type Contribution struct {
	AttackerID string
	Damage     int
	Seq        uint64
}

type Share struct {
	AttackerID   string
	Contribution int
	Amount       int
	Top          bool
}

// Split divides value proportionally to damage, flooring each share, and hands the
// leftover to the top contributor so the shares always sum to value.
//
// Ties for top contributor go to the attacker that reached the max first (lowest Seq),
// then to the lowest attacker id.
func Split(value int, contribs []Contribution) []Share {
	if value <= 0 {
		return nil
	}
	var sum int64
	for _, c := range contribs {
		if c.Damage > 0 {
			sum += int64(c.Damage)
		}
	}
	if sum == 0 {
		return nil
	}

	sorted := make([]Contribution, 0, len(contribs))
	for _, c := range contribs {
		if c.Damage > 0 {
			sorted = append(sorted, c)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AttackerID < sorted[j].AttackerID })

	out := make([]Share, 0, len(sorted))
	remainder := value
	top := -1
	for i, c := range sorted {
		amt := int(int64(value) * int64(c.Damage) / sum)
		remainder -= amt
		out = append(out, Share{AttackerID: c.AttackerID, Contribution: c.Damage, Amount: amt})
		if top < 0 || beats(c, sorted[top]) {
			top = i
		}
	}
	out[top].Amount += remainder
	out[top].Top = true
	return out
}

func beats(a, b Contribution) bool {
	if a.Damage != b.Damage {
		return a.Damage > b.Damage
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.AttackerID < b.AttackerID
}

func Total(shares []Share) int {
	n := 0
	for _, s := range shares {
		n += s.Amount
	}
	return n
}
