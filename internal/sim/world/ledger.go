package world

import (
	"sort"

	"lootfall.ai/internal/sim/world/logic/rewards"
)

// Ledger is the per-resource contribution ledger. It has no lock of its own; the
// owning Resource's mutex guards it.
type Ledger struct {
	entries map[AttackerID]*ledgerEntry
	seq     uint64
	total   int
}

type ledgerEntry struct {
	damage int
	// seq of the last increment, i.e. when the attacker reached its current total.
	seq uint64
}

func (l *Ledger) Add(id AttackerID, n int) {
	if n <= 0 {
		return
	}
	if l.entries == nil {
		l.entries = map[AttackerID]*ledgerEntry{}
	}
	l.seq++
	e := l.entries[id]
	if e == nil {
		e = &ledgerEntry{}
		l.entries[id] = e
	}
	e.damage += n
	e.seq = l.seq
	l.total += n
}

func (l *Ledger) Get(id AttackerID) int {
	if e := l.entries[id]; e != nil {
		return e.damage
	}
	return 0
}

func (l *Ledger) Total() int { return l.total }

func (l *Ledger) Contributions() []rewards.Contribution {
	out := make([]rewards.Contribution, 0, len(l.entries))
	for id, e := range l.entries {
		out = append(out, rewards.Contribution{AttackerID: string(id), Damage: e.damage, Seq: e.seq})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttackerID < out[j].AttackerID })
	return out
}
