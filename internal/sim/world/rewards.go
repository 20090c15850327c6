package world

import (
	"lootfall.ai/internal/sim/world/logic/rewards"
)

// RewardReason tags every payout with the resource type it came from.
func RewardReason(typ string) string { return "breakable:" + typ }

// distributeRewards splits r.Value across its contributors and credits each share. It
// runs once per resource, from the call that killed it.
func (w *World) distributeRewards(r *Resource) ([]Payout, int) {
	contribs, total := r.contributions()
	shares := rewards.Split(r.Value, contribs)
	if len(shares) == 0 {
		if total == 0 {
			w.log.Printf("death resource=%d type=%s: no contributors, no payout", r.ID, r.Type)
		}
		return nil, total
	}

	payouts := make([]Payout, 0, len(shares))
	reason := RewardReason(r.Type)
	for _, s := range shares {
		p := Payout{
			Attacker:     AttackerID(s.AttackerID),
			Contribution: s.Contribution,
			Amount:       s.Amount,
			Top:          s.Top,
		}
		payouts = append(payouts, p)
		if s.Amount <= 0 || w.currency == nil {
			continue
		}
		if err := w.currency.AddCurrency(p.Attacker, r.CurrencyKind, s.Amount, reason); err != nil {
			w.log.Printf("payout resource=%d attacker=%s amount=%d: %v", r.ID, p.Attacker, s.Amount, err)
		}
	}
	return payouts, total
}
