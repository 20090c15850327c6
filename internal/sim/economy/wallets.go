package economy

import (
	"fmt"
	"sort"
	"sync"

	"lootfall.ai/internal/sim/world"
)

// Wallets is the in-process currency store. It implements world.CurrencySink.
type Wallets struct {
	mu       sync.Mutex
	balances map[world.AttackerID]map[string]int64
	// Credited totals per reason tag, for the admin state view.
	byReason map[string]int64
}

func NewWallets() *Wallets {
	return &Wallets{
		balances: map[world.AttackerID]map[string]int64{},
		byReason: map[string]int64{},
	}
}

func (w *Wallets) AddCurrency(attacker world.AttackerID, kind string, amount int, reason string) error {
	if attacker == "" {
		return fmt.Errorf("add currency: %w", world.ErrUnattributed)
	}
	if kind == "" {
		return fmt.Errorf("add currency: empty currency kind")
	}
	if amount < 0 {
		return fmt.Errorf("add currency: negative amount %d", amount)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	b := w.balances[attacker]
	if b == nil {
		b = map[string]int64{}
		w.balances[attacker] = b
	}
	b[kind] += int64(amount)
	w.byReason[reason] += int64(amount)
	return nil
}

func (w *Wallets) Balance(attacker world.AttackerID, kind string) int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balances[attacker][kind]
}

type Holding struct {
	Attacker world.AttackerID `json:"attacker"`
	Currency string           `json:"currency"`
	Amount   int64            `json:"amount"`
}

// Holdings lists every non-zero balance, ordered by attacker then currency.
func (w *Wallets) Holdings() []Holding {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []Holding{}
	for a, b := range w.balances {
		for kind, n := range b {
			if n != 0 {
				out = append(out, Holding{Attacker: a, Currency: kind, Amount: n})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Attacker != out[j].Attacker {
			return out[i].Attacker < out[j].Attacker
		}
		return out[i].Currency < out[j].Currency
	})
	return out
}

func (w *Wallets) ByReason() map[string]int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]int64, len(w.byReason))
	for k, v := range w.byReason {
		out[k] = v
	}
	return out
}
