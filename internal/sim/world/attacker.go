package world

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"lootfall.ai/internal/sim/world/logic/respawn"
)

// Resolver finds live targets. Both *World and the multiworld manager implement it.
type Resolver interface {
	Resolve(ref TargetRef, attackerSeed int64) (TargetHandle, bool)
}

type AttackerConfig struct {
	Seed   int64
	Power  float64
	Period time.Duration
}

// Attacker owns at most one damage loop at a time. The loop stops when the target
// dies or is removed, when the target is cleared, or when the attacker is destroyed.
type Attacker struct {
	ID     AttackerID
	seed   int64
	power  float64
	period time.Duration

	resolver Resolver
	log      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// engageMu serialises Engage and Disengage so a replaced loop is always stopped.
	engageMu sync.Mutex

	mu     sync.Mutex
	target *TargetRef
	handle TargetHandle
	gen    uint64
	stop   context.CancelFunc
	done   chan struct{}
}

func NewAttacker(id AttackerID, cfg AttackerConfig, res Resolver, logger *log.Logger) *Attacker {
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Attacker{
		ID:       id,
		seed:     respawn.AttackerSeed(cfg.Seed, string(id)),
		power:    cfg.Power,
		period:   cfg.Period,
		resolver: res,
		log:      logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (a *Attacker) Seed() int64 { return a.seed }

// Engage resolves ref and starts the damage loop against it, replacing any previous
// target. On a miss the stored reference is cleared and the attacker goes idle. The
// returned channel closes when the loop exits.
func (a *Attacker) Engage(ref TargetRef) (<-chan struct{}, bool) {
	a.engageMu.Lock()
	defer a.engageMu.Unlock()
	a.disengage()
	if a.ctx.Err() != nil {
		return nil, false
	}
	h, ok := a.resolver.Resolve(ref, a.seed)
	if !ok {
		return nil, false
	}
	h.Join()

	loopCtx, stop := context.WithCancel(a.ctx)
	done := make(chan struct{})

	a.mu.Lock()
	a.gen++
	gen := a.gen
	r := h.Ref()
	a.target = &r
	a.handle = h
	a.stop = stop
	a.done = done
	a.mu.Unlock()

	go a.loop(loopCtx, gen, h, done)
	return done, true
}

func (a *Attacker) loop(ctx context.Context, gen uint64, h TargetHandle, done chan struct{}) {
	defer close(done)
	defer a.clear(gen)

	t := time.NewTicker(a.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.Done():
			return
		case <-t.C:
			res, err := h.Damage(a.ID, a.power)
			if err != nil {
				if !errors.Is(err, ErrUnattributed) {
					a.log.Printf("attacker %s: damage resource=%d: %v", a.ID, h.ResourceID(), err)
				}
				return
			}
			if res.Killed || res.Dead {
				return
			}
		}
	}
}

// clear drops the target if it still belongs to loop generation gen.
func (a *Attacker) clear(gen uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.gen != gen {
		return
	}
	a.target = nil
	a.handle = TargetHandle{}
	a.stop = nil
	a.done = nil
}

// Disengage clears the target and waits for the damage loop to exit.
func (a *Attacker) Disengage() {
	a.engageMu.Lock()
	defer a.engageMu.Unlock()
	a.disengage()
}

func (a *Attacker) disengage() {
	a.mu.Lock()
	stop, done := a.stop, a.done
	a.gen++
	a.target = nil
	a.handle = TargetHandle{}
	a.stop = nil
	a.done = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	if done != nil {
		<-done
	}
}

// Target returns the stored reference, if any.
func (a *Attacker) Target() (TargetRef, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.target == nil {
		return TargetRef{}, false
	}
	return *a.target, true
}

// Slot returns the ring slot of the current target, or 0 when idle.
func (a *Attacker) Slot() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.target == nil {
		return 0
	}
	return a.handle.Slot()
}

func (a *Attacker) Idle() bool {
	_, ok := a.Target()
	return !ok
}

// Destroy stops the attacker for good.
func (a *Attacker) Destroy() {
	a.cancel()
	a.Disengage()
}
