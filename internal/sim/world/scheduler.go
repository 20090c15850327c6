package world

import (
	"context"
	"errors"
	"time"

	"lootfall.ai/internal/sim/world/logic/respawn"
)

// Scheduler keeps a world topped up: an initial fill, a jittered respawn after every
// removal, and a periodic fill as a safety net.
type Scheduler struct {
	w *World
}

func newScheduler(w *World) *Scheduler { return &Scheduler{w: w} }

// FillWorld issues one spawn attempt per missing resource and returns how many
// succeeded. A skipped attempt is not retried in the same pass.
func (s *Scheduler) FillWorld() int {
	w := s.w
	c := w.Counters()
	deficit := c.Max - c.Current
	spawned := 0
	for i := 0; i < deficit; i++ {
		if _, err := w.spawnOne(); err != nil {
			if errors.Is(err, ErrWorldFull) || errors.Is(err, ErrClosed) {
				break
			}
			if !isSkip(err) {
				w.log.Printf("spawn skipped: %v", err)
			}
			continue
		}
		spawned++
	}
	return spawned
}

// OnResourceRemoved schedules a single spawn attempt after a random delay in
// [RespawnMin, RespawnMax]. The attempt is dropped if the world closes first.
func (s *Scheduler) OnResourceRemoved() {
	w := s.w
	if w.closed() {
		return
	}
	d := respawn.Delay(w.cfg.RespawnMin, w.cfg.RespawnMax, w.rng.Float64())
	w.goOwned(d, nil, func() {
		if _, err := w.spawnOne(); err != nil && !isSkip(err) {
			w.log.Printf("respawn skipped: %v", err)
		}
	})
}

// Run fills once, then on every FillEvery tick, until ctx is done or the world closes.
func (s *Scheduler) Run(ctx context.Context) error {
	w := s.w
	if n := s.FillWorld(); n > 0 {
		w.log.Printf("initial fill: spawned=%d", n)
	}
	t := time.NewTicker(w.cfg.FillEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.ctx.Done():
			return nil
		case <-t.C:
			s.FillWorld()
		}
	}
}
