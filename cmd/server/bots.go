package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"lootfall.ai/internal/sim/multiworld"
	"lootfall.ai/internal/sim/world"
)

// botFleet drives in-process attackers: each idle bot picks a random live resource,
// engages it, and goes idle again when the target dies or disappears.
type botFleet struct {
	mgr   *multiworld.Manager
	bots  []*world.Attacker
	rng   *rand.Rand
	log   *log.Logger
	every time.Duration
}

func newBotFleet(mgr *multiworld.Manager, n int, power float64, tick time.Duration, seed int64, logger *log.Logger) *botFleet {
	f := &botFleet{
		mgr:   mgr,
		rng:   rand.New(rand.NewSource(seed ^ 0x5eed)),
		log:   logger,
		every: 500 * time.Millisecond,
	}
	for i := 1; i <= n; i++ {
		id := world.AttackerID(fmt.Sprintf("A%d", i))
		f.bots = append(f.bots, world.NewAttacker(id, world.AttackerConfig{Power: power, Period: tick}, mgr, logger))
	}
	return f
}

func (f *botFleet) Run(ctx context.Context) {
	defer func() {
		for _, b := range f.bots {
			b.Destroy()
		}
	}()
	t := time.NewTicker(f.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.step()
		}
	}
}

func (f *botFleet) step() {
	for _, b := range f.bots {
		if !b.Idle() {
			continue
		}
		ref, ok := f.pickTarget()
		if !ok {
			return
		}
		if _, ok := b.Engage(ref); ok {
			f.log.Printf("%s engaged %s/%d (%s) slot=%d", b.ID, ref.World, ref.ID, ref.Type, b.Slot())
		}
	}
}

func (f *botFleet) pickTarget() (world.TargetRef, bool) {
	var live []world.ResourceView
	for _, id := range f.mgr.WorldIDs() {
		w, err := f.mgr.World(id)
		if err != nil {
			continue
		}
		for _, v := range w.Live() {
			if !v.Dead {
				live = append(live, v)
			}
		}
	}
	if len(live) == 0 {
		return world.TargetRef{}, false
	}
	v := live[f.rng.Intn(len(live))]
	return world.TargetRef{World: v.World, ID: v.ID, Type: v.Type}, true
}
