package world

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"lootfall.ai/internal/sim/catalogs"
)

type WorldConfig struct {
	ID           string
	Seed         int64
	MaxResources int
	Anchors      []Anchor

	Placement PlacementConfig
	Ring      RingConfig

	// SpinEvery and SpinStep drive the idle yaw animation; zero disables it.
	SpinEvery time.Duration
	SpinStep  float64

	RespawnMin  time.Duration
	RespawnMax  time.Duration
	FillEvery   time.Duration
	DeathLinger time.Duration
}

// Options carries the collaborators a world reports to. All are optional.
type Options struct {
	Logger     *log.Logger
	Bus        *Bus
	Currency   CurrencySink
	DeathSinks []DeathSink
}

// World owns the live resources of one zone along with every task scoped to them:
// respawn timers, death lingers and the safety-net fill loop.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *log.Logger

	rng       *lockedRand
	registry  *Registry
	placement *Placement
	scheduler *Scheduler

	bus      *Bus
	currency CurrencySink
	deaths   []DeathSink

	// Serialises spawn attempts so the Current < Max check and the insert are one step.
	spawnMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	tasksMu   sync.Mutex // orders wg.Add against Close
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, opts Options) (*World, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("world: empty id")
	}
	if cats == nil {
		cats = catalogs.Empty()
	}
	if cfg.Ring.Points <= 0 {
		cfg.Ring.Points = 108
	}
	if cfg.FillEvery <= 0 {
		cfg.FillEvery = 5 * time.Second
	}
	if cfg.RespawnMax < cfg.RespawnMin {
		cfg.RespawnMax = cfg.RespawnMin
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      logger,
		rng:      newLockedRand(cfg.Seed),
		registry: newRegistry(cfg.ID, cfg.MaxResources),
		bus:      opts.Bus,
		currency: opts.Currency,
		deaths:   opts.DeathSinks,
		ctx:      ctx,
		cancel:   cancel,
	}
	w.placement = NewPlacement(cfg.Placement, w.rng)
	w.scheduler = newScheduler(w)
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Counters() Counters { return w.registry.Counters() }

func (w *World) Scheduler() *Scheduler { return w.scheduler }

func (w *World) Placement() *Placement { return w.placement }

func (w *World) Get(id int64) (*Resource, bool) { return w.registry.Get(id) }

func (w *World) Live() []ResourceView {
	live := w.registry.Live()
	out := make([]ResourceView, 0, len(live))
	for _, r := range live {
		out = append(out, r.View())
	}
	return out
}

// Run drives the safety-net fill loop until ctx is done or the world is closed.
func (w *World) Run(ctx context.Context) error {
	return w.scheduler.Run(ctx)
}

// Close cancels every world-owned task, waits for them, and removes the remaining
// resources without scheduling respawns.
func (w *World) Close() {
	w.closeOnce.Do(func() {
		w.tasksMu.Lock()
		w.cancel()
		w.tasksMu.Unlock()
		w.wg.Wait()
		// A spawn that passed its closed check before cancel still holds spawnMu.
		w.spawnMu.Lock()
		defer w.spawnMu.Unlock()
		for _, r := range w.registry.Live() {
			w.remove(r)
		}
	})
}

func (w *World) closed() bool { return w.ctx.Err() != nil }

// goOwned runs fn after delay on a world-owned task. fn is skipped if the world
// closes first.
func (w *World) goOwned(delay time.Duration, done <-chan struct{}, fn func()) bool {
	w.tasksMu.Lock()
	if w.closed() {
		w.tasksMu.Unlock()
		return false
	}
	w.wg.Add(1)
	w.tasksMu.Unlock()
	go func() {
		defer w.wg.Done()
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-w.ctx.Done():
			return
		case <-done:
			return
		case <-t.C:
			fn()
		}
	}()
	return true
}

func (w *World) publish(kind EventKind, view *ResourceView, payouts []Payout) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(ResourceEvent{Kind: kind, World: w.cfg.ID, Resource: view, Payouts: payouts})
}

func (w *World) publishCounters() {
	if w.bus == nil {
		return
	}
	c := w.Counters()
	w.bus.Publish(ResourceEvent{Kind: EventCounters, World: w.cfg.ID, Counters: &c})
}

// spawnOne makes a single spawn attempt. Skips (full, no anchor, bad catalog entry)
// come back as errors and leave the world unchanged.
func (w *World) spawnOne() (*Resource, error) {
	w.spawnMu.Lock()
	defer w.spawnMu.Unlock()

	if w.closed() {
		return nil, ErrClosed
	}
	if c := w.registry.Counters(); c.Current >= c.Max {
		return nil, ErrWorldFull
	}
	typ := w.SelectResourceType()
	if typ == "" {
		return nil, ErrEmptyCatalog
	}
	def, ok := w.catalogs.Def(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	if def.Model == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingModel, typ)
	}

	live := w.registry.Live()
	livePos := make([]Vec3, 0, len(live))
	for _, r := range live {
		livePos = append(livePos, r.Pose.Pos)
	}
	anchor, ok := w.placement.SelectAnchor(w.cfg.Anchors, livePos)
	if !ok {
		return nil, ErrNoAnchor
	}
	pose := w.placement.ComputePose(anchor, def)
	pose, clear := w.placement.Deoverlap(pose, livePos, w.placement.MinDistanceFor(def), w.placement.cfg.DeoverlapTries)
	if !clear {
		w.log.Printf("spawn %s at %s: still overlapping after %d nudges, placing anyway", typ, anchor.ID, w.placement.cfg.DeoverlapTries)
	}

	points := def.RingPoints
	if points <= 0 {
		points = w.cfg.Ring.Points
	}
	radius := def.RingRadius
	if radius <= 0 {
		radius = w.cfg.Ring.Radius
	}

	var r *Resource
	for attempt := 0; attempt < 8; attempt++ {
		id := w.rng.Int63n(1<<31-1) + 1
		if w.registry.has(id) {
			continue
		}
		r = newResource(w.ctx, id, w.cfg.ID, def.Type, def.MaxHP, def.Value, def.Currency, pose, points)
		break
	}
	if r == nil {
		return nil, ErrIDCollision
	}
	r.slots = buildRing(pose.Pos, anchor.Pos.Y, points, radius, w.cfg.Ring.BlockRadius, livePos)
	if err := w.registry.insert(r); err != nil {
		r.cancel()
		return nil, err
	}

	v := r.View()
	w.publish(EventSpawned, &v, nil)
	w.publishCounters()
	w.startSpin(r)
	return r, nil
}

// startSpin runs the resource's idle animation until it dies or is removed.
func (w *World) startSpin(r *Resource) {
	if w.cfg.SpinEvery <= 0 || w.cfg.SpinStep == 0 {
		return
	}
	w.tasksMu.Lock()
	defer w.tasksMu.Unlock()
	if w.closed() {
		return
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.cfg.SpinEvery)
		defer t.Stop()
		for {
			select {
			case <-r.Done():
				return
			case <-t.C:
				if !r.spin(w.cfg.SpinStep) {
					return
				}
			}
		}
	}()
}

// ApplyDamage is the only way HP changes. The caller whose hit kills the resource runs
// the death effects before this returns.
func (w *World) ApplyDamage(r *Resource, attacker AttackerID, power float64) (DamageResult, error) {
	res, err := r.applyDamage(attacker, power)
	if err != nil {
		return res, err
	}
	if res.Dead {
		return res, nil
	}
	v := res.View
	w.publish(EventHP, &v, nil)
	if res.Killed {
		w.handleDeath(r)
	}
	return res, nil
}

func (w *World) handleDeath(r *Resource) {
	payouts, total := w.distributeRewards(r)

	rec := DeathRecord{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		World:       w.cfg.ID,
		ResourceID:  r.ID,
		Type:        r.Type,
		Currency:    r.CurrencyKind,
		Value:       r.Value,
		MaxHP:       r.MaxHP,
		TotalDamage: total,
		Pos:         r.Pose.Pos,
		Payouts:     payouts,
	}
	for _, s := range w.deaths {
		if err := s.WriteDeath(rec); err != nil {
			w.log.Printf("death sink: resource=%d: %v", r.ID, err)
		}
	}

	v := r.View()
	w.publish(EventDead, &v, payouts)

	if w.cfg.DeathLinger <= 0 {
		w.remove(r)
		return
	}
	w.goOwned(w.cfg.DeathLinger, r.Done(), func() { w.remove(r) })
}

// remove takes r out of the registry, ends its tasks and, unless the world is closing,
// schedules a respawn.
func (w *World) remove(r *Resource) {
	if _, ok := w.registry.remove(r.ID); !ok {
		return
	}
	v := r.markRemoved()
	w.publish(EventRemoved, &v, nil)
	w.publishCounters()
	w.scheduler.OnResourceRemoved()
}

// Despawn removes a live resource without death effects.
func (w *World) Despawn(id int64) bool {
	r, ok := w.registry.Get(id)
	if !ok {
		return false
	}
	w.remove(r)
	return true
}

// isSkip reports errors that are routine while the world is crowded or shutting down.
func isSkip(err error) bool {
	return errors.Is(err, ErrWorldFull) || errors.Is(err, ErrNoAnchor) || errors.Is(err, ErrClosed)
}
