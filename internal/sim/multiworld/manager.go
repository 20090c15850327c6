package multiworld

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/tuning"
	"lootfall.ai/internal/sim/world"
)

var ErrUnknownWorld = errors.New("unknown world")

type Runtime struct {
	Spec  WorldSpec
	World *world.World
}

const stateVersion = 1

// Lifetime totals for one world. They survive restarts through the state file.
type WorldTotals struct {
	Deaths   uint64           `json:"deaths"`
	Damage   uint64           `json:"damage"`
	Payouts  uint64           `json:"payouts"`
	Currency map[string]int64 `json:"currency,omitempty"`
}

type persistedState struct {
	Version int                    `json:"version"`
	Totals  map[string]WorldTotals `json:"totals"`
}

type ManagerOptions struct {
	Seed       int64
	Logger     *log.Logger
	Bus        *world.Bus
	Currency   world.CurrencySink
	DeathSinks []world.DeathSink
	// StateFile, when set, receives debounced lifetime totals.
	StateFile string
}

// Manager owns one World per configured zone and routes lookups by world id.
type Manager struct {
	mu sync.RWMutex

	runtimes  map[string]*Runtime
	defaultID string
	bus       *world.Bus
	log       *log.Logger

	stateFile string
	totals    map[string]WorldTotals

	persistDebounce time.Duration
	persistCh       chan struct{}
	persistFlush    chan chan struct{}
	persistStop     chan struct{}
	persistWG       sync.WaitGroup
	closeOnce       sync.Once
}

// BuildWorldConfig merges a world entry from worlds.yaml with the global tuning.
func BuildWorldConfig(spec WorldSpec, tune tuning.Tuning, seed int64) world.WorldConfig {
	anchors := make([]world.Anchor, 0, len(spec.Anchors))
	for _, a := range spec.Anchors {
		anchors = append(anchors, world.Anchor{ID: a.ID, Pos: world.Vec3{X: a.X, Y: a.Y, Z: a.Z}})
	}
	p := tune.Placement
	clearRadius := p.ClearRadius
	if spec.ClearRadius > 0 {
		clearRadius = spec.ClearRadius
	}
	minDist := p.MinDistance
	if spec.MinDistance > 0 {
		minDist = spec.MinDistance
	}
	offsets := make([]world.HeightOffset, 0, len(p.HeightOffsets))
	for _, h := range p.HeightOffsets {
		offsets = append(offsets, world.HeightOffset{Match: h.Match, Offset: h.Offset})
	}
	return world.WorldConfig{
		ID:           spec.ID,
		Seed:         seed + spec.SeedOffset,
		MaxResources: spec.MaxResources,
		Anchors:      anchors,
		Placement: world.PlacementConfig{
			ClearRadius:         clearRadius,
			MinDistance:         minDist,
			DeoverlapTries:      p.DeoverlapTries,
			EmbedRatio:          p.EmbedRatio,
			Upright:             p.Upright,
			DefaultHeightOffset: p.DefaultHeightOffset,
			HeightOffsets:       offsets,
		},
		Ring: world.RingConfig{
			Points:      tune.Ring.Points,
			Radius:      tune.Ring.Radius,
			BlockRadius: tune.Ring.BlockRadius,
		},
		SpinEvery:   tune.SpinEvery(),
		SpinStep:    tune.SpinDegrees,
		RespawnMin:  tune.RespawnMin(),
		RespawnMax:  tune.RespawnMax(),
		FillEvery:   tune.FillEvery(),
		DeathLinger: tune.DeathLinger(),
	}
}

func NewManager(cfg Config, tune tuning.Tuning, cats *catalogs.Catalogs, opts ManagerOptions) (*Manager, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		runtimes:        map[string]*Runtime{},
		defaultID:       cfg.DefaultWorldID,
		bus:             opts.Bus,
		log:             logger,
		stateFile:       opts.StateFile,
		totals:          map[string]WorldTotals{},
		persistDebounce: 200 * time.Millisecond,
		persistCh:       make(chan struct{}, 1),
		persistFlush:    make(chan chan struct{}, 8),
		persistStop:     make(chan struct{}),
	}
	sinks := append([]world.DeathSink{m}, opts.DeathSinks...)
	for _, spec := range cfg.Worlds {
		w, err := world.New(BuildWorldConfig(spec, tune, opts.Seed), cats, world.Options{
			Logger:     log.New(logger.Writer(), fmt.Sprintf("[world %s] ", spec.ID), logger.Flags()),
			Bus:        opts.Bus,
			Currency:   opts.Currency,
			DeathSinks: sinks,
		})
		if err != nil {
			for _, rt := range m.runtimes {
				rt.World.Close()
			}
			return nil, fmt.Errorf("world %s: %w", spec.ID, err)
		}
		m.runtimes[spec.ID] = &Runtime{Spec: spec, World: w}
	}
	m.loadState()
	m.persistWG.Add(1)
	go m.persistLoop()
	return m, nil
}

func (m *Manager) DefaultWorldID() string { return m.defaultID }

func (m *Manager) Bus() *world.Bus { return m.bus }

func (m *Manager) WorldIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.runtimes))
	for id := range m.runtimes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m *Manager) Runtime(id string) *Runtime {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runtimes[id]
}

func (m *Manager) World(id string) (*world.World, error) {
	rt := m.Runtime(id)
	if rt == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownWorld, id)
	}
	return rt.World, nil
}

// Resolve routes a stored target reference to the world that owns it. An empty world
// falls back to the default world.
func (m *Manager) Resolve(ref world.TargetRef, attackerSeed int64) (world.TargetHandle, bool) {
	id := ref.World
	if id == "" {
		id = m.defaultID
	}
	rt := m.Runtime(id)
	if rt == nil {
		return world.TargetHandle{}, false
	}
	return rt.World.Resolve(ref, attackerSeed)
}

func (m *Manager) Counters() []world.Counters {
	ids := m.WorldIDs()
	out := make([]world.Counters, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Runtime(id).World.Counters())
	}
	return out
}

// Run drives every world until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, id := range m.WorldIDs() {
		w := m.Runtime(id).World
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

// WriteDeath folds a death into the lifetime totals.
func (m *Manager) WriteDeath(rec world.DeathRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.totals[rec.World]
	t.Deaths++
	t.Damage += uint64(rec.TotalDamage)
	for _, p := range rec.Payouts {
		if p.Amount <= 0 {
			continue
		}
		t.Payouts++
		if t.Currency == nil {
			t.Currency = map[string]int64{}
		}
		t.Currency[rec.Currency] += int64(p.Amount)
	}
	m.totals[rec.World] = t
	m.schedulePersistLocked()
	return nil
}

func (m *Manager) Totals() map[string]WorldTotals {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotStateLocked().Totals
}

// Close stops every world, then flushes the state file.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		for _, id := range m.WorldIDs() {
			m.Runtime(id).World.Close()
		}
		close(m.persistStop)
		m.persistWG.Wait()
	})
}

func (m *Manager) FlushState(ctx context.Context) error {
	if m.stateFile == "" {
		return nil
	}
	// Close writes the final state when it stops the persist loop.
	select {
	case <-m.persistStop:
		m.persistWG.Wait()
		return nil
	default:
	}
	ack := make(chan struct{})
	select {
	case m.persistFlush <- ack:
	case <-m.persistStop:
		m.persistWG.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
		return nil
	case <-m.persistStop:
		m.persistWG.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) loadState() {
	if m.stateFile == "" {
		return
	}
	b, err := os.ReadFile(m.stateFile)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Printf("state: read %s: %v", m.stateFile, err)
		}
		return
	}
	var st persistedState
	if err := json.Unmarshal(b, &st); err != nil {
		m.log.Printf("state: decode %s: %v", m.stateFile, err)
		return
	}
	if st.Version != stateVersion {
		m.log.Printf("state: %s has version %d, want %d; ignoring", m.stateFile, st.Version, stateVersion)
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, t := range st.Totals {
		if _, ok := m.runtimes[id]; ok {
			m.totals[id] = t
		}
	}
}

func (m *Manager) schedulePersistLocked() {
	if m.stateFile == "" {
		return
	}
	select {
	case m.persistCh <- struct{}{}:
	default:
	}
}

func (m *Manager) persistLoop() {
	defer m.persistWG.Done()
	var timer *time.Timer
	stopTimer := func() {
		if timer == nil {
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer = nil
	}
	for {
		var timerCh <-chan time.Time
		if timer != nil {
			timerCh = timer.C
		}
		select {
		case <-m.persistStop:
			stopTimer()
			m.persistNow()
			return
		case <-m.persistCh:
			if timer == nil {
				timer = time.NewTimer(m.persistDebounce)
			}
		case ack := <-m.persistFlush:
			stopTimer()
			m.persistNow()
			close(ack)
		case <-timerCh:
			timer = nil
			m.persistNow()
		}
	}
}

func (m *Manager) persistNow() {
	if m.stateFile == "" {
		return
	}
	m.mu.RLock()
	st := m.snapshotStateLocked()
	m.mu.RUnlock()
	if err := m.writeState(st); err != nil {
		m.log.Printf("state: write %s: %v", m.stateFile, err)
	}
}

func (m *Manager) snapshotStateLocked() persistedState {
	st := persistedState{Version: stateVersion, Totals: map[string]WorldTotals{}}
	for id, t := range m.totals {
		cp := t
		if t.Currency != nil {
			cp.Currency = make(map[string]int64, len(t.Currency))
			for k, v := range t.Currency {
				cp.Currency[k] = v
			}
		}
		st.Totals[id] = cp
	}
	return st
}

func (m *Manager) writeState(st persistedState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.stateFile), 0o755); err != nil {
		return err
	}
	tmp := m.stateFile + ".tmp"
	if err := os.WriteFile(tmp, append(b, '\n'), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, m.stateFile)
}
