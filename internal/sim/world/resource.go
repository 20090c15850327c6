package world

import (
	"context"
	"math"
	"sync"

	"lootfall.ai/internal/sim/world/logic/rewards"
	"lootfall.ai/internal/sim/world/logic/ring"
)

type ResourceState int

const (
	StateSpawned ResourceState = iota
	StateEngaged
	StateDead
	StateRemoved
)

func (s ResourceState) String() string {
	switch s {
	case StateSpawned:
		return "SPAWNED"
	case StateEngaged:
		return "ENGAGED"
	case StateDead:
		return "DEAD"
	case StateRemoved:
		return "REMOVED"
	}
	return "UNKNOWN"
}

// Resource is one breakable instance. Identity, pose and ring slots are fixed at spawn;
// HP, state and the ledger change only under mu.
type Resource struct {
	ID             int64
	Type           string
	World          string
	CurrencyKind   string
	MaxHP          int
	Value          int
	Pose           Pose
	RingPointCount int

	// 1-based slot index -> world position. Slots blocked at spawn time are absent.
	slots map[int]Vec3

	mu      sync.Mutex
	hp      int
	state   ResourceState
	dead    bool
	version uint64
	ledger  Ledger
	spinYaw float64

	ctx    context.Context
	cancel context.CancelFunc
}

type ResourceView struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	World    string  `json:"world"`
	HP       int     `json:"hp"`
	MaxHP    int     `json:"max_hp"`
	Value    int     `json:"value"`
	Currency string  `json:"currency"`
	Dead     bool    `json:"dead"`
	State    string  `json:"state"`
	Pos      Vec3    `json:"pos"`
	Yaw      float64 `json:"yaw"`
	// Version increases with every change so consumers can drop stale updates.
	Version uint64 `json:"version"`
}

type DamageResult struct {
	Dealt  int
	HP     int
	Killed bool // this call moved the resource to Dead
	Dead   bool // already dead before this call; nothing changed
	View   ResourceView
}

func newResource(parent context.Context, id int64, world string, typ string, maxHP, value int, currency string, pose Pose, points int) *Resource {
	if maxHP < 1 {
		maxHP = 1
	}
	if points <= 0 {
		points = ring.DefaultPoints
	}
	ctx, cancel := context.WithCancel(parent)
	return &Resource{
		ID:             id,
		Type:           typ,
		World:          world,
		CurrencyKind:   currency,
		MaxHP:          maxHP,
		Value:          value,
		Pose:           pose,
		RingPointCount: points,
		slots:          map[int]Vec3{},
		hp:             maxHP,
		ctx:            ctx,
		cancel:         cancel,
	}
}

func (r *Resource) Ref() TargetRef { return TargetRef{World: r.World, ID: r.ID, Type: r.Type} }

// Done is closed when the resource is removed from its world.
func (r *Resource) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Resource) HP() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hp
}

func (r *Resource) Dead() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dead
}

func (r *Resource) State() ResourceState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resource) View() ResourceView {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.viewLocked()
}

func (r *Resource) viewLocked() ResourceView {
	return ResourceView{
		ID:       r.ID,
		Type:     r.Type,
		World:    r.World,
		HP:       r.hp,
		MaxHP:    r.MaxHP,
		Value:    r.Value,
		Currency: r.CurrencyKind,
		Dead:     r.dead,
		State:    r.state.String(),
		Pos:      r.Pose.Pos,
		Yaw:      math.Mod(r.Pose.Rot.Yaw+r.spinYaw, 360),
		Version:  r.version,
	}
}

func (r *Resource) HasSlot(idx int) bool {
	_, ok := r.slots[idx]
	return ok
}

func (r *Resource) SlotPos(idx int) (Vec3, bool) {
	p, ok := r.slots[idx]
	return p, ok
}

func (r *Resource) SlotCount() int { return len(r.slots) }

// AssignSlot maps an attacker seed onto this resource's ring.
func (r *Resource) AssignSlot(attackerSeed int64) int {
	ps := ring.PositionSeed(r.Pose.Pos.X, r.Pose.Pos.Z)
	return ring.AssignSlot(ps, attackerSeed, r.RingPointCount, r.HasSlot)
}

// Contribution returns one attacker's cumulative damage.
func (r *Resource) Contribution(id AttackerID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Get(id)
}

func (r *Resource) TotalDamage() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Total()
}

// damageFromPower is max(1, floor(raw)); NaN and values below 1 deal 1.
func damageFromPower(raw float64) int {
	if !(raw >= 1) {
		return 1
	}
	if raw >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Floor(raw))
}

// applyDamage reads and commits HP, the ledger and the death flag in a single
// critical section. Exactly one caller ever observes Killed.
func (r *Resource) applyDamage(attacker AttackerID, raw float64) (DamageResult, error) {
	if attacker == "" {
		return DamageResult{}, ErrUnattributed
	}
	dmg := damageFromPower(raw)

	r.mu.Lock()
	defer r.mu.Unlock()
	// A removed resource takes no more damage, even through a handle resolved before
	// removal, so despawn never turns into a death.
	if r.dead || r.state == StateRemoved {
		return DamageResult{HP: r.hp, Dead: true, View: r.viewLocked()}, nil
	}
	before := r.hp
	next := before - dmg
	if next < 0 {
		next = 0
	}
	r.hp = next
	dealt := before - next
	r.ledger.Add(attacker, dealt)
	if r.state == StateSpawned {
		r.state = StateEngaged
	}
	killed := false
	if next == 0 {
		r.dead = true
		r.state = StateDead
		killed = true
	}
	r.version++
	return DamageResult{Dealt: dealt, HP: next, Killed: killed, View: r.viewLocked()}, nil
}

// markEngaged reports whether this call performed the Spawned -> Engaged transition.
func (r *Resource) markEngaged() (ResourceView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateSpawned {
		return r.viewLocked(), false
	}
	r.state = StateEngaged
	r.version++
	return r.viewLocked(), true
}

// spin advances the idle yaw. It reports false once the resource is dead.
func (r *Resource) spin(step float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead {
		return false
	}
	r.spinYaw = math.Mod(r.spinYaw+step, 360)
	return true
}

func (r *Resource) markRemoved() ResourceView {
	r.mu.Lock()
	r.state = StateRemoved
	r.version++
	v := r.viewLocked()
	r.mu.Unlock()
	r.cancel()
	return v
}

func (r *Resource) contributions() ([]rewards.Contribution, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Contributions(), r.ledger.Total()
}
