package world

import (
	"errors"

	"lootfall.ai/internal/sim/world/logic/mathx"
)

type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// PlanarDist ignores height; placement and occupancy are decided on the ground plane.
func (v Vec3) PlanarDist(o Vec3) float64 { return mathx.PlanarDist(v.X, v.Z, o.X, o.Z) }

// Rotation is in degrees.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

type Pose struct {
	Pos Vec3     `json:"pos"`
	Rot Rotation `json:"rot"`
}

// Anchor is a named spawn position from the world topology.
type Anchor struct {
	ID  string `json:"id"`
	Pos Vec3   `json:"pos"`
}

type AttackerID string

// TargetRef is what an attacker keeps between ticks; it is resolved again on engage.
type TargetRef struct {
	World string `json:"world"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

type Counters struct {
	World   string `json:"world"`
	Current int    `json:"current"`
	Max     int    `json:"max"`
}

type Payout struct {
	Attacker     AttackerID `json:"attacker"`
	Contribution int        `json:"contribution"`
	Amount       int        `json:"amount"`
	Top          bool       `json:"top,omitempty"`
}

// DeathRecord is the audit entry written once per resource death.
type DeathRecord struct {
	Time        string   `json:"time"`
	World       string   `json:"world"`
	ResourceID  int64    `json:"resource_id"`
	Type        string   `json:"type"`
	Currency    string   `json:"currency"`
	Value       int      `json:"value"`
	MaxHP       int      `json:"max_hp"`
	TotalDamage int      `json:"total_damage"`
	Pos         Vec3     `json:"pos"`
	Payouts     []Payout `json:"payouts,omitempty"`
}

// CurrencySink receives reward payouts. Errors are logged by the caller and not retried.
type CurrencySink interface {
	AddCurrency(attacker AttackerID, kind string, amount int, reason string) error
}

// DeathSink receives one record per death. Implemented in internal/persistence/*.
type DeathSink interface {
	WriteDeath(rec DeathRecord) error
}

var (
	ErrUnattributed = errors.New("damage without attacker")
	ErrWorldFull    = errors.New("world at max resources")
	ErrNoAnchor     = errors.New("no free spawn anchor")
	ErrEmptyCatalog = errors.New("no resource types available")
	ErrUnknownType  = errors.New("unknown resource type")
	ErrMissingModel = errors.New("resource model unavailable")
	ErrIDCollision  = errors.New("resource id collision")
	ErrClosed       = errors.New("world closed")
)
