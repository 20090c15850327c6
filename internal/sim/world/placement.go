package world

import (
	"math"
	"strings"

	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/world/logic/ring"
)

const (
	DefaultDeoverlapTries = 4
	// NudgeFactor scales minDist into the step taken by each de-overlap retry.
	NudgeFactor = 0.75
)

type PlacementConfig struct {
	ClearRadius         float64
	MinDistance         float64
	DeoverlapTries      int
	EmbedRatio          float64
	Upright             bool
	DefaultHeightOffset float64
	HeightOffsets       []HeightOffset
}

type HeightOffset struct {
	Match  string
	Offset float64
}

type Placement struct {
	cfg PlacementConfig
	rng Rand
}

func NewPlacement(cfg PlacementConfig, rng Rand) *Placement {
	if cfg.DeoverlapTries <= 0 {
		cfg.DeoverlapTries = DefaultDeoverlapTries
	}
	return &Placement{cfg: cfg, rng: rng}
}

func (p *Placement) Config() PlacementConfig { return p.cfg }

// SelectAnchor shuffles the candidates and returns the first one with no live resource
// within ClearRadius.
func (p *Placement) SelectAnchor(anchors []Anchor, live []Vec3) (Anchor, bool) {
	if len(anchors) == 0 {
		return Anchor{}, false
	}
	order := make([]Anchor, len(anchors))
	copy(order, anchors)
	p.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, a := range order {
		if !withinAny(a.Pos, live, p.cfg.ClearRadius) {
			return a, true
		}
	}
	return Anchor{}, false
}

// HeightOffset resolves the lift for a type: the def's own override, else the first
// configured category whose match is a substring of the lowercased type.
func (p *Placement) HeightOffset(def catalogs.ResourceDef) float64 {
	if def.Placement != nil && def.Placement.HeightOffset != nil {
		return *def.Placement.HeightOffset
	}
	typ := strings.ToLower(def.Type)
	for _, h := range p.cfg.HeightOffsets {
		if h.Match != "" && strings.Contains(typ, strings.ToLower(h.Match)) {
			return h.Offset
		}
	}
	return p.cfg.DefaultHeightOffset
}

func (p *Placement) upright(def catalogs.ResourceDef) bool {
	if def.Placement != nil && def.Placement.Upright != nil {
		return *def.Placement.Upright
	}
	return p.cfg.Upright
}

func (p *Placement) embedRatio(def catalogs.ResourceDef) float64 {
	if def.Placement != nil && def.Placement.EmbedRatio != nil {
		return *def.Placement.EmbedRatio
	}
	return p.cfg.EmbedRatio
}

func (p *Placement) MinDistanceFor(def catalogs.ResourceDef) float64 {
	if def.Placement != nil && def.Placement.MinDistance != nil {
		return *def.Placement.MinDistance
	}
	return p.cfg.MinDistance
}

func (p *Placement) ComputePose(a Anchor, def catalogs.ResourceDef) Pose {
	pos := a.Pos
	pos.Y += p.HeightOffset(def)
	pos.Y -= p.embedRatio(def) * def.Height

	rot := Rotation{Yaw: p.rng.Float64() * 360}
	if p.upright(def) {
		rot.Pitch = def.Pitch
		rot.Roll = def.Roll
	} else {
		rot.Pitch = p.rng.Float64() * 360
		rot.Roll = p.rng.Float64() * 360
	}
	return Pose{Pos: pos, Rot: rot}
}

// Deoverlap nudges pose away from live positions. clear is false when maxTries ran out
// with the pose still inside minDist of something; the last candidate is returned anyway.
func (p *Placement) Deoverlap(pose Pose, live []Vec3, minDist float64, maxTries int) (Pose, bool) {
	if minDist <= 0 {
		return pose, true
	}
	if maxTries <= 0 {
		maxTries = DefaultDeoverlapTries
	}
	step := NudgeFactor * minDist
	for try := 0; try < maxTries && withinAny(pose.Pos, live, minDist); try++ {
		bearing := p.rng.Float64() * 2 * math.Pi
		pose.Pos.X += step * math.Cos(bearing)
		pose.Pos.Z += step * math.Sin(bearing)
	}
	return pose, !withinAny(pose.Pos, live, minDist)
}

func withinAny(p Vec3, live []Vec3, radius float64) bool {
	if radius <= 0 {
		return false
	}
	for _, q := range live {
		if p.PlanarDist(q) < radius {
			return true
		}
	}
	return false
}

type RingConfig struct {
	Points      int
	Radius      float64
	BlockRadius float64
}

// buildRing lays out n slots around center at ground height, skipping slots that fall
// within blockRadius of a neighbouring resource.
func buildRing(center Vec3, ground float64, n int, radius, blockRadius float64, neighbours []Vec3) map[int]Vec3 {
	out := make(map[int]Vec3, n)
	for idx := 1; idx <= n; idx++ {
		dx, dz := ring.Offset(idx, n, radius)
		slot := Vec3{X: center.X + dx, Y: ground, Z: center.Z + dz}
		if withinAny(slot, neighbours, blockRadius) {
			continue
		}
		out[idx] = slot
	}
	return out
}
