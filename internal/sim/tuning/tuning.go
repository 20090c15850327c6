package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	DamageTickMs  int `yaml:"damage_tick_ms"`
	RespawnMinMs  int `yaml:"respawn_min_ms"`
	RespawnMaxMs  int `yaml:"respawn_max_ms"`
	FillEveryMs   int `yaml:"fill_every_ms"`
	DeathLingerMs int `yaml:"death_linger_ms"`

	// Idle yaw animation; spin_every_ms 0 disables it.
	SpinEveryMs int     `yaml:"spin_every_ms"`
	SpinDegrees float64 `yaml:"spin_degrees"`

	Ring      Ring      `yaml:"ring"`
	Placement Placement `yaml:"placement"`
}

type Ring struct {
	Points int     `yaml:"points"`
	Radius float64 `yaml:"radius"`
	// Slots closer than this to a neighbouring resource are not created.
	BlockRadius float64 `yaml:"block_radius"`
}

type Placement struct {
	ClearRadius         float64        `yaml:"clear_radius"`
	MinDistance         float64        `yaml:"min_distance"`
	DeoverlapTries      int            `yaml:"deoverlap_tries"`
	EmbedRatio          float64        `yaml:"embed_ratio"`
	Upright             bool           `yaml:"upright"`
	DefaultHeightOffset float64        `yaml:"default_height_offset"`
	HeightOffsets       []HeightOffset `yaml:"height_offsets"`
}

// HeightOffset applies when Match is a substring of the lowercased resource type.
// The first matching entry wins.
type HeightOffset struct {
	Match  string  `yaml:"match"`
	Offset float64 `yaml:"offset"`
}

func Defaults() Tuning {
	return Tuning{
		DamageTickMs:  1000,
		RespawnMinMs:  5000,
		RespawnMaxMs:  15000,
		FillEveryMs:   5000,
		DeathLingerMs: 1500,
		SpinEveryMs:   100,
		SpinDegrees:   3,
		Ring: Ring{
			Points:      108,
			Radius:      4,
			BlockRadius: 1.5,
		},
		Placement: Placement{
			ClearRadius:         6,
			MinDistance:         8,
			DeoverlapTries:      4,
			EmbedRatio:          0.15,
			Upright:             true,
			DefaultHeightOffset: 0.5,
			HeightOffsets: []HeightOffset{
				{Match: "large", Offset: 3},
				{Match: "medium", Offset: 1.5},
				{Match: "small", Offset: 0.75},
			},
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	d := Defaults()
	if t.DamageTickMs <= 0 {
		t.DamageTickMs = d.DamageTickMs
	}
	if t.FillEveryMs <= 0 {
		t.FillEveryMs = d.FillEveryMs
	}
	if t.RespawnMinMs < 0 {
		t.RespawnMinMs = 0
	}
	if t.RespawnMaxMs < t.RespawnMinMs {
		t.RespawnMaxMs = t.RespawnMinMs
	}
	if t.DeathLingerMs < 0 {
		t.DeathLingerMs = 0
	}
	if t.SpinEveryMs < 0 {
		t.SpinEveryMs = 0
	}
	if t.Ring.Points <= 0 {
		t.Ring.Points = d.Ring.Points
	}
	if t.Ring.Radius <= 0 {
		t.Ring.Radius = d.Ring.Radius
	}
	if t.Placement.DeoverlapTries <= 0 {
		t.Placement.DeoverlapTries = d.Placement.DeoverlapTries
	}
}

func (t Tuning) Validate() error {
	if t.Placement.ClearRadius < 0 {
		return fmt.Errorf("placement.clear_radius must be >= 0")
	}
	if t.Placement.MinDistance < 0 {
		return fmt.Errorf("placement.min_distance must be >= 0")
	}
	if t.Placement.EmbedRatio < 0 || t.Placement.EmbedRatio > 1 {
		return fmt.Errorf("placement.embed_ratio must be in [0,1]")
	}
	for i, h := range t.Placement.HeightOffsets {
		if h.Match == "" {
			return fmt.Errorf("placement.height_offsets[%d] missing match", i)
		}
	}
	return nil
}

func (t Tuning) DamageTick() time.Duration { return time.Duration(t.DamageTickMs) * time.Millisecond }
func (t Tuning) RespawnMin() time.Duration { return time.Duration(t.RespawnMinMs) * time.Millisecond }
func (t Tuning) RespawnMax() time.Duration { return time.Duration(t.RespawnMaxMs) * time.Millisecond }
func (t Tuning) FillEvery() time.Duration  { return time.Duration(t.FillEveryMs) * time.Millisecond }
func (t Tuning) SpinEvery() time.Duration  { return time.Duration(t.SpinEveryMs) * time.Millisecond }
func (t Tuning) DeathLinger() time.Duration {
	return time.Duration(t.DeathLingerMs) * time.Millisecond
}
