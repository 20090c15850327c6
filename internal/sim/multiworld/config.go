package multiworld

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DefaultWorldID string      `yaml:"default_world_id"`
	Worlds         []WorldSpec `yaml:"worlds"`
}

type WorldSpec struct {
	ID           string `yaml:"id"`
	SeedOffset   int64  `yaml:"seed_offset"`
	MaxResources int    `yaml:"max_resources"`
	// Optional per-world overrides of the tuning placement radii (0 = use tuning).
	ClearRadius float64 `yaml:"clear_radius,omitempty"`
	MinDistance float64 `yaml:"min_distance,omitempty"`

	Anchors []AnchorSpec `yaml:"anchors"`
}

type AnchorSpec struct {
	ID string  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
	Z  float64 `yaml:"z"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	cfg = Config{}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worlds.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		DefaultWorldID: "MEADOW",
		Worlds: []WorldSpec{
			{
				ID:           "MEADOW",
				MaxResources: 6,
				Anchors:      gridAnchors("meadow", 3, 3, 20),
			},
			{
				ID:           "CAVERN",
				SeedOffset:   1,
				MaxResources: 4,
				Anchors:      gridAnchors("cavern", 2, 3, 16),
			},
		},
	}
}

func gridAnchors(prefix string, rows, cols int, spacing float64) []AnchorSpec {
	out := make([]AnchorSpec, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out = append(out, AnchorSpec{
				ID: fmt.Sprintf("%s_%d_%d", prefix, r, c),
				X:  float64(c) * spacing,
				Z:  float64(r) * spacing,
			})
		}
	}
	return out
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	for i := range c.Worlds {
		c.Worlds[i].ID = strings.TrimSpace(c.Worlds[i].ID)
		for j := range c.Worlds[i].Anchors {
			a := &c.Worlds[i].Anchors[j]
			a.ID = strings.TrimSpace(a.ID)
			if a.ID == "" {
				a.ID = fmt.Sprintf("%s_anchor_%d", strings.ToLower(c.Worlds[i].ID), j)
			}
		}
	}
	if strings.TrimSpace(c.DefaultWorldID) == "" && len(c.Worlds) > 0 {
		c.DefaultWorldID = c.Worlds[0].ID
	}
}

func (c Config) Validate() error {
	if len(c.Worlds) == 0 {
		return fmt.Errorf("worlds must not be empty")
	}
	seen := map[string]bool{}
	for _, w := range c.Worlds {
		if w.ID == "" {
			return fmt.Errorf("world id must not be empty")
		}
		if seen[w.ID] {
			return fmt.Errorf("duplicate world id: %s", w.ID)
		}
		seen[w.ID] = true
		if w.MaxResources < 0 {
			return fmt.Errorf("world %s max_resources must be >= 0", w.ID)
		}
		if w.ClearRadius < 0 || w.MinDistance < 0 {
			return fmt.Errorf("world %s placement radii must be >= 0", w.ID)
		}
		if w.MaxResources > 0 && len(w.Anchors) == 0 {
			return fmt.Errorf("world %s must define at least one anchor", w.ID)
		}
		ids := map[string]bool{}
		for _, a := range w.Anchors {
			if ids[a.ID] {
				return fmt.Errorf("world %s duplicate anchor id: %s", w.ID, a.ID)
			}
			ids[a.ID] = true
		}
	}
	if !seen[c.DefaultWorldID] {
		return fmt.Errorf("default_world_id %q not found in worlds", c.DefaultWorldID)
	}
	return nil
}

func (c Config) WorldSpecByID(id string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.ID == id {
			return w, true
		}
	}
	return WorldSpec{}, false
}

func (c Config) WorldIDs() []string {
	out := make([]string, 0, len(c.Worlds))
	for _, w := range c.Worlds {
		out = append(out, w.ID)
	}
	sort.Strings(out)
	return out
}
