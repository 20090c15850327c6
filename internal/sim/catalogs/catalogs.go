package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const ResourcesFile = "resources.json"

type Catalogs struct {
	Resources ResourceCatalog
}

type ResourceCatalog struct {
	ByType map[string]ResourceDef
	// Types is sorted; uniform selection indexes into it.
	Types []string
	// SpawnTables holds optional per-world weighted tables: world id -> type -> weight.
	SpawnTables map[string]map[string]float64
	Digest      string
}

type ResourceDef struct {
	Type     string  `json:"type"`
	Model    string  `json:"model,omitempty"`
	MaxHP    int     `json:"max_hp"`
	Value    int     `json:"value"`
	Currency string  `json:"currency"`
	Height   float64 `json:"height,omitempty"`

	// Authored orientation, kept when placed upright.
	Pitch float64 `json:"pitch,omitempty"`
	Roll  float64 `json:"roll,omitempty"`

	RingPoints int     `json:"ring_points,omitempty"`
	RingRadius float64 `json:"ring_radius,omitempty"`

	Placement *PlacementOverride `json:"placement,omitempty"`
}

type PlacementOverride struct {
	Upright      *bool    `json:"upright,omitempty"`
	EmbedRatio   *float64 `json:"embed_ratio,omitempty"`
	MinDistance  *float64 `json:"min_distance,omitempty"`
	HeightOffset *float64 `json:"height_offset,omitempty"`
}

type resourcesFile struct {
	Resources   []ResourceDef                 `json:"resources"`
	SpawnTables map[string]map[string]float64 `json:"spawn_tables,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadResources(filepath.Join(configDir, ResourcesFile), &c.Resources); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOrEmpty never fails: a broken or missing catalog yields an empty one so the
// server keeps running without spawning anything.
func LoadOrEmpty(configDir string, logger *log.Logger) *Catalogs {
	c, err := Load(configDir)
	if err == nil {
		return c
	}
	if logger != nil {
		logger.Printf("catalogs: %v; continuing with empty catalog (no spawns)", err)
	}
	return Empty()
}

func Empty() *Catalogs {
	return &Catalogs{Resources: ResourceCatalog{
		ByType:      map[string]ResourceDef{},
		SpawnTables: map[string]map[string]float64{},
		Digest:      sha256Hex(nil),
	}}
}

// Def returns the definition for typ. ok is false for unknown types.
func (c *Catalogs) Def(typ string) (ResourceDef, bool) {
	if c == nil {
		return ResourceDef{}, false
	}
	d, ok := c.Resources.ByType[typ]
	return d, ok
}

// SpawnTable returns the weighted table for a world restricted to known types, or nil
// when the world has none.
func (c *Catalogs) SpawnTable(worldID string) map[string]float64 {
	if c == nil {
		return nil
	}
	tbl := c.Resources.SpawnTables[worldID]
	if len(tbl) == 0 {
		return nil
	}
	out := make(map[string]float64, len(tbl))
	for typ, w := range tbl {
		if _, ok := c.Resources.ByType[typ]; ok && w > 0 {
			out[typ] = w
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return parseResources(raw, out)
}

func parseResources(raw []byte, out *ResourceCatalog) error {
	if err := validateResources(raw); err != nil {
		return fmt.Errorf("%s: %w", ResourcesFile, err)
	}

	var f resourcesFile
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&f); err != nil {
		return fmt.Errorf("%s: %w", ResourcesFile, err)
	}

	out.ByType = map[string]ResourceDef{}
	for _, d := range f.Resources {
		d.Type = strings.TrimSpace(d.Type)
		if d.Type == "" {
			return fmt.Errorf("%s: empty type", ResourcesFile)
		}
		if _, dup := out.ByType[d.Type]; dup {
			return fmt.Errorf("%s: duplicate type %q", ResourcesFile, d.Type)
		}
		out.ByType[d.Type] = d
	}
	out.Types = make([]string, 0, len(out.ByType))
	for typ := range out.ByType {
		out.Types = append(out.Types, typ)
	}
	sort.Strings(out.Types)

	out.SpawnTables = map[string]map[string]float64{}
	for worldID, tbl := range f.SpawnTables {
		out.SpawnTables[worldID] = tbl
	}
	out.Digest = sha256Hex(raw)
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
