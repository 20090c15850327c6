package world

import (
	"lootfall.ai/internal/sim/catalogs"
	"lootfall.ai/internal/sim/world/logic/weights"
)

// SelectResourceType draws from the world's weighted spawn table when it has one,
// otherwise uniformly over every catalog type. Empty result means nothing can spawn.
func SelectResourceType(cats *catalogs.Catalogs, worldID string, rng Rand) string {
	if cats == nil {
		return ""
	}
	if tbl := cats.SpawnTable(worldID); tbl != nil {
		return weights.SampleWeighted(tbl, rng.Float64())
	}
	return weights.Uniform(cats.Resources.Types, rng.Float64())
}

func (w *World) SelectResourceType() string {
	return SelectResourceType(w.catalogs, w.cfg.ID, w.rng)
}
