// Package ring maps attackers onto the attachment slots spaced around a resource.
//
// Slot indices are 1-based. The mapping is a pure function of the seeds so the same
// attacker re-derives the same slot every time it engages the same resource.
package ring

import (
	"math"

	"lootfall.ai/internal/sim/world/logic/mathx"
)

const (
	DefaultPoints = 108

	// ProbeStride is coprime with DefaultPoints.
	ProbeStride = 7
	// ProbeCount candidates, k = 0..9 inclusive.
	ProbeCount = 10
)

// AssignSlot returns a slot index in [1, n]. exists reports whether a slot is usable;
// nil means every slot exists.
func AssignSlot(positionSeed, attackerSeed int64, n int, exists func(idx int) bool) int {
	if n <= 0 {
		n = DefaultPoints
	}
	seed := positionSeed + attackerSeed
	base := int(mathx.Mod64(seed, int64(n))) + 1
	if exists == nil {
		return base
	}
	for k := 0; k < ProbeCount; k++ {
		idx := 1 + mathx.Mod(base+k*ProbeStride-1, n)
		if exists(idx) {
			return idx
		}
	}
	return base
}

// Offset is the planar offset of slot idx on a ring of n points with the given radius.
func Offset(idx, n int, radius float64) (dx, dz float64) {
	if n <= 0 {
		n = DefaultPoints
	}
	theta := 2 * math.Pi * float64(idx-1) / float64(n)
	return radius * math.Cos(theta), radius * math.Sin(theta)
}

// PositionSeed folds a ground position into the seed used by AssignSlot.
func PositionSeed(x, z float64) int64 {
	return int64(math.Floor(x)) + int64(math.Floor(z))
}
