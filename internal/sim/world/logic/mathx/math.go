package mathx

import "math"

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func Mod64(a, b int64) int64 {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

// PlanarDist is the distance between two points projected onto the ground (XZ) plane.
func PlanarDist(ax, az, bx, bz float64) float64 {
	return math.Hypot(ax-bx, az-bz)
}

// HashString is FNV-1a 64-bit.
func HashString(s string) uint64 {
	var h uint64 = 1469598103934665603
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return h
}
