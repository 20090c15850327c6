package weights

import "sort"

// SampleWeighted is a roulette-wheel pick. roll must be in [0,1). Ids are visited in
// sorted order so a given roll always maps to the same id.
func SampleWeighted(weights map[string]float64, roll float64) string {
	if len(weights) == 0 {
		return ""
	}
	ids := make([]string, 0, len(weights))
	var total float64
	for id, w := range weights {
		if w > 0 {
			ids = append(ids, id)
			total += w
		}
	}
	if total <= 0 || len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)

	if roll < 0 {
		roll = 0
	}
	target := roll * total

	var acc float64
	for _, id := range ids {
		acc += weights[id]
		if target < acc {
			return id
		}
	}
	return ids[len(ids)-1]
}

// Uniform picks one of ids by roll in [0,1).
func Uniform(ids []string, roll float64) string {
	if len(ids) == 0 {
		return ""
	}
	i := int(roll * float64(len(ids)))
	if i < 0 {
		i = 0
	}
	if i >= len(ids) {
		i = len(ids) - 1
	}
	return ids[i]
}
