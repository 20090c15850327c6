package world

import (
	"sort"
	"sync"
)

// Registry is a world's set of live resources with an ID index. Current is the size of
// the index, so the counter cannot drift from the live set.
type Registry struct {
	world string
	max   int

	mu   sync.RWMutex
	byID map[int64]*Resource
}

func newRegistry(world string, max int) *Registry {
	if max < 0 {
		max = 0
	}
	return &Registry{world: world, max: max, byID: map[int64]*Resource{}}
}

func (g *Registry) Counters() Counters {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return Counters{World: g.world, Current: len(g.byID), Max: g.max}
}

func (g *Registry) insert(r *Resource) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.byID) >= g.max {
		return ErrWorldFull
	}
	if _, ok := g.byID[r.ID]; ok {
		return ErrIDCollision
	}
	g.byID[r.ID] = r
	return nil
}

func (g *Registry) has(id int64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byID[id]
	return ok
}

// remove reports false when id is not live, so only one caller ever removes a resource.
func (g *Registry) remove(id int64) (*Resource, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.byID[id]
	if ok {
		delete(g.byID, id)
	}
	return r, ok
}

func (g *Registry) Get(id int64) (*Resource, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r, ok := g.byID[id]
	return r, ok
}

// Live returns the live resources ordered by id.
func (g *Registry) Live() []*Resource {
	g.mu.RLock()
	out := make([]*Resource, 0, len(g.byID))
	for _, r := range g.byID {
		out = append(out, r)
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
