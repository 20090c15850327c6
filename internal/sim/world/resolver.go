package world

// TargetHandle is a resolved, live target plus the ring slot assigned to the attacker.
type TargetHandle struct {
	w    *World
	r    *Resource
	slot int
}

func (h TargetHandle) ResourceID() int64 { return h.r.ID }
func (h TargetHandle) Ref() TargetRef    { return h.r.Ref() }
func (h TargetHandle) Slot() int         { return h.slot }
func (h TargetHandle) View() ResourceView {
	return h.r.View()
}

// Position is the ground position of the assigned slot. ok is false when the slot was
// blocked at spawn time, in which case callers stand at the resource itself.
func (h TargetHandle) Position() (Vec3, bool) {
	if p, ok := h.r.SlotPos(h.slot); ok {
		return p, true
	}
	return h.r.Pose.Pos, false
}

// Done is closed when the resource is removed.
func (h TargetHandle) Done() <-chan struct{} { return h.r.Done() }

// Join marks the resource engaged. Only the first joiner publishes ENGAGED.
func (h TargetHandle) Join() {
	if v, ok := h.r.markEngaged(); ok {
		h.w.publish(EventEngaged, &v, nil)
	}
}

func (h TargetHandle) Damage(attacker AttackerID, power float64) (DamageResult, error) {
	return h.w.ApplyDamage(h.r, attacker, power)
}

// Resolve turns a stored reference back into a live resource. It misses when the
// reference points at another world, an id that is gone, a different type (the id
// was reused) or a resource that has already died.
func (w *World) Resolve(ref TargetRef, attackerSeed int64) (TargetHandle, bool) {
	if ref.World != "" && ref.World != w.cfg.ID {
		return TargetHandle{}, false
	}
	r, ok := w.registry.Get(ref.ID)
	if !ok {
		return TargetHandle{}, false
	}
	if ref.Type != "" && ref.Type != r.Type {
		return TargetHandle{}, false
	}
	if r.Dead() {
		return TargetHandle{}, false
	}
	return TargetHandle{w: w, r: r, slot: r.AssignSlot(attackerSeed)}, true
}
