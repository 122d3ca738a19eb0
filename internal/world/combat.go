package world

import (
	"time"

	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const burningStatus = "Burning"

// Damage lowers health and kills the creature at zero.
func (w *World) Damage(id core.EntityID, amount float64) {
	c, ok := w.creatures[id]
	if !ok || amount <= 0 {
		return
	}
	w.Outcomes.Damage[id] += amount
	c.health -= amount
	if c.health <= 0 && !c.Killed {
		w.Kill(id)
	}
}

func (w *World) Health(id core.EntityID) float64 {
	if c, ok := w.creatures[id]; ok {
		return c.health
	}
	return 0
}

func (w *World) Push(id core.EntityID, dir core.Vec3, level int) {
	if _, ok := w.creatures[id]; !ok {
		return
	}
	w.Outcomes.Pushes[id] = append(w.Outcomes.Pushes[id], Push{Dir: dir, Level: level})
}

func (w *World) Kill(id core.EntityID) {
	c, ok := w.creatures[id]
	if !ok || c.Killed {
		return
	}
	c.Killed = true
	c.health = 0
	w.Outcomes.Kills = append(w.Outcomes.Kills, id)
	w.logger.Debug("creature killed", "creature", id)
}

func (w *World) Dismember(part core.Part) bool {
	c, ok := w.creatures[part.Creature]
	if !ok {
		return false
	}
	p, ok := c.parts[part.Name]
	if !ok || p.Sliced || !p.SliceAllowed {
		return false
	}
	p.Sliced = true
	w.Outcomes.Dismembered = append(w.Outcomes.Dismembered, *p)
	return true
}

func (w *World) Impulse(id core.EntityID, v core.Vec3) {
	if it, ok := w.items[id]; ok {
		it.Velocity = it.Velocity.Add(v)
	}
	w.Outcomes.Impulses[id] = w.Outcomes.Impulses[id].Add(v)
}

func (w *World) ExplosionForce(id core.EntityID, force float64, origin core.Vec3, radius, upwards float64) {
	if force <= 0 {
		return
	}
	w.Outcomes.Explosions[id]++
	if it, ok := w.items[id]; ok && !it.IsHeld() {
		dir := it.Position.Sub(origin).Add(core.Up.Scale(upwards)).Normalize()
		it.Velocity = it.Velocity.Add(dir.Scale(force))
	}
}

// Shatter breaks fragile items, removing them from the world.
func (w *World) Shatter(id core.EntityID, _ float64, _ core.Vec3, _ float64) {
	it, ok := w.items[id]
	if !ok || !it.Fragile {
		return
	}
	w.Outcomes.Shattered = append(w.Outcomes.Shattered, id)
	w.RemoveItem(id)
}

func (w *World) SetSpeedModifier(id core.EntityID, owner string, mult float64) {
	if w.speedMods[id] == nil {
		w.speedMods[id] = make(map[string]float64)
	}
	w.speedMods[id][owner] = mult
}

func (w *World) RemoveSpeedModifier(id core.EntityID, owner string) {
	delete(w.speedMods[id], owner)
}

// SpeedMultiplier is the product of every speed modifier on id.
func (w *World) SpeedMultiplier(id core.EntityID) float64 {
	m := 1.0
	for _, v := range w.speedMods[id] {
		m *= v
	}
	return m
}

func (w *World) SetPhysicModifier(id core.EntityID, owner string, gravity, drag float64) {
	if w.physMods[id] == nil {
		w.physMods[id] = make(map[string][2]float64)
	}
	w.physMods[id][owner] = [2]float64{gravity, drag}
}

func (w *World) RemovePhysicModifier(id core.EntityID, owner string) {
	delete(w.physMods[id], owner)
}

// PhysicModifiers returns the number of physic modifiers on id.
func (w *World) PhysicModifiers(id core.EntityID) int { return len(w.physMods[id]) }

// Apply adds a status. Positive durations expire on the world timers;
// engine.Infinite stays until removed.
func (w *World) Apply(id core.EntityID, statusID, owner string, d time.Duration) {
	if _, ok := w.creatures[id]; !ok || statusID == "" {
		return
	}
	if w.statuses[id] == nil {
		w.statuses[id] = make(map[string]*status)
	}
	if prev, ok := w.statuses[id][statusID]; ok && prev.task != nil {
		prev.task.Cancel()
	}
	st := &status{owner: owner}
	if d != engine.Infinite && d > 0 {
		st.task = w.timers.After(d, func() {
			if w.statuses[id][statusID] == st {
				delete(w.statuses[id], statusID)
			}
		})
	}
	w.statuses[id][statusID] = st
}

func (w *World) Remove(id core.EntityID, statusID, _ string) {
	st, ok := w.statuses[id][statusID]
	if !ok {
		return
	}
	if st.task != nil {
		st.task.Cancel()
	}
	delete(w.statuses[id], statusID)
	if statusID == burningStatus {
		delete(w.heat, id)
	}
}

func (w *World) Has(id core.EntityID, statusID string) bool {
	_, ok := w.statuses[id][statusID]
	return ok
}

// Burning reports the heat of the burning status. A creature ignites once
// its heat reaches the status maximum.
func (w *World) Burning(id core.EntityID) (heat float64, ignited bool, ok bool) {
	if !w.Has(id, burningStatus) {
		return 0, false, false
	}
	heat = w.heat[id]
	maxHeat := w.maxHeat()
	return heat, maxHeat > 0 && heat >= maxHeat, true
}

func (w *World) SetHeat(id core.EntityID, heat float64) {
	if !w.Has(id, burningStatus) {
		return
	}
	w.heat[id] = heat
}

func (w *World) maxHeat() float64 {
	var data catalog.StatusData
	if w.catalog != nil {
		_ = w.catalog.Decode(engine.KindStatus, burningStatus, &data)
	}
	return data.MaxHeat
}

func (w *World) FlameWall(at core.Vec3, scale float64) {
	w.Outcomes.FlameWalls = append(w.Outcomes.FlameWalls, FlameWall{At: at, Scale: scale})
}

func (w *World) FireBolt(from core.Vec3, target core.EntityID) {
	w.Outcomes.FireBolts = append(w.Outcomes.FireBolts, FireBolt{From: from, Target: target})
}
