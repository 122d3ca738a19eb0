package world

import (
	"github.com/google/uuid"
	"github.com/imbuefx/enrichments/internal/actor"
)

// UpdateTriggers checks each mine's item against its trigger volume and
// raises enter and exit transitions. A mine's item starts inside the volume.
func (w *World) UpdateTriggers(mines []*actor.Mine) {
	seen := make(map[uuid.UUID]struct{}, len(mines))
	for _, m := range mines {
		id := m.ID()
		seen[id] = struct{}{}
		vol := m.Volume()
		if !vol.Enabled {
			delete(w.inside, id)
			continue
		}
		was, known := w.inside[id]
		if !known {
			was = true
		}
		now := false
		if it, ok := w.items[vol.Item]; ok {
			now = it.Position.Dist(vol.Center) <= vol.Radius
		}
		w.inside[id] = now
		switch {
		case was && !now:
			m.OnExit(vol.Item)
		case !was && now:
			m.OnEnter(vol.Item)
		}
	}
	for id := range w.inside {
		if _, ok := seen[id]; !ok {
			delete(w.inside, id)
		}
	}
}
