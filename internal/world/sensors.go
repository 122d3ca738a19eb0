package world

import (
	"cmp"
	"slices"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

type watch struct {
	id int
	fn func(core.CollisionSample)
}

// sensorKey names one damager of one item. Damager ids are only unique
// within their item.
type sensorKey struct {
	item    core.EntityID
	damager core.DamagerID
}

func keyOf(d core.Damager) sensorKey { return sensorKey{item: d.Item, damager: d.ID} }

// sensors holds the live collision samples per damager.
type sensors struct {
	w       *World
	samples map[sensorKey]map[core.EntityRef]core.CollisionSample
	watches map[sensorKey][]watch
	nextID  int
}

func newSensors(w *World) *sensors {
	return &sensors{
		w:       w,
		samples: make(map[sensorKey]map[core.EntityRef]core.CollisionSample),
		watches: make(map[sensorKey][]watch),
	}
}

func (s *sensors) Samples(d core.Damager) []core.CollisionSample {
	m := s.samples[keyOf(d)]
	if len(m) == 0 {
		return nil
	}
	out := make([]core.CollisionSample, 0, len(m))
	for _, sample := range m {
		out = append(out, sample)
	}
	slices.SortFunc(out, func(a, b core.CollisionSample) int {
		if c := cmp.Compare(a.Target.Kind, b.Target.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Target.ID, b.Target.ID)
	})
	return out
}

func (s *sensors) ItemVelocity(item core.EntityID) core.Vec3 {
	if s.w == nil {
		return core.Vec3{}
	}
	if it, ok := s.w.items[item]; ok {
		return it.Velocity
	}
	return core.Vec3{}
}

func (s *sensors) WatchUnpenetrate(d core.Damager, fn func(core.CollisionSample)) func() {
	key := keyOf(d)
	s.nextID++
	id := s.nextID
	s.watches[key] = append(s.watches[key], watch{id: id, fn: fn})
	return func() {
		ws := s.watches[key]
		for i, w := range ws {
			if w.id == id {
				s.watches[key] = append(ws[:i:i], ws[i+1:]...)
				break
			}
		}
		if len(s.watches[key]) == 0 {
			delete(s.watches, key)
		}
	}
}

// Penetrate sets the live sample of the sample's damager against its target.
// The damager is named by the sample's SourceItem and Damager.
func (w *World) Penetrate(sample core.CollisionSample) {
	key := sensorKey{item: sample.SourceItem, damager: sample.Damager}
	if w.sensors.samples[key] == nil {
		w.sensors.samples[key] = make(map[core.EntityRef]core.CollisionSample)
	}
	w.sensors.samples[key][sample.Target] = sample
}

// Unpenetrate clears the sample of item's damager d against target and
// notifies that damager's watchers.
func (w *World) Unpenetrate(item core.EntityID, d core.DamagerID, target core.EntityRef) {
	key := sensorKey{item: item, damager: d}
	sample, ok := w.sensors.samples[key][target]
	if !ok {
		return
	}
	delete(w.sensors.samples[key], target)
	if len(w.sensors.samples[key]) == 0 {
		delete(w.sensors.samples, key)
	}
	sample.Penetration = 0
	for _, wt := range append([]watch(nil), w.sensors.watches[key]...) {
		wt.fn(sample)
	}
}

// Watchers returns the number of unpenetrate listeners on item's damager d.
func (w *World) Watchers(item core.EntityID, d core.DamagerID) int {
	return len(w.sensors.watches[sensorKey{item: item, damager: d}])
}

var _ engine.SensorStream = (*sensors)(nil)
