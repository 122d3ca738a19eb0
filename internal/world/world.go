// Package world is an in-memory host simulation. It implements every engine
// collaborator so the enrichments can run headless, in the runner and in
// tests.
package world

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/internal/spatial"
	"github.com/imbuefx/enrichments/pkg/core"
)

const (
	DefaultCreatureRadius = 0.3
	DefaultItemRadius     = 0.05
	DefaultHealth         = 50
)

// Outcomes records everything the enrichments did to the world.
type Outcomes struct {
	Damage      map[core.EntityID]float64
	Pushes      map[core.EntityID][]Push
	Impulses    map[core.EntityID]core.Vec3
	Explosions  map[core.EntityID]int
	Kills       []core.EntityID
	Dismembered []core.Part
	Shattered   []core.EntityID
	FlameWalls  []FlameWall
	FireBolts   []FireBolt
}

type Push struct {
	Dir   core.Vec3
	Level int
}

type FlameWall struct {
	At    core.Vec3
	Scale float64
}

type FireBolt struct {
	From   core.Vec3
	Target core.EntityID
}

type creature struct {
	core.Creature
	health float64
	parts  map[string]*core.Part
}

// World holds creatures, items and their live state. It is not safe for
// concurrent use; drive it from the simulation thread.
type World struct {
	index   *spatial.Index
	timers  *sched.Scheduler
	catalog engine.Catalog
	logger  *slog.Logger

	creatures map[core.EntityID]*creature
	items     map[core.EntityID]*core.Item

	statuses  map[core.EntityID]map[string]*status
	heat      map[core.EntityID]float64
	speedMods map[core.EntityID]map[string]float64
	physMods  map[core.EntityID]map[string][2]float64

	effects []*Effect
	sensors *sensors
	inside  map[uuid.UUID]bool

	Outcomes Outcomes
}

type status struct {
	owner string
	task  *sched.Task
}

// New creates an empty world running effect and status timers on timers.
func New(timers *sched.Scheduler, cat engine.Catalog, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	w := &World{
		index:     spatial.New(),
		timers:    timers,
		catalog:   cat,
		logger:    logger.With("component", "world"),
		creatures: make(map[core.EntityID]*creature),
		items:     make(map[core.EntityID]*core.Item),
		statuses:  make(map[core.EntityID]map[string]*status),
		heat:      make(map[core.EntityID]float64),
		speedMods: make(map[core.EntityID]map[string]float64),
		physMods:  make(map[core.EntityID]map[string][2]float64),
		inside:    make(map[uuid.UUID]bool),
		Outcomes: Outcomes{
			Damage:     make(map[core.EntityID]float64),
			Pushes:     make(map[core.EntityID][]Push),
			Impulses:   make(map[core.EntityID]core.Vec3),
			Explosions: make(map[core.EntityID]int),
		},
	}
	w.sensors = newSensors(w)
	return w
}

// Services wires the world into an engine.Services. realTimers may be nil
// to share the game timers.
func (w *World) Services(realTimers *sched.Scheduler, rng *rand.Rand) *engine.Services {
	if realTimers == nil {
		realTimers = w.timers
	}
	return &engine.Services{
		Catalog:    w.catalog,
		Entities:   w,
		Spatial:    w,
		Effects:    w,
		Combat:     w,
		Physics:    w,
		Status:     w,
		Sensors:    w.sensors,
		Hazards:    w,
		Timers:     w.timers,
		RealTimers: realTimers,
		Rand:       rng,
		Logger:     w.logger,
	}
}

// SetCatalog swaps the data used for effect and status lookups.
func (w *World) SetCatalog(cat engine.Catalog) { w.catalog = cat }

// AddCreature places a creature. Torso defaults to Position + 1 up.
func (w *World) AddCreature(c core.Creature, parts ...core.Part) {
	if !c.ID.Valid() {
		return
	}
	if c.Torso == (core.Vec3{}) {
		c.Torso = c.Position.Add(core.Up)
	}
	cr := &creature{Creature: c, health: DefaultHealth, parts: make(map[string]*core.Part)}
	for _, p := range parts {
		p.Creature = c.ID
		cr.parts[p.Name] = &p
	}
	w.creatures[c.ID] = cr
	w.index.Upsert(c.Ref(), c.Torso, DefaultCreatureRadius)
}

// MoveCreature moves a creature keeping its torso offset.
func (w *World) MoveCreature(id core.EntityID, pos core.Vec3) {
	c, ok := w.creatures[id]
	if !ok {
		return
	}
	c.Torso = c.Torso.Add(pos.Sub(c.Position))
	c.Position = pos
	w.index.Upsert(c.Ref(), c.Torso, DefaultCreatureRadius)
}

// Cull hides or shows a creature.
func (w *World) Cull(id core.EntityID, culled bool) {
	if c, ok := w.creatures[id]; ok {
		c.Culled = culled
	}
}

// RemoveCreature despawns a creature.
func (w *World) RemoveCreature(id core.EntityID) {
	delete(w.creatures, id)
	delete(w.statuses, id)
	delete(w.heat, id)
	w.index.Remove(core.CreatureRef(id))
}

// Part returns the live state of a creature part.
func (w *World) Part(id core.EntityID, name string) (core.Part, bool) {
	c, ok := w.creatures[id]
	if !ok {
		return core.Part{}, false
	}
	p, ok := c.parts[name]
	if !ok {
		return core.Part{}, false
	}
	return *p, true
}

func (w *World) AddItem(it core.Item) {
	if !it.ID.Valid() {
		return
	}
	item := it
	w.items[it.ID] = &item
	w.index.Upsert(it.Ref(), it.Position, DefaultItemRadius)
}

func (w *World) MoveItem(id core.EntityID, pos core.Vec3) {
	it, ok := w.items[id]
	if !ok {
		return
	}
	it.Position = pos
	w.index.Upsert(it.Ref(), pos, DefaultItemRadius)
}

func (w *World) SetItemVelocity(id core.EntityID, v core.Vec3) {
	if it, ok := w.items[id]; ok {
		it.Velocity = v
	}
}

// Hold makes holder grab the item, or drops it with NoEntity.
func (w *World) Hold(id, holder core.EntityID) {
	if it, ok := w.items[id]; ok {
		it.Holder = holder
	}
}

func (w *World) RemoveItem(id core.EntityID) {
	delete(w.items, id)
	w.index.Remove(core.ItemRef(id))
}

// Step integrates free item motion over dt.
func (w *World) Step(dt time.Duration) {
	s := dt.Seconds()
	for id, it := range w.items {
		if it.IsHeld() || it.Velocity == (core.Vec3{}) {
			continue
		}
		w.MoveItem(id, it.Position.Add(it.Velocity.Scale(s)))
	}
}

func (w *World) Creature(id core.EntityID) (core.Creature, bool) {
	c, ok := w.creatures[id]
	if !ok {
		return core.Creature{}, false
	}
	return c.Creature, true
}

func (w *World) Item(id core.EntityID) (core.Item, bool) {
	it, ok := w.items[id]
	if !ok {
		return core.Item{}, false
	}
	return *it, true
}

// Creatures returns the number of spawned creatures.
func (w *World) Creatures() int { return len(w.creatures) }

func (w *World) Items() int { return len(w.items) }

func (w *World) InRadius(center core.Vec3, radius float64, pred func(core.EntityRef) bool) []core.EntityRef {
	hits := w.index.Query(center, radius, pred)
	out := make([]core.EntityRef, len(hits))
	for i, h := range hits {
		out[i] = h.Ref
	}
	return out
}

func (w *World) InRadiusClosestPoint(center core.Vec3, radius float64) []engine.ClosestHit {
	hits := w.index.Query(center, radius, nil)
	out := make([]engine.ClosestHit, len(hits))
	for i, h := range hits {
		out[i] = engine.ClosestHit{Entity: h.Ref, Point: h.Point}
	}
	return out
}

func (w *World) ReferencePoint(ref core.EntityRef) (core.Vec3, bool) {
	return w.index.Position(ref)
}

func (w *World) ClosestPoint(ref core.EntityRef, to core.Vec3) (core.Vec3, bool) {
	return w.index.ClosestPoint(ref, to)
}

var (
	_ engine.Entities = (*World)(nil)
	_ engine.Spatial  = (*World)(nil)
	_ engine.Effects  = (*World)(nil)
	_ engine.Combat   = (*World)(nil)
	_ engine.Physics  = (*World)(nil)
	_ engine.Status   = (*World)(nil)
	_ engine.Hazards  = (*World)(nil)
)
