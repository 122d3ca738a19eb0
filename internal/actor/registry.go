package actor

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry owns every live actor of a world.
type Registry struct {
	svc      *engine.Services
	chains   *chain.Engine
	observer Observer

	actors []Actor
	byID   map[uuid.UUID]Actor
	fields map[core.EntityID]*Field

	detonations metric.Int64Counter
	spawns      metric.Int64Counter
}

func NewRegistry(svc *engine.Services, chains *chain.Engine, observer Observer) *Registry {
	if observer == nil {
		observer = nopObserver{}
	}
	r := &Registry{
		svc:      svc,
		chains:   chains,
		observer: observer,
		byID:     make(map[uuid.UUID]Actor),
		fields:   make(map[core.EntityID]*Field),
	}
	r.detonations, _ = meter().Int64Counter("actor.detonations",
		metric.WithDescription("Mines detonated"),
	)
	r.spawns, _ = meter().Int64Counter("actor.spawns",
		metric.WithDescription("Actors spawned"),
	)
	return r
}

// LoadField loads a field on sp.Host. A host carries at most one live field;
// asking again returns the existing one.
func (r *Registry) LoadField(cfg FieldConfig, sp FieldSpawn) *Field {
	if !sp.Host.Valid() {
		return nil
	}
	if f, ok := r.FieldOn(sp.Host); ok {
		return f
	}
	f := newField(r.svc, r.chains, r.observer, cfg, sp)
	f.lookup = r.FieldOn
	r.add(f)
	r.fields[sp.Host] = f
	f.Load()
	return f
}

// SpawnMine places a mine.
func (r *Registry) SpawnMine(cfg MineConfig, sp MineSpawn) *Mine {
	if !sp.Item.Valid() {
		return nil
	}
	m := newMine(r.svc, r.observer, cfg, sp, r.detonations)
	r.add(m)
	m.start()
	return m
}

func (r *Registry) add(a Actor) {
	r.actors = append(r.actors, a)
	r.byID[a.ID()] = a
	r.spawns.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", a.Kind())))
	r.svc.Log().Debug("actor spawned", "actor", a.ID(), "kind", a.Kind())
}

// FieldOn returns the active field hosted by creature.
func (r *Registry) FieldOn(creature core.EntityID) (*Field, bool) {
	f, ok := r.fields[creature]
	if !ok || !f.Active() {
		return nil, false
	}
	return f, true
}

// Get returns a live actor by id.
func (r *Registry) Get(id uuid.UUID) (Actor, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Mines returns live mines in spawn order.
func (r *Registry) Mines() []*Mine {
	var out []*Mine
	for _, a := range r.actors {
		if m, ok := a.(*Mine); ok && m.Alive() {
			out = append(out, m)
		}
	}
	return out
}

// Fields returns live fields in spawn order.
func (r *Registry) Fields() []*Field {
	var out []*Field
	for _, a := range r.actors {
		if f, ok := a.(*Field); ok && f.Alive() {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of tracked actors.
func (r *Registry) Len() int { return len(r.actors) }

// Tick advances every actor, then drops the ones that are gone.
func (r *Registry) Tick(now time.Time) {
	for _, a := range slices.Clone(r.actors) {
		if a.Alive() {
			a.Tick(now)
		}
	}
	r.prune()
}

func (r *Registry) prune() {
	r.actors = slices.DeleteFunc(r.actors, func(a Actor) bool {
		if a.Alive() {
			return false
		}
		delete(r.byID, a.ID())
		if f, ok := a.(*Field); ok && r.fields[f.host] == f {
			delete(r.fields, f.host)
		}
		return true
	})
}

// Clear unloads every field and removes every mine.
func (r *Registry) Clear() {
	for _, a := range slices.Clone(r.actors) {
		switch a := a.(type) {
		case *Field:
			a.Unload()
		case *Mine:
			a.destroy()
		}
	}
	r.prune()
}
