// Package enrichment implements the reactive effects carried by imbued
// weapons and routes simulation events to them.
package enrichment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/imbuefx/enrichments/internal/actor"
	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/cooldown"
	"github.com/imbuefx/enrichments/internal/detector"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Enrichment is a reactive effect attached to imbued items.
type Enrichment interface {
	ID() string
	// Refresh re-reads tuning data. Missing records keep the defaults.
	Refresh(cat engine.Catalog)
	OnImbued(ev core.Imbue)
	OnUnimbued(ev core.Imbue)
}

// HitListener reacts to imbue hits of enriched items.
type HitListener interface {
	OnImbueHit(ev core.ImbueHit)
}

// ParryListener reacts to parries anywhere in the world.
type ParryListener interface {
	OnParry(ev core.Parry)
}

// GroundListener reacts to enriched items dragging along static ground.
type GroundListener interface {
	OnGroundContact(ev core.GroundContact)
}

// Closer releases scheduled work when the manager shuts down.
type Closer interface {
	Close()
}

// Journal records what the enrichments did.
type Journal interface {
	actor.Observer
	Trigger(ev core.TriggerEvent)
	ChainWalk(ev core.ChainWalkEvent)
}

// NopJournal discards everything.
type NopJournal struct{}

func (NopJournal) ActorTransition(core.ActorTransition) {}
func (NopJournal) FieldBurst(core.ChainWalkEvent)       {}
func (NopJournal) Detonation(core.DetonationEvent)      {}
func (NopJournal) Trigger(core.TriggerEvent)            {}
func (NopJournal) ChainWalk(core.ChainWalkEvent)        {}

// Items answers questions about enriched items.
type Items interface {
	HasEnrichment(item core.EntityID, id string) bool
	// ImbueOf returns the current imbue of item.
	ImbueOf(item core.EntityID) (core.Imbue, bool)
}

// Deps are the shared collaborators handed to every enrichment.
type Deps struct {
	Services  *engine.Services
	Detectors *detector.Registry
	Chains    *chain.Engine
	Actors    *actor.Registry
	Journal   Journal
	Items     Items
}

// base carries what every enrichment shares.
type base struct {
	id        string
	deps      *Deps
	svc       *engine.Services
	logger    *slog.Logger
	cooldowns *cooldown.Registry
	group     *sched.Group

	triggers   metric.Int64Counter
	suppressed metric.Int64Counter
}

func newBase(id string, deps *Deps) base {
	svc := deps.Services
	b := base{
		id:        id,
		deps:      deps,
		svc:       svc,
		logger:    svc.Log().With("enrichment", id),
		cooldowns: cooldown.New(svc.RealTimers),
		group:     svc.Timers.NewGroup(),
	}
	b.triggers, _ = meter().Int64Counter("enrichment.triggers",
		metric.WithDescription("Enrichment reactions applied"),
	)
	b.suppressed, _ = meter().Int64Counter("enrichment.suppressed",
		metric.WithDescription("Enrichment reactions skipped by cooldown"),
	)
	return b
}

func (b *base) ID() string { return b.id }

// Cooldowns exposes the suppression registry of this enrichment.
func (b *base) Cooldowns() *cooldown.Registry { return b.cooldowns }

// Close cancels pending scheduled work and clears cooldowns.
func (b *base) Close() {
	b.group.Cancel()
	b.group = b.svc.Timers.NewGroup()
	b.cooldowns.Clear()
}

func (b *base) attrs() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("enrichment", b.id))
}

// isSuppressed checks the cooldown and counts hits on it.
func (b *base) isSuppressed(id core.EntityID) bool {
	if !b.cooldowns.IsSuppressed(id) {
		return false
	}
	b.suppressed.Add(context.Background(), 1, b.attrs())
	return true
}

func (b *base) suppress(id core.EntityID, d time.Duration) {
	if d > 0 {
		b.cooldowns.Suppress(id, d)
	}
}

func (b *base) record(item core.EntityID, target core.EntityRef, pos core.Vec3, detail map[string]any) {
	b.triggers.Add(context.Background(), 1, b.attrs())
	b.logger.Debug("enrichment triggered", "item", item, "target", target.ID, "kind", target.Kind.String())
	if b.deps.Journal == nil {
		return
	}
	b.deps.Journal.Trigger(core.TriggerEvent{
		Time:       b.svc.Timers.Now(),
		Enrichment: b.id,
		Item:       item,
		Target:     target,
		Position:   pos,
		Detail:     detail,
	})
}

func (b *base) recordWalk(origin core.Vec3, strategy string, hops []core.ChainHop, res chain.Result) {
	if b.deps.Journal == nil {
		return
	}
	b.deps.Journal.ChainWalk(core.ChainWalkEvent{
		Time:       b.svc.Timers.Now(),
		Enrichment: b.id,
		Origin:     origin,
		Strategy:   strategy,
		Hops:       hops,
		Reason:     res.Reason.String(),
	})
}

// decode fills out from the enrichment record, keeping defaults on a miss.
func (b *base) decode(cat engine.Catalog, kind, id string, out any) {
	if cat == nil {
		return
	}
	err := cat.Decode(kind, id, out)
	switch {
	case err == nil:
	case errors.Is(err, engine.ErrNotFound):
		b.logger.Debug("no catalog record, using defaults", "kind", kind, "id", id)
	default:
		b.logger.Warn("catalog record unusable, using defaults", "kind", kind, "id", id, "error", err)
	}
}

// effect returns id if the catalog knows it, or "" which spawns nothing.
func (b *base) effect(cat engine.Catalog, id string) string {
	if id == "" || cat == nil {
		return id
	}
	if !cat.Has(engine.KindEffect, id) {
		b.logger.Debug("effect data missing", "effect", id)
		return ""
	}
	return id
}

// hitCreature returns the creature a sample hit.
func (b *base) hitCreature(s core.CollisionSample) (core.Creature, bool) {
	if !s.Target.IsCreature() || b.svc.Entities == nil {
		return core.Creature{}, false
	}
	return b.svc.Entities.Creature(s.Target.ID)
}

func (b *base) creature(id core.EntityID) (core.Creature, bool) {
	if b.svc.Entities == nil {
		return core.Creature{}, false
	}
	return b.svc.Entities.Creature(id)
}

func hopRecord(h chain.Hop) core.ChainHop {
	return core.ChainHop{Index: h.Index, Target: h.Target, From: h.From, To: h.To, Distance: h.Distance}
}
