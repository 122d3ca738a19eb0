package enrichment

import (
	"github.com/imbuefx/enrichments/internal/actor"
	"github.com/imbuefx/enrichments/internal/detector"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const BoltPylonsID = "BoltPylons"

type BoltPylonsConfig struct {
	RequireUnpenetrateToReset bool `yaml:"requireUnpenetrateToReset"`
	actor.FieldConfig         `yaml:",inline"`
}

// BoltPylons turns a creature pierced to full depth by a lightning imbued
// blade into a pylon that periodically shocks its surroundings.
type BoltPylons struct {
	base
	cfg BoltPylonsConfig
}

func NewBoltPylons(deps *Deps) *BoltPylons {
	return &BoltPylons{
		base: newBase(BoltPylonsID, deps),
		cfg:  BoltPylonsConfig{FieldConfig: actor.DefaultFieldConfig()},
	}
}

func (e *BoltPylons) Refresh(cat engine.Catalog) {
	cfg := BoltPylonsConfig{FieldConfig: actor.DefaultFieldConfig()}
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.ChargeEffect = e.effect(cat, cfg.ChargeEffect)
	cfg.ShockEffect = e.effect(cat, cfg.ShockEffect)
	cfg.PylonEffect = e.effect(cat, cfg.PylonEffect)
	if cat != nil && cfg.LoadedStatus != "" && !cat.Has(engine.KindStatus, cfg.LoadedStatus) {
		e.logger.Debug("status data missing", "status", cfg.LoadedStatus)
		cfg.LoadedStatus = ""
	}
	e.cfg = cfg
}

func (e *BoltPylons) OnImbued(ev core.Imbue) {
	if ev.Spell != core.SpellLightning {
		return
	}
	p := detector.DefaultParams()
	p.RequireExplicitReset = e.cfg.RequireUnpenetrateToReset
	e.deps.Detectors.Activate(ev.Item, e, detector.ValidSensors(ev.Damagers, false), p)
}

func (e *BoltPylons) OnUnimbued(ev core.Imbue) {
	if ev.Spell != core.SpellLightning {
		return
	}
	for _, f := range e.deps.Actors.Fields() {
		if f.Active() && f.Item() == ev.Item {
			f.Unload()
		}
	}
	e.deps.Detectors.Deactivate(ev.Item, e)
}

func (e *BoltPylons) OnPenetrateMaxDepth(ev detector.MaxDepthEvent) {
	c, ok := e.hitCreature(ev.Sample)
	if !ok {
		return
	}
	f := e.deps.Actors.LoadField(e.cfg.FieldConfig, actor.FieldSpawn{
		Source:  e.id,
		Host:    c.ID,
		Item:    ev.Item,
		Contact: ev.Sample.ContactPoint,
	})
	if f == nil {
		return
	}
	e.record(ev.Item, c.Ref(), ev.Sample.ContactPoint, map[string]any{
		"field": f.ID().String(),
		"depth": ev.Depth,
	})
}

func (e *BoltPylons) OnUnpenetrate(_ core.Damager, sample core.CollisionSample) {
	if !sample.Target.IsCreature() {
		return
	}
	if f, ok := e.deps.Actors.FieldOn(sample.Target.ID); ok {
		f.Unload()
	}
}
