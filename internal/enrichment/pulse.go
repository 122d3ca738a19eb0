package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const ElectrostaticPulseID = "ElectrostaticPulse"

type ElectrostaticPulseConfig struct {
	ShockRadius  float64       `yaml:"shockRadius"`
	BoltCount    int           `yaml:"boltCount"`
	MinVelocity  float64       `yaml:"minVelocity"`
	MinBoltDelay time.Duration `yaml:"minBoltDelay"`
	MaxBoltDelay time.Duration `yaml:"maxBoltDelay"`
	PulseEffect  string        `yaml:"pulseEffect"`
	BoltEffect   string        `yaml:"boltEffect"`
}

// ElectrostaticPulse bursts bolts from where a thrown lightning imbued item
// lands into random entities around the contact point.
type ElectrostaticPulse struct {
	base
	cfg ElectrostaticPulseConfig
}

func DefaultElectrostaticPulseConfig() ElectrostaticPulseConfig {
	return ElectrostaticPulseConfig{
		ShockRadius:  3,
		BoltCount:    12,
		MinVelocity:  1,
		MinBoltDelay: 25 * time.Millisecond,
		MaxBoltDelay: 50 * time.Millisecond,
		PulseEffect:  "ElectrostaticPulse",
		BoltEffect:   "BoltHit",
	}
}

func NewElectrostaticPulse(deps *Deps) *ElectrostaticPulse {
	return &ElectrostaticPulse{
		base: newBase(ElectrostaticPulseID, deps),
		cfg:  DefaultElectrostaticPulseConfig(),
	}
}

func (e *ElectrostaticPulse) Refresh(cat engine.Catalog) {
	cfg := DefaultElectrostaticPulseConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.PulseEffect = e.effect(cat, cfg.PulseEffect)
	cfg.BoltEffect = e.effect(cat, cfg.BoltEffect)
	if cfg.MaxBoltDelay < cfg.MinBoltDelay {
		cfg.MaxBoltDelay = cfg.MinBoltDelay
	}
	e.cfg = cfg
}

func (e *ElectrostaticPulse) OnImbued(core.Imbue) {}

func (e *ElectrostaticPulse) OnUnimbued(core.Imbue) {}

func (e *ElectrostaticPulse) OnImbueHit(ev core.ImbueHit) {
	if ev.Spell != core.SpellLightning || ev.Phase != core.PhaseEnd || !ev.Sample.Target.IsCreature() {
		return
	}
	svc := e.svc
	if svc.Entities == nil {
		return
	}
	item, ok := svc.Entities.Item(ev.Item)
	if !ok || item.IsHeld() || !sqrAbove(ev.Sample.ImpactVelocity, e.cfg.MinVelocity) {
		return
	}
	origin := ev.Sample.ContactPoint
	svc.SpawnEffect(e.cfg.PulseEffect, origin, core.Up, core.NoEntity)
	e.record(ev.Item, ev.Sample.Target, origin, map[string]any{"bolts": e.cfg.BoltCount})

	strategy := chain.BoundedRandom{Window: e.cfg.BoltCount}
	var hops []core.ChainHop
	e.deps.Chains.Start(chain.Request{
		Origin:    origin,
		Radius:    e.cfg.ShockRadius,
		MaxHops:   e.cfg.BoltCount,
		Strategy:  strategy,
		Anchored:  true,
		HopDelay:  e.cfg.MinBoltDelay,
		HopJitter: e.cfg.MaxBoltDelay - e.cfg.MinBoltDelay,
		Group:     e.group,
		OnDone: func(res chain.Result) {
			e.recordWalk(origin, strategy.Name(), hops, res)
		},
	}, func(h chain.Hop) {
		to := h.To
		if svc.Spatial != nil {
			if p, ok := svc.Spatial.ClosestPoint(h.Target, origin); ok {
				to = p
			}
		}
		h.To = to
		hops = append(hops, hopRecord(h))
		svc.SpawnEffect(e.cfg.BoltEffect, to, to.Sub(origin).Normalize(), core.NoEntity)
	})
}
