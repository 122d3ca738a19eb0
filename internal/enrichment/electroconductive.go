package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const ElectroconductiveID = "Electroconductive"

type ElectroconductiveConfig struct {
	BoltRadius        float64       `yaml:"boltRadius"`
	MinBolts          int           `yaml:"minBolts"`
	MaxBolts          int           `yaml:"maxBolts"`
	MinImpactVelocity float64       `yaml:"minImpactVelocity"`
	HopDelay          time.Duration `yaml:"hopDelay"`
	PushLevel         int           `yaml:"pushLevel"`
	Status            string        `yaml:"status"`
	StatusChance      float64       `yaml:"statusChance"`
	StatusMin         time.Duration `yaml:"statusMin"`
	StatusMax         time.Duration `yaml:"statusMax"`
	BoltEffect        string        `yaml:"boltEffect"`
}

// Electroconductive arcs lightning from a struck creature to its nearest
// neighbours, one hop at a time.
type Electroconductive struct {
	base
	cfg ElectroconductiveConfig
}

func DefaultElectroconductiveConfig() ElectroconductiveConfig {
	return ElectroconductiveConfig{
		BoltRadius:        3,
		MinBolts:          3,
		MaxBolts:          5,
		MinImpactVelocity: 5,
		HopDelay:          85 * time.Millisecond,
		PushLevel:         1,
		Status:            "Electrocute",
		StatusChance:      0.5,
		StatusMin:         3 * time.Second,
		StatusMax:         6 * time.Second,
		BoltEffect:        "BoltHit",
	}
}

func NewElectroconductive(deps *Deps) *Electroconductive {
	return &Electroconductive{
		base: newBase(ElectroconductiveID, deps),
		cfg:  DefaultElectroconductiveConfig(),
	}
}

func (e *Electroconductive) Refresh(cat engine.Catalog) {
	cfg := DefaultElectroconductiveConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.BoltEffect = e.effect(cat, cfg.BoltEffect)
	e.cfg = cfg
}

func (e *Electroconductive) OnImbued(core.Imbue) {}

func (e *Electroconductive) OnUnimbued(core.Imbue) {}

func (e *Electroconductive) OnImbueHit(ev core.ImbueHit) {
	if ev.Spell != core.SpellLightning {
		return
	}
	s := ev.Sample
	c, ok := e.hitCreature(s)
	if !ok || c.IsPlayer || !sqrAbove(s.ImpactVelocity, e.cfg.MinImpactVelocity) {
		return
	}
	e.arc(ev.Item, s.ContactPoint, c)
}

func (e *Electroconductive) arc(item core.EntityID, from core.Vec3, start core.Creature) *chain.Walk {
	svc := e.svc
	rules := TargetRules{AllowKilled: true}
	var hops []core.ChainHop
	return e.deps.Chains.Start(chain.Request{
		Origin:   from,
		Carrier:  start.Ref(),
		Radius:   e.cfg.BoltRadius,
		MaxHops:  svc.RandInt(e.cfg.MinBolts, e.cfg.MaxBolts),
		Strategy: chain.Nearest{},
		HopDelay: e.cfg.HopDelay,
		Visited:  []core.EntityRef{start.Ref()},
		Group:    e.group,
		Valid: func(ref core.EntityRef) bool {
			if !ref.IsCreature() {
				return false
			}
			c, ok := e.creature(ref.ID)
			return rules.IsValidTarget(c, ok)
		},
		OnDone: func(res chain.Result) {
			e.recordWalk(from, chain.Nearest{}.Name(), hops, res)
		},
	}, func(h chain.Hop) {
		hops = append(hops, hopRecord(h))
		svc.SpawnEffect(e.cfg.BoltEffect, h.To, h.To.Sub(h.From).Normalize(), h.Target.ID)
		if svc.Combat != nil && e.cfg.PushLevel > 0 {
			svc.Combat.Push(h.Target.ID, h.To.Sub(h.From).Normalize(), e.cfg.PushLevel)
		}
		if svc.Status != nil && e.cfg.Status != "" && svc.Rand.Float64() < e.cfg.StatusChance {
			d := time.Duration(svc.RandRange(float64(e.cfg.StatusMin), float64(e.cfg.StatusMax)))
			svc.Status.Apply(h.Target.ID, e.cfg.Status, e.id, d)
		}
		e.record(item, h.Target, h.To, map[string]any{"hop": h.Index, "distance": h.Distance})
	})
}
