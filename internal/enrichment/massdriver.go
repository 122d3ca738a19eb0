package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const MassDriverID = "MassDriver"

type MassDriverConfig struct {
	SearchRadius     float64       `yaml:"searchRadius"`
	PointOffset      float64       `yaml:"pointOffset"`
	ForceMultiplier  float64       `yaml:"forceMultiplier"`
	RequiredVelocity float64       `yaml:"requiredVelocity"`
	CreatureCooldown time.Duration `yaml:"creatureCooldown"`
	MaxTargets       int           `yaml:"maxTargets"`
	Effect           string        `yaml:"effect"`
}

// MassDriver shoves every creature around a gravity struck victim along the
// direction of the blow.
type MassDriver struct {
	base
	cfg MassDriverConfig
}

func DefaultMassDriverConfig() MassDriverConfig {
	return MassDriverConfig{
		SearchRadius:     3,
		PointOffset:      1.5,
		ForceMultiplier:  15,
		RequiredVelocity: 5,
		CreatureCooldown: 2 * time.Second,
		MaxTargets:       32,
		Effect:           "MassDriver",
	}
}

func NewMassDriver(deps *Deps) *MassDriver {
	return &MassDriver{
		base: newBase(MassDriverID, deps),
		cfg:  DefaultMassDriverConfig(),
	}
}

func (e *MassDriver) Refresh(cat engine.Catalog) {
	cfg := DefaultMassDriverConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.Effect = e.effect(cat, cfg.Effect)
	e.cfg = cfg
}

func (e *MassDriver) OnImbued(core.Imbue) {}

func (e *MassDriver) OnUnimbued(core.Imbue) {}

func (e *MassDriver) OnImbueHit(ev core.ImbueHit) {
	if ev.Spell != core.SpellGravity || ev.Fired || ev.Phase != core.PhaseStart {
		return
	}
	s := ev.Sample
	victim, ok := e.hitCreature(s)
	rules := TargetRules{Wielder: ev.Caster, AllowKilled: true, AllowPlayer: true}
	if !rules.IsValidTarget(victim, ok) || e.isSuppressed(victim.ID) {
		return
	}
	if !sqrAtLeast(s.ImpactVelocity, e.cfg.RequiredVelocity) {
		return
	}

	svc := e.svc
	dir := s.ImpactVelocity.Normalize()
	rules.Cooldown = e.cooldowns
	var hops []core.ChainHop
	e.deps.Chains.Start(chain.Request{
		Origin:   victim.Torso,
		Carrier:  victim.Ref(),
		Radius:   e.cfg.SearchRadius,
		MaxHops:  e.cfg.MaxTargets,
		Strategy: chain.Nearest{},
		Anchored: true,
		Visited:  []core.EntityRef{victim.Ref()},
		Valid: func(ref core.EntityRef) bool {
			if !ref.IsCreature() {
				return false
			}
			c, ok := e.creature(ref.ID)
			return rules.IsValidTarget(c, ok)
		},
		OnDone: func(res chain.Result) {
			if len(hops) > 0 {
				e.recordWalk(victim.Torso, chain.Nearest{}.Name(), hops, res)
			}
		},
	}, func(h chain.Hop) {
		hops = append(hops, hopRecord(h))
		if svc.Combat != nil {
			svc.Combat.Push(h.Target.ID, dir, 1)
		}
		if svc.Physics != nil {
			svc.Physics.Impulse(h.Target.ID, dir.Scale(e.cfg.ForceMultiplier))
		}
		start := h.To.Sub(dir.Scale(e.cfg.PointOffset))
		svc.SpawnEffect(e.cfg.Effect, start, dir, core.NoEntity)
		e.suppress(h.Target.ID, e.cfg.CreatureCooldown)
		e.record(ev.Item, h.Target, h.To, map[string]any{"victim": victim.ID.String()})
	})
}
