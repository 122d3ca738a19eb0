package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const SunderingForceID = "SunderingForce"

type SunderingForceConfig struct {
	RequiredVelocity float64       `yaml:"requiredVelocity"`
	ForceMultiplier  float64       `yaml:"forceMultiplier"`
	CreatureCooldown time.Duration `yaml:"creatureCooldown"`
	Effect           string        `yaml:"effect"`
}

// SunderingForce tears the struck part off a creature hit by a gravity
// imbued weapon and kills it.
type SunderingForce struct {
	base
	cfg SunderingForceConfig
}

func DefaultSunderingForceConfig() SunderingForceConfig {
	return SunderingForceConfig{
		RequiredVelocity: 0.5,
		ForceMultiplier:  2,
		CreatureCooldown: 2 * time.Second,
		Effect:           "SunderingForce",
	}
}

func NewSunderingForce(deps *Deps) *SunderingForce {
	return &SunderingForce{
		base: newBase(SunderingForceID, deps),
		cfg:  DefaultSunderingForceConfig(),
	}
}

func (e *SunderingForce) Refresh(cat engine.Catalog) {
	cfg := DefaultSunderingForceConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.Effect = e.effect(cat, cfg.Effect)
	e.cfg = cfg
}

func (e *SunderingForce) OnImbued(core.Imbue) {}

func (e *SunderingForce) OnUnimbued(core.Imbue) {}

func (e *SunderingForce) OnImbueHit(ev core.ImbueHit) {
	if ev.Spell != core.SpellGravity || ev.Fired || ev.Phase != core.PhaseStart {
		return
	}
	s := ev.Sample
	c, ok := e.hitCreature(s)
	rules := TargetRules{Wielder: ev.Caster, AllowKilled: true}
	if !rules.IsValidTarget(c, ok) || e.isSuppressed(c.ID) {
		return
	}
	if !sqrAtLeast(s.ImpactVelocity, e.cfg.RequiredVelocity) {
		return
	}
	part := s.Part
	if !part.Valid() || part.Creature != c.ID || part.Sliced || !part.SliceAllowed {
		return
	}
	svc := e.svc
	if svc.Combat == nil || !svc.Combat.Dismember(part) {
		return
	}
	if svc.Physics != nil {
		svc.Physics.Impulse(c.ID, s.ImpactVelocity.Scale(e.cfg.ForceMultiplier))
	}
	if !c.Killed {
		svc.Combat.Kill(c.ID)
	}
	svc.SpawnEffect(e.cfg.Effect, s.ContactPoint, s.ContactNormal, c.ID)
	e.suppress(c.ID, e.cfg.CreatureCooldown)
	e.record(ev.Item, c.Ref(), s.ContactPoint, map[string]any{"part": part.Name})
}
