package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const BurdeningGuardID = "BurdeningGuard"

type BurdeningGuardConfig struct {
	ForceMultiplier  float64       `yaml:"forceMultiplier"`
	RequiredVelocity float64       `yaml:"requiredVelocity"`
	CreatureCooldown time.Duration `yaml:"creatureCooldown"`
	Effect           string        `yaml:"effect"`
}

// BurdeningGuard throws back a creature whose attack was parried with a
// gravity imbued weapon carrying this enrichment.
type BurdeningGuard struct {
	base
	cfg BurdeningGuardConfig
}

func DefaultBurdeningGuardConfig() BurdeningGuardConfig {
	return BurdeningGuardConfig{
		ForceMultiplier:  15,
		RequiredVelocity: 2.5,
		CreatureCooldown: 2 * time.Second,
		Effect:           "BurdeningGuard",
	}
}

func NewBurdeningGuard(deps *Deps) *BurdeningGuard {
	return &BurdeningGuard{
		base: newBase(BurdeningGuardID, deps),
		cfg:  DefaultBurdeningGuardConfig(),
	}
}

func (e *BurdeningGuard) Refresh(cat engine.Catalog) {
	cfg := DefaultBurdeningGuardConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.Effect = e.effect(cat, cfg.Effect)
	e.cfg = cfg
}

func (e *BurdeningGuard) OnImbued(core.Imbue) {}

func (e *BurdeningGuard) OnUnimbued(core.Imbue) {}

func (e *BurdeningGuard) OnParry(ev core.Parry) {
	items := e.deps.Items
	if items == nil {
		return
	}
	imbue, ok := items.ImbueOf(ev.ParryingItem)
	if !ok || imbue.Spell != core.SpellGravity || !items.HasEnrichment(ev.ParryingItem, e.id) {
		return
	}
	c, ok := e.creature(ev.ParriedCreature)
	rules := TargetRules{AllowKilled: true, AllowPlayer: true}
	if !rules.IsValidTarget(c, ok) || e.isSuppressed(c.ID) {
		return
	}
	s := ev.Sample
	if !sqrAtLeast(s.ImpactVelocity, e.cfg.RequiredVelocity) {
		return
	}
	svc := e.svc
	dir := c.Torso.Sub(s.ContactPoint)
	if svc.Combat != nil {
		svc.Combat.Push(c.ID, dir.Normalize(), 1)
	}
	if svc.Physics != nil {
		svc.Physics.Impulse(c.ID, dir.Scale(e.cfg.ForceMultiplier))
	}
	svc.SpawnEffect(e.cfg.Effect, s.ContactPoint, dir.Normalize(), core.NoEntity)
	e.suppress(c.ID, e.cfg.CreatureCooldown)
	e.record(ev.ParryingItem, c.Ref(), s.ContactPoint, map[string]any{"parrying": ev.ParryingCreature.String()})
}
