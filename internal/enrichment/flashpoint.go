package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/actor"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const FlashpointID = "Flashpoint"

type FlashpointConfig struct {
	RequiredVelocity float64       `yaml:"requiredVelocity"`
	CreatureCooldown time.Duration `yaml:"creatureCooldown"`
	Kindling         string        `yaml:"kindling"`
}

// Flashpoint plants a kindling mine where a fire imbued projectile hits hard
// enough. The mine blows once the projectile is pulled out and pushed back.
type Flashpoint struct {
	base
	cfg  FlashpointConfig
	mine actor.MineConfig
}

func NewFlashpoint(deps *Deps) *Flashpoint {
	return &Flashpoint{
		base: newBase(FlashpointID, deps),
		cfg: FlashpointConfig{
			RequiredVelocity: 15,
			CreatureCooldown: 2 * time.Second,
			Kindling:         "Kindling",
		},
		mine: actor.DefaultMineConfig(),
	}
}

func (e *Flashpoint) Refresh(cat engine.Catalog) {
	e.decode(cat, engine.KindEnrichment, e.id, &e.cfg)
	mine := actor.DefaultMineConfig()
	e.decode(cat, engine.KindKindling, e.cfg.Kindling, &mine)
	mine.IdleEffect = e.effect(cat, mine.IdleEffect)
	mine.ExplosionEffect = e.effect(cat, mine.ExplosionEffect)
	e.mine = mine
}

func (e *Flashpoint) OnImbued(core.Imbue) {}

func (e *Flashpoint) OnUnimbued(core.Imbue) {}

func (e *Flashpoint) OnImbueHit(ev core.ImbueHit) {
	if ev.Spell != core.SpellFire || ev.Fired || ev.Phase != core.PhaseEnd {
		return
	}
	s := ev.Sample
	c, ok := e.hitCreature(s)
	rules := TargetRules{Wielder: ev.Caster, AllowPlayer: true}
	if !rules.IsValidTarget(c, ok) || e.isSuppressed(c.ID) {
		return
	}
	if !sqrAtLeast(s.ImpactVelocity, e.cfg.RequiredVelocity) {
		return
	}
	if !s.Part.Valid() || s.Part.Creature != c.ID || c.IsPlayer {
		return
	}
	item := s.SourceItem
	if !item.Valid() {
		item = ev.Item
	}
	m := e.deps.Actors.SpawnMine(e.mine, actor.MineSpawn{
		Source:   e.id,
		Position: s.ContactPoint,
		Item:     item,
		Victim:   s.Part,
		Ignored:  ev.Caster,
	})
	if m == nil {
		return
	}
	e.suppress(c.ID, e.cfg.CreatureCooldown)
	e.record(item, c.Ref(), s.ContactPoint, map[string]any{
		"mine":     m.ID().String(),
		"part":     s.Part.Name,
		"velocity": s.ImpactVelocity.Len(),
	})
}
