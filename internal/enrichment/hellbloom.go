package enrichment

import (
	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/detector"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const HellbloomID = "Hellbloom"

type HellbloomConfig struct {
	DepthRequirementRatio     float64 `yaml:"depthRequirementRatio"`
	EventResetRatio           float64 `yaml:"eventResetRatio"`
	RequireUnpenetrateToReset bool    `yaml:"requireUnpenetrateToReset"`
	AllowSlash                bool    `yaml:"allowSlash"`
	AllowIgnited              bool    `yaml:"allowIgnited"`
	BurningStatus             string  `yaml:"burningStatus"`
	FlameWallScale            float64 `yaml:"flameWallScale"`
}

// Hellbloom brings a burning creature to maximum heat and raises a flame wall
// under it when a fire imbued blade reaches full depth.
type Hellbloom struct {
	base
	cfg     HellbloomConfig
	maxHeat float64
}

func DefaultHellbloomConfig() HellbloomConfig {
	return HellbloomConfig{
		DepthRequirementRatio:     0.9,
		EventResetRatio:           0.2,
		RequireUnpenetrateToReset: true,
		AllowSlash:                true,
		AllowIgnited:              true,
		BurningStatus:             "Burning",
		FlameWallScale:            1,
	}
}

func NewHellbloom(deps *Deps) *Hellbloom {
	return &Hellbloom{
		base: newBase(HellbloomID, deps),
		cfg:  DefaultHellbloomConfig(),
	}
}

func (e *Hellbloom) Refresh(cat engine.Catalog) {
	cfg := DefaultHellbloomConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	var status catalog.StatusData
	e.decode(cat, engine.KindStatus, cfg.BurningStatus, &status)
	e.cfg = cfg
	e.maxHeat = status.MaxHeat
}

func (e *Hellbloom) params() detector.Params {
	return detector.Params{
		DepthRequirementRatio: e.cfg.DepthRequirementRatio,
		EventResetRatio:       e.cfg.EventResetRatio,
		RequireExplicitReset:  e.cfg.RequireUnpenetrateToReset,
	}
}

func (e *Hellbloom) OnImbued(ev core.Imbue) {
	if ev.Spell != core.SpellFire {
		return
	}
	sensors := detector.ValidSensors(ev.Damagers, e.cfg.AllowSlash)
	if len(sensors) == 0 {
		return
	}
	e.deps.Detectors.Activate(ev.Item, e, sensors, e.params())
}

func (e *Hellbloom) OnUnimbued(ev core.Imbue) {
	e.deps.Detectors.Deactivate(ev.Item, e)
}

func (e *Hellbloom) OnPenetrateMaxDepth(ev detector.MaxDepthEvent) {
	var caster core.EntityID
	if e.deps.Items != nil {
		imbue, ok := e.deps.Items.ImbueOf(ev.Item)
		if !ok || imbue.Spell != core.SpellFire {
			return
		}
		caster = imbue.Caster
	}
	c, ok := e.hitCreature(ev.Sample)
	rules := TargetRules{Wielder: caster, AllowKilled: true, AllowPlayer: true}
	if !rules.IsValidTarget(c, ok) {
		return
	}
	svc := e.svc
	if svc.Status == nil || e.maxHeat <= 0 {
		return
	}
	_, ignited, burning := svc.Status.Burning(c.ID)
	if !burning || (ignited && !e.cfg.AllowIgnited) {
		return
	}
	svc.Status.SetHeat(c.ID, e.maxHeat)
	if svc.Hazards != nil {
		svc.Hazards.FlameWall(c.Torso, e.cfg.FlameWallScale)
	}
	e.record(ev.Item, c.Ref(), c.Torso, map[string]any{"depth": ev.Depth, "heat": e.maxHeat})
}
