package enrichment

import (
	"time"

	"github.com/imbuefx/enrichments/internal/cooldown"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

const CindertraceID = "Cindertrace"

type CindertraceConfig struct {
	MinHorizontalVelocity float64       `yaml:"minHorizontalVelocity"`
	DragEffect            string        `yaml:"dragEffect"`
	FlameWallCooldown     time.Duration `yaml:"flameWallCooldown"`
	FlameWallOffset       core.Vec3     `yaml:"flameWallOffset"`
	FlameWallScale        float64       `yaml:"flameWallScale"`
	MinNormalDot          float64       `yaml:"minNormalDot"`
	DragSpeedMin          float64       `yaml:"dragSpeedMin"`
	DragSpeedMax          float64       `yaml:"dragSpeedMax"`
}

// Cindertrace leaves a trail of small flame walls behind a fire imbued
// weapon dragged along the ground.
type Cindertrace struct {
	base
	cfg CindertraceConfig
	// walls rate limits flame walls per item on game time.
	walls  *cooldown.Registry
	traces map[core.EntityID]*trace
}

type trace struct {
	drag engine.EffectHandle
}

func DefaultCindertraceConfig() CindertraceConfig {
	return CindertraceConfig{
		MinHorizontalVelocity: 0.5,
		DragEffect:            "CindertraceDrag",
		FlameWallCooldown:     175 * time.Millisecond,
		FlameWallOffset:       core.Vec3{Y: 0.3},
		FlameWallScale:        0.4,
		MinNormalDot:          0.9,
		DragSpeedMin:          1.5,
		DragSpeedMax:          5,
	}
}

func NewCindertrace(deps *Deps) *Cindertrace {
	return &Cindertrace{
		base:   newBase(CindertraceID, deps),
		cfg:    DefaultCindertraceConfig(),
		walls:  cooldown.New(deps.Services.Timers),
		traces: make(map[core.EntityID]*trace),
	}
}

func (e *Cindertrace) Refresh(cat engine.Catalog) {
	cfg := DefaultCindertraceConfig()
	e.decode(cat, engine.KindEnrichment, e.id, &cfg)
	cfg.DragEffect = e.effect(cat, cfg.DragEffect)
	e.cfg = cfg
}

func (e *Cindertrace) OnImbued(ev core.Imbue) {
	if ev.Spell != core.SpellFire || !ev.Item.Valid() {
		return
	}
	if _, ok := e.traces[ev.Item]; !ok {
		e.traces[ev.Item] = &trace{}
	}
}

func (e *Cindertrace) OnUnimbued(ev core.Imbue) {
	t, ok := e.traces[ev.Item]
	if !ok {
		return
	}
	delete(e.traces, ev.Item)
	e.walls.Release(ev.Item)
	if t.drag != nil {
		t.drag.End()
	}
}

// Tracing reports whether item currently leaves a trail when dragged.
func (e *Cindertrace) Tracing(item core.EntityID) bool {
	_, ok := e.traces[item]
	return ok
}

func (e *Cindertrace) OnGroundContact(ev core.GroundContact) {
	t, ok := e.traces[ev.Item]
	if !ok {
		return
	}
	if ev.OtherIsEntity ||
		ev.Normal.Dot(core.Up) < e.cfg.MinNormalDot ||
		!sqrAtLeast(ev.RelativeVelocity.Horizontal(), e.cfg.MinHorizontalVelocity) ||
		e.walls.IsSuppressed(ev.Item) {
		if t.drag != nil {
			t.drag.Stop()
			t.drag = nil
		}
		return
	}

	svc := e.svc
	if t.drag == nil {
		t.drag = svc.SpawnEffect(e.cfg.DragEffect, ev.Point, core.Up, ev.Item)
	}
	e.walls.Suppress(ev.Item, e.cfg.FlameWallCooldown)
	at := ev.Point.Add(e.cfg.FlameWallOffset)
	if svc.Hazards != nil {
		svc.Hazards.FlameWall(at, e.cfg.FlameWallScale)
	}
	var speed float64
	if svc.Sensors != nil {
		speed = svc.Sensors.ItemVelocity(ev.Item).Len()
	}
	if t.drag != nil {
		t.drag.SetIntensity(core.InverseLerp(e.cfg.DragSpeedMin, e.cfg.DragSpeedMax, speed))
	}
	e.record(ev.Item, core.EntityRef{}, at, map[string]any{"speed": speed})
}

func (e *Cindertrace) Close() {
	e.base.Close()
	e.walls.Clear()
	for item, t := range e.traces {
		if t.drag != nil {
			t.drag.End()
		}
		delete(e.traces, item)
	}
}
