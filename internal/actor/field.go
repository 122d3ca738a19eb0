package actor

import (
	"math"
	"time"

	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/looplab/fsm"
)

// Field states.
const (
	FieldInactive = "inactive"
	FieldActive   = "active"
	FieldUnloaded = "unloaded"
)

// FieldConfig tunes a persistent field. Loaded from the "field" section of a
// catalog enrichment record.
type FieldConfig struct {
	ShockDelay  time.Duration `yaml:"shockDelay"`
	ShockRadius float64       `yaml:"shockRadius"`
	// ShockMaxTargets caps the creatures one burst strikes; 0 is unlimited.
	ShockMaxTargets int           `yaml:"shockMaxTargets"`
	ShockPushLevel  int           `yaml:"shockPushLevel"`
	ShockStatus     string        `yaml:"shockStatus"`
	ShockStatusMin  time.Duration `yaml:"shockStatusMin"`
	ShockStatusMax  time.Duration `yaml:"shockStatusMax"`
	ShockEffect     string        `yaml:"shockEffect"`
	PylonEffect     string        `yaml:"pylonEffect"`
	SpeedMultiplier float64       `yaml:"speedMultiplier"`
	// Drag defaults to 3 / SpeedMultiplier.
	Drag         float64 `yaml:"drag"`
	LoadedStatus string  `yaml:"loadedStatus"`
	ChargeEffect string  `yaml:"chargeEffect"`
	ChargeOffset float64 `yaml:"chargeOffset"`
}

func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		ShockDelay:      5 * time.Second,
		ShockRadius:     5,
		ShockPushLevel:  1,
		ShockStatus:     "Electrocute",
		ShockStatusMin:  3 * time.Second,
		ShockStatusMax:  5 * time.Second,
		ShockEffect:     "BoltHit",
		PylonEffect:     "BoltPylon",
		SpeedMultiplier: 0.05,
		LoadedStatus:    "BoltPylon",
		ChargeEffect:    "BoltPylonCharge",
		ChargeOffset:    2.5,
	}
}

func (c FieldConfig) maxTargets() int {
	if c.ShockMaxTargets > 0 {
		return c.ShockMaxTargets
	}
	return math.MaxInt
}

func (c FieldConfig) drag() float64 {
	if c.Drag > 0 {
		return c.Drag
	}
	if c.SpeedMultiplier > 0 {
		return 3 / c.SpeedMultiplier
	}
	return 0
}

// FieldSpawn places a field.
type FieldSpawn struct {
	// Source names the enrichment that loaded the field.
	Source string
	Host   core.EntityID
	// Item is the weapon lodged in the host.
	Item core.EntityID
	// Contact is where the item went in.
	Contact core.Vec3
}

// Field is a persistent field bound to a host creature. While active it
// slows its host and periodically shocks everything around the lodged item.
type Field struct {
	*base
	cfg    FieldConfig
	source string
	host   core.EntityID
	item   core.EntityID
	chains *chain.Engine
	// lookup finds other live fields for one level cascades.
	lookup func(core.EntityID) (*Field, bool)

	handle       string
	contact      core.Vec3
	pylon        engine.EffectHandle
	charge       engine.EffectHandle
	lastEmission time.Time
	chargeLevel  float64
	emissions    int
}

func newField(svc *engine.Services, chains *chain.Engine, observer Observer, cfg FieldConfig, sp FieldSpawn) *Field {
	f := &Field{
		cfg:     cfg,
		source:  sp.Source,
		host:    sp.Host,
		item:    sp.Item,
		contact: sp.Contact,
		chains:  chains,
	}
	f.base = newBase(KindField, svc, observer, FieldInactive, fsm.Events{
		{Name: "load", Src: []string{FieldInactive}, Dst: FieldActive},
		{Name: "unload", Src: []string{FieldInactive, FieldActive}, Dst: FieldUnloaded},
	})
	f.handle = KindField + ":" + f.id.String()
	return f
}

func (f *Field) Host() core.EntityID { return f.host }

func (f *Field) Item() core.EntityID { return f.item }

func (f *Field) Active() bool { return f.machine.Is(FieldActive) }

func (f *Field) Alive() bool { return !f.machine.Is(FieldUnloaded) }

// ChargeLevel rises linearly from 0 to 1 while waiting for the next burst.
func (f *Field) ChargeLevel() float64 { return f.chargeLevel }

// Emissions returns the number of bursts so far.
func (f *Field) Emissions() int { return f.emissions }

// Load applies the continuous modifiers and starts the emission clock.
func (f *Field) Load() bool {
	if !f.fire("load") {
		return false
	}
	svc := f.svc
	if svc.Physics != nil {
		svc.Physics.SetSpeedModifier(f.host, f.handle, f.cfg.SpeedMultiplier)
		svc.Physics.SetPhysicModifier(f.host, f.handle, 1, f.cfg.drag())
	}
	if svc.Status != nil && f.cfg.LoadedStatus != "" {
		svc.Status.Apply(f.host, f.cfg.LoadedStatus, f.handle, engine.Infinite)
	}
	f.pylon = svc.SpawnEffect(f.cfg.PylonEffect, f.contact, core.Up, f.host)
	f.spawnCharge()
	f.lastEmission = svc.Timers.Now()
	f.chargeLevel = 0
	return true
}

// Tick raises the charge level and bursts once the delay has elapsed.
func (f *Field) Tick(now time.Time) {
	if !f.Active() {
		return
	}
	if f.cfg.ShockDelay <= 0 {
		f.Emit(true)
		return
	}
	elapsed := now.Sub(f.lastEmission)
	f.chargeLevel = core.Clamp01(float64(elapsed) / float64(f.cfg.ShockDelay))
	if f.charge != nil {
		f.charge.SetIntensity(f.chargeLevel)
	}
	if elapsed >= f.cfg.ShockDelay {
		f.Emit(true)
	}
}

// Emit bursts now. With cascade set, other active fields hosted by affected
// creatures burst too, without cascading further.
func (f *Field) Emit(cascade bool) []core.EntityRef {
	if !f.Active() {
		return nil
	}
	svc := f.svc
	now := svc.Timers.Now()
	f.lastEmission = now
	f.chargeLevel = 0
	f.emissions++
	if f.charge != nil {
		f.charge.SetIntensity(0)
	}

	center, ok := f.center()
	if !ok {
		return nil
	}
	if svc.Hazards != nil {
		svc.Hazards.FireBolt(f.orb(), f.host)
	}

	playerOwned := false
	if it, ok := f.itemSnapshot(); ok {
		playerOwned = it.Owner == core.OwnerPlayer
	}

	var hops []core.ChainHop
	walk := f.chains.Start(chain.Request{
		Origin:   center,
		Radius:   f.cfg.ShockRadius,
		MaxHops:  f.cfg.maxTargets(),
		Strategy: chain.Nearest{},
		Anchored: true,
		Group:    f.group,
		Valid: func(ref core.EntityRef) bool {
			if !ref.IsCreature() || svc.Entities == nil {
				return false
			}
			c, ok := svc.Entities.Creature(ref.ID)
			if !ok || c.Culled {
				return false
			}
			return !(playerOwned && c.IsPlayer)
		},
	}, func(h chain.Hop) {
		hops = append(hops, core.ChainHop{Index: h.Index, Target: h.Target, From: h.From, To: h.To, Distance: h.Distance})
		svc.SpawnEffect(f.cfg.ShockEffect, h.To, core.Up, core.NoEntity)
		if svc.Status != nil && f.cfg.ShockStatus != "" {
			d := time.Duration(svc.RandRange(float64(f.cfg.ShockStatusMin), float64(f.cfg.ShockStatusMax)))
			svc.Status.Apply(h.Target.ID, f.cfg.ShockStatus, f.handle, d)
		}
		if svc.Combat != nil && f.cfg.ShockPushLevel > 0 {
			svc.Combat.Push(h.Target.ID, h.To.Sub(center).Normalize(), f.cfg.ShockPushLevel)
		}
	})
	res := walk.Result()

	f.observer.FieldBurst(core.ChainWalkEvent{
		Time:       now,
		Enrichment: f.source,
		Origin:     center,
		Strategy:   chain.Nearest{}.Name(),
		Hops:       hops,
		Reason:     res.Reason.String(),
	})

	if cascade && f.lookup != nil {
		for _, ref := range res.Visited {
			other, ok := f.lookup(ref.ID)
			if !ok || other == f {
				continue
			}
			other.Emit(false)
		}
	}
	return res.Visited
}

// Unload releases every modifier the field applied. Safe to call repeatedly.
func (f *Field) Unload() bool {
	wasActive := f.Active()
	if !f.fire("unload") {
		return false
	}
	f.group.Cancel()
	if f.charge != nil {
		f.charge.End()
		f.charge = nil
	}
	if f.pylon != nil {
		f.pylon.End()
		f.pylon = nil
	}
	if !wasActive {
		return true
	}
	svc := f.svc
	if svc.Physics != nil {
		svc.Physics.RemoveSpeedModifier(f.host, f.handle)
		svc.Physics.RemovePhysicModifier(f.host, f.handle)
	}
	if svc.Status != nil && f.cfg.LoadedStatus != "" {
		svc.Status.Remove(f.host, f.cfg.LoadedStatus, f.handle)
	}
	f.chargeLevel = 0
	return true
}

// orb is where the charge builds up, above the host.
func (f *Field) orb() core.Vec3 {
	c, _ := f.hostCreature()
	return c.Position.Add(core.Up.Scale(f.cfg.ChargeOffset))
}

func (f *Field) spawnCharge() {
	if _, ok := f.hostCreature(); !ok {
		return
	}
	f.charge = f.svc.SpawnEffect(f.cfg.ChargeEffect, f.orb(), core.Up, f.host)
	if f.charge != nil {
		f.charge.SetIntensity(0)
	}
}

func (f *Field) hostCreature() (core.Creature, bool) {
	if f.svc.Entities == nil {
		return core.Creature{}, false
	}
	return f.svc.Entities.Creature(f.host)
}

func (f *Field) itemSnapshot() (core.Item, bool) {
	if f.svc.Entities == nil {
		return core.Item{}, false
	}
	return f.svc.Entities.Item(f.item)
}

// center is the lodged item, or the host's torso once the item is gone.
func (f *Field) center() (core.Vec3, bool) {
	if it, ok := f.itemSnapshot(); ok {
		return it.Position, true
	}
	if c, ok := f.hostCreature(); ok {
		return c.Torso, true
	}
	return core.Vec3{}, false
}
