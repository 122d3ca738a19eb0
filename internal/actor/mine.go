package actor

import (
	"context"
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/looplab/fsm"
	"go.opentelemetry.io/otel/metric"
)

// Mine states.
const (
	MineSpawned   = "spawned"
	MineArmed     = "armed"
	MineDetonated = "detonated"
	MineExpired   = "expired"
	MineDestroyed = "destroyed"
)

// MineConfig tunes an arm/disarm mine. Loaded from the "kindling" catalog kind.
type MineConfig struct {
	Duration        time.Duration `yaml:"duration"`
	ReadyExitRadius float64       `yaml:"readyExitRadius"`
	DetonateRadius  float64       `yaml:"detonateTriggerRadius"`
	ExplosionDamage float64       `yaml:"explosionDamage"`
	ExplosionForce  float64       `yaml:"explosionForce"`
	ExplosionRadius float64       `yaml:"explosionRadius"`
	UpwardsModifier float64       `yaml:"upwardsModifier"`
	PushLevel       int           `yaml:"pushLevel"`
	EffectScale     float64       `yaml:"effectScale"`
	DismemberForce  float64       `yaml:"dismemberForce"`
	IdleEffect      string        `yaml:"idleEffect"`
	ExplosionEffect string        `yaml:"explosionEffect"`
}

func DefaultMineConfig() MineConfig {
	return MineConfig{
		Duration:        1500 * time.Millisecond,
		ReadyExitRadius: 0.5,
		DetonateRadius:  0.1,
		ExplosionDamage: 10,
		ExplosionForce:  3,
		ExplosionRadius: 1.5,
		UpwardsModifier: 0.5,
		PushLevel:       1,
		EffectScale:     0.3,
		DismemberForce:  3,
		IdleEffect:      "KindlingIdle",
		ExplosionEffect: "KindlingExplosion",
	}
}

// MineSpawn places a mine.
type MineSpawn struct {
	Source   string
	Position core.Vec3
	// Item is the weapon that must leave and re-enter the volume.
	Item core.EntityID
	// Victim is the part the mine was planted on. It is spared the blast and
	// dismembered afterwards.
	Victim core.Part
	// Ignored is exempt from the blast (the wielder).
	Ignored core.EntityID
}

// Volume is the trigger volume the host watches for the mine's item.
type Volume struct {
	Center  core.Vec3
	Radius  float64
	Enabled bool
	// Item is the only entity whose enter and exit events matter.
	Item core.EntityID
}

// Mine arms once its item leaves the exit radius and detonates when the item
// comes back within the detonate radius.
type Mine struct {
	*base
	cfg    MineConfig
	spawn  MineSpawn
	volume Volume

	idle        engine.EffectHandle
	detonations metric.Int64Counter
}

func newMine(svc *engine.Services, observer Observer, cfg MineConfig, sp MineSpawn, detonations metric.Int64Counter) *Mine {
	m := &Mine{
		cfg:         cfg,
		spawn:       sp,
		detonations: detonations,
		volume: Volume{
			Center:  sp.Position,
			Radius:  cfg.ReadyExitRadius,
			Enabled: true,
			Item:    sp.Item,
		},
	}
	m.base = newBase(KindMine, svc, observer, MineSpawned, fsm.Events{
		{Name: "arm", Src: []string{MineSpawned}, Dst: MineArmed},
		{Name: "detonate", Src: []string{MineArmed}, Dst: MineDetonated},
		{Name: "expire", Src: []string{MineSpawned, MineArmed}, Dst: MineExpired},
		{Name: "destroy", Src: []string{MineSpawned, MineArmed, MineDetonated, MineExpired}, Dst: MineDestroyed},
	})
	m.duration = cfg.Duration
	return m
}

func (m *Mine) start() {
	m.idle = m.svc.SpawnEffect(m.cfg.IdleEffect, m.spawn.Position, core.Up, core.NoEntity)
	if m.duration > 0 {
		m.group.After(m.duration, m.expire)
	}
}

// Volume returns the current trigger volume.
func (m *Mine) Volume() Volume { return m.volume }

func (m *Mine) Position() core.Vec3 { return m.spawn.Position }

func (m *Mine) Alive() bool { return !m.machine.Is(MineDestroyed) }

func (m *Mine) Armed() bool { return m.machine.Is(MineArmed) }

// OnExit handles the item leaving the volume. The first exit arms the mine
// and shrinks the volume to the detonate radius.
func (m *Mine) OnExit(item core.EntityID) {
	if item != m.spawn.Item || !m.volume.Enabled || !m.machine.Is(MineSpawned) {
		return
	}
	m.volume.Radius = m.cfg.DetonateRadius
	m.fire("arm")
}

// OnEnter handles the item entering the volume. An armed mine detonates.
func (m *Mine) OnEnter(item core.EntityID) {
	if item != m.spawn.Item {
		return
	}
	m.Detonate()
}

// Tick expires the mine once its duration is spent.
func (m *Mine) Tick(now time.Time) {
	if m.duration > 0 && now.Sub(m.spawned) >= m.duration {
		m.expire()
	}
}

// Detonate blows an armed mine up. Returns false if the mine is not armed or
// already detonated.
func (m *Mine) Detonate() bool {
	if !m.volume.Enabled || !m.machine.Is(MineArmed) {
		return false
	}
	// disable first: hits below may produce volume events in the same tick
	m.volume.Enabled = false
	m.fire("detonate")
	m.group.Cancel()

	svc := m.svc
	pos := m.spawn.Position
	if m.idle != nil {
		m.idle.End()
		m.idle = nil
	}
	hits := m.blast(pos)
	m.finishVictim()

	m.detonations.Add(context.Background(), 1)
	m.observer.Detonation(core.DetonationEvent{
		Time:     svc.Timers.Now(),
		ActorID:  m.id.String(),
		Position: pos,
		Radius:   m.cfg.ExplosionRadius,
		Hits:     hits,
	})
	svc.Log().Debug("mine detonated", "actor", m.id, "hits", len(hits))

	fx := svc.SpawnEffect(m.cfg.ExplosionEffect, pos, core.Up, core.NoEntity)
	if fx == nil {
		m.destroy()
		return true
	}
	fx.SetSize(m.cfg.EffectScale)
	fx.OnFinished(m.destroy)
	return true
}

// DamageAt is the blast damage at dist: full at the center, zero at the radius.
func (c MineConfig) DamageAt(dist float64) float64 {
	if c.ExplosionRadius <= 0 {
		return 0
	}
	return c.ExplosionDamage * core.InverseLerp(c.ExplosionRadius, 0, dist)
}

func (m *Mine) blast(pos core.Vec3) []core.DetonationHit {
	svc := m.svc
	if svc.Spatial == nil || svc.Entities == nil {
		return nil
	}
	r := m.cfg.ExplosionRadius
	var hits []core.DetonationHit
	for _, hit := range svc.Spatial.InRadiusClosestPoint(pos, r) {
		ref := hit.Entity
		dist := pos.Dist(hit.Point)
		switch {
		case ref.IsCreature():
			if ref.ID == m.spawn.Victim.Creature || ref.ID == m.spawn.Ignored {
				continue
			}
			c, ok := svc.Entities.Creature(ref.ID)
			if !ok || c.Culled {
				continue
			}
			dmg := m.cfg.DamageAt(dist)
			if svc.Combat != nil {
				if dmg > 0 {
					svc.Combat.Damage(ref.ID, dmg)
				}
				if dist < r && m.cfg.PushLevel > 0 {
					svc.Combat.Push(ref.ID, hit.Point.Sub(pos).Normalize(), m.cfg.PushLevel)
				}
			}
			if svc.Physics != nil {
				svc.Physics.ExplosionForce(ref.ID, m.cfg.ExplosionForce, pos, r, m.cfg.UpwardsModifier)
			}
			hits = append(hits, core.DetonationHit{Target: ref, Distance: dist, Damage: dmg})
		case ref.IsItem():
			it, ok := svc.Entities.Item(ref.ID)
			if !ok || svc.Physics == nil {
				continue
			}
			svc.Physics.ExplosionForce(ref.ID, m.cfg.ExplosionForce, pos, r, m.cfg.UpwardsModifier)
			if it.Fragile {
				svc.Physics.Shatter(ref.ID, m.cfg.ExplosionForce, pos, r)
			}
			hits = append(hits, core.DetonationHit{Target: ref, Distance: dist})
		}
	}
	return hits
}

// finishVictim dismembers the planted part and kills its creature. A part
// already cut off for good is left alone.
func (m *Mine) finishVictim() {
	part := m.spawn.Victim
	if !part.Valid() {
		return
	}
	if part.Sliced && !part.SliceAllowed {
		return
	}
	svc := m.svc
	if svc.Combat != nil {
		svc.Combat.Dismember(part)
	}
	if svc.Physics != nil && m.cfg.DismemberForce > 0 {
		svc.Physics.Impulse(part.Creature, core.Up.Scale(m.cfg.DismemberForce))
	}
	if svc.Combat == nil || svc.Entities == nil {
		return
	}
	if c, ok := svc.Entities.Creature(part.Creature); ok && !c.Killed {
		svc.Combat.Kill(part.Creature)
	}
}

// expire disables the volume and ends the idle effect. The mine is removed
// once the effect finishes, or at once when there is no effect.
func (m *Mine) expire() {
	if !m.volume.Enabled {
		return
	}
	m.volume.Enabled = false
	if !m.fire("expire") {
		return
	}
	m.group.Cancel()
	if m.idle == nil {
		m.destroy()
		return
	}
	idle := m.idle
	m.idle = nil
	idle.OnFinished(m.destroy)
	idle.End()
}

func (m *Mine) destroy() {
	m.volume.Enabled = false
	m.group.Cancel()
	if m.idle != nil {
		m.idle.End()
		m.idle = nil
	}
	m.fire("destroy")
}
