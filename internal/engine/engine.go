// Package engine declares the host simulation services the reactor consumes.
// Implementations live outside the reactor: internal/world provides an
// in-memory one for the headless runner and tests.
package engine

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
)

//go:generate go tool mockgen -destination=./mocks/effects_mock.go -package=mocks . Effects,EffectHandle

// Infinite marks a status that stays until removed.
const Infinite time.Duration = -1

// ErrNotFound is returned by catalog lookups for unknown ids.
var ErrNotFound = errors.New("engine: data not found")

// Data kinds understood by the catalog.
const (
	KindEffect     = "effect"
	KindStatus     = "status"
	KindEnrichment = "enrichment"
	KindKindling   = "kindling"
	KindSkill      = "skill"
)

// Catalog resolves tuning data by kind and id.
type Catalog interface {
	Has(kind, id string) bool
	// Decode copies the record into out. Returns ErrNotFound for unknown ids.
	Decode(kind, id string, out any) error
}

// Entities resolves live entity snapshots.
type Entities interface {
	Creature(id core.EntityID) (core.Creature, bool)
	Item(id core.EntityID) (core.Item, bool)
}

// ClosestHit pairs an entity with its closest surface point to a query origin.
type ClosestHit struct {
	Entity core.EntityRef
	Point  core.Vec3
}

// Spatial answers radius queries over live entities.
type Spatial interface {
	// InRadius returns live entities within radius of center. A nil pred
	// accepts everything.
	InRadius(center core.Vec3, radius float64, pred func(core.EntityRef) bool) []core.EntityRef
	InRadiusClosestPoint(center core.Vec3, radius float64) []ClosestHit
	// ReferencePoint is the point used for targeting (torso for creatures).
	ReferencePoint(ref core.EntityRef) (core.Vec3, bool)
	ClosestPoint(ref core.EntityRef, to core.Vec3) (core.Vec3, bool)
}

// EffectHandle controls a spawned cosmetic effect.
type EffectHandle interface {
	Play()
	Stop()
	End()
	SetIntensity(v float64)
	SetSize(v float64)
	// OnFinished registers fn to run once the effect has fully finished.
	OnFinished(fn func())
}

// Effects spawns cosmetic effects. Spawn returns nil for unknown effect ids.
type Effects interface {
	Spawn(effectID string, pos, dir core.Vec3, parent core.EntityID) EffectHandle
}

// Combat applies damage-level outcomes to creatures.
type Combat interface {
	Damage(id core.EntityID, amount float64)
	// Push staggers a creature along dir with the given push level.
	Push(id core.EntityID, dir core.Vec3, level int)
	Kill(id core.EntityID)
	// Dismember slices a ragdoll part off. Returns false if it could not.
	Dismember(part core.Part) bool
}

// Physics applies forces and continuous movement modifiers.
type Physics interface {
	Impulse(id core.EntityID, v core.Vec3)
	ExplosionForce(id core.EntityID, force float64, origin core.Vec3, radius, upwards float64)
	// Shatter breaks a fragile item.
	Shatter(id core.EntityID, force float64, origin core.Vec3, radius float64)
	SetSpeedModifier(id core.EntityID, owner string, mult float64)
	RemoveSpeedModifier(id core.EntityID, owner string)
	SetPhysicModifier(id core.EntityID, owner string, gravity, drag float64)
	RemovePhysicModifier(id core.EntityID, owner string)
}

// Status applies and removes status effects.
type Status interface {
	Apply(id core.EntityID, statusID, owner string, d time.Duration)
	Remove(id core.EntityID, statusID, owner string)
	Has(id core.EntityID, statusID string) bool
	// Burning returns the heat state of the burning status on id.
	Burning(id core.EntityID) (heat float64, ignited bool, ok bool)
	SetHeat(id core.EntityID, heat float64)
}

// SensorStream exposes live collision samples per damager. A damager is
// identified by its item and its id within that item.
type SensorStream interface {
	Samples(d core.Damager) []core.CollisionSample
	ItemVelocity(item core.EntityID) core.Vec3
	// WatchUnpenetrate calls fn whenever d fully withdraws from a target.
	// The returned cancel func unwires the listener.
	WatchUnpenetrate(d core.Damager, fn func(core.CollisionSample)) (cancel func())
}

// Hazards spawns persistent world hazards such as flame walls.
type Hazards interface {
	FlameWall(at core.Vec3, scale float64)
	FireBolt(from core.Vec3, target core.EntityID)
}

// Services bundles every collaborator a reactor component may need.
type Services struct {
	Catalog  Catalog
	Entities Entities
	Spatial  Spatial
	Effects  Effects
	Combat   Combat
	Physics  Physics
	Status   Status
	Sensors  SensorStream
	Hazards  Hazards

	// Timers runs on game time (chain delays, actor ticks).
	Timers *sched.Scheduler
	// RealTimers runs on wall time (cooldowns).
	RealTimers *sched.Scheduler

	Rand   *rand.Rand
	Logger *slog.Logger
}

// Log returns the configured logger or the default one.
func (s *Services) Log() *slog.Logger {
	if s == nil || s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// RandRange returns a uniform float in [lo, hi).
func (s *Services) RandRange(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + s.Rand.Float64()*(hi-lo)
}

// RandInt returns a uniform int in [lo, hi).
func (s *Services) RandInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.Rand.IntN(hi-lo)
}

// SpawnEffect spawns and plays effectID, tolerating missing data.
func (s *Services) SpawnEffect(effectID string, pos, dir core.Vec3, parent core.EntityID) EffectHandle {
	if s == nil || s.Effects == nil || effectID == "" {
		return nil
	}
	h := s.Effects.Spawn(effectID, pos, dir, parent)
	if h == nil {
		return nil
	}
	h.Play()
	return h
}
