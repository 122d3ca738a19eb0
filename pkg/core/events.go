// pkg/core/events.go
package core

import "time"

// DamagerID identifies a damager (sensor) attached to an item.
type DamagerID uint32

// DamagerType is the cutting profile of a damager.
type DamagerType uint8

const (
	DamagerBlunt DamagerType = iota
	DamagerSlash
	DamagerPierce
)

func (t DamagerType) String() string {
	switch t {
	case DamagerPierce:
		return "pierce"
	case DamagerSlash:
		return "slash"
	default:
		return "blunt"
	}
}

// Damager is a penetration sensor attached to an item.
type Damager struct {
	ID   DamagerID
	Item EntityID
	Type DamagerType
	// MaxDepth is the deepest the damager can penetrate.
	MaxDepth float64
}

// CollisionSample is one live contact reported by the collision system.
type CollisionSample struct {
	Damager DamagerID
	// SourceItem is the item owning the damager (or the hitting item).
	SourceItem EntityID
	Target     EntityRef
	Part       Part
	// Penetration is non-zero while the damager is inside the target.
	Penetration    float64
	LastDepth      float64
	ContactPoint   Vec3
	ContactNormal  Vec3
	ImpactVelocity Vec3
}

// Penetrating reports whether the sample carries penetration.
func (s CollisionSample) Penetrating() bool {
	return s.Penetration != 0
}

// SpellKind is the element a weapon is imbued with.
type SpellKind string

const (
	SpellNone      SpellKind = ""
	SpellFire      SpellKind = "Fire"
	SpellLightning SpellKind = "Lightning"
	SpellGravity   SpellKind = "Gravity"
)

// HitPhase marks where in the collision an imbue hit was reported.
type HitPhase uint8

const (
	PhaseStart HitPhase = iota
	PhaseEnd
)

// Imbue describes an imbue or unimbue of an item.
type Imbue struct {
	Item  EntityID
	Spell SpellKind
	// Caster is the creature that imbued the item (usually the wielder).
	Caster   EntityID
	Damagers []Damager
}

// ImbueHit is raised when an imbued item hits something.
type ImbueHit struct {
	Item   EntityID
	Spell  SpellKind
	Caster EntityID
	// Fired is true for hits caused by the spell projectile itself.
	Fired  bool
	Phase  HitPhase
	Sample CollisionSample
}

// Parry is raised when one creature parries another's attack.
type Parry struct {
	ParriedCreature  EntityID
	ParriedItem      EntityID
	ParryingCreature EntityID
	ParryingItem     EntityID
	Sample           CollisionSample
}

// GroundContact is a continuous contact between an item and static ground.
type GroundContact struct {
	Item             EntityID
	Point            Vec3
	Normal           Vec3
	RelativeVelocity Vec3
	// OtherIsEntity is true when the contact is with a creature or item.
	OtherIsEntity bool
	Time          time.Time
}
