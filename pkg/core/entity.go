// pkg/core/entity.go
package core

import "strconv"

// EntityID identifies a live simulation entity (creature or item).
type EntityID uint32

// NoEntity is the zero id, never assigned to a live entity.
const NoEntity EntityID = 0

func (id EntityID) Valid() bool {
	return id != NoEntity
}

func (id EntityID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// EntityKind distinguishes creatures from items.
type EntityKind uint8

const (
	KindUnknown EntityKind = iota
	KindCreature
	KindItem
)

func (k EntityKind) String() string {
	switch k {
	case KindCreature:
		return "creature"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// EntityRef is what spatial queries hand back.
type EntityRef struct {
	ID   EntityID
	Kind EntityKind
}

func (r EntityRef) IsCreature() bool {
	return r.Kind == KindCreature && r.ID.Valid()
}

func (r EntityRef) IsItem() bool {
	return r.Kind == KindItem && r.ID.Valid()
}

// CreatureRef builds a creature reference.
func CreatureRef(id EntityID) EntityRef {
	return EntityRef{ID: id, Kind: KindCreature}
}

// ItemRef builds an item reference.
func ItemRef(id EntityID) EntityRef {
	return EntityRef{ID: id, Kind: KindItem}
}

// Creature is a snapshot of a creature's state as seen by the reactor.
type Creature struct {
	ID       EntityID
	Position Vec3
	// Torso is the reference point used for targeting and arcing.
	Torso    Vec3
	Faction  string
	IsPlayer bool
	Culled   bool
	Killed   bool
}

func (c Creature) Ref() EntityRef {
	return CreatureRef(c.ID)
}

// Owner of an item.
type Owner uint8

const (
	OwnerNone Owner = iota
	OwnerPlayer
	OwnerNPC
)

// Item is a snapshot of an item (weapon, prop, projectile).
type Item struct {
	ID       EntityID
	Position Vec3
	Velocity Vec3
	Owner    Owner
	// Holder is the creature currently holding the item, if any.
	Holder EntityID
	// Fragile items shatter under explosive force.
	Fragile bool
}

func (i Item) Ref() EntityRef {
	return ItemRef(i.ID)
}

func (i Item) IsHeld() bool {
	return i.Holder.Valid()
}

// Part identifies a ragdoll part of a creature.
type Part struct {
	Creature EntityID
	Name     string
	// Up is the part's up direction, used for dismember impulses.
	Up           Vec3
	Sliced       bool
	SliceAllowed bool
	Position     Vec3
}

func (p Part) Valid() bool {
	return p.Creature.Valid() && p.Name != ""
}
