package enrichment

import (
	"testing"

	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMassDriverShovesNeighbours(t *testing.T) {
	h := newHarness(t)
	h.npc(2, core.Vec3{})
	h.npc(3, core.Vec3{X: 1})
	h.npc(4, core.Vec3{X: 2.5})
	h.npc(5, core.Vec3{X: 10})
	h.enrich(sword, core.SpellGravity, MassDriverID)

	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 6}, "")

	out := h.world.Outcomes
	assert.Equal(t, core.Vec3{X: 15}, out.Impulses[3])
	assert.Equal(t, core.Vec3{X: 15}, out.Impulses[4])
	assert.NotContains(t, out.Impulses, core.EntityID(2))
	assert.NotContains(t, out.Impulses, core.EntityID(5))
	require.Len(t, out.Pushes[3], 1)
	assert.Equal(t, 1, out.Pushes[3][0].Level)
	assert.Len(t, h.journal.triggersOf(MassDriverID), 2)

	md, _ := h.mgr.Get(MassDriverID)
	cd := md.(*MassDriver).Cooldowns()
	assert.True(t, cd.IsSuppressed(3))
	assert.True(t, cd.IsSuppressed(4))

	// both neighbours are still suppressed
	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 6}, "")
	assert.Equal(t, core.Vec3{X: 15}, h.world.Outcomes.Impulses[3])

	// a suppressed creature is no victim either
	h.hit(core.SpellGravity, core.PhaseStart, 3, core.Vec3{X: 6}, "")
	assert.NotContains(t, h.world.Outcomes.Impulses, core.EntityID(2))
}

func TestMassDriverRequirements(t *testing.T) {
	h := newHarness(t)
	h.npc(2, core.Vec3{})
	h.npc(3, core.Vec3{X: 1})
	h.enrich(sword, core.SpellGravity, MassDriverID)

	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 4.9}, "")
	h.hit(core.SpellGravity, core.PhaseEnd, 2, core.Vec3{X: 6}, "")
	h.hit(core.SpellFire, core.PhaseStart, 2, core.Vec3{X: 6}, "")
	h.mgr.Hit(core.ImbueHit{Item: sword, Spell: core.SpellGravity, Caster: player, Fired: true,
		Sample: core.CollisionSample{Target: core.CreatureRef(2), ImpactVelocity: core.Vec3{X: 9}}})
	assert.Empty(t, h.world.Outcomes.Impulses)

	h.world.Cull(3, true)
	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 6}, "")
	assert.Empty(t, h.world.Outcomes.Impulses)
}

func TestSunderingForceTearsPartOff(t *testing.T) {
	h := newHarness(t)
	h.npc(2, core.Vec3{}, core.Part{Name: "Arm", SliceAllowed: true})
	h.npc(3, core.Vec3{X: 5}, core.Part{Name: "Head"})
	h.enrich(sword, core.SpellGravity, SunderingForceID)

	h.hit(core.SpellGravity, core.PhaseStart, 3, core.Vec3{X: 1}, "Head")
	assert.Empty(t, h.world.Outcomes.Dismembered)

	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 0.4}, "Arm")
	assert.Empty(t, h.world.Outcomes.Dismembered)

	h.hit(core.SpellGravity, core.PhaseStart, 2, core.Vec3{X: 1}, "Arm")
	arm, _ := h.world.Part(2, "Arm")
	assert.True(t, arm.Sliced)
	assert.Equal(t, []core.EntityID{2}, h.world.Outcomes.Kills)
	assert.Equal(t, core.Vec3{X: 2}, h.world.Outcomes.Impulses[2])
	assert.Len(t, h.journal.triggersOf(SunderingForceID), 1)
}

func TestBurdeningGuardThrowsParriedCreature(t *testing.T) {
	h := newHarness(t)
	h.npc(2, core.Vec3{X: 1})
	h.enrich(sword, core.SpellGravity, BurdeningGuardID)

	parry := core.Parry{
		ParriedCreature:  2,
		ParryingCreature: player,
		ParryingItem:     sword,
		Sample: core.CollisionSample{
			ContactPoint:   core.Vec3{X: 0.5, Y: 1},
			ImpactVelocity: core.Vec3{X: 2},
		},
	}
	h.mgr.Parry(parry)
	assert.Empty(t, h.world.Outcomes.Pushes)

	parry.Sample.ImpactVelocity = core.Vec3{X: 3}
	h.mgr.Parry(parry)
	require.Len(t, h.world.Outcomes.Pushes[2], 1)
	assert.Equal(t, core.Vec3{X: 1}, h.world.Outcomes.Pushes[2][0].Dir)
	assert.Equal(t, core.Vec3{X: 7.5}, h.world.Outcomes.Impulses[2])

	// cooldown
	h.mgr.Parry(parry)
	assert.Len(t, h.world.Outcomes.Pushes[2], 1)
}

func TestBurdeningGuardNeedsEnrichedGravityItem(t *testing.T) {
	h := newHarness(t)
	h.npc(2, core.Vec3{X: 1})
	parry := core.Parry{
		ParriedCreature: 2,
		ParryingItem:    sword,
		Sample:          core.CollisionSample{ContactPoint: core.Vec3{Y: 1}, ImpactVelocity: core.Vec3{X: 5}},
	}

	h.mgr.Parry(parry)
	assert.Empty(t, h.world.Outcomes.Pushes)

	h.enrich(sword, core.SpellFire, BurdeningGuardID)
	h.mgr.Parry(parry)
	assert.Empty(t, h.world.Outcomes.Pushes)

	h.mgr.Imbue(core.Imbue{Item: sword, Spell: core.SpellGravity, Caster: player})
	h.mgr.Parry(parry)
	assert.Len(t, h.world.Outcomes.Pushes[2], 1)
}
