package enrichment

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/internal/world"
	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/stretchr/testify/require"
)

type recordingJournal struct {
	triggers    []core.TriggerEvent
	walks       []core.ChainWalkEvent
	transitions []core.ActorTransition
	bursts      []core.ChainWalkEvent
	detonations []core.DetonationEvent
}

func (j *recordingJournal) Trigger(ev core.TriggerEvent)     { j.triggers = append(j.triggers, ev) }
func (j *recordingJournal) ChainWalk(ev core.ChainWalkEvent) { j.walks = append(j.walks, ev) }
func (j *recordingJournal) ActorTransition(ev core.ActorTransition) {
	j.transitions = append(j.transitions, ev)
}
func (j *recordingJournal) FieldBurst(ev core.ChainWalkEvent) { j.bursts = append(j.bursts, ev) }
func (j *recordingJournal) Detonation(ev core.DetonationEvent) {
	j.detonations = append(j.detonations, ev)
}

func (j *recordingJournal) triggersOf(id string) []core.TriggerEvent {
	var out []core.TriggerEvent
	for _, ev := range j.triggers {
		if ev.Enrichment == id {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	t       *testing.T
	clock   *sched.ManualClock
	world   *world.World
	journal *recordingJournal
	mgr     *Manager
}

const (
	player core.EntityID = 1
	sword  core.EntityID = 100
)

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	clock := sched.NewManualClock(time.Unix(5000, 0))
	timers := sched.New(clock)
	w := world.New(timers, cat, nil)
	j := &recordingJournal{}
	mgr := NewDefaultManager(w.Services(nil, rand.New(rand.NewPCG(3, 9))), j)
	t.Cleanup(mgr.Close)

	w.AddCreature(core.Creature{ID: player, IsPlayer: true, Position: core.Vec3{Z: -10}})
	w.AddItem(core.Item{ID: sword, Holder: player, Owner: core.OwnerPlayer, Position: core.Vec3{Z: -9}})
	return &harness{t: t, clock: clock, world: w, journal: j, mgr: mgr}
}

func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.world.UpdateTriggers(h.mgr.Deps().Actors.Mines())
	h.mgr.Tick(h.clock.Now())
}

// advanceBy steps in frames so scheduled work and actors run in order.
func (h *harness) advanceBy(total, frame time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += frame {
		h.advance(frame)
	}
}

func (h *harness) enrich(item core.EntityID, spell core.SpellKind, ids ...string) {
	h.t.Helper()
	require.NoError(h.t, h.mgr.Enrich(item, ids...))
	h.mgr.Imbue(core.Imbue{
		Item:   item,
		Spell:  spell,
		Caster: player,
		Damagers: []core.Damager{
			{ID: 1, Item: item, Type: core.DamagerPierce, MaxDepth: 1},
			{ID: 2, Item: item, Type: core.DamagerSlash, MaxDepth: 0.5},
		},
	})
}

func (h *harness) npc(id core.EntityID, pos core.Vec3, parts ...core.Part) {
	h.world.AddCreature(core.Creature{ID: id, Position: pos}, parts...)
}

func (h *harness) torso(id core.EntityID) core.Vec3 {
	c, ok := h.world.Creature(id)
	require.True(h.t, ok)
	return c.Torso
}

func (h *harness) hit(spell core.SpellKind, phase core.HitPhase, target core.EntityID, velocity core.Vec3, part string) {
	h.t.Helper()
	s := core.CollisionSample{
		SourceItem:     sword,
		Target:         core.CreatureRef(target),
		ContactPoint:   h.torso(target),
		ContactNormal:  core.Up,
		ImpactVelocity: velocity,
	}
	if part != "" {
		p, ok := h.world.Part(target, part)
		require.True(h.t, ok)
		s.Part = p
	}
	h.mgr.Hit(core.ImbueHit{Item: sword, Spell: spell, Caster: player, Phase: phase, Sample: s})
}
