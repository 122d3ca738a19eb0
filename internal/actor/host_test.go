package actor

import (
	"cmp"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
)

// testHost is a minimal in-memory host recording every outcome.
type testHost struct {
	creatures map[core.EntityID]core.Creature
	items     map[core.EntityID]core.Item

	damage      map[core.EntityID]float64
	pushes      map[core.EntityID]int
	forces      map[core.EntityID]int
	shattered   []core.EntityID
	killed      []core.EntityID
	dismembered []core.Part
	impulses    map[core.EntityID]core.Vec3

	speedMods   map[core.EntityID]map[string]float64
	physicMods  map[core.EntityID]map[string]float64
	speedRemove int
	statuses    map[core.EntityID]map[string]time.Duration
	statusDrops int
}

func newTestHost() *testHost {
	return &testHost{
		creatures:  make(map[core.EntityID]core.Creature),
		items:      make(map[core.EntityID]core.Item),
		damage:     make(map[core.EntityID]float64),
		pushes:     make(map[core.EntityID]int),
		forces:     make(map[core.EntityID]int),
		impulses:   make(map[core.EntityID]core.Vec3),
		speedMods:  make(map[core.EntityID]map[string]float64),
		physicMods: make(map[core.EntityID]map[string]float64),
		statuses:   make(map[core.EntityID]map[string]time.Duration),
	}
}

func (h *testHost) creature(id core.EntityID, pos core.Vec3) {
	h.creatures[id] = core.Creature{ID: id, Position: pos, Torso: pos}
}

func (h *testHost) Creature(id core.EntityID) (core.Creature, bool) {
	c, ok := h.creatures[id]
	return c, ok
}

func (h *testHost) Item(id core.EntityID) (core.Item, bool) {
	it, ok := h.items[id]
	return it, ok
}

func (h *testHost) point(ref core.EntityRef) (core.Vec3, bool) {
	if ref.IsCreature() {
		c, ok := h.creatures[ref.ID]
		return c.Torso, ok
	}
	it, ok := h.items[ref.ID]
	return it.Position, ok
}

func (h *testHost) refs() []core.EntityRef {
	var out []core.EntityRef
	for id := range h.creatures {
		out = append(out, core.CreatureRef(id))
	}
	for id := range h.items {
		out = append(out, core.ItemRef(id))
	}
	slices.SortFunc(out, func(a, b core.EntityRef) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (h *testHost) InRadius(center core.Vec3, radius float64, pred func(core.EntityRef) bool) []core.EntityRef {
	var out []core.EntityRef
	for _, ref := range h.refs() {
		p, _ := h.point(ref)
		if center.Dist(p) <= radius && (pred == nil || pred(ref)) {
			out = append(out, ref)
		}
	}
	return out
}

func (h *testHost) InRadiusClosestPoint(center core.Vec3, radius float64) []engine.ClosestHit {
	var out []engine.ClosestHit
	for _, ref := range h.InRadius(center, radius, nil) {
		p, _ := h.point(ref)
		out = append(out, engine.ClosestHit{Entity: ref, Point: p})
	}
	return out
}

func (h *testHost) ReferencePoint(ref core.EntityRef) (core.Vec3, bool) { return h.point(ref) }

func (h *testHost) ClosestPoint(ref core.EntityRef, _ core.Vec3) (core.Vec3, bool) {
	return h.point(ref)
}

func (h *testHost) Damage(id core.EntityID, amount float64) { h.damage[id] += amount }

func (h *testHost) Push(id core.EntityID, _ core.Vec3, _ int) { h.pushes[id]++ }

func (h *testHost) Kill(id core.EntityID) { h.killed = append(h.killed, id) }

func (h *testHost) Dismember(part core.Part) bool {
	h.dismembered = append(h.dismembered, part)
	return true
}

func (h *testHost) Impulse(id core.EntityID, v core.Vec3) { h.impulses[id] = h.impulses[id].Add(v) }

func (h *testHost) ExplosionForce(id core.EntityID, _ float64, _ core.Vec3, _, _ float64) {
	h.forces[id]++
}

func (h *testHost) Shatter(id core.EntityID, _ float64, _ core.Vec3, _ float64) {
	h.shattered = append(h.shattered, id)
}

func (h *testHost) SetSpeedModifier(id core.EntityID, owner string, mult float64) {
	if h.speedMods[id] == nil {
		h.speedMods[id] = make(map[string]float64)
	}
	h.speedMods[id][owner] = mult
}

func (h *testHost) RemoveSpeedModifier(id core.EntityID, owner string) {
	h.speedRemove++
	delete(h.speedMods[id], owner)
}

func (h *testHost) SetPhysicModifier(id core.EntityID, owner string, _, drag float64) {
	if h.physicMods[id] == nil {
		h.physicMods[id] = make(map[string]float64)
	}
	h.physicMods[id][owner] = drag
}

func (h *testHost) RemovePhysicModifier(id core.EntityID, owner string) {
	delete(h.physicMods[id], owner)
}

func (h *testHost) Apply(id core.EntityID, statusID, _ string, d time.Duration) {
	if h.statuses[id] == nil {
		h.statuses[id] = make(map[string]time.Duration)
	}
	h.statuses[id][statusID] = d
}

func (h *testHost) Remove(id core.EntityID, statusID, _ string) {
	h.statusDrops++
	delete(h.statuses[id], statusID)
}

func (h *testHost) Has(id core.EntityID, statusID string) bool {
	_, ok := h.statuses[id][statusID]
	return ok
}

func (h *testHost) Burning(core.EntityID) (float64, bool, bool) { return 0, false, false }

func (h *testHost) SetHeat(core.EntityID, float64) {}

type recordingObserver struct {
	transitions []core.ActorTransition
	bursts      []core.ChainWalkEvent
	detonations []core.DetonationEvent
}

func (o *recordingObserver) ActorTransition(ev core.ActorTransition) {
	o.transitions = append(o.transitions, ev)
}

func (o *recordingObserver) FieldBurst(ev core.ChainWalkEvent) { o.bursts = append(o.bursts, ev) }

func (o *recordingObserver) Detonation(ev core.DetonationEvent) {
	o.detonations = append(o.detonations, ev)
}

type fixture struct {
	host     *testHost
	clock    *sched.ManualClock
	svc      *engine.Services
	observer *recordingObserver
	reg      *Registry
}

func newFixture(t *testing.T, effects engine.Effects) *fixture {
	t.Helper()
	h := newTestHost()
	clock := sched.NewManualClock(time.Unix(1000, 0))
	timers := sched.New(clock)
	svc := &engine.Services{
		Entities:   h,
		Spatial:    h,
		Effects:    effects,
		Combat:     h,
		Physics:    h,
		Status:     h,
		Timers:     timers,
		RealTimers: timers,
		Rand:       rand.New(rand.NewPCG(7, 7)),
	}
	obs := &recordingObserver{}
	chains := chain.NewEngine(h, timers, svc.Rand, nil)
	return &fixture{
		host:     h,
		clock:    clock,
		svc:      svc,
		observer: obs,
		reg:      NewRegistry(svc, chains, obs),
	}
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.svc.Timers.Run()
	f.reg.Tick(f.clock.Now())
}
