package main

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/enrichment"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/internal/world"
	"github.com/imbuefx/enrichments/pkg/core"
)

// runner replays a scenario against the enrichment manager. Everything it
// owns belongs to the simulation thread.
type runner struct {
	log   *slog.Logger
	clock *sched.ManualClock
	// real drives cooldown timers; nil when they run on the wall clock.
	real      *sched.ManualClock
	timeScale float64
	start     time.Time
	world     *world.World
	mgr       *enrichment.Manager
	catalog   *catalog.Catalog
	scenario  *Scenario
	next      int
	damagers  map[core.EntityID][]core.Damager
	ticks     uint64
}

// runnerOptions selects the clocks a runner is built on.
type runnerOptions struct {
	Seed  uint64
	Start time.Time
	// Realtime puts cooldowns on the wall clock. Otherwise they run on a
	// manual clock advanced by the unscaled frame time.
	Realtime bool
	// TimeScale stretches game time against real time; 0 means 1.
	TimeScale float64
}

func newRunner(sc *Scenario, cat *catalog.Catalog, journal enrichment.Journal, opts runnerOptions, log *slog.Logger) (*runner, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	clock := sched.NewManualClock(opts.Start)
	timers := sched.New(clock)

	var real *sched.ManualClock
	realTimers := sched.New(sched.WallClock{})
	if !opts.Realtime {
		real = sched.NewManualClock(opts.Start)
		realTimers = sched.New(real)
	}

	w := world.New(timers, cat, log)
	seed := opts.Seed
	mgr := enrichment.NewDefaultManager(w.Services(realTimers, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))), journal)

	r := &runner{
		log:       log.With("component", "runner"),
		clock:     clock,
		real:      real,
		timeScale: opts.TimeScale,
		start:     opts.Start,
		world:     w,
		mgr:       mgr,
		catalog:   cat,
		scenario:  sc,
		damagers:  make(map[core.EntityID][]core.Damager),
	}

	for _, c := range sc.Creatures {
		pos, _ := vec(c.Position)
		parts := make([]core.Part, 0, len(c.Parts))
		for _, name := range c.Parts {
			parts = append(parts, core.Part{Name: name, SliceAllowed: true})
		}
		w.AddCreature(core.Creature{ID: c.ID, Position: pos, IsPlayer: c.Player, Faction: c.Faction}, parts...)
	}
	for _, it := range sc.Items {
		pos, _ := vec(it.Position)
		owner := core.OwnerNone
		if it.Holder.Valid() {
			owner = core.OwnerNPC
			if c, ok := w.Creature(it.Holder); ok && c.IsPlayer {
				owner = core.OwnerPlayer
			}
		}
		w.AddItem(core.Item{ID: it.ID, Position: pos, Holder: it.Holder, Owner: owner, Fragile: it.Fragile})
		for _, d := range it.Damagers {
			r.damagers[it.ID] = append(r.damagers[it.ID], core.Damager{
				ID: d.ID, Item: it.ID, Type: damagerType(d.Type), MaxDepth: d.MaxDepth,
			})
		}
		if len(it.Enrich) > 0 {
			if err := mgr.Enrich(it.ID, it.Enrich...); err != nil {
				mgr.Close()
				return nil, err
			}
		}
	}
	return r, nil
}

// Done reports whether every scripted event has been applied.
func (r *runner) Done() bool {
	return r.next >= len(r.scenario.Events)
}

// Step advances the simulation by one frame of dt real time. Game time, and
// with it the scenario script, moves by dt scaled by the time scale.
func (r *runner) Step(dt time.Duration) time.Time {
	gameDt := time.Duration(float64(dt) * r.timeScale)
	if r.real != nil {
		r.real.Advance(dt)
	}
	now := r.clock.Advance(gameDt)
	elapsed := now.Sub(r.start)
	for r.next < len(r.scenario.Events) && r.scenario.Events[r.next].At <= elapsed {
		r.apply(r.scenario.Events[r.next])
		r.next++
	}
	r.world.Step(gameDt)
	r.world.UpdateTriggers(r.mgr.Deps().Actors.Mines())
	r.mgr.Tick(now)
	r.ticks++
	return now
}

// Refresh re-reads tuning data after a catalog reload.
func (r *runner) Refresh() {
	r.mgr.Refresh(r.catalog)
	r.log.Info("Catalog refreshed", "version", r.catalog.Version())
}

func (r *runner) Stats() enrichment.Stats { return r.mgr.Stats() }

func (r *runner) Close() { r.mgr.Close() }

func (r *runner) apply(ev ScenarioEvent) {
	pos, _ := vec(ev.Position)
	vel, _ := vec(ev.Velocity)
	r.log.Debug("Scenario event", "kind", ev.Kind, "at", ev.At, "item", ev.Item)

	switch ev.Kind {
	case EventImbue:
		r.mgr.Imbue(core.Imbue{
			Item:     ev.Item,
			Spell:    spell(ev.Spell),
			Caster:   r.caster(ev),
			Damagers: r.damagers[ev.Item],
		})
	case EventUnimbue:
		r.mgr.Unimbue(core.Imbue{Item: ev.Item})
	case EventEnrich:
		if err := r.mgr.Enrich(ev.Item, ev.Enrich...); err != nil {
			r.log.Warn("Enrich failed", "item", ev.Item, "error", err)
		}
	case EventStrip:
		r.mgr.Strip(ev.Item, ev.Enrich...)
	case EventHit:
		imbue, _ := r.mgr.ImbueOf(ev.Item)
		sp := imbue.Spell
		if ev.Spell != "" {
			sp = spell(ev.Spell)
		}
		phase := core.PhaseStart
		if ev.Phase == "end" {
			phase = core.PhaseEnd
		}
		r.mgr.Hit(core.ImbueHit{
			Item:   ev.Item,
			Spell:  sp,
			Caster: r.caster(ev),
			Fired:  ev.Fired,
			Phase:  phase,
			Sample: r.sample(ev, vel),
		})
	case EventPenetrate:
		s := r.sample(ev, vel)
		s.Damager = ev.Damager
		s.Penetration = ev.Depth
		s.LastDepth = ev.Depth
		r.world.Penetrate(s)
	case EventUnpenetrate:
		r.world.Unpenetrate(ev.Item, ev.Damager, core.CreatureRef(ev.Target))
	case EventParry:
		r.mgr.Parry(core.Parry{
			ParriedCreature:  ev.Creature,
			ParriedItem:      ev.Item,
			ParryingCreature: ev.Target,
			ParryingItem:     ev.ParryingItem,
			Sample:           r.sample(ev, vel),
		})
	case EventGround:
		normal, _ := vec(ev.Normal)
		if normal == (core.Vec3{}) {
			normal = core.Up
		}
		r.mgr.GroundContact(core.GroundContact{
			Item:             ev.Item,
			Point:            pos,
			Normal:           normal,
			RelativeVelocity: vel,
			Time:             r.clock.Now(),
		})
	case EventMove:
		if ev.Item.Valid() {
			r.world.MoveItem(ev.Item, pos)
		} else {
			r.world.MoveCreature(ev.Creature, pos)
		}
	case EventThrow:
		r.world.Hold(ev.Item, 0)
		r.world.SetItemVelocity(ev.Item, vel)
	}
}

func (r *runner) caster(ev ScenarioEvent) core.EntityID {
	if ev.Caster.Valid() {
		return ev.Caster
	}
	if it, ok := r.world.Item(ev.Item); ok {
		return it.Holder
	}
	return 0
}

// sample builds a collision sample against the target's torso unless the
// event names a position.
func (r *runner) sample(ev ScenarioEvent, vel core.Vec3) core.CollisionSample {
	s := core.CollisionSample{
		SourceItem:     ev.Item,
		Target:         core.CreatureRef(ev.Target),
		ContactNormal:  core.Up,
		ImpactVelocity: vel,
	}
	if c, ok := r.world.Creature(ev.Target); ok {
		s.ContactPoint = c.Torso
	}
	if ev.Position != "" {
		s.ContactPoint, _ = vec(ev.Position)
	}
	if ev.Part != "" {
		if p, ok := r.world.Part(ev.Target, ev.Part); ok {
			s.Part = p
		}
	}
	return s
}
