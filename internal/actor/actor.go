// Package actor holds spawned objects that run a small state machine driven
// by elapsed time and trigger volume events.
package actor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/looplab/fsm"
)

// Actor kinds.
const (
	KindField = "field"
	KindMine  = "mine"
)

// Actor is a live scheduled actor.
type Actor interface {
	ID() uuid.UUID
	Kind() string
	State() string
	// Alive is false once the actor reached its destroyed state.
	Alive() bool
	Tick(now time.Time)
}

// Observer hears about actor state changes, field bursts and detonations.
type Observer interface {
	ActorTransition(ev core.ActorTransition)
	FieldBurst(ev core.ChainWalkEvent)
	Detonation(ev core.DetonationEvent)
}

type nopObserver struct{}

func (nopObserver) ActorTransition(core.ActorTransition) {}
func (nopObserver) FieldBurst(core.ChainWalkEvent)       {}
func (nopObserver) Detonation(core.DetonationEvent)      {}

// base carries what every actor shares: identity, state machine, lifetime.
type base struct {
	id       uuid.UUID
	kind     string
	svc      *engine.Services
	observer Observer
	machine  *fsm.FSM
	group    *sched.Group
	spawned  time.Time
	duration time.Duration
}

func newBase(kind string, svc *engine.Services, observer Observer, initial string, events fsm.Events) *base {
	if observer == nil {
		observer = nopObserver{}
	}
	b := &base{
		id:       uuid.New(),
		kind:     kind,
		svc:      svc,
		observer: observer,
		spawned:  svc.Timers.Now(),
		group:    svc.Timers.NewGroup(),
	}
	b.machine = fsm.NewFSM(initial, events, fsm.Callbacks{
		"enter_state": func(_ context.Context, e *fsm.Event) {
			b.observer.ActorTransition(core.ActorTransition{
				Time:    b.svc.Timers.Now(),
				ActorID: b.id.String(),
				Kind:    b.kind,
				From:    e.Src,
				To:      e.Dst,
			})
		},
	})
	return b
}

func (b *base) ID() uuid.UUID { return b.id }

func (b *base) Kind() string { return b.kind }

func (b *base) State() string { return b.machine.Current() }

// Age returns the time spent since spawn.
func (b *base) Age() time.Duration { return b.svc.Timers.Now().Sub(b.spawned) }

// fire runs a state machine event. Rejected transitions are expected when a
// caller races a terminal state and are only logged.
func (b *base) fire(event string) bool {
	if !b.machine.Can(event) {
		return false
	}
	if err := b.machine.Event(context.Background(), event); err != nil {
		var noTransition fsm.NoTransitionError
		if !errors.As(err, &noTransition) {
			b.svc.Log().Debug("actor transition rejected",
				"actor", b.id, "kind", b.kind, "event", event, "error", err)
		}
		return false
	}
	return true
}
