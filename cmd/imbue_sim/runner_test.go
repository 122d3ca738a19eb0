package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/config"
	"github.com/imbuefx/enrichments/internal/monitor"
	"github.com/imbuefx/enrichments/pkg/core"
)

type recordingJournal struct {
	triggers    []core.TriggerEvent
	walks       []core.ChainWalkEvent
	bursts      []core.ChainWalkEvent
	detonations []core.DetonationEvent
	transitions []core.ActorTransition
}

func (j *recordingJournal) Trigger(ev core.TriggerEvent)     { j.triggers = append(j.triggers, ev) }
func (j *recordingJournal) ChainWalk(ev core.ChainWalkEvent) { j.walks = append(j.walks, ev) }
func (j *recordingJournal) FieldBurst(ev core.ChainWalkEvent) {
	j.bursts = append(j.bursts, ev)
}
func (j *recordingJournal) Detonation(ev core.DetonationEvent) {
	j.detonations = append(j.detonations, ev)
}
func (j *recordingJournal) ActorTransition(ev core.ActorTransition) {
	j.transitions = append(j.transitions, ev)
}

func newDemoRunner(t *testing.T) (*runner, *recordingJournal) {
	t.Helper()
	sc, err := LoadScenario("")
	require.NoError(t, err)
	cat, err := catalog.Load("")
	require.NoError(t, err)

	j := &recordingJournal{}
	r, err := newRunner(sc, cat, j, runnerOptions{Seed: 7, Start: time.Unix(1000, 0)}, nil)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r, j
}

func TestRunner_DemoEncounter(t *testing.T) {
	r, j := newDemoRunner(t)

	for i := 0; i < 600 && !r.Done(); i++ {
		r.Step(16 * time.Millisecond)
	}
	require.True(t, r.Done())
	for i := 0; i < 60; i++ {
		r.Step(16 * time.Millisecond)
	}

	assert.Len(t, j.bursts, 1, "pylon emits once before the blade is pulled")
	assert.NotEmpty(t, j.walks)
	require.Len(t, j.detonations, 1)
	assert.NotEmpty(t, j.transitions)

	victim, ok := r.world.Creature(2)
	require.True(t, ok)
	assert.True(t, victim.Killed)
}

// kindlingScenario lands two hard fire hits on the same creature, at game
// times first and second.
func kindlingScenario(t *testing.T, first, second string) *Scenario {
	t.Helper()
	sc, err := ParseScenario([]byte(`
creatures:
  - { id: 1, position: "0,0,-10", player: true }
  - { id: 2, position: "0,0,0", parts: [Arm] }
items:
  - { id: 100, position: "0,0,-9", holder: 1, enrich: [Flashpoint] }
events:
  - { at: 100ms, kind: imbue, item: 100, spell: fire, caster: 1 }
  - { at: ` + first + `, kind: hit, item: 100, target: 2, part: Arm, phase: end, velocity: "16,0,0" }
  - { at: ` + second + `, kind: hit, item: 100, target: 2, part: Arm, phase: end, velocity: "16,0,0" }
`))
	require.NoError(t, err)
	return sc
}

func runKindling(t *testing.T, sc *Scenario, scale float64) []core.TriggerEvent {
	t.Helper()
	cat, err := catalog.Load("")
	require.NoError(t, err)
	j := &recordingJournal{}
	r, err := newRunner(sc, cat, j, runnerOptions{Seed: 3, Start: time.Unix(1000, 0), TimeScale: scale}, nil)
	require.NoError(t, err)
	defer r.Close()

	for !r.Done() {
		r.Step(50 * time.Millisecond)
	}
	return j.triggers
}

func TestRunner_CreatureCooldownEndsAtExpiry(t *testing.T) {
	tests := []struct {
		name   string
		second string
		want   int
	}{
		{"inside window", "2450ms", 1},
		{"exactly at expiry", "2500ms", 2},
		{"after expiry", "3s", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// the second hit is applied in the same step that reaches the
			// expiry, before the frame pumps any timers
			triggers := runKindling(t, kindlingScenario(t, "500ms", tt.second), 1)
			assert.Len(t, triggers, tt.want)
		})
	}
}

func TestRunner_CreatureCooldownIgnoresTimeScale(t *testing.T) {
	// at double speed 3.5s of game time is 1.75s of real time
	triggers := runKindling(t, kindlingScenario(t, "500ms", "4s"), 2)
	assert.Len(t, triggers, 1)

	// 4s of real time clears the window
	triggers = runKindling(t, kindlingScenario(t, "500ms", "8500ms"), 2)
	assert.Len(t, triggers, 2)
}

func TestRunner_RealtimeCooldownsUseWallClock(t *testing.T) {
	sc, err := LoadScenario("")
	require.NoError(t, err)
	cat, err := catalog.Load("")
	require.NoError(t, err)

	r, err := newRunner(sc, cat, nil, runnerOptions{Start: time.Unix(1000, 0), Realtime: true}, nil)
	require.NoError(t, err)
	defer r.Close()

	assert.Nil(t, r.real)
	realTimers := r.mgr.Deps().Services.RealTimers
	require.NotNil(t, realTimers)
	assert.NotSame(t, r.mgr.Deps().Services.Timers, realTimers)
	assert.WithinDuration(t, time.Now(), realTimers.Now(), time.Minute)
}

func TestRunner_UnknownEnrichment(t *testing.T) {
	sc, err := ParseScenario([]byte(`items: [{ id: 9, enrich: [Nope] }]`))
	require.NoError(t, err)
	cat, err := catalog.Load("")
	require.NoError(t, err)

	_, err = newRunner(sc, cat, nil, runnerOptions{Seed: 1, Start: time.Unix(0, 0)}, nil)
	assert.ErrorContains(t, err, "Nope")
}

func TestSimulate_StopsAtDuration(t *testing.T) {
	r, _ := newDemoRunner(t)
	mon := monitor.NewService(monitor.Dependencies{})

	err := simulate(context.Background(), r, config.SimConfig{TickRate: 50, Duration: time.Second}, nil, mon)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), r.ticks)

	_, ok := mon.Snapshot(time.Now())
	assert.True(t, ok)
}

func TestSimulate_Cancelled(t *testing.T) {
	r, _ := newDemoRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := simulate(ctx, r, config.SimConfig{TickRate: 60, Duration: time.Minute}, nil, monitor.NewService(monitor.Dependencies{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, r.ticks)
}

func TestSimulate_RefreshesOnReload(t *testing.T) {
	r, _ := newDemoRunner(t)
	reloads := make(chan struct{}, 1)
	reloads <- struct{}{}

	require.NoError(t, simulate(context.Background(), r, config.SimConfig{TickRate: 10, Duration: 200 * time.Millisecond}, reloads, monitor.NewService(monitor.Dependencies{})))
	assert.Empty(t, reloads)
}

func TestEnrichmentsIn(t *testing.T) {
	sc := &Scenario{Items: []ScenarioItem{
		{Enrich: []string{"Flashpoint", "BoltPylons"}},
		{Enrich: []string{"BoltPylons", "Hellbloom"}},
	}}
	assert.Equal(t, []string{"Flashpoint", "BoltPylons", "Hellbloom"}, enrichmentsIn(sc))
}
