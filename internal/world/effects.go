package world

import (
	"slices"
	"time"

	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
)

// Effect is a spawned cosmetic effect. Effects with a catalog duration finish
// on their own; looping ones finish after their fade once ended or stopped.
type Effect struct {
	ID       string
	Position core.Vec3
	Dir      core.Vec3
	Parent   core.EntityID

	Intensity float64
	Size      float64

	w        *World
	data     catalog.EffectData
	playing  bool
	ending   bool
	finished bool
	task     *sched.Task
	done     []func()
}

// Spawn returns nil for effects the catalog does not know.
func (w *World) Spawn(effectID string, pos, dir core.Vec3, parent core.EntityID) engine.EffectHandle {
	if effectID == "" || w.catalog == nil {
		return nil
	}
	var data catalog.EffectData
	if err := w.catalog.Decode(engine.KindEffect, effectID, &data); err != nil {
		w.logger.Debug("unknown effect", "effect", effectID, "error", err)
		return nil
	}
	e := &Effect{ID: effectID, Position: pos, Dir: dir, Parent: parent, Intensity: 1, Size: 1, w: w, data: data}
	w.effects = append(w.effects, e)
	return e
}

// Effects returns live effects, optionally filtered by id.
func (w *World) Effects(id string) []*Effect {
	var out []*Effect
	for _, e := range w.effects {
		if id == "" || e.ID == id {
			out = append(out, e)
		}
	}
	return out
}

func (e *Effect) Playing() bool  { return e.playing }
func (e *Effect) Finished() bool { return e.finished }

func (e *Effect) Play() {
	if e.finished || e.playing {
		return
	}
	e.playing = true
	if e.data.Duration > 0 {
		e.schedule(e.data.Duration)
	}
}

func (e *Effect) Stop() { e.End() }

func (e *Effect) End() {
	if e.finished || e.ending {
		return
	}
	e.ending = true
	e.playing = false
	e.schedule(e.data.Fade)
}

func (e *Effect) schedule(d time.Duration) {
	if e.task != nil {
		e.task.Cancel()
	}
	if d <= 0 {
		e.finish()
		return
	}
	e.task = e.w.timers.After(d, e.finish)
}

func (e *Effect) finish() {
	if e.finished {
		return
	}
	e.finished = true
	e.playing = false
	e.w.effects = slices.DeleteFunc(e.w.effects, func(x *Effect) bool { return x == e })
	done := e.done
	e.done = nil
	for _, fn := range done {
		fn()
	}
}

func (e *Effect) SetIntensity(v float64) { e.Intensity = v }

func (e *Effect) SetSize(v float64) { e.Size = v }

// OnFinished runs fn once the effect finishes, or right away if it already has.
func (e *Effect) OnFinished(fn func()) {
	if fn == nil {
		return
	}
	if e.finished {
		fn()
		return
	}
	e.done = append(e.done, fn)
}
