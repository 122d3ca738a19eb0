// Package cooldown suppresses repeat triggers on the same target for a window.
package cooldown

import (
	"time"

	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
)

// Registry tracks suppressed targets for one reactive effect instance.
// Each target has at most one entry and one pending expiry.
type Registry struct {
	timers  *sched.Scheduler
	entries map[core.EntityID]*entry
}

type entry struct {
	expires time.Time
	task    *sched.Task
}

// New creates a registry whose expiries run on timers. Timers should be driven
// by a real-time clock so cooldowns ignore simulation pause.
func New(timers *sched.Scheduler) *Registry {
	return &Registry{
		timers:  timers,
		entries: make(map[core.EntityID]*entry),
	}
}

// IsSuppressed reports whether id is inside its cooldown window. The window
// is half open: at its expiry the target is free again, whether or not the
// expiry task has run yet.
func (r *Registry) IsSuppressed(id core.EntityID) bool {
	return r.live(id) != nil
}

// live returns the entry for id while its window is open. An elapsed entry is
// dropped on the spot; the scheduled task only collects entries nobody asks
// about.
func (r *Registry) live(id core.EntityID) *entry {
	if r == nil {
		return nil
	}
	e, ok := r.entries[id]
	if !ok {
		return nil
	}
	if !r.timers.Now().Before(e.expires) {
		e.task.Cancel()
		delete(r.entries, id)
		return nil
	}
	return e
}

// Suppress adds id, or resets its expiry to d from now if already present.
func (r *Registry) Suppress(id core.EntityID, d time.Duration) {
	if r == nil || !id.Valid() {
		return
	}
	if e, ok := r.entries[id]; ok {
		e.task.Cancel()
	}
	e := &entry{expires: r.timers.Now().Add(d)}
	e.task = r.timers.After(d, func() {
		// a refresh replaces the entry; only the current timer may remove it
		if cur, ok := r.entries[id]; ok && cur == e {
			delete(r.entries, id)
		}
	})
	r.entries[id] = e
}

// Remaining returns how long id stays suppressed, zero if it is not.
func (r *Registry) Remaining(id core.EntityID) time.Duration {
	e := r.live(id)
	if e == nil {
		return 0
	}
	return e.expires.Sub(r.timers.Now())
}

// Release drops id immediately and cancels its expiry.
func (r *Registry) Release(id core.EntityID) {
	if r == nil {
		return
	}
	if e, ok := r.entries[id]; ok {
		e.task.Cancel()
		delete(r.entries, id)
	}
}

// Clear cancels every pending expiry and empties the registry.
func (r *Registry) Clear() {
	if r == nil {
		return
	}
	for id, e := range r.entries {
		e.task.Cancel()
		delete(r.entries, id)
	}
}

// Len returns the number of suppressed targets.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	for id := range r.entries {
		r.live(id)
	}
	return len(r.entries)
}
