// Package chain walks from an origin outward through valid targets, one hop
// at a time, with an optional delay between hops.
package chain

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/sched"
	"github.com/imbuefx/enrichments/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Reason tells why a walk ended.
type Reason uint8

const (
	ReasonRunning Reason = iota
	// ReasonExhausted: the hop budget was spent.
	ReasonExhausted
	// ReasonNoCandidate: no unvisited valid target within radius.
	ReasonNoCandidate
	// ReasonCanceled: the walk or its owner was canceled.
	ReasonCanceled
)

func (r Reason) String() string {
	switch r {
	case ReasonExhausted:
		return "exhausted"
	case ReasonNoCandidate:
		return "no-candidate"
	case ReasonCanceled:
		return "canceled"
	default:
		return "running"
	}
}

// Hop is handed to the per-hop callback.
type Hop struct {
	Index int
	// Carrier is the entity the walk hopped from (zero for the origin).
	Carrier  core.EntityRef
	From     core.Vec3
	Target   core.EntityRef
	To       core.Vec3
	Distance float64
}

// HopFunc applies the effect of one hop.
type HopFunc func(h Hop)

// Request parameterizes one walk.
type Request struct {
	Origin  core.Vec3
	Carrier core.EntityRef
	Radius  float64
	// MaxHops is the hop budget; walks over a finite area may pass
	// math.MaxInt and end on ReasonNoCandidate.
	MaxHops int
	// Strategy defaults to Nearest.
	Strategy Strategy
	// Valid filters candidates on top of the visited check.
	Valid func(core.EntityRef) bool
	// HopDelay plus a random share of HopJitter is waited between hops.
	HopDelay  time.Duration
	HopJitter time.Duration
	// Anchored walks keep querying around the origin instead of advancing.
	Anchored bool
	// Visited seeds the visited set (the first victim, the wielder).
	Visited []core.EntityRef
	// Group ties the walk's delayed hops to an owner's lifetime.
	Group  *sched.Group
	OnDone func(Result)
}

// Result summarizes a finished walk.
type Result struct {
	Visited []core.EntityRef
	Hops    int
	Reason  Reason
}

// Engine runs walks against a spatial index.
type Engine struct {
	spatial engine.Spatial
	timers  *sched.Scheduler
	rng     *rand.Rand
	logger  *slog.Logger

	waiting map[*Walk]struct{}
	hops    metric.Int64Counter
	walks   metric.Int64Counter
}

func NewEngine(spatial engine.Spatial, timers *sched.Scheduler, rng *rand.Rand, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		spatial: spatial,
		timers:  timers,
		rng:     rng,
		logger:  logger,
		waiting: make(map[*Walk]struct{}),
	}
	e.hops, _ = meter().Int64Counter("chain.hops",
		metric.WithDescription("Chain hops applied"),
	)
	e.walks, _ = meter().Int64Counter("chain.walks",
		metric.WithDescription("Chain walks finished"),
	)
	return e
}

// InFlight returns the number of walks waiting on a delayed hop.
func (e *Engine) InFlight() int { return len(e.waiting) }

// Walk is one running propagation.
type Walk struct {
	e   *Engine
	req Request
	fn  HopFunc

	visited map[core.EntityRef]struct{}
	order   []core.EntityRef
	pos     core.Vec3
	carrier core.EntityRef
	hops    int

	task    *sched.Task
	waiting bool
	reason  Reason
	unhook  func()
}

// Start begins a walk. Without a delay the whole walk runs before Start
// returns; otherwise later hops run from the scheduler.
func (e *Engine) Start(req Request, fn HopFunc) *Walk {
	if req.Strategy == nil {
		req.Strategy = Nearest{}
	}
	w := &Walk{
		e:       e,
		req:     req,
		fn:      fn,
		visited: make(map[core.EntityRef]struct{}, len(req.Visited)+min(max(req.MaxHops, 0), 64)),
		pos:     req.Origin,
		carrier: req.Carrier,
	}
	for _, v := range req.Visited {
		w.visited[v] = struct{}{}
	}
	if req.Group != nil {
		w.unhook = req.Group.OnCancel(w.Cancel)
		if w.Done() {
			return w
		}
	}
	w.run()
	return w
}

// Done reports whether the walk has ended.
func (w *Walk) Done() bool { return w.reason != ReasonRunning }

// Result returns the walk's outcome so far.
func (w *Walk) Result() Result {
	return Result{Visited: append([]core.EntityRef(nil), w.order...), Hops: w.hops, Reason: w.reason}
}

// Cancel stops the walk. A pending delayed hop never runs.
func (w *Walk) Cancel() {
	if w.Done() {
		return
	}
	if w.task != nil {
		w.task.Cancel()
		w.task = nil
	}
	w.finish(ReasonCanceled)
}

func (w *Walk) run() {
	w.setWaiting(false)
	for !w.Done() {
		if w.req.Group != nil && w.req.Group.Closed() {
			w.finish(ReasonCanceled)
			return
		}
		if w.hops >= w.req.MaxHops {
			w.finish(ReasonExhausted)
			return
		}
		next, ok := w.req.Strategy.Pick(w.e.rng, w.candidates(), w.req.MaxHops)
		if !ok {
			w.finish(ReasonNoCandidate)
			return
		}
		w.visited[next.Ref] = struct{}{}
		w.order = append(w.order, next.Ref)
		h := Hop{
			Index:    w.hops,
			Carrier:  w.carrier,
			From:     w.pos,
			Target:   next.Ref,
			To:       next.Point,
			Distance: next.Distance,
		}
		w.hops++
		w.e.hops.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("strategy", w.req.Strategy.Name())))
		if w.fn != nil {
			w.fn(h)
		}
		if w.Done() {
			return
		}
		if !w.req.Anchored {
			w.pos = next.Point
			w.carrier = next.Ref
		}
		if w.hops >= w.req.MaxHops {
			w.finish(ReasonExhausted)
			return
		}
		if d := w.delay(); d > 0 && w.e.timers != nil {
			w.schedule(d)
			return
		}
	}
}

func (w *Walk) schedule(d time.Duration) {
	var t *sched.Task
	if w.req.Group != nil {
		t = w.req.Group.After(d, w.run)
	} else {
		t = w.e.timers.After(d, w.run)
	}
	if t == nil {
		w.finish(ReasonCanceled)
		return
	}
	w.task = t
	w.setWaiting(true)
}

func (w *Walk) setWaiting(v bool) {
	if w.waiting == v {
		return
	}
	w.waiting = v
	if v {
		w.e.waiting[w] = struct{}{}
	} else {
		delete(w.e.waiting, w)
	}
}

func (w *Walk) delay() time.Duration {
	d := w.req.HopDelay
	if w.req.HopJitter > 0 && w.e.rng != nil {
		d += time.Duration(w.e.rng.Int64N(int64(w.req.HopJitter)))
	}
	return d
}

func (w *Walk) candidates() []Candidate {
	if w.e.spatial == nil || w.req.Radius <= 0 {
		return nil
	}
	refs := w.e.spatial.InRadius(w.pos, w.req.Radius, func(ref core.EntityRef) bool {
		if _, seen := w.visited[ref]; seen {
			return false
		}
		return w.req.Valid == nil || w.req.Valid(ref)
	})
	cands := make([]Candidate, 0, len(refs))
	for _, ref := range refs {
		p, ok := w.e.spatial.ReferencePoint(ref)
		if !ok {
			continue
		}
		cands = append(cands, Candidate{Ref: ref, Point: p, Distance: w.pos.Dist(p)})
	}
	return cands
}

func (w *Walk) finish(r Reason) {
	if w.Done() {
		return
	}
	w.setWaiting(false)
	w.task = nil
	w.reason = r
	if w.unhook != nil {
		w.unhook()
		w.unhook = nil
	}
	w.e.walks.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("reason", r.String())))
	w.e.logger.Debug("chain walk finished",
		"strategy", w.req.Strategy.Name(), "hops", w.hops, "reason", r.String())
	if w.req.OnDone != nil {
		w.req.OnDone(w.Result())
	}
}
