// Package spatial indexes live entities for radius queries.
//
// Entities are spheres. The broadphase runs on a chipmunk space over the
// ground plane (X,Z); candidates are then filtered by true 3D distance.
package spatial

import (
	"cmp"
	"slices"

	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/jakecoffman/cp"
)

const slop = 1e-6

// Hit is one entity found by a query.
type Hit struct {
	Ref core.EntityRef
	// Point is the closest point of the entity's sphere to the query center.
	Point core.Vec3
	// Distance from the query center to Point.
	Distance float64
}

type entry struct {
	ref    core.EntityRef
	body   *cp.Body
	shape  *cp.Shape
	pos    core.Vec3
	radius float64
}

// Index is a sphere index backed by a chipmunk space.
type Index struct {
	space   *cp.Space
	entries map[core.EntityRef]*entry
}

func New() *Index {
	return &Index{
		space:   cp.NewSpace(),
		entries: make(map[core.EntityRef]*entry),
	}
}

func ground(v core.Vec3) cp.Vector {
	return cp.Vector{X: v.X, Y: v.Z}
}

// Upsert adds ref or moves it to pos with the given sphere radius.
func (ix *Index) Upsert(ref core.EntityRef, pos core.Vec3, radius float64) {
	if !ref.ID.Valid() {
		return
	}
	radius = max(radius, 0)
	e, ok := ix.entries[ref]
	if ok && e.radius != radius {
		ix.remove(e)
		ok = false
	}
	if !ok {
		body := cp.NewKinematicBody()
		body.SetPosition(ground(pos))
		shape := cp.NewCircle(body, radius, cp.Vector{})
		shape.SetSensor(true)
		shape.UserData = ref
		ix.space.AddBody(body)
		ix.space.AddShape(shape)
		ix.entries[ref] = &entry{ref: ref, body: body, shape: shape, pos: pos, radius: radius}
		return
	}
	// the space only refreshes shape bounds on Step, so a moved shape is
	// pulled out of the tree and inserted again at its new bounds
	ix.space.RemoveShape(e.shape)
	e.pos = pos
	e.body.SetPosition(ground(pos))
	ix.space.AddShape(e.shape)
}

// Remove drops ref from the index.
func (ix *Index) Remove(ref core.EntityRef) {
	if e, ok := ix.entries[ref]; ok {
		ix.remove(e)
	}
}

func (ix *Index) remove(e *entry) {
	ix.space.RemoveShape(e.shape)
	ix.space.RemoveBody(e.body)
	delete(ix.entries, e.ref)
}

// Len returns the number of indexed entities.
func (ix *Index) Len() int { return len(ix.entries) }

// Position returns the sphere center of ref.
func (ix *Index) Position(ref core.EntityRef) (core.Vec3, bool) {
	e, ok := ix.entries[ref]
	if !ok {
		return core.Vec3{}, false
	}
	return e.pos, true
}

// ClosestPoint returns the point of ref's sphere closest to to.
func (ix *Index) ClosestPoint(ref core.EntityRef, to core.Vec3) (core.Vec3, bool) {
	e, ok := ix.entries[ref]
	if !ok {
		return core.Vec3{}, false
	}
	return e.closest(to), true
}

func (e *entry) closest(to core.Vec3) core.Vec3 {
	d := to.Sub(e.pos)
	l := d.Len()
	if l <= e.radius || l == 0 {
		return to
	}
	return e.pos.Add(d.Scale(e.radius / l))
}

// Query returns every entity whose sphere lies within radius of center,
// nearest first. A nil pred accepts everything.
func (ix *Index) Query(center core.Vec3, radius float64, pred func(core.EntityRef) bool) []Hit {
	if radius < 0 {
		return nil
	}
	var hits []Hit
	// slop keeps entities sitting exactly on the radius; the box is only a
	// broadphase, the sphere distance below decides
	bb := cp.NewBBForCircle(ground(center), radius+slop)
	ix.space.BBQuery(bb, cp.SHAPE_FILTER_ALL,
		func(shape *cp.Shape, _ interface{}) {
			ref, ok := shape.UserData.(core.EntityRef)
			if !ok {
				return
			}
			e, ok := ix.entries[ref]
			if !ok {
				return
			}
			p := e.closest(center)
			dist := center.Dist(p)
			if dist > radius+slop {
				return
			}
			if pred != nil && !pred(ref) {
				return
			}
			hits = append(hits, Hit{Ref: ref, Point: p, Distance: dist})
		}, nil)
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Ref.Kind, b.Ref.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.Ref.ID, b.Ref.ID)
	})
	return hits
}
