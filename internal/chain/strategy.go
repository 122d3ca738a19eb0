package chain

import (
	"cmp"
	"math/rand/v2"
	"slices"

	"github.com/imbuefx/enrichments/pkg/core"
)

// Candidate is a valid, unvisited target found around the current position.
type Candidate struct {
	Ref core.EntityRef
	// Point is the target's reference point.
	Point    core.Vec3
	Distance float64
}

// Strategy picks the next hop among the candidates of one query.
type Strategy interface {
	Name() string
	Pick(rng *rand.Rand, cands []Candidate, maxHops int) (Candidate, bool)
}

// Nearest always arcs to the closest candidate. Ties go to the lower id.
type Nearest struct{}

func (Nearest) Name() string { return "nearest" }

func (Nearest) Pick(_ *rand.Rand, cands []Candidate, _ int) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return slices.MinFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Ref.ID, b.Ref.ID)
	}), true
}

// BoundedRandom picks uniformly among the first Window candidates found.
// A zero Window uses the walk's hop budget.
type BoundedRandom struct {
	Window int
}

func (BoundedRandom) Name() string { return "bounded-random" }

func (s BoundedRandom) Pick(rng *rand.Rand, cands []Candidate, maxHops int) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	window := s.Window
	if window <= 0 {
		window = maxHops
	}
	window = min(max(window, 1), len(cands))
	if rng == nil {
		return cands[0], true
	}
	return cands[rng.IntN(window)], true
}
