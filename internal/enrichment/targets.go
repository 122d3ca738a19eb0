package enrichment

import (
	"github.com/imbuefx/enrichments/internal/cooldown"
	"github.com/imbuefx/enrichments/pkg/core"
)

// TargetRules compose the validity checks an enrichment applies to a
// creature before reacting to it.
type TargetRules struct {
	// Wielder is never a valid target.
	Wielder     core.EntityID
	AllowKilled bool
	AllowPlayer bool
	// ExcludeFaction rejects creatures of this faction when set.
	ExcludeFaction string
	// Cooldown rejects suppressed creatures when set.
	Cooldown *cooldown.Registry
}

// IsValidTarget reports whether c passes every rule. found is false when the
// creature could not be resolved.
func (r TargetRules) IsValidTarget(c core.Creature, found bool) bool {
	switch {
	case !found || !c.ID.Valid():
		return false
	case c.Culled:
		return false
	case c.Killed && !r.AllowKilled:
		return false
	case r.Wielder.Valid() && c.ID == r.Wielder:
		return false
	case c.IsPlayer && !r.AllowPlayer:
		return false
	case r.ExcludeFaction != "" && c.Faction == r.ExcludeFaction:
		return false
	case r.Cooldown.IsSuppressed(c.ID):
		return false
	}
	return true
}

// sqrAtLeast reports |v| >= threshold without a square root.
func sqrAtLeast(v core.Vec3, threshold float64) bool {
	return v.LenSq() >= threshold*threshold
}

// sqrAbove reports |v| > threshold without a square root.
func sqrAbove(v core.Vec3, threshold float64) bool {
	return v.LenSq() > threshold*threshold
}
