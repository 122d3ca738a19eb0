package convert

import (
	"encoding/json"

	"github.com/imbuefx/enrichments/internal/geo"
	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/pkg/core"
)

func kindFromString(s string) core.EntityKind {
	switch s {
	case core.KindCreature.String():
		return core.KindCreature
	case core.KindItem.String():
		return core.KindItem
	default:
		return core.KindUnknown
	}
}

// TriggerEventToCore converts a stored trigger back to a core.TriggerEvent.
func TriggerEventToCore(m model.TriggerEvent) core.TriggerEvent {
	e := core.TriggerEvent{
		ID:         m.ID,
		Time:       m.Time,
		Enrichment: m.Enrichment,
		Item:       core.EntityID(m.ItemID),
		Target:     core.EntityRef{ID: core.EntityID(m.TargetID), Kind: kindFromString(m.TargetKind)},
	}
	e.Position, _ = geo.FromPoint(m.Position)
	if len(m.Detail) > 0 {
		_ = json.Unmarshal(m.Detail, &e.Detail)
	}
	return e
}

// ChainWalkToCore converts a stored walk and its preloaded hops back to a core.ChainWalkEvent.
func ChainWalkToCore(m model.ChainWalk) core.ChainWalkEvent {
	e := core.ChainWalkEvent{
		ID:         m.ID,
		Time:       m.Time,
		Enrichment: m.Enrichment,
		Strategy:   m.Strategy,
		Reason:     m.Reason,
	}
	e.Origin, _ = geo.FromPoint(m.Origin)
	for _, h := range m.Hops {
		hop := core.ChainHop{
			Index:    h.HopIndex,
			Target:   core.EntityRef{ID: core.EntityID(h.TargetID), Kind: kindFromString(h.TargetKind)},
			Distance: h.Distance,
		}
		hop.From, _ = geo.FromPoint(h.From)
		hop.To, _ = geo.FromPoint(h.To)
		e.Hops = append(e.Hops, hop)
	}
	return e
}
