// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/imbuefx/enrichments/internal/geo"
	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/pkg/core"
)

// detailToJSON converts a trigger detail map to datatypes.JSON for DB storage.
func detailToJSON(detail map[string]any) datatypes.JSON {
	if len(detail) == 0 {
		return datatypes.JSON("{}")
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	m := model.Session{
		SessionID:        s.SessionID,
		Scenario:         s.Scenario,
		StartTime:        s.StartTime,
		TickRate:         s.TickRate,
		ExtensionVersion: s.ExtensionVersion,
	}
	m.ID = s.ID
	return m
}

// CoreToTriggerEvent converts a core.TriggerEvent to a GORM model.TriggerEvent.
func CoreToTriggerEvent(e core.TriggerEvent) model.TriggerEvent {
	return model.TriggerEvent{
		ID:         e.ID,
		Time:       e.Time,
		Enrichment: e.Enrichment,
		ItemID:     uint32(e.Item),
		TargetKind: e.Target.Kind.String(),
		TargetID:   uint32(e.Target.ID),
		Position:   geo.Point(e.Position),
		Detail:     detailToJSON(e.Detail),
	}
}

// CoreToChainWalk converts a core.ChainWalkEvent to a GORM model.ChainWalk with its hops.
// Path is left empty for walks that never left the origin.
func CoreToChainWalk(e core.ChainWalkEvent) model.ChainWalk {
	m := model.ChainWalk{
		ID:         e.ID,
		Time:       e.Time,
		Enrichment: e.Enrichment,
		Strategy:   e.Strategy,
		Reason:     e.Reason,
		Origin:     geo.Point(e.Origin),
		HopCount:   len(e.Hops),
		Hops:       make([]model.ChainHop, 0, len(e.Hops)),
	}

	points := make([]core.Vec3, 0, len(e.Hops)+1)
	points = append(points, e.Origin)
	for _, h := range e.Hops {
		m.Hops = append(m.Hops, model.ChainHop{
			HopIndex:   h.Index,
			TargetKind: h.Target.Kind.String(),
			TargetID:   uint32(h.Target.ID),
			From:       geo.Point(h.From),
			To:         geo.Point(h.To),
			Distance:   h.Distance,
		})
		points = append(points, h.To)
	}
	if path, err := geo.Path(points); err == nil {
		m.Path = path
	}
	return m
}

// CoreToDetonation converts a core.DetonationEvent to a GORM model.Detonation with its hits.
func CoreToDetonation(e core.DetonationEvent) model.Detonation {
	m := model.Detonation{
		ID:       e.ID,
		Time:     e.Time,
		ActorID:  e.ActorID,
		Position: geo.Point(e.Position),
		Radius:   e.Radius,
		Hits:     make([]model.DetonationHit, 0, len(e.Hits)),
	}
	for _, h := range e.Hits {
		m.Hits = append(m.Hits, model.DetonationHit{
			TargetKind: h.Target.Kind.String(),
			TargetID:   uint32(h.Target.ID),
			Distance:   h.Distance,
			Damage:     h.Damage,
		})
	}
	return m
}

// CoreToActorTransition converts a core.ActorTransition to a GORM model.ActorTransition.
func CoreToActorTransition(e core.ActorTransition) model.ActorTransition {
	return model.ActorTransition{
		ID:        e.ID,
		Time:      e.Time,
		ActorID:   e.ActorID,
		Kind:      e.Kind,
		FromState: e.From,
		ToState:   e.To,
	}
}
