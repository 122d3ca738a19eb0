package influx

import (
	"fmt"
	"sort"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/pkg/core"
)

// Measurement names in the journal bucket.
const (
	MeasurementTrigger    = "trigger"
	MeasurementChainWalk  = "chain_walk"
	MeasurementDetonation = "detonation"
	MeasurementTransition = "actor_transition"
	MeasurementStats      = "reactor_stats"
)

func addPosition(p *influxdb2_write.Point, prefix string, v core.Vec3) {
	p.AddField(prefix+"x", v.X)
	p.AddField(prefix+"y", v.Y)
	p.AddField(prefix+"z", v.Z)
}

// TriggerPoint builds the point for a trigger. Numeric and string detail
// values become fields prefixed with "detail_"; anything else is formatted.
func TriggerPoint(session string, e core.TriggerEvent) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementTrigger).
		AddTag("session", session).
		AddTag("enrichment", e.Enrichment).
		AddTag("target_kind", e.Target.Kind.String()).
		AddField("item", uint64(e.Item)).
		AddField("target", uint64(e.Target.ID)).
		SetTime(e.Time)
	addPosition(p, "", e.Position)

	keys := make([]string, 0, len(e.Detail))
	for k := range e.Detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := e.Detail[k].(type) {
		case float64, float32, int, int64, uint64, bool, string:
			p.AddField("detail_"+k, v)
		default:
			p.AddField("detail_"+k, fmt.Sprint(v))
		}
	}
	return p
}

// ChainWalkPoint builds the point summarising a walk.
func ChainWalkPoint(session string, e core.ChainWalkEvent) *influxdb2_write.Point {
	var length float64
	for _, h := range e.Hops {
		length += h.Distance
	}
	p := influxdb2_write.NewPointWithMeasurement(MeasurementChainWalk).
		AddTag("session", session).
		AddTag("enrichment", e.Enrichment).
		AddTag("strategy", e.Strategy).
		AddTag("reason", e.Reason).
		AddField("hops", len(e.Hops)).
		AddField("length", length).
		SetTime(e.Time)
	addPosition(p, "origin_", e.Origin)
	return p
}

// DetonationPoint builds the point for a mine detonation.
func DetonationPoint(session string, e core.DetonationEvent) *influxdb2_write.Point {
	var damage float64
	for _, h := range e.Hits {
		damage += h.Damage
	}
	p := influxdb2_write.NewPointWithMeasurement(MeasurementDetonation).
		AddTag("session", session).
		AddTag("actor", e.ActorID).
		AddField("radius", e.Radius).
		AddField("hits", len(e.Hits)).
		AddField("damage", damage).
		SetTime(e.Time)
	addPosition(p, "", e.Position)
	return p
}

// TransitionPoint builds the point for an actor state change.
func TransitionPoint(session string, e core.ActorTransition) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementTransition).
		AddTag("session", session).
		AddTag("actor", e.ActorID).
		AddTag("kind", e.Kind).
		AddField("from", e.From).
		AddField("to", e.To).
		SetTime(e.Time)
}

// PerformancePoint builds a reactor stats sample for the performance bucket.
func PerformancePoint(session string, perf model.SimPerformance) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementStats).
		AddTag("session", session).
		AddField("items", perf.Items).
		AddField("actors", perf.Actors).
		AddField("mines", perf.Mines).
		AddField("fields", perf.Fields).
		AddField("detectors", perf.Detectors).
		AddField("walks", perf.Walks).
		AddField("queue_length", perf.QueueLength).
		AddField("last_write_ms", perf.LastWriteMs).
		SetTime(perf.Time)
}
