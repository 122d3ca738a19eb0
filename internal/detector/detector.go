// Package detector raises an event when a weapon's penetration sensors reach
// a configurable share of their maximum depth.
package detector

import (
	"context"
	"log/slog"
	"slices"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Params tunes when a detector fires and re-arms.
type Params struct {
	// DepthRequirementRatio is the share of a sensor's max depth that fires
	// the event. Must be in (0,1].
	DepthRequirementRatio float64
	// EventResetRatio is the share of the trigger depth below which the
	// detector re-arms on its own. Must be in [0,1].
	EventResetRatio float64
	// RequireExplicitReset disables the depth based re-arm; only a full
	// withdrawal of the sensor re-arms the detector.
	RequireExplicitReset bool
}

// DefaultParams returns 0.9 / 0.2 with automatic reset.
func DefaultParams() Params {
	return Params{
		DepthRequirementRatio: 0.9,
		EventResetRatio:       0.2,
	}
}

func (p Params) normalized() Params {
	if p.DepthRequirementRatio <= 0 || p.DepthRequirementRatio > 1 {
		p.DepthRequirementRatio = DefaultParams().DepthRequirementRatio
	}
	p.EventResetRatio = core.Clamp01(p.EventResetRatio)
	return p
}

// MaxDepthEvent is raised once per penetration episode.
type MaxDepthEvent struct {
	Item     core.EntityID
	Damager  core.Damager
	Sample   core.CollisionSample
	Velocity core.Vec3
	Depth    float64
}

// Subscriber receives max depth events from a detector.
type Subscriber interface {
	OnPenetrateMaxDepth(ev MaxDepthEvent)
}

// UnpenetrateSubscriber is implemented by subscribers that also want to hear
// about sensors fully withdrawing from a target.
type UnpenetrateSubscriber interface {
	OnUnpenetrate(d core.Damager, sample core.CollisionSample)
}

// Detector watches the sensors of one weapon item.
type Detector struct {
	item    core.EntityID
	sensors engine.SensorStream
	logger  *slog.Logger

	damagers []core.Damager
	unwatch  map[core.DamagerID]func()
	subs     []Subscriber
	params   Params

	latched   bool
	destroyed bool
	onEmpty   func(*Detector)

	crossings metric.Int64Counter
}

// New creates a detector for item reading samples from sensors.
func New(item core.EntityID, sensors engine.SensorStream, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		item:    item,
		sensors: sensors,
		logger:  logger,
		unwatch: make(map[core.DamagerID]func()),
		params:  DefaultParams(),
	}
	d.crossings, _ = meter().Int64Counter("detector.crossings",
		metric.WithDescription("Penetration max depth events raised"),
	)
	return d
}

func (d *Detector) Item() core.EntityID { return d.item }

// Latched reports whether the detector fired and has not re-armed yet.
func (d *Detector) Latched() bool { return d.latched }

// Destroyed reports whether every owner has deactivated the detector.
func (d *Detector) Destroyed() bool { return d.destroyed }

// Params returns the current tuning.
func (d *Detector) Params() Params { return d.params }

// Sensors returns a copy of the watched damagers.
func (d *Detector) Sensors() []core.Damager { return slices.Clone(d.damagers) }

// Subscribers returns the number of owners.
func (d *Detector) Subscribers() int { return len(d.subs) }

// Activate registers owner, updates the tuning and replaces the sensor list.
// Activating the same owner twice only updates parameters and sensors.
func (d *Detector) Activate(owner Subscriber, sensors []core.Damager, p Params) {
	if d.destroyed || owner == nil {
		return
	}
	if !slices.Contains(d.subs, owner) {
		d.subs = append(d.subs, owner)
	}
	d.params = p.normalized()
	d.setSensors(sensors)
}

// Deactivate removes owner. Once no owner is left every sensor listener is
// unwired and the detector is destroyed.
func (d *Detector) Deactivate(owner Subscriber) {
	i := slices.Index(d.subs, owner)
	if i < 0 {
		return
	}
	d.subs = slices.Delete(d.subs, i, i+1)
	if len(d.subs) > 0 {
		return
	}
	d.destroy()
}

func (d *Detector) destroy() {
	if d.destroyed {
		return
	}
	d.setSensors(nil)
	d.destroyed = true
	d.latched = false
	if d.onEmpty != nil {
		d.onEmpty(d)
	}
}

func (d *Detector) setSensors(sensors []core.Damager) {
	keep := make(map[core.DamagerID]bool, len(sensors))
	for _, s := range sensors {
		keep[s.ID] = true
	}
	for id, cancel := range d.unwatch {
		if !keep[id] {
			cancel()
			delete(d.unwatch, id)
		}
	}
	d.damagers = slices.Clone(sensors)
	if d.sensors == nil {
		return
	}
	for _, s := range d.damagers {
		if _, ok := d.unwatch[s.ID]; ok {
			continue
		}
		damager := s
		d.unwatch[s.ID] = d.sensors.WatchUnpenetrate(s, func(sample core.CollisionSample) {
			d.handleUnpenetrate(damager, sample)
		})
	}
}

// Update runs the per-frame check over every live sample of every sensor.
func (d *Detector) Update() {
	if d.destroyed || len(d.subs) == 0 || len(d.damagers) == 0 || d.sensors == nil {
		return
	}
	p := d.params
	for _, s := range slices.Clone(d.damagers) {
		trigger := s.MaxDepth * p.DepthRequirementRatio
		reset := trigger * p.EventResetRatio
		for _, sample := range d.sensors.Samples(s) {
			if d.destroyed {
				return
			}
			if sample.Damager != s.ID || !sample.Penetrating() {
				continue
			}
			depth := sample.LastDepth
			if !d.latched && depth >= trigger {
				d.latched = true
				d.raise(MaxDepthEvent{
					Item:     d.item,
					Damager:  s,
					Sample:   sample,
					Velocity: d.sensors.ItemVelocity(s.Item),
					Depth:    depth,
				})
			} else if d.latched && !p.RequireExplicitReset && depth < reset {
				d.latched = false
			}
		}
	}
}

func (d *Detector) raise(ev MaxDepthEvent) {
	d.crossings.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("damager", ev.Damager.Type.String())))
	d.logger.Debug("penetration reached max depth",
		"item", d.item, "damager", ev.Damager.ID, "depth", ev.Depth)
	for _, sub := range slices.Clone(d.subs) {
		// owners removed by an earlier callback of this dispatch are skipped
		if d.destroyed || !slices.Contains(d.subs, sub) {
			continue
		}
		sub.OnPenetrateMaxDepth(ev)
	}
}

func (d *Detector) handleUnpenetrate(s core.Damager, sample core.CollisionSample) {
	if d.destroyed {
		return
	}
	d.latched = false
	for _, sub := range slices.Clone(d.subs) {
		if d.destroyed || !slices.Contains(d.subs, sub) {
			continue
		}
		if u, ok := sub.(UnpenetrateSubscriber); ok {
			u.OnUnpenetrate(s, sample)
		}
	}
}

// ValidSensors picks pierce damagers, falling back to slash damagers when
// there are none and allowSlash is set.
func ValidSensors(damagers []core.Damager, allowSlash bool) []core.Damager {
	var pierce, slash []core.Damager
	for _, d := range damagers {
		switch d.Type {
		case core.DamagerPierce:
			pierce = append(pierce, d)
		case core.DamagerSlash:
			slash = append(slash, d)
		}
	}
	if len(pierce) > 0 {
		return pierce
	}
	if allowSlash {
		return slash
	}
	return nil
}
