package detector

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

// Registry keeps one detector per weapon item.
type Registry struct {
	sensors   engine.SensorStream
	logger    *slog.Logger
	detectors map[core.EntityID]*Detector
}

func NewRegistry(sensors engine.SensorStream, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sensors:   sensors,
		logger:    logger,
		detectors: make(map[core.EntityID]*Detector),
	}
}

// Activate subscribes owner to the detector of item, creating it on first use.
func (r *Registry) Activate(item core.EntityID, owner Subscriber, sensors []core.Damager, p Params) *Detector {
	if !item.Valid() || owner == nil {
		return nil
	}
	d, ok := r.detectors[item]
	if !ok {
		d = New(item, r.sensors, r.logger)
		d.onEmpty = r.remove
		r.detectors[item] = d
		r.logger.Debug("detector created", "item", item)
	}
	d.Activate(owner, sensors, p)
	return d
}

// Deactivate unsubscribes owner from the detector of item.
func (r *Registry) Deactivate(item core.EntityID, owner Subscriber) {
	if d, ok := r.detectors[item]; ok {
		d.Deactivate(owner)
	}
}

// Get returns the live detector of item.
func (r *Registry) Get(item core.EntityID) (*Detector, bool) {
	d, ok := r.detectors[item]
	return d, ok
}

// Len returns the number of live detectors.
func (r *Registry) Len() int { return len(r.detectors) }

// Update runs every live detector in item order.
func (r *Registry) Update() {
	items := slices.SortedFunc(maps.Keys(r.detectors), cmp.Compare[core.EntityID])
	for _, item := range items {
		if d, ok := r.detectors[item]; ok {
			d.Update()
		}
	}
}

func (r *Registry) remove(d *Detector) {
	if cur, ok := r.detectors[d.item]; ok && cur == d {
		delete(r.detectors, d.item)
		r.logger.Debug("detector destroyed", "item", d.item)
	}
}
