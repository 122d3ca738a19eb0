package enrichment

import (
	"errors"
	"fmt"
	"time"

	"github.com/imbuefx/enrichments/internal/actor"
	"github.com/imbuefx/enrichments/internal/chain"
	"github.com/imbuefx/enrichments/internal/cooldown"
	"github.com/imbuefx/enrichments/internal/detector"
	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/pkg/core"
)

var (
	ErrDuplicate   = errors.New("enrichment already registered")
	ErrUnknown     = errors.New("unknown enrichment")
	ErrInvalidItem = errors.New("invalid item")
)

// Constructor builds an enrichment around the shared dependencies.
type Constructor func(deps *Deps) Enrichment

// Builtin lists every enrichment shipped with the module, in routing order.
var Builtin = []Constructor{
	func(d *Deps) Enrichment { return NewFlashpoint(d) },
	func(d *Deps) Enrichment { return NewBoltPylons(d) },
	func(d *Deps) Enrichment { return NewElectroconductive(d) },
	func(d *Deps) Enrichment { return NewElectrostaticPulse(d) },
	func(d *Deps) Enrichment { return NewMassDriver(d) },
	func(d *Deps) Enrichment { return NewSunderingForce(d) },
	func(d *Deps) Enrichment { return NewBurdeningGuard(d) },
	func(d *Deps) Enrichment { return NewHellbloom(d) },
	func(d *Deps) Enrichment { return NewCindertrace(d) },
}

type itemState struct {
	imbue  core.Imbue
	imbued bool
	ids    map[string]struct{}
}

// Manager owns the enrichment instances and routes simulation events to the
// enrichments attached to each item. It must only be used from the
// simulation thread.
type Manager struct {
	deps  *Deps
	order []Enrichment
	byID  map[string]Enrichment
	items map[core.EntityID]*itemState
}

// NewManager wires the shared detector, chain and actor registries around
// svc. No enrichment is registered; see Register and Builtin.
func NewManager(svc *engine.Services, journal Journal) *Manager {
	if journal == nil {
		journal = NopJournal{}
	}
	logger := svc.Log()
	chains := chain.NewEngine(svc.Spatial, svc.Timers, svc.Rand, logger)
	m := &Manager{
		byID:  make(map[string]Enrichment),
		items: make(map[core.EntityID]*itemState),
	}
	m.deps = &Deps{
		Services:  svc,
		Detectors: detector.NewRegistry(svc.Sensors, logger),
		Chains:    chains,
		Actors:    actor.NewRegistry(svc, chains, journal),
		Journal:   journal,
		Items:     m,
	}
	return m
}

// NewDefaultManager returns a manager with every builtin enrichment
// registered and refreshed from the service catalog.
func NewDefaultManager(svc *engine.Services, journal Journal) *Manager {
	m := NewManager(svc, journal)
	for _, c := range Builtin {
		if err := m.Register(c); err != nil {
			m.deps.Services.Log().Warn("skipping enrichment", "error", err)
		}
	}
	m.Refresh(svc.Catalog)
	return m
}

func (m *Manager) Deps() *Deps { return m.deps }

// Register constructs and adds an enrichment. Ids must be unique.
func (m *Manager) Register(c Constructor) error {
	e := c(m.deps)
	if _, dup := m.byID[e.ID()]; dup {
		if cl, ok := e.(Closer); ok {
			cl.Close()
		}
		return fmt.Errorf("enrichment %q: %w", e.ID(), ErrDuplicate)
	}
	m.byID[e.ID()] = e
	m.order = append(m.order, e)
	return nil
}

// Get returns a registered enrichment.
func (m *Manager) Get(id string) (Enrichment, bool) {
	e, ok := m.byID[id]
	return e, ok
}

// IDs returns the registered ids in routing order.
func (m *Manager) IDs() []string {
	ids := make([]string, 0, len(m.order))
	for _, e := range m.order {
		ids = append(ids, e.ID())
	}
	return ids
}

// Enrich attaches enrichments to item. When the item is already imbued the
// new enrichments see the imbue immediately.
func (m *Manager) Enrich(item core.EntityID, ids ...string) error {
	if !item.Valid() {
		return ErrInvalidItem
	}
	for _, id := range ids {
		if _, ok := m.byID[id]; !ok {
			return fmt.Errorf("enrichment %q: %w", id, ErrUnknown)
		}
	}
	st := m.state(item)
	for _, id := range ids {
		if _, ok := st.ids[id]; ok {
			continue
		}
		st.ids[id] = struct{}{}
		if st.imbued {
			m.byID[id].OnImbued(st.imbue)
		}
	}
	return nil
}

// Strip removes enrichments from item, or all of them when ids is empty.
func (m *Manager) Strip(item core.EntityID, ids ...string) {
	st, ok := m.items[item]
	if !ok {
		return
	}
	if len(ids) == 0 {
		for _, e := range m.order {
			ids = append(ids, e.ID())
		}
	}
	for _, id := range ids {
		if _, ok := st.ids[id]; !ok {
			continue
		}
		delete(st.ids, id)
		if st.imbued {
			m.byID[id].OnUnimbued(st.imbue)
		}
	}
	if len(st.ids) == 0 && !st.imbued {
		delete(m.items, item)
	}
}

func (m *Manager) HasEnrichment(item core.EntityID, id string) bool {
	st, ok := m.items[item]
	if !ok {
		return false
	}
	_, ok = st.ids[id]
	return ok
}

func (m *Manager) ImbueOf(item core.EntityID) (core.Imbue, bool) {
	st, ok := m.items[item]
	if !ok || !st.imbued {
		return core.Imbue{}, false
	}
	return st.imbue, true
}

// Imbue records the imbue of an item. A re-imbue with another spell first
// unimbues the previous one.
func (m *Manager) Imbue(ev core.Imbue) {
	if !ev.Item.Valid() {
		return
	}
	st := m.state(ev.Item)
	if st.imbued {
		if st.imbue.Spell == ev.Spell {
			return
		}
		m.each(st, func(e Enrichment) { e.OnUnimbued(st.imbue) })
	}
	st.imbue = ev
	st.imbued = true
	m.each(st, func(e Enrichment) { e.OnImbued(ev) })
}

// Unimbue clears the imbue of an item.
func (m *Manager) Unimbue(ev core.Imbue) {
	st, ok := m.items[ev.Item]
	if !ok || !st.imbued {
		return
	}
	prev := st.imbue
	st.imbued = false
	st.imbue = core.Imbue{}
	m.each(st, func(e Enrichment) { e.OnUnimbued(prev) })
	if len(st.ids) == 0 {
		delete(m.items, ev.Item)
	}
}

// Hit routes an imbue hit to the item's enrichments.
func (m *Manager) Hit(ev core.ImbueHit) {
	st, ok := m.items[ev.Item]
	if !ok {
		return
	}
	m.each(st, func(e Enrichment) {
		if l, ok := e.(HitListener); ok {
			l.OnImbueHit(ev)
		}
	})
}

// Parry is offered to every parry listener, which check the parrying item
// themselves.
func (m *Manager) Parry(ev core.Parry) {
	for _, e := range m.order {
		if l, ok := e.(ParryListener); ok {
			l.OnParry(ev)
		}
	}
}

// GroundContact routes a ground contact to the item's enrichments.
func (m *Manager) GroundContact(ev core.GroundContact) {
	st, ok := m.items[ev.Item]
	if !ok {
		return
	}
	m.each(st, func(e Enrichment) {
		if l, ok := e.(GroundListener); ok {
			l.OnGroundContact(ev)
		}
	})
}

// Refresh re-reads tuning data for every enrichment.
func (m *Manager) Refresh(cat engine.Catalog) {
	for _, e := range m.order {
		e.Refresh(cat)
	}
}

// Tick advances detectors, scheduled work and actors by one frame.
func (m *Manager) Tick(now time.Time) {
	svc := m.deps.Services
	m.deps.Detectors.Update()
	svc.Timers.Run()
	if svc.RealTimers != nil && svc.RealTimers != svc.Timers {
		svc.RealTimers.Run()
	}
	m.deps.Actors.Tick(now)
}

// Stats is a snapshot for the monitor.
type Stats struct {
	Items     int
	Actors    int
	Mines     int
	Fields    int
	Detectors int
	Walks     int
	Cooldowns map[string]int
}

func (m *Manager) Stats() Stats {
	s := Stats{
		Items:     len(m.items),
		Actors:    m.deps.Actors.Len(),
		Mines:     len(m.deps.Actors.Mines()),
		Fields:    len(m.deps.Actors.Fields()),
		Detectors: m.deps.Detectors.Len(),
		Walks:     m.deps.Chains.InFlight(),
		Cooldowns: make(map[string]int, len(m.order)),
	}
	for _, e := range m.order {
		if c, ok := e.(interface{ Cooldowns() *cooldown.Registry }); ok {
			s.Cooldowns[e.ID()] = c.Cooldowns().Len()
		}
	}
	return s
}

// Close unimbues every item, releases scheduled work and clears actors.
func (m *Manager) Close() {
	for item, st := range m.items {
		if st.imbued {
			m.Unimbue(core.Imbue{Item: item})
		}
	}
	for _, e := range m.order {
		if c, ok := e.(Closer); ok {
			c.Close()
		}
	}
	m.deps.Actors.Clear()
	clear(m.items)
}

func (m *Manager) state(item core.EntityID) *itemState {
	st, ok := m.items[item]
	if !ok {
		st = &itemState{ids: make(map[string]struct{})}
		m.items[item] = st
	}
	return st
}

// each calls fn for the item's enrichments in registration order.
func (m *Manager) each(st *itemState, fn func(Enrichment)) {
	for _, e := range m.order {
		if _, ok := st.ids[e.ID()]; ok {
			fn(e)
		}
	}
}
