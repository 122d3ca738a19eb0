package worker

import (
	"fmt"

	"github.com/imbuefx/enrichments/internal/dispatcher"
	"github.com/imbuefx/enrichments/pkg/core"
)

// RegisterHandlers registers the journal handlers with the dispatcher. Every
// record is buffered so storage never runs on the simulation thread.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Triggers fire per hit and are the highest volume
	d.Register(CmdTrigger, m.handleTrigger, dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(CmdChainWalk, m.handleChainWalk, dispatcher.Buffered(2000), dispatcher.Logged())
	d.Register(CmdFieldBurst, m.handleChainWalk, dispatcher.Buffered(2000), dispatcher.Logged())

	// Actor lifecycle
	d.Register(CmdDetonation, m.handleDetonation, dispatcher.Buffered(500), dispatcher.Logged())
	d.Register(CmdTransition, m.handleTransition, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) handleTrigger(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.TriggerEvent)
	if !ok {
		return nil, fmt.Errorf("trigger: unexpected payload %T", e.Payload)
	}
	return nil, m.record(e.Command, func() error { return m.backend.RecordTrigger(&ev) })
}

func (m *Manager) handleChainWalk(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.ChainWalkEvent)
	if !ok {
		return nil, fmt.Errorf("chain walk: unexpected payload %T", e.Payload)
	}
	return nil, m.record(e.Command, func() error { return m.backend.RecordChainWalk(&ev) })
}

func (m *Manager) handleDetonation(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.DetonationEvent)
	if !ok {
		return nil, fmt.Errorf("detonation: unexpected payload %T", e.Payload)
	}
	return nil, m.record(e.Command, func() error { return m.backend.RecordDetonation(&ev) })
}

func (m *Manager) handleTransition(e dispatcher.Event) (any, error) {
	ev, ok := e.Payload.(core.ActorTransition)
	if !ok {
		return nil, fmt.Errorf("actor transition: unexpected payload %T", e.Payload)
	}
	return nil, m.record(e.Command, func() error { return m.backend.RecordActorTransition(&ev) })
}
