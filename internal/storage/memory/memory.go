// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/imbuefx/enrichments/internal/config"
	"github.com/imbuefx/enrichments/pkg/core"
)

// ErrNoSession is returned when records arrive before StartSession.
var ErrNoSession = errors.New("no session started")

// Backend keeps the session journal in memory and exports it to JSON at
// session end.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	triggers    []core.TriggerEvent
	walks       []core.ChainWalkEvent
	detonations []core.DetonationEvent
	transitions []core.ActorTransition

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

// StartSession begins recording a new session and drops the previous one.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.ID == 0 {
		s.ID = 1
	}
	b.session = s
	b.triggers = nil
	b.walks = nil
	b.detonations = nil
	b.transitions = nil
	b.idCounter = 0
	b.lastExportPath = ""
	return nil
}

// EndSession exports the recorded session.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return ErrNoSession
	}
	return b.exportJSON()
}

func (b *Backend) nextID() uint {
	b.idCounter++
	return b.idCounter
}

func (b *Backend) RecordTrigger(e *core.TriggerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	e.ID = b.nextID()
	b.triggers = append(b.triggers, *e)
	return nil
}

func (b *Backend) RecordChainWalk(e *core.ChainWalkEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	e.ID = b.nextID()
	b.walks = append(b.walks, *e)
	return nil
}

func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	e.ID = b.nextID()
	b.detonations = append(b.detonations, *e)
	return nil
}

func (b *Backend) RecordActorTransition(e *core.ActorTransition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return ErrNoSession
	}
	e.ID = b.nextID()
	b.transitions = append(b.transitions, *e)
	return nil
}

// Triggers returns a copy of the recorded triggers.
func (b *Backend) Triggers() []core.TriggerEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.TriggerEvent(nil), b.triggers...)
}

// ChainWalks returns a copy of the recorded walks.
func (b *Backend) ChainWalks() []core.ChainWalkEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.ChainWalkEvent(nil), b.walks...)
}

// ExportedFilePath returns the path of the last export, empty before one.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
