package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/imbuefx/enrichments/internal/api"
	"github.com/imbuefx/enrichments/internal/session"
	"github.com/imbuefx/enrichments/internal/storage"
	"github.com/imbuefx/enrichments/pkg/core"
)

// ErrNoSession is returned by handlers that receive journal records while no
// session is open.
var ErrNoSession = errors.New("journal record outside a session")

// Uploader ships an exported journal file to an archive.
type Uploader interface {
	Upload(ctx context.Context, filePath string, meta api.Metadata) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger    *slog.Logger
	Session   *session.Context
	Uploader  Uploader
	UploadTag string
	Now       func() time.Time
}

// Manager moves journal records from the dispatcher into the backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	mu     sync.Mutex
	open   bool
	counts map[string]int
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		deps:    deps,
		backend: backend,
		counts:  make(map[string]int),
	}
}

// StartSession opens s on the backend and publishes it to the session context.
func (m *Manager) StartSession(s *core.Session) error {
	if err := m.backend.StartSession(s); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	m.deps.Session.Set(s)

	m.mu.Lock()
	m.open = true
	m.counts = make(map[string]int)
	m.mu.Unlock()

	m.deps.Logger.Info("Session started", "session", s.SessionID, "scenario", s.Scenario, "id", s.ID)
	return nil
}

// EndSession closes the session on the backend. Call it after the dispatcher
// has drained so every queued record lands in the session. An exported
// journal is uploaded when an Uploader is configured; upload failures are
// logged and leave the local file in place.
func (m *Manager) EndSession(ctx context.Context) error {
	m.mu.Lock()
	m.open = false
	counts := m.copyCounts()
	m.mu.Unlock()

	if err := m.backend.EndSession(); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.deps.Logger.Info("Session ended", "session", m.deps.Session.ID(), "records", counts)

	e, ok := m.backend.(storage.Exporter)
	if !ok || e.ExportedFilePath() == "" {
		return nil
	}
	path := e.ExportedFilePath()
	m.deps.Logger.Info("Journal exported", "path", path)

	if m.deps.Uploader == nil {
		return nil
	}
	s := m.deps.Session.Get()
	meta := api.Metadata{
		SessionID: s.SessionID,
		Scenario:  s.Scenario,
		Tag:       m.deps.UploadTag,
	}
	if !s.StartTime.IsZero() {
		meta.Duration = m.deps.Now().Sub(s.StartTime)
	}
	if err := m.deps.Uploader.Upload(ctx, path, meta); err != nil {
		m.deps.Logger.Error("Journal upload failed", "path", path, "error", err)
		return nil
	}
	m.deps.Logger.Info("Journal uploaded", "path", path, "session", s.SessionID)
	return nil
}

// Counts returns records written this session per journal command.
func (m *Manager) Counts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyCounts()
}

func (m *Manager) copyCounts() map[string]int {
	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

func (m *Manager) record(command string, write func() error) error {
	m.mu.Lock()
	open := m.open
	m.mu.Unlock()
	if !open {
		return ErrNoSession
	}
	if err := write(); err != nil {
		return err
	}
	m.mu.Lock()
	m.counts[command]++
	m.mu.Unlock()
	return nil
}

// WriteDurationProvider is an optional interface that backends can implement
// to expose their last batch write duration for monitoring.
type WriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// LastWriteDuration returns the duration of the last backend write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(WriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// PendingWrites reports records the backend has accepted but not persisted.
func (m *Manager) PendingWrites() int {
	if p, ok := m.backend.(storage.PendingReporter); ok {
		return p.PendingWrites()
	}
	return 0
}
