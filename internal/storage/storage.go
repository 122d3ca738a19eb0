// internal/storage/storage.go
package storage

import "github.com/imbuefx/enrichments/pkg/core"

// Backend is the interface all journal storage implementations must satisfy.
// Calls arrive from the dispatcher's buffered queue, never from the
// simulation thread.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns ID to the passed pointer)
	StartSession(s *core.Session) error
	EndSession() error

	// Journal recording
	RecordTrigger(e *core.TriggerEvent) error
	RecordChainWalk(e *core.ChainWalkEvent) error
	RecordDetonation(e *core.DetonationEvent) error
	RecordActorTransition(e *core.ActorTransition) error
}

// Exporter is an optional interface for backends that produce a file at
// session end.
type Exporter interface {
	ExportedFilePath() string
}

// PendingReporter is an optional interface for backends that batch writes.
type PendingReporter interface {
	PendingWrites() int
}
