// Package gormstorage implements storage.Backend on top of GORM with
// internal queues and a background writer goroutine. The sqlite and
// postgres backends embed it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/imbuefx/enrichments/internal/database"
	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/internal/model/convert"
	"github.com/imbuefx/enrichments/internal/queue"
	"github.com/imbuefx/enrichments/pkg/core"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = 2 * time.Second

// ErrNoDB is returned by Init when no database was injected.
var ErrNoDB = errors.New("gorm backend has no database")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

type queues struct {
	Triggers    *queue.Queue[model.TriggerEvent]
	ChainWalks  *queue.Queue[model.ChainWalk]
	Detonations *queue.Queue[model.Detonation]
	Transitions *queue.Queue[model.ActorTransition]
}

func newQueues() *queues {
	return &queues{
		Triggers:    queue.New[model.TriggerEvent](),
		ChainWalks:  queue.New[model.ChainWalk](),
		Detonations: queue.New[model.Detonation](),
		Transitions: queue.New[model.ActorTransition](),
	}
}

func (q *queues) pending() int {
	return q.Triggers.Len() + q.ChainWalks.Len() + q.Detonations.Len() + q.Transitions.Len()
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	lastWrite atomic.Int64

	writeMu  sync.Mutex
	stopChan chan struct{}
	done     sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB exposes the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.Logger.Info("Journal schema migrated", "dialect", b.deps.DB.Name())

	b.stopChan = make(chan struct{})
	b.done.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	b.done.Wait()
	b.stopChan = nil
	return nil
}

// StartSession inserts the session row and stamps every following record with its ID.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		return ErrNoDB
	}
	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	return nil
}

// EndSession writes everything still queued.
func (b *Backend) EndSession() error {
	b.Flush()
	return nil
}

// SessionID returns the database id of the current session.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

func (b *Backend) RecordTrigger(e *core.TriggerEvent) error {
	b.queues.Triggers.Push(convert.CoreToTriggerEvent(*e))
	return nil
}

func (b *Backend) RecordChainWalk(e *core.ChainWalkEvent) error {
	b.queues.ChainWalks.Push(convert.CoreToChainWalk(*e))
	return nil
}

func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	b.queues.Detonations.Push(convert.CoreToDetonation(*e))
	return nil
}

func (b *Backend) RecordActorTransition(e *core.ActorTransition) error {
	b.queues.Transitions.Push(convert.CoreToActorTransition(*e))
	return nil
}

// PendingWrites reports how many records wait for the next flush.
func (b *Backend) PendingWrites() int {
	return b.queues.pending()
}

// LastWriteDuration reports how long the last flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// Flush drains every queue into the database.
func (b *Backend) Flush() {
	if b.deps.DB == nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	sessionID := b.SessionID()
	log := b.deps.Logger

	writeQueue(b.deps.DB, b.queues.Triggers, "trigger events", log, func(items []model.TriggerEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.ChainWalks, "chain walks", log, func(items []model.ChainWalk) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.Detonations, "detonations", log, func(items []model.Detonation) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.Transitions, "actor transitions", log, func(items []model.ActorTransition) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})

	b.lastWrite.Store(int64(time.Since(start)))
}

// writeQueue writes all items from a queue to the database in a transaction.
// A failed batch goes back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger, prepare func([]T)) {
	items := q.Take(0)
	if len(items) == 0 {
		return
	}
	if prepare != nil {
		prepare(items)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error writing journal batch", "table", name, "count", len(items), "error", err)
		q.Requeue(items)
	}
}

func (b *Backend) writeLoop() {
	defer b.done.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}

// Triggers loads the stored triggers of a session in insertion order.
func (b *Backend) Triggers(sessionID uint) ([]core.TriggerEvent, error) {
	var rows []model.TriggerEvent
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load triggers: %w", err)
	}
	out := make([]core.TriggerEvent, len(rows))
	for i, r := range rows {
		out[i] = convert.TriggerEventToCore(r)
	}
	return out, nil
}

// ChainWalks loads the stored walks of a session with their hops.
func (b *Backend) ChainWalks(sessionID uint) ([]core.ChainWalkEvent, error) {
	var rows []model.ChainWalk
	err := b.deps.DB.
		Preload("Hops", func(db *gorm.DB) *gorm.DB { return db.Order("hop_index") }).
		Where("session_id = ?", sessionID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load chain walks: %w", err)
	}
	out := make([]core.ChainWalkEvent, len(rows))
	for i, r := range rows {
		out[i] = convert.ChainWalkToCore(r)
	}
	return out, nil
}
