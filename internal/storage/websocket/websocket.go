// Package websocket streams the session journal live to a remote viewer.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/imbuefx/enrichments/pkg/streaming"
)

// Defaults applied by New.
const (
	DefaultReconnectAttempts = 10
	DefaultReconnectDelay    = time.Second
	DefaultQueueSize         = 10_000
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL               string
	Secret            string
	ReconnectAttempts int
	// ReconnectDelay is the first backoff interval; it doubles per attempt.
	ReconnectDelay time.Duration
	QueueSize      int
	// Enrichments is announced to the server with start_session.
	Enrichments []string
}

// Backend streams journal records over WebSocket. It implements
// storage.Backend and storage.PendingReporter.
type Backend struct {
	stream *stream
	cfg    Config
	nextID atomic.Uint64
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectAttempts <= 0 {
		cfg.ReconnectAttempts = DefaultReconnectAttempts
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Backend{
		stream: newStream(cfg, logger),
		cfg:    cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.stream.open()
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.stream.close()
}

// PendingWrites reports queued frames.
func (b *Backend) PendingWrites() int {
	return b.stream.pending()
}

// Dropped reports journal frames lost to a full queue or a broken socket.
func (b *Backend) Dropped() int64 {
	var n int64
	for _, v := range b.stream.droppedByType() {
		n += v
	}
	return n
}

// DroppedByType breaks Dropped down per message type.
func (b *Backend) DroppedByType() map[string]int64 {
	return b.stream.droppedByType()
}

// encode builds an envelope frame from a message type and payload.
func encode(msgType string, payload any) (frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return frame{}, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return frame{}, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return frame{kind: msgType, data: data}, nil
}

func (b *Backend) send(msgType string, payload any) error {
	f, err := encode(msgType, payload)
	if err != nil {
		return err
	}
	b.stream.enqueue(f)
	return nil
}

// StartSession announces the session and waits for server ack. The
// announcement is replayed after every reconnect until EndSession.
func (b *Backend) StartSession(s *core.Session) error {
	if s.ID == 0 {
		s.ID = 1
	}
	b.nextID.Store(0)

	f, err := encode(streaming.TypeStartSession, streaming.StartSessionPayload{
		Session:     s,
		Enrichments: b.cfg.Enrichments,
	})
	if err != nil {
		return err
	}
	b.stream.setStart(&f)
	return b.stream.request(f, ackTimeout)
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	f, err := encode(streaming.TypeEndSession, nil)
	if err != nil {
		return err
	}
	err = b.stream.request(f, ackTimeout)
	b.stream.setStart(nil)
	return err
}

func (b *Backend) id() uint {
	return uint(b.nextID.Add(1))
}

func (b *Backend) RecordTrigger(e *core.TriggerEvent) error {
	e.ID = b.id()
	return b.send(streaming.TypeTrigger, e)
}

func (b *Backend) RecordChainWalk(e *core.ChainWalkEvent) error {
	e.ID = b.id()
	return b.send(streaming.TypeChainWalk, e)
}

func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	e.ID = b.id()
	return b.send(streaming.TypeDetonation, e)
}

func (b *Backend) RecordActorTransition(e *core.ActorTransition) error {
	e.ID = b.id()
	return b.send(streaming.TypeActorTransition, e)
}
