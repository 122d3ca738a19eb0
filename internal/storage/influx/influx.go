// Package influxstorage writes the session journal as InfluxDB points.
package influxstorage

import (
	"context"
	"errors"
	"sync"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/imbuefx/enrichments/internal/influx"
	"github.com/imbuefx/enrichments/pkg/core"
)

// ErrNoSession is returned when records arrive before StartSession.
var ErrNoSession = errors.New("no session started")

// PointWriter is the part of influx.Manager the backend needs.
type PointWriter interface {
	Connect(ctx context.Context) error
	WritePoint(bucket string, point *influxdb2_write.Point) error
	Flush()
	Close() error
}

var _ PointWriter = (*influx.Manager)(nil)

// Backend tags every point with the running session's id.
type Backend struct {
	w PointWriter

	mu      sync.RWMutex
	session string
	nextID  uint
}

// New wraps a point writer.
func New(w PointWriter) *Backend {
	return &Backend{w: w}
}

// Init connects the writer. A disabled influx config is an error here since
// the backend was explicitly selected.
func (b *Backend) Init() error {
	return b.w.Connect(context.Background())
}

func (b *Backend) Close() error {
	return b.w.Close()
}

func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.ID == 0 {
		s.ID = 1
	}
	b.session = s.SessionID
	b.nextID = 0
	return nil
}

func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == "" {
		return ErrNoSession
	}
	b.w.Flush()
	b.session = ""
	return nil
}

func (b *Backend) write(p func(session string) *influxdb2_write.Point, id *uint) error {
	b.mu.Lock()
	if b.session == "" {
		b.mu.Unlock()
		return ErrNoSession
	}
	b.nextID++
	*id = b.nextID
	session := b.session
	b.mu.Unlock()

	return b.w.WritePoint(influx.BucketJournal, p(session))
}

func (b *Backend) RecordTrigger(e *core.TriggerEvent) error {
	return b.write(func(s string) *influxdb2_write.Point { return influx.TriggerPoint(s, *e) }, &e.ID)
}

func (b *Backend) RecordChainWalk(e *core.ChainWalkEvent) error {
	return b.write(func(s string) *influxdb2_write.Point { return influx.ChainWalkPoint(s, *e) }, &e.ID)
}

func (b *Backend) RecordDetonation(e *core.DetonationEvent) error {
	return b.write(func(s string) *influxdb2_write.Point { return influx.DetonationPoint(s, *e) }, &e.ID)
}

func (b *Backend) RecordActorTransition(e *core.ActorTransition) error {
	return b.write(func(s string) *influxdb2_write.Point { return influx.TransitionPoint(s, *e) }, &e.ID)
}
