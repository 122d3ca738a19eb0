package influxstorage

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/influx"
	"github.com/imbuefx/enrichments/pkg/core"
)

type recorder struct {
	mu        sync.Mutex
	connected bool
	flushes   int
	closed    bool
	lines     map[string][]string
}

func (r *recorder) Connect(context.Context) error { r.connected = true; return nil }
func (r *recorder) Flush()                        { r.flushes++ }
func (r *recorder) Close() error                  { r.closed = true; return nil }

func (r *recorder) WritePoint(bucket string, p *influxdb2_write.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = map[string][]string{}
	}
	r.lines[bucket] = append(r.lines[bucket], influxdb2_write.PointToLineProtocol(p, time.Nanosecond))
	return nil
}

func TestBackend_RequiresSession(t *testing.T) {
	b := New(&recorder{})
	assert.ErrorIs(t, b.RecordTrigger(&core.TriggerEvent{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
}

func TestBackend_WritesJournalPoints(t *testing.T) {
	r := &recorder{}
	b := New(r)
	require.NoError(t, b.Init())
	assert.True(t, r.connected)

	s := &core.Session{SessionID: "abc"}
	require.NoError(t, b.StartSession(s))
	assert.Equal(t, uint(1), s.ID)

	trig := &core.TriggerEvent{Enrichment: "Flashpoint", Target: core.CreatureRef(2)}
	walk := &core.ChainWalkEvent{Enrichment: "Electroconductive", Strategy: "nearest"}
	require.NoError(t, b.RecordTrigger(trig))
	require.NoError(t, b.RecordChainWalk(walk))
	require.NoError(t, b.RecordDetonation(&core.DetonationEvent{ActorID: "m"}))
	require.NoError(t, b.RecordActorTransition(&core.ActorTransition{ActorID: "m", From: "armed", To: "detonated"}))

	assert.Equal(t, uint(1), trig.ID)
	assert.Equal(t, uint(2), walk.ID)

	lines := r.lines[influx.BucketJournal]
	require.Len(t, lines, 4)
	for _, l := range lines {
		assert.True(t, strings.Contains(l, "session=abc"), l)
	}

	require.NoError(t, b.EndSession())
	assert.Equal(t, 1, r.flushes)
	require.NoError(t, b.Close())
	assert.True(t, r.closed)
}
