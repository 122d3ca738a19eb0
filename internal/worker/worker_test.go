package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/api"
	"github.com/imbuefx/enrichments/internal/dispatcher"
	"github.com/imbuefx/enrichments/internal/session"
	"github.com/imbuefx/enrichments/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Debug(msg string, _ ...any) { l.log(msg) }
func (l *mockLogger) Info(msg string, _ ...any)  { l.log(msg) }
func (l *mockLogger) Error(msg string, _ ...any) { l.log(msg) }

func (l *mockLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	triggers    []core.TriggerEvent
	walks       []core.ChainWalkEvent
	detonations []core.DetonationEvent
	transitions []core.ActorTransition
	started     *core.Session
	ended       bool
	failWith    error
	pending     int
	lastWrite   time.Duration
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s.ID = 7
	b.started = s
	return nil
}

func (b *mockBackend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended = true
	return nil
}

func (b *mockBackend) RecordTrigger(e *core.TriggerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failWith != nil {
		return b.failWith
	}
	b.triggers = append(b.triggers, *e)
	return nil
}

func (b *mockBackend) RecordChainWalk(e *core.ChainWalkEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.walks = append(b.walks, *e)
	return nil
}

func (b *mockBackend) RecordDetonation(e *core.DetonationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detonations = append(b.detonations, *e)
	return nil
}

func (b *mockBackend) RecordActorTransition(e *core.ActorTransition) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitions = append(b.transitions, *e)
	return nil
}

func (b *mockBackend) PendingWrites() int               { return b.pending }
func (b *mockBackend) LastWriteDuration() time.Duration { return b.lastWrite }

func setup(t *testing.T, backend *mockBackend) (*Manager, *dispatcher.Dispatcher, *Journal, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	d, err := dispatcher.New(logger)
	require.NoError(t, err)

	m := NewManager(Dependencies{Session: session.NewContext()}, backend)
	m.RegisterHandlers(d)
	return m, d, NewJournal(d, nil), logger
}

func TestRegisterHandlers(t *testing.T) {
	_, d, _, _ := setup(t, &mockBackend{})
	defer d.Close()

	for _, cmd := range []string{CmdTrigger, CmdChainWalk, CmdFieldBurst, CmdDetonation, CmdTransition} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestJournal_ReachesBackend(t *testing.T) {
	backend := &mockBackend{}
	m, d, j, _ := setup(t, backend)

	s := &core.Session{SessionID: "abc", Scenario: "arena"}
	require.NoError(t, m.StartSession(s))
	assert.Equal(t, "arena", m.deps.Session.Scenario())
	assert.Equal(t, uint(7), s.ID)

	j.Trigger(core.TriggerEvent{Enrichment: "Flashpoint", Target: core.CreatureRef(1)})
	j.Trigger(core.TriggerEvent{Enrichment: "Flashpoint", Target: core.CreatureRef(2)})
	j.ChainWalk(core.ChainWalkEvent{Enrichment: "Electroconductive", Strategy: "nearest"})
	j.FieldBurst(core.ChainWalkEvent{Enrichment: "BoltPylon", Strategy: "random"})
	j.Detonation(core.DetonationEvent{ActorID: "mine-1"})
	j.ActorTransition(core.ActorTransition{ActorID: "mine-1", From: "armed", To: "detonated"})

	d.Close()
	require.NoError(t, m.EndSession(context.Background()))

	assert.Len(t, backend.triggers, 2)
	assert.Len(t, backend.walks, 2)
	assert.Len(t, backend.detonations, 1)
	assert.Len(t, backend.transitions, 1)
	assert.True(t, backend.ended)

	counts := m.Counts()
	assert.Equal(t, 2, counts[CmdTrigger])
	assert.Equal(t, 1, counts[CmdFieldBurst])
	assert.Equal(t, 1, counts[CmdChainWalk])
}

func TestJournal_OutsideSession(t *testing.T) {
	backend := &mockBackend{}
	_, d, j, logger := setup(t, backend)

	j.Trigger(core.TriggerEvent{Enrichment: "Flashpoint"})
	d.Close()

	assert.Empty(t, backend.triggers)
	assert.True(t, logger.has("buffered event failed"))
}

func TestJournal_AfterCloseDoesNotPanic(t *testing.T) {
	_, d, j, _ := setup(t, &mockBackend{})
	d.Close()

	assert.NotPanics(t, func() {
		j.Detonation(core.DetonationEvent{ActorID: "late"})
	})
}

func TestHandler_BackendError(t *testing.T) {
	backend := &mockBackend{failWith: errors.New("disk full")}
	m := NewManager(Dependencies{}, backend)
	require.NoError(t, m.StartSession(&core.Session{SessionID: "x"}))

	_, err := m.handleTrigger(dispatcher.Event{Command: CmdTrigger, Payload: core.TriggerEvent{}})
	assert.EqualError(t, err, "disk full")
	assert.Zero(t, m.Counts()[CmdTrigger])
}

func TestHandler_WrongPayload(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{})

	_, err := m.handleDetonation(dispatcher.Event{Command: CmdDetonation, Payload: "nope"})
	assert.ErrorContains(t, err, "unexpected payload string")
}

func TestManager_OptionalBackendMetrics(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{pending: 12, lastWrite: 40 * time.Millisecond})
	assert.Equal(t, 12, m.PendingWrites())
	assert.Equal(t, 40*time.Millisecond, m.LastWriteDuration())
}

type exportingBackend struct {
	mockBackend
	path string
}

func (b *exportingBackend) ExportedFilePath() string { return b.path }

type fakeUploader struct {
	path string
	meta api.Metadata
	err  error
}

func (u *fakeUploader) Upload(_ context.Context, path string, meta api.Metadata) error {
	u.path = path
	u.meta = meta
	return u.err
}

func TestEndSession_UploadsExport(t *testing.T) {
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	up := &fakeUploader{}
	m := NewManager(Dependencies{
		Uploader:  up,
		UploadTag: "nightly",
		Now:       func() time.Time { return start.Add(90 * time.Second) },
	}, &exportingBackend{path: "/tmp/arena.json.gz"})

	require.NoError(t, m.StartSession(&core.Session{SessionID: "abc", Scenario: "arena", StartTime: start}))
	require.NoError(t, m.EndSession(context.Background()))

	assert.Equal(t, "/tmp/arena.json.gz", up.path)
	assert.Equal(t, api.Metadata{SessionID: "abc", Scenario: "arena", Duration: 90 * time.Second, Tag: "nightly"}, up.meta)
}

func TestEndSession_UploadFailureIsNotFatal(t *testing.T) {
	up := &fakeUploader{err: errors.New("archive down")}
	m := NewManager(Dependencies{Uploader: up}, &exportingBackend{path: "/tmp/a.json"})

	require.NoError(t, m.StartSession(&core.Session{SessionID: "abc"}))
	assert.NoError(t, m.EndSession(context.Background()))
	assert.Equal(t, "/tmp/a.json", up.path)
}

func TestEndSession_NoExportSkipsUpload(t *testing.T) {
	up := &fakeUploader{}
	m := NewManager(Dependencies{Uploader: up}, &exportingBackend{})

	require.NoError(t, m.StartSession(&core.Session{SessionID: "abc"}))
	require.NoError(t, m.EndSession(context.Background()))
	assert.Empty(t, up.path)
}
