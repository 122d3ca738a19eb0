package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/imbuefx/enrichments/pkg/streaming"
)

// testServer upgrades to WebSocket, records received messages, and acks
// start_session/end_session.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.setSecret(r.URL.Query().Get("secret"))
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	secret   string
	messages []streaming.Envelope
}

func (m *messageLog) setSecret(s string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secret = s
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test", Enrichments: []string{"Flashpoint"}}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	s := &core.Session{SessionID: "abc", Scenario: "arena"}
	require.NoError(t, b.StartSession(s))
	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)

	var start streaming.StartSessionPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &start))
	assert.Equal(t, "arena", start.Session.Scenario)
	assert.Equal(t, []string{"Flashpoint"}, start.Enrichments)

	ml.mu.Lock()
	assert.Equal(t, "test", ml.secret)
	ml.mu.Unlock()
}

func TestJournalMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{SessionID: "x"}))

	trig := &core.TriggerEvent{Enrichment: "Flashpoint", Target: core.CreatureRef(3)}
	require.NoError(t, b.RecordTrigger(trig))
	require.NoError(t, b.RecordChainWalk(&core.ChainWalkEvent{Strategy: "nearest"}))
	require.NoError(t, b.RecordDetonation(&core.DetonationEvent{ActorID: "m"}))
	require.NoError(t, b.RecordActorTransition(&core.ActorTransition{ActorID: "m"}))
	assert.Equal(t, uint(1), trig.ID)

	require.NoError(t, b.EndSession())

	// end_session is acked after every earlier message was read.
	types := make(map[string]int)
	for _, m := range ml.all() {
		types[m.Type]++
	}
	assert.Equal(t, 1, types[streaming.TypeStartSession])
	assert.Equal(t, 1, types[streaming.TypeTrigger])
	assert.Equal(t, 1, types[streaming.TypeChainWalk])
	assert.Equal(t, 1, types[streaming.TypeDetonation])
	assert.Equal(t, 1, types[streaming.TypeActorTransition])
	assert.Equal(t, 1, types[streaming.TypeEndSession])
	assert.Zero(t, b.Dropped())
}

func TestEndSession_TimesOutWithoutAck(t *testing.T) {
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())

	f, err := encode(streaming.TypeEndSession, nil)
	require.NoError(t, err)
	err = b.stream.request(f, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timeout")
	require.NoError(t, b.Close())
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/"}, nil)
	assert.Error(t, b.Init())
}

func TestReconnectReplaysStartSession(t *testing.T) {
	ml := &messageLog{}
	var conns atomic.Int32
	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		n := conns.Add(1)
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)
			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				data, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
				_ = c.WriteMessage(ws.TextMessage, data)
			}
			// the first socket dies right after the session starts
			if n == 1 && env.Type == streaming.TypeStartSession {
				return
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), ReconnectDelay: 10 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, b.StartSession(&core.Session{SessionID: "r"}))
	require.Eventually(t, func() bool { return conns.Load() == 2 }, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		n := 0
		for _, m := range ml.all() {
			if m.Type == streaming.TypeStartSession {
				n++
			}
		}
		return n == 2
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, b.RecordTrigger(&core.TriggerEvent{Enrichment: "Flashpoint"}))
	require.NoError(t, b.EndSession())
	last := ml.all()
	assert.Equal(t, streaming.TypeEndSession, last[len(last)-1].Type)
}

func TestFullQueueDropsEventsByType(t *testing.T) {
	// never opened, so nothing drains the queue
	b := New(Config{URL: "ws://127.0.0.1:1/", QueueSize: 2}, nil)
	defer b.Close()

	require.NoError(t, b.RecordTrigger(&core.TriggerEvent{}))
	require.NoError(t, b.RecordTrigger(&core.TriggerEvent{}))
	require.NoError(t, b.RecordTrigger(&core.TriggerEvent{}))
	require.NoError(t, b.RecordDetonation(&core.DetonationEvent{}))

	assert.Equal(t, 2, b.PendingWrites())
	assert.Equal(t, int64(2), b.Dropped())
	assert.Equal(t, map[string]int64{
		streaming.TypeTrigger:    1,
		streaming.TypeDetonation: 1,
	}, b.DroppedByType())
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv)}, nil)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
	assert.NoError(t, b.Close())
}
