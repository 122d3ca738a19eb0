package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, kv []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv) }

func (l *testLogger) count(prefix string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, m := range l.messages {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register(":JOURNAL:TRIGGER:", func(e Event) (any, error) {
		got = e
		return "stored", nil
	})

	result, err := d.Dispatch(Event{Command: ":JOURNAL:TRIGGER:", Payload: 7})
	require.NoError(t, err)
	assert.Equal(t, "stored", result)
	assert.Equal(t, 7, got.Payload)
	assert.False(t, got.Timestamp.IsZero(), "dispatch stamps events without a timestamp")
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})
	assert.EqualError(t, err, "unknown command: :UNKNOWN:")
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":JOURNAL:WALK:", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":JOURNAL:WALK:"})
		require.NoError(t, err)
		assert.Equal(t, "queued", result)
	}

	d.Close()
	assert.Equal(t, int32(3), processed.Load(), "close drains the queue")
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register(":FULL:", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))

	_, err := d.Dispatch(Event{Command: ":FULL:"})
	require.NoError(t, err)
	<-started
	d.Dispatch(Event{Command: ":FULL:"})
	d.Dispatch(Event{Command: ":FULL:"})

	_, err = d.Dispatch(Event{Command: ":FULL:"})
	assert.EqualError(t, err, "queue full: :FULL:")

	close(block)
	d.Close()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Command: ":BLOCKING:"})
	<-started
	d.Dispatch(Event{Command: ":BLOCKING:"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
	d.Close()
}

func TestDispatcher_BufferedErrorsAreLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":JOURNAL:DETONATION:", func(e Event) (any, error) {
		return nil, errors.New("disk full")
	}, Buffered(4))

	d.Dispatch(Event{Command: ":JOURNAL:DETONATION:"})
	d.Close()

	assert.Equal(t, 1, logger.count("ERROR: buffered event failed"))
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: ":LOGGED:", Payload: "x"})

	assert.Equal(t, 2, logger.count("DEBUG"))
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	_, err := d.Dispatch(Event{Command: ":ERROR:"})
	require.Error(t, err)
	assert.Equal(t, 1, logger.count("ERROR: event failed"))
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":EXISTS:", func(e Event) (any, error) { return nil, nil })

	assert.True(t, d.HasHandler(":EXISTS:"))
	assert.False(t, d.HasHandler(":NOT_EXISTS:"))
}

func TestDispatcher_CloseRejectsNewEvents(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":SYNC:", func(e Event) (any, error) { return nil, nil })
	d.Register(":ASYNC:", func(e Event) (any, error) { return nil, nil }, Buffered(1))

	d.Close()
	d.Close()

	_, err := d.Dispatch(Event{Command: ":SYNC:"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = d.Dispatch(Event{Command: ":ASYNC:"})
	assert.ErrorIs(t, err, ErrClosed)
}
