package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	ws "github.com/gorilla/websocket"

	"github.com/imbuefx/enrichments/pkg/streaming"
)

const (
	writeWait  = 10 * time.Second
	ackTimeout = 10 * time.Second
	maxBackoff = 30 * time.Second
	ackQueue   = 16

	ackType = "ack"
)

// frame is one encoded journal message tagged with its message type.
type frame struct {
	kind string
	data []byte
}

// lifecycle frames bracket a session. They wait for queue space instead of
// being dropped.
func (f frame) lifecycle() bool {
	return f.kind == streaming.TypeStartSession || f.kind == streaming.TypeEndSession
}

// stream owns the socket. Only the run goroutine writes to it; a reader
// goroutine per socket feeds acks back.
type stream struct {
	url      string
	secret   string
	attempts uint
	delay    time.Duration
	logger   *slog.Logger

	queue chan frame
	acks  chan streaming.AckMessage

	ctx    context.Context
	stop   context.CancelFunc
	exited chan struct{}
	once   sync.Once

	mu      sync.Mutex
	start   *frame
	dropped map[string]int64
}

func newStream(cfg Config, logger *slog.Logger) *stream {
	ctx, stop := context.WithCancel(context.Background())
	return &stream{
		url:      cfg.URL,
		secret:   cfg.Secret,
		attempts: uint(cfg.ReconnectAttempts),
		delay:    cfg.ReconnectDelay,
		logger:   logger.With("component", "journal-stream"),
		queue:    make(chan frame, cfg.QueueSize),
		acks:     make(chan streaming.AckMessage, ackQueue),
		ctx:      ctx,
		stop:     stop,
		dropped:  make(map[string]int64),
	}
}

// open dials once and hands the socket to the run goroutine.
func (s *stream) open() error {
	conn, err := s.dial()
	if err != nil {
		return err
	}
	s.exited = make(chan struct{})
	go s.run(conn)
	return nil
}

func (s *stream) dial() (*ws.Conn, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid websocket URL: %w", err))
	}
	q := u.Query()
	q.Set("secret", s.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.DialContext(s.ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (s *stream) run(conn *ws.Conn) {
	defer close(s.exited)
	for {
		err := s.serve(conn)
		if err == nil {
			return
		}
		s.logger.Warn("Journal stream lost", "error", err)
		if conn, err = s.redial(); err != nil {
			if s.ctx.Err() == nil {
				s.logger.Error("Journal stream gave up reconnecting", "attempts", s.attempts, "error", err)
			}
			return
		}
		s.logger.Info("Journal stream reconnected")
	}
}

// serve pumps queued frames into conn until it fails or the stream stops.
// A nil return means the stream was stopped.
func (s *stream) serve(conn *ws.Conn) error {
	defer conn.Close()
	readErr := make(chan error, 1)
	go s.read(conn, readErr)

	for {
		select {
		case <-s.ctx.Done():
			_ = conn.WriteControl(ws.CloseMessage,
				ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return nil
		case err := <-readErr:
			return err
		case f := <-s.queue:
			if err := write(conn, f); err != nil {
				if !f.lifecycle() {
					s.drop(f.kind)
				}
				return err
			}
		}
	}
}

func write(conn *ws.Conn, f frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("write %s: %w", f.kind, err)
	}
	if err := conn.WriteMessage(ws.TextMessage, f.data); err != nil {
		return fmt.Errorf("write %s: %w", f.kind, err)
	}
	return nil
}

func (s *stream) read(conn *ws.Conn, errc chan<- error) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			errc <- fmt.Errorf("read: %w", err)
			return
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != ackType {
			s.logger.Debug("Ignoring non-ack message", "raw", string(msg))
			continue
		}
		select {
		case s.acks <- ack:
		default:
			s.logger.Debug("Ack queue full, dropping", "for", ack.For)
		}
	}
}

// redial reconnects with exponential backoff and replays start_session so
// the server reattaches the stream.
func (s *stream) redial() (*ws.Conn, error) {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     s.delay,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         maxBackoff,
	}
	return backoff.Retry(s.ctx, func() (*ws.Conn, error) {
		conn, err := s.dial()
		if err != nil {
			return nil, err
		}
		if start := s.startFrame(); start != nil {
			if err := write(conn, *start); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.attempts),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Info("Journal stream reconnect failed", "error", err, "retryIn", next)
		}),
	)
}

func (s *stream) startFrame() *frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start
}

func (s *stream) setStart(f *frame) {
	s.mu.Lock()
	s.start = f
	s.mu.Unlock()
}

// enqueue hands f to the writer. Event frames are dropped and counted per
// type when the queue is full.
func (s *stream) enqueue(f frame) {
	if f.lifecycle() {
		select {
		case s.queue <- f:
		case <-s.ctx.Done():
		}
		return
	}
	select {
	case s.queue <- f:
	default:
		n := s.drop(f.kind)
		s.logger.Warn("Journal stream queue full, dropping frame", "type", f.kind, "dropped", n)
	}
}

func (s *stream) drop(kind string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped[kind]++
	return s.dropped[kind]
}

// request enqueues f and waits for the server to ack its type.
func (s *stream) request(f frame, timeout time.Duration) error {
	s.enqueue(f)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-s.acks:
			if ack.For == f.kind {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", f.kind)
		case <-s.ctx.Done():
			return fmt.Errorf("stream closed while waiting for ack of %q", f.kind)
		}
	}
}

func (s *stream) pending() int { return len(s.queue) }

func (s *stream) droppedByType() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.dropped))
	for k, v := range s.dropped {
		out[k] = v
	}
	return out
}

// close stops the writer after it sends a close frame. Safe to call twice.
func (s *stream) close() error {
	s.once.Do(func() {
		s.stop()
		if s.exited != nil {
			<-s.exited
		}
	})
	return nil
}
