package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/imbuefx/enrichments/internal/enrichment"
	"github.com/imbuefx/enrichments/internal/influx"
	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/internal/session"
)

// DefaultInterval is used when Dependencies.Interval is zero.
const DefaultInterval = 5 * time.Second

// PointWriter sends performance points to InfluxDB.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// WorkerStats is the part of the worker manager the monitor reads.
type WorkerStats interface {
	PendingWrites() int
	LastWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service. DB, Influx
// and StatusFile are optional sinks.
type Dependencies struct {
	Logger     *slog.Logger
	Session    *session.Context
	Worker     WorkerStats
	DB         *gorm.DB
	Influx     PointWriter
	StatusFile string
	Interval   time.Duration
}

// Service samples reactor state and writes it to the configured sinks.
type Service struct {
	deps Dependencies

	mu        sync.RWMutex
	latest    enrichment.Stats
	hasSample bool
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	return &Service{deps: deps}
}

// Observe records the latest reactor stats. The simulation loop calls it
// because enrichment.Manager is not safe for use from other goroutines.
func (s *Service) Observe(stats enrichment.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = stats
	s.hasSample = true
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot builds a performance sample from the latest stats.
func (s *Service) Snapshot(now time.Time) (model.SimPerformance, bool) {
	s.mu.RLock()
	stats, ok := s.latest, s.hasSample
	s.mu.RUnlock()
	if !ok {
		return model.SimPerformance{}, false
	}

	cooldowns, err := json.Marshal(stats.Cooldowns)
	if err != nil {
		cooldowns = []byte("{}")
	}

	perf := model.SimPerformance{
		Time:      now,
		SessionID: s.deps.Session.Get().ID,
		Items:     stats.Items,
		Actors:    stats.Actors,
		Mines:     stats.Mines,
		Fields:    stats.Fields,
		Detectors: stats.Detectors,
		Walks:     stats.Walks,
		Cooldowns: datatypes.JSON(cooldowns),
	}
	if s.deps.Worker != nil {
		perf.QueueLength = s.deps.Worker.PendingWrites()
		perf.LastWriteMs = float32(s.deps.Worker.LastWriteDuration().Milliseconds())
	}
	return perf, true
}

// WriteSample pushes one sample to every configured sink.
func (s *Service) WriteSample(now time.Time) error {
	perf, ok := s.Snapshot(now)
	if !ok || perf.SessionID == 0 {
		return nil
	}

	s.deps.Logger.Debug("Reactor stats",
		"items", perf.Items,
		"actors", perf.Actors,
		"mines", perf.Mines,
		"fields", perf.Fields,
		"walks", perf.Walks,
		"queue", perf.QueueLength)

	var errs []error
	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, perf); err != nil {
			errs = append(errs, err)
		}
	}
	if s.deps.DB != nil {
		if err := s.deps.DB.Create(&perf).Error; err != nil {
			errs = append(errs, fmt.Errorf("write perf model: %w", err))
		}
	}
	if s.deps.Influx != nil {
		p := influx.PerformancePoint(s.deps.Session.ID(), perf)
		if err := s.deps.Influx.WritePoint(influx.BucketPerformance, p); err != nil {
			errs = append(errs, fmt.Errorf("write perf point: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("monitor sample: %v", errs)
	}
	return nil
}

func writeStatusFile(path string, perf model.SimPerformance) error {
	data, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Start starts the status monitor goroutine. It stops on Stop or when ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if err := s.WriteSample(now); err != nil {
					s.deps.Logger.Error("Error writing status sample", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	done := s.done
	s.mu.Unlock()
	<-done
}
