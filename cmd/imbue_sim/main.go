// Command imbue_sim replays a scripted encounter against the enrichment
// reactor and records the session journal to the configured backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/imbuefx/enrichments/internal/api"
	"github.com/imbuefx/enrichments/internal/catalog"
	"github.com/imbuefx/enrichments/internal/config"
	"github.com/imbuefx/enrichments/internal/dispatcher"
	"github.com/imbuefx/enrichments/internal/influx"
	"github.com/imbuefx/enrichments/internal/logging"
	"github.com/imbuefx/enrichments/internal/monitor"
	intOtel "github.com/imbuefx/enrichments/internal/otel"
	"github.com/imbuefx/enrichments/internal/session"
	"github.com/imbuefx/enrichments/internal/storage"
	"github.com/imbuefx/enrichments/internal/worker"
	"github.com/imbuefx/enrichments/pkg/core"
)

// BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion = "0.1.0"
	BuildDate               = "unknown"

	ExtensionName = "imbue_sim"
)

func main() {
	configDir := flag.String("config", ".", "directory holding enrichments.cfg.json")
	scenarioPath := flag.String("scenario", "", "scenario file (overrides sim.scenario)")
	flag.Parse()

	if err := run(*configDir, *scenarioPath); err != nil {
		fmt.Fprintln(os.Stderr, "imbue_sim:", err)
		os.Exit(1)
	}
}

func run(configDir, scenarioPath string) error {
	runStart := time.Now()

	slogManager := logging.NewSlogManager()
	slogManager.Setup(nil, "info", nil)
	logger := slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		logger.Warn("Failed to load config, using defaults!", "error", err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}
	logPath := logging.LogFilePath(logsDir, ExtensionName, runStart)
	logFile, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	otelProvider, err := setupOTel(logFile)
	if err != nil {
		logger.Error("Failed to initialize OTel provider", "error", err)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if otelProvider != nil {
		otelLogProvider = otelProvider.LoggerProvider()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelProvider.Shutdown(ctx); err != nil {
				logger.Warn("OTel shutdown failed", "error", err)
			}
		}()
	}

	if config.GetBool("graylog.enabled") {
		w, err := logging.NewGraylogWriter(config.GetString("graylog.address"))
		if err != nil {
			logger.Warn("Graylog unavailable", "error", err)
		} else {
			slogManager.SetGraylog(w)
		}
	}

	sessionCtx := session.NewContext()
	slogManager.GetSessionID = sessionCtx.ID
	slogManager.GetScenario = sessionCtx.Scenario
	slogManager.Setup(logFile, config.GetString("logLevel"), otelLogProvider)
	logger = slogManager.Logger()
	logger.Info("Logging to file", "path", logPath, "version", CurrentExtensionVersion, "build", BuildDate)

	simCfg := config.GetSimConfig()
	if scenarioPath == "" {
		scenarioPath = simCfg.Scenario
	}
	sc, err := LoadScenario(scenarioPath)
	if err != nil {
		return err
	}

	catCfg := config.GetCatalogConfig()
	cat, err := catalog.Load(catCfg.Path)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(slogManager.Zerolog()))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		Logger:           logger,
		Zerolog:          slogManager.Zerolog(),
		InfluxBackupPath: filepath.Join(logsDir, fmt.Sprintf("influx_%s.log.gz", runStart.Format("20060102_150405"))),
		Enrichments:      enrichmentsIn(sc),
	})
	if err != nil {
		return err
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init %s storage: %w", storageCfg.Type, err)
	}
	defer backend.Close()
	logger.Info("Storage backend initialized", "type", storageCfg.Type)

	workerDeps := worker.Dependencies{Logger: logger, Session: sessionCtx}
	if uploadCfg := config.GetUploadConfig(); uploadCfg.Enabled {
		workerDeps.Uploader = api.New(uploadCfg.URL, uploadCfg.APIKey)
		workerDeps.UploadTag = uploadCfg.Tag
	}
	workerManager := worker.NewManager(workerDeps, backend)
	workerManager.RegisterHandlers(d)
	journal := worker.NewJournal(d, logger)

	r, err := newRunner(sc, cat, journal, runnerOptions{
		Seed:      simCfg.Seed,
		Start:     runStart,
		Realtime:  simCfg.Realtime,
		TimeScale: simCfg.TimeScale,
	}, logger)
	if err != nil {
		return err
	}

	s := &core.Session{
		SessionID:        uuid.NewString(),
		Scenario:         sc.Name,
		StartTime:        runStart,
		TickRate:         simCfg.TickRate,
		ExtensionVersion: CurrentExtensionVersion,
	}
	if err := workerManager.StartSession(s); err != nil {
		r.Close()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitorService := monitor.NewService(monitor.Dependencies{
		Logger:     logger,
		Session:    sessionCtx,
		Worker:     workerManager,
		DB:         backendDB(backend),
		Influx:     perfInflux(ctx, slogManager, storageCfg.Type, logsDir, runStart),
		StatusFile: filepath.Join(logsDir, "status.json"),
		Interval:   config.GetDuration("monitor.interval"),
	})
	if err := monitorService.Start(ctx); err != nil {
		return err
	}

	simCtx, cancelSim := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(simCtx)

	reloads := make(chan struct{}, 1)
	if catCfg.Watch && catCfg.Path != "" {
		watcher, err := catalog.NewWatcher(catCfg.Path)
		if err != nil {
			logger.Warn("Catalog watch disabled", "error", err)
		} else {
			g.Go(func() error {
				defer watcher.Close()
				return watchCatalog(gctx, watcher, cat, reloads, logger)
			})
		}
	}

	g.Go(func() error {
		defer cancelSim()
		defer r.Close()
		return simulate(gctx, r, simCfg, reloads, monitorService)
	})

	simErr := g.Wait()
	if errors.Is(simErr, context.Canceled) {
		simErr = nil
	}

	monitorService.Stop()
	d.Close()
	endCtx, cancelEnd := context.WithTimeout(context.Background(), time.Minute)
	defer cancelEnd()
	if err := workerManager.EndSession(endCtx); err != nil {
		logger.Error("Failed to end session", "error", err)
	}
	logger.Info("Simulation finished", "duration", time.Since(runStart), "records", workerManager.Counts())
	return simErr
}

// simulate runs the tick loop until the configured duration elapses on the
// sim clock, or ctx is cancelled. Realtime paces ticks on the wall clock.
func simulate(ctx context.Context, r *runner, cfg config.SimConfig, reloads <-chan struct{}, mon *monitor.Service) error {
	rate := cfg.TickRate
	if rate <= 0 {
		rate = 60
	}
	dt := time.Duration(float64(time.Second) / rate)
	sampleEvery := uint64(rate)
	if sampleEvery == 0 {
		sampleEvery = 1
	}

	var pace <-chan time.Time
	if cfg.Realtime {
		t := time.NewTicker(dt)
		defer t.Stop()
		pace = t.C
	}

	for elapsed := time.Duration(0); cfg.Duration <= 0 || elapsed < cfg.Duration; elapsed += dt {
		if cfg.Duration <= 0 && r.Done() {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reloads:
			r.Refresh()
		default:
		}
		if pace != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}

		r.Step(dt)
		if r.ticks%sampleEvery == 0 {
			mon.Observe(r.Stats())
		}
	}
	mon.Observe(r.Stats())
	return nil
}

// watchCatalog reloads the catalog on file changes and signals the sim loop
// to refresh its enrichments.
func watchCatalog(ctx context.Context, w *catalog.Watcher, cat *catalog.Catalog, reloads chan<- struct{}, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-w.Events:
			if !ok {
				return nil
			}
			if err := cat.Reload(); err != nil {
				logger.Warn("Catalog reload failed", "file", name, "error", err)
				continue
			}
			select {
			case reloads <- struct{}{}:
			default:
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Catalog watcher error", "error", err)
		}
	}
}

func setupOTel(logFile *os.File) (*intOtel.Provider, error) {
	otelCfg := config.GetOTelConfig()
	if !otelCfg.Enabled {
		return nil, nil
	}
	cfg := intOtel.Config{
		Enabled:        otelCfg.Enabled,
		ServiceName:    otelCfg.ServiceName,
		BatchTimeout:   otelCfg.BatchTimeout,
		LogWriter:      logFile,
		Endpoint:       otelCfg.Endpoint,
		Insecure:       otelCfg.Insecure,
		MetricInterval: otelCfg.MetricInterval,
	}
	if otelCfg.Metrics {
		cfg.MetricWriter = logFile
	}
	return intOtel.New(cfg)
}

// backendDB returns the journal database when the backend is GORM based, so
// performance samples land next to the journal.
func backendDB(b storage.Backend) *gorm.DB {
	if g, ok := b.(interface{ DB() *gorm.DB }); ok {
		return g.DB()
	}
	return nil
}

// perfInflux connects a separate InfluxDB manager for performance samples
// when influx is enabled. The influx journal backend manages its own client.
func perfInflux(ctx context.Context, slogManager *logging.SlogManager, storageType, logsDir string, runStart time.Time) monitor.PointWriter {
	if !config.GetBool("influx.enabled") {
		return nil
	}
	m := influx.NewManager(slogManager.Zerolog(), filepath.Join(logsDir, fmt.Sprintf("influx_perf_%s.log.gz", runStart.Format("20060102_150405"))))
	if err := m.Connect(ctx); err != nil {
		slogManager.Logger().Warn("InfluxDB performance writer unavailable", "storage", storageType, "error", err)
		return nil
	}
	context.AfterFunc(ctx, func() { _ = m.Close() })
	return m
}

func enrichmentsIn(sc *Scenario) []string {
	seen := make(map[string]bool)
	var out []string
	for _, it := range sc.Items {
		for _, id := range it.Enrich {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
