package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// replaced in tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and Graylog output.
type SlogManager struct {
	logger *slog.Logger
	out    io.Writer
	level  slog.Level

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
	graylog     MessageWriter

	// Dynamic session state injected into every record when set.
	GetSessionID func() string
	GetScenario  func() string
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetGraylog ships every record to w as GELF. Takes effect on the next Setup.
func (m *SlogManager) SetGraylog(w MessageWriter) {
	m.graylog = w
}

// Setup initializes the logging system. Records go to file when given,
// otherwise to stdout. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	lvl := parseLevel(level)
	m.level = lvl
	m.logProvider = provider

	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	m.out = file
	if file == nil {
		m.out = osStdout
	}
	handlers = append(handlers, slog.NewTextHandler(m.out, handlerOpts))

	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("imbue-sim", otelslog.WithLoggerProvider(provider)))
	}

	if m.graylog != nil {
		handlers = append(handlers, NewGelfHandler(m.graylog, lvl))
	}

	var handler slog.Handler = NewFanout(handlers...)
	if m.GetSessionID != nil || m.GetScenario != nil {
		handler = &sessionHandler{next: handler, attrs: m.sessionAttrs}
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

func (m *SlogManager) sessionAttrs() []slog.Attr {
	var attrs []slog.Attr
	if m.GetSessionID != nil {
		if id := m.GetSessionID(); id != "" {
			attrs = append(attrs, slog.String("session", id))
		}
	}
	if m.GetScenario != nil {
		if name := m.GetScenario(); name != "" {
			attrs = append(attrs, slog.String("scenario", name))
		}
	}
	return attrs
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Zerolog returns a zerolog logger writing to the same output at the same
// level, for components built on zerolog.
func (m *SlogManager) Zerolog() zerolog.Logger {
	out := m.out
	if out == nil {
		out = osStdout
	}
	return zerolog.New(out).Level(zerologLevel(m.level)).With().Timestamp().Logger()
}

func zerologLevel(l slog.Level) zerolog.Level {
	switch {
	case l <= slog.LevelDebug:
		return zerolog.DebugLevel
	case l <= slog.LevelInfo:
		return zerolog.InfoLevel
	case l <= slog.LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
