// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/rs/zerolog"

	"github.com/imbuefx/enrichments/internal/config"
	"github.com/imbuefx/enrichments/internal/influx"
	influxstorage "github.com/imbuefx/enrichments/internal/storage/influx"
	"github.com/imbuefx/enrichments/internal/storage/memory"
	"github.com/imbuefx/enrichments/internal/storage/postgres"
	sqlitestorage "github.com/imbuefx/enrichments/internal/storage/sqlite"
	"github.com/imbuefx/enrichments/internal/storage/websocket"
)

// Storage type names accepted in storage.type.
const (
	TypeMemory    = "memory"
	TypeSQLite    = "sqlite"
	TypePostgres  = "postgres"
	TypeInflux    = "influx"
	TypeWebSocket = "websocket"
)

// Dependencies are shared by the backends the factory can build.
type Dependencies struct {
	Logger  *slog.Logger
	Zerolog zerolog.Logger
	// InfluxBackupPath receives line protocol while InfluxDB is unreachable.
	InfluxBackupPath string
	// Enrichments is announced by streaming backends.
	Enrichments []string
}

// NewBackend creates a storage backend based on configuration
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	switch cfg.Type {
	case TypePostgres:
		return postgres.New(deps.Logger), nil
	case TypeSQLite:
		b, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.Path,
		}, deps.Logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	case TypeMemory:
		return memory.New(cfg.Memory), nil
	case TypeInflux:
		return influxstorage.New(influx.NewManager(deps.Zerolog, deps.InfluxBackupPath)), nil
	case TypeWebSocket:
		return websocket.New(websocket.Config{
			URL:               cfg.WebSocket.URL,
			Secret:            cfg.WebSocket.Secret,
			ReconnectAttempts: cfg.WebSocket.ReconnectAttempts,
			ReconnectDelay:    cfg.WebSocket.ReconnectDelay,
			QueueSize:         cfg.WebSocket.QueueSize,
			Enrichments:       deps.Enrichments,
		}, deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
