package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/config"
	gormstorage "github.com/imbuefx/enrichments/internal/storage/gorm"
	influxstorage "github.com/imbuefx/enrichments/internal/storage/influx"
	"github.com/imbuefx/enrichments/internal/storage/memory"
	"github.com/imbuefx/enrichments/internal/storage/postgres"
	sqlitestorage "github.com/imbuefx/enrichments/internal/storage/sqlite"
	"github.com/imbuefx/enrichments/internal/storage/websocket"
)

var (
	_ Backend         = (*gormstorage.Backend)(nil)
	_ PendingReporter = (*gormstorage.Backend)(nil)
	_ Backend         = (*sqlitestorage.Backend)(nil)
	_ Exporter        = (*sqlitestorage.Backend)(nil)
	_ Backend         = (*postgres.Backend)(nil)
	_ Backend         = (*memory.Backend)(nil)
	_ Exporter        = (*memory.Backend)(nil)
	_ Backend         = (*influxstorage.Backend)(nil)
	_ Backend         = (*websocket.Backend)(nil)
	_ PendingReporter = (*websocket.Backend)(nil)
)

func TestNewBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		typ  string
		want any
	}{
		{TypeMemory, &memory.Backend{}},
		{TypePostgres, &postgres.Backend{}},
		{TypeInflux, &influxstorage.Backend{}},
		{TypeWebSocket, &websocket.Backend{}},
		{TypeSQLite, &sqlitestorage.Backend{}},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			cfg := config.StorageConfig{
				Type:   tt.typ,
				Memory: config.MemoryConfig{OutputDir: dir},
				SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "journal.db")},
			}
			b, err := NewBackend(cfg, Dependencies{InfluxBackupPath: filepath.Join(dir, "influx.gz")})
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend(config.StorageConfig{Type: "tape"}, Dependencies{})
	assert.ErrorContains(t, err, "unknown storage type: tape")
}
