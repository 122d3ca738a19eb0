// Package postgres implements the storage.Backend interface on a PostgreSQL
// journal database reached through the db.* config keys.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/imbuefx/enrichments/internal/database"
	gormstorage "github.com/imbuefx/enrichments/internal/storage/gorm"
)

// Backend connects lazily in Init and then behaves as the GORM backend.
type Backend struct {
	*gormstorage.Backend
	log *slog.Logger
}

// New creates a new postgres journal backend.
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{log: logger}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	db, err := database.OpenPostgres()
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: b.log})
	return b.Backend.Init()
}

// Close is safe before a successful Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
