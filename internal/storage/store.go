package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"roadindexer/internal/config"
	"roadindexer/internal/model"
)

// Store is the persistence collaborator. SaveMeasurement and LastPoint are
// the only two operations the processing core consumes; LastPoint serves the
// cold-start lookup after a process restart.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	SaveMeasurement(ctx context.Context, m model.Measurement) (int64, error)
	LastPoint(ctx context.Context, deviceID string) (model.GeoPoint, bool, error)
}

func NewStore(cfg config.StorageConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return NewSQLite(cfg.DSN)
	case "postgres", "postgresql":
		return NewPostgres(cfg.DSN)
	default:
		return nil, errors.New("unsupported storage driver")
	}
}

type baseStore struct {
	db *sql.DB
}

func (b *baseStore) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
