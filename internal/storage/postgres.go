package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"roadindexer/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/roadindexer?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			device_id TEXT NOT NULL,
			client_ip TEXT,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			speed_kmh DOUBLE PRECISION NOT NULL,
			direction DOUBLE PRECISION NOT NULL,
			roughness DOUBLE PRECISION NOT NULL,
			distance_m DOUBLE PRECISION NOT NULL,
			rms DOUBLE PRECISION NOT NULL,
			vdv DOUBLE PRECISION NOT NULL,
			crest DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_device ON measurements(device_id, id)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_ts ON measurements(ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) SaveMeasurement(ctx context.Context, m model.Measurement) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO measurements (ts, device_id, client_ip, latitude, longitude, speed_kmh, direction, roughness, distance_m, rms, vdv, crest)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		m.Timestamp.UTC(),
		m.DeviceID,
		m.ClientIP,
		m.Latitude,
		m.Longitude,
		m.SpeedKmh,
		m.Direction,
		m.Roughness,
		m.DistanceM,
		m.Metrics.RMS,
		m.Metrics.VDV,
		m.Metrics.Crest,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *postgresStore) LastPoint(ctx context.Context, deviceID string) (model.GeoPoint, bool, error) {
	if s.db == nil || deviceID == "" {
		return model.GeoPoint{}, false, nil
	}
	var p model.GeoPoint
	err := s.db.QueryRowContext(ctx,
		`SELECT ts, latitude, longitude FROM measurements WHERE device_id = $1 ORDER BY id DESC LIMIT 1`,
		deviceID,
	).Scan(&p.Timestamp, &p.Latitude, &p.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GeoPoint{}, false, nil
	}
	if err != nil {
		return model.GeoPoint{}, false, err
	}
	p.Timestamp = p.Timestamp.UTC()
	return p, true, nil
}
