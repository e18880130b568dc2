package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"roadindexer/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:roadindexer.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			device_id TEXT NOT NULL,
			client_ip TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			speed_kmh REAL NOT NULL,
			direction REAL NOT NULL,
			roughness REAL NOT NULL,
			distance_m REAL NOT NULL,
			rms REAL NOT NULL,
			vdv REAL NOT NULL,
			crest REAL NOT NULL
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

func (s *sqliteStore) SaveMeasurement(ctx context.Context, m model.Measurement) (int64, error) {
	if s.db == nil {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO measurements (ts, device_id, client_ip, latitude, longitude, speed_kmh, direction, roughness, distance_m, rms, vdv, crest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Timestamp.UTC().Format(time.RFC3339Nano),
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
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqliteStore) LastPoint(ctx context.Context, deviceID string) (model.GeoPoint, bool, error) {
	if s.db == nil || deviceID == "" {
		return model.GeoPoint{}, false, nil
	}
	var ts string
	var p model.GeoPoint
	err := s.db.QueryRowContext(ctx,
		`SELECT ts, latitude, longitude FROM measurements WHERE device_id = ? ORDER BY id DESC LIMIT 1`,
		deviceID,
	).Scan(&ts, &p.Latitude, &p.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GeoPoint{}, false, nil
	}
	if err != nil {
		return model.GeoPoint{}, false, err
	}
	parsed, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return model.GeoPoint{}, false, err
	}
	p.Timestamp = parsed.UTC()
	return p, true, nil
}
