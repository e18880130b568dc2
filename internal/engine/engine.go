package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"roadindexer/internal/config"
	"roadindexer/internal/devices"
	"roadindexer/internal/geo"
	"roadindexer/internal/measurements"
	"roadindexer/internal/model"
	"roadindexer/internal/storage"
)

// defaultElapsedSec stands in for the elapsed time when a device has no
// previous point, or when clock skew produces a non-positive delta.
const defaultElapsedSec = 2.0

// Engine applies point acceptance and speed inference to incoming samples,
// scores the accepted ones, and hands results to the stores.
type Engine struct {
	logger       *slog.Logger
	measurements *measurements.Store
	devices      *devices.Store
	store        storage.Store
	source       PointSource
	cfg          atomic.Value
	points       *pointCache
	deDupe       *DedupeCache
	started      time.Time
}

func NewEngine(cfg *config.Config, logger *slog.Logger, measurementsStore *measurements.Store, devicesStore *devices.Store, store storage.Store) *Engine {
	e := &Engine{
		logger:       logger,
		measurements: measurementsStore,
		devices:      devicesStore,
		store:        store,
		points:       newPointCache(),
		deDupe:       NewDedupeCache(),
		started:      time.Now().UTC(),
	}
	if store != nil {
		e.source = store
	}
	e.cfg.Store(cfg)
	return e
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
}

func (e *Engine) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

func (e *Engine) Start(ctx context.Context, in <-chan model.Sample) {
	go func() {
		for {
			select {
			case s := <-in:
				e.ProcessSample(ctx, s)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ProcessSample gates one sample against the current thresholds and, when it
// passes, computes its roughness score and records the measurement. The
// last-point cache is updated to the new fix on every path, accepted or not.
func (e *Engine) ProcessSample(ctx context.Context, s model.Sample) model.Outcome {
	cfg := e.config()
	th := cfg.Thresholds

	now := s.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if th.DedupeWindow > 0 && e.deDupe.Seen(hashSample(s, now), time.Now().UTC(), th.DedupeWindow) {
		return model.Outcome{Status: model.StatusIgnored, Reason: model.ReasonDuplicate}
	}

	prev, havePrev := e.lastPoint(ctx, s.DeviceID)
	defer e.points.put(s.DeviceID, model.GeoPoint{Timestamp: now, Latitude: s.Latitude, Longitude: s.Longitude})

	elapsed := defaultElapsedSec
	distM := 0.0
	computedKmh := 0.0
	if havePrev {
		elapsed = now.Sub(prev.Timestamp).Seconds()
		if elapsed <= 0 {
			if e.logger != nil {
				e.logger.Warn("non-positive elapsed time, clamping",
					"device_id", s.DeviceID,
					"elapsed_s", elapsed,
				)
			}
			elapsed = defaultElapsedSec
		}
		distKm := geo.DistanceKm(prev.Latitude, prev.Longitude, s.Latitude, s.Longitude)
		distM = distKm * 1000.0
		computedKmh = distKm / (elapsed / 3600.0)
	}

	// a dead or missing GPS speed field still qualifies when the actual
	// displacement says the device was moving
	effectiveKmh := s.SpeedKmh
	if (s.SpeedKmh <= 0 || s.SpeedKmh < th.MinSpeedKmh) && computedKmh >= th.MinSpeedKmh {
		effectiveKmh = computedKmh
	}

	if elapsed > th.MaxIntervalSec || distM > th.MaxDistanceM {
		return e.ignore(s, now, model.ReasonIntervalTooLong, elapsed, distM)
	}
	if effectiveKmh < th.MinSpeedKmh {
		return e.ignore(s, now, model.ReasonLowSpeed, elapsed, distM)
	}

	freqMin := s.FreqMin
	if freqMin <= 0 {
		freqMin = th.FreqMin
	}
	freqMax := s.FreqMax
	if freqMax <= 0 {
		freqMax = th.FreqMax
	}
	score, vm := roughnessScore(s.ZValues, effectiveKmh, s.IntervalSec, freqMin, freqMax, th.MinSpeedKmh)

	m := model.Measurement{
		Timestamp: now,
		DeviceID:  s.DeviceID,
		ClientIP:  s.ClientIP,
		Latitude:  s.Latitude,
		Longitude: s.Longitude,
		SpeedKmh:  effectiveKmh,
		Direction: s.Direction,
		Roughness: score,
		DistanceM: distM,
		ElapsedS:  elapsed,
		Metrics:   vm,
	}
	if e.store != nil {
		id, err := e.store.SaveMeasurement(ctx, m)
		if err != nil {
			if e.logger != nil {
				e.logger.Error("save measurement failed", "device_id", s.DeviceID, "err", err)
			}
		} else {
			m.ID = id
		}
	}
	if e.measurements != nil {
		e.measurements.Add(m)
	}
	if e.devices != nil {
		e.devices.Observe(s.DeviceID, model.GeoPoint{Timestamp: now, Latitude: s.Latitude, Longitude: s.Longitude}, model.StatusOK, "", score)
	}
	if e.logger != nil {
		e.logger.Info("sample accepted",
			"device_id", s.DeviceID,
			"roughness", score,
			"speed_kmh", effectiveKmh,
			"distance_m", distM,
			"samples", len(s.ZValues),
			"source", s.Source,
		)
	}
	return model.Outcome{Status: model.StatusOK, Roughness: score, Measurement: &m}
}

func (e *Engine) ignore(s model.Sample, now time.Time, reason string, elapsed, distM float64) model.Outcome {
	if e.devices != nil {
		e.devices.Observe(s.DeviceID, model.GeoPoint{Timestamp: now, Latitude: s.Latitude, Longitude: s.Longitude}, model.StatusIgnored, reason, 0)
	}
	if e.logger != nil {
		e.logger.Debug("sample ignored",
			"device_id", s.DeviceID,
			"reason", reason,
			"elapsed_s", elapsed,
			"distance_m", distM,
			"source", s.Source,
		)
	}
	return model.Outcome{Status: model.StatusIgnored, Reason: reason}
}

// lastPoint resolves the previous fix for a device: in-memory first, then
// the persistent store. A lookup failure is logged and treated as a first
// fix; the sample stays processable without distance or speed inference.
func (e *Engine) lastPoint(ctx context.Context, deviceID string) (model.GeoPoint, bool) {
	if p, ok := e.points.get(deviceID); ok {
		return p, true
	}
	if e.source == nil {
		return model.GeoPoint{}, false
	}
	p, ok, err := e.source.LastPoint(ctx, deviceID)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("last point lookup failed, treating as first fix", "device_id", deviceID, "err", err)
		}
		return model.GeoPoint{}, false
	}
	if ok {
		e.points.put(deviceID, p)
	}
	return p, ok
}

func (e *Engine) Reset() {
	e.points.clear()
	e.deDupe = NewDedupeCache()
}

func hashSample(s model.Sample, now time.Time) string {
	parts := []string{
		s.DeviceID,
		strconv.FormatFloat(s.Latitude, 'f', -1, 64),
		strconv.FormatFloat(s.Longitude, 'f', -1, 64),
		strconv.Itoa(len(s.ZValues)),
		now.UTC().Format(time.RFC3339Nano),
	}
	h := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h[:])
}
