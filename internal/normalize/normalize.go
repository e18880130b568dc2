// Package normalize validates raw sample envelopes and converts them into
// the model the engine consumes. Malformed geometry and non-finite readings
// are rejected here so the processing core never sees them.
package normalize

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"roadindexer/internal/config"
	"roadindexer/internal/model"
)

// SamplePayload is the wire envelope accepted from every ingest source.
// Older firmware sends "speed" and "interval" instead of the suffixed keys;
// both spellings are accepted.
type SamplePayload struct {
	DeviceID    string    `json:"device_id"`
	Timestamp   string    `json:"timestamp,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SpeedKmh    *float64  `json:"speed_kmh,omitempty"`
	Speed       *float64  `json:"speed,omitempty"`
	Direction   float64   `json:"direction"`
	ZValues     []float64 `json:"z_values"`
	IntervalSec *float64  `json:"interval_sec,omitempty"`
	Interval    *float64  `json:"interval,omitempty"`
	FreqMin     float64   `json:"freq_min,omitempty"`
	FreqMax     float64   `json:"freq_max,omitempty"`
}

func Normalize(p SamplePayload, cfg *config.Config) (model.Sample, error) {
	device := strings.TrimSpace(p.DeviceID)
	if device == "" {
		device = cfg.Ingest.Decoder.DefaultDeviceID
	}

	if math.IsNaN(p.Latitude) || p.Latitude < -90 || p.Latitude > 90 {
		return model.Sample{}, fmt.Errorf("latitude out of range: %v", p.Latitude)
	}
	if math.IsNaN(p.Longitude) || p.Longitude < -180 || p.Longitude > 180 {
		return model.Sample{}, fmt.Errorf("longitude out of range: %v", p.Longitude)
	}
	if limit := cfg.Ingest.Decoder.MaxBatchSamples; len(p.ZValues) > limit {
		return model.Sample{}, fmt.Errorf("batch of %d samples exceeds limit %d", len(p.ZValues), limit)
	}
	for i, v := range p.ZValues {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Sample{}, fmt.Errorf("non-finite acceleration at index %d", i)
		}
	}

	loc := time.UTC
	if cfg.Ingest.Decoder.Timezone != "" {
		if l, err := time.LoadLocation(cfg.Ingest.Decoder.Timezone); err == nil {
			loc = l
		}
	}
	ts := time.Now().UTC()
	if p.Timestamp != "" {
		parsed, err := ParseTimestamp(p.Timestamp, loc)
		if err != nil {
			return model.Sample{}, fmt.Errorf("parse timestamp: %w", err)
		}
		ts = parsed.UTC()
	}

	speed := 0.0
	if p.SpeedKmh != nil {
		speed = *p.SpeedKmh
	} else if p.Speed != nil {
		speed = *p.Speed
	}
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return model.Sample{}, errors.New("non-finite speed")
	}

	interval := 0.0
	if p.IntervalSec != nil {
		interval = *p.IntervalSec
	} else if p.Interval != nil {
		interval = *p.Interval
	}

	return model.Sample{
		DeviceID:    device,
		Timestamp:   ts,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		SpeedKmh:    speed,
		Direction:   p.Direction,
		ZValues:     p.ZValues,
		IntervalSec: interval,
		FreqMin:     p.FreqMin,
		FreqMax:     p.FreqMax,
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
}

func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if isNumeric(value) {
		if ts, err := parseUnix(value); err == nil {
			return ts, nil
		}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}

func isNumeric(value string) bool {
	for _, ch := range value {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return len(value) > 0
}

func parseUnix(value string) (time.Time, error) {
	if len(value) >= 13 {
		ms, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(0, ms*int64(time.Millisecond)).UTC(), nil
	}
	sec, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0).UTC(), nil
}
