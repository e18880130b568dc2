package model

import "time"

type Status string

const (
	StatusOK      Status = "ok"
	StatusIgnored Status = "ignored"
)

// Ignore reasons reported to the client alongside StatusIgnored.
const (
	ReasonIntervalTooLong = "interval too long"
	ReasonLowSpeed        = "low speed"
	ReasonDuplicate       = "duplicate"
)

// Sample is one validated batch of vertical-acceleration readings plus the
// GPS fix it was captured at.
type Sample struct {
	DeviceID    string    `json:"device_id"`
	ClientIP    string    `json:"client_ip,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	SpeedKmh    float64   `json:"speed_kmh"`
	Direction   float64   `json:"direction"`
	ZValues     []float64 `json:"z_values"`
	IntervalSec float64   `json:"interval_sec"`
	FreqMin     float64   `json:"freq_min,omitempty"`
	FreqMax     float64   `json:"freq_max,omitempty"`
	Source      string    `json:"source,omitempty"`
}

// GeoPoint is the last seen fix for a device. Overwritten on every sample,
// accepted or not.
type GeoPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// VibrationMetrics is the output of the vibration engine over one batch.
type VibrationMetrics struct {
	RMS   float64 `json:"rms"`
	VDV   float64 `json:"vdv"`
	Crest float64 `json:"crest"`
}

// Measurement is one accepted, scored sample as persisted and served.
type Measurement struct {
	ID        int64            `json:"id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	DeviceID  string           `json:"device_id"`
	ClientIP  string           `json:"client_ip,omitempty"`
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	SpeedKmh  float64          `json:"speed_kmh"`
	Direction float64          `json:"direction"`
	Roughness float64          `json:"roughness"`
	DistanceM float64          `json:"distance_m"`
	ElapsedS  float64          `json:"elapsed_s"`
	Metrics   VibrationMetrics `json:"metrics"`
}

// Outcome is the engine's answer for one sample.
type Outcome struct {
	Status      Status       `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	Roughness   float64      `json:"roughness"`
	Measurement *Measurement `json:"measurement,omitempty"`
}
