package normalize

import (
	"math"
	"testing"
	"time"

	"roadindexer/internal/config"
)

func fptr(v float64) *float64 { return &v }

func validPayload() SamplePayload {
	return SamplePayload{
		DeviceID:    "bike-1",
		Timestamp:   "2026-05-10T12:00:00Z",
		Latitude:    55.6761,
		Longitude:   12.5683,
		SpeedKmh:    fptr(18),
		ZValues:     []float64{0.1, -0.2, 0.3},
		IntervalSec: fptr(1.0),
	}
}

func TestNormalizeValid(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := Normalize(validPayload(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DeviceID != "bike-1" {
		t.Fatalf("device = %q", s.DeviceID)
	}
	if s.SpeedKmh != 18 || s.IntervalSec != 1.0 {
		t.Fatalf("speed/interval = %f/%f", s.SpeedKmh, s.IntervalSec)
	}
	want := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	if !s.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %v, want %v", s.Timestamp, want)
	}
}

func TestNormalizeDefaultDevice(t *testing.T) {
	cfg := config.DefaultConfig()
	p := validPayload()
	p.DeviceID = "  "
	s, err := Normalize(p, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.DeviceID != cfg.Ingest.Decoder.DefaultDeviceID {
		t.Fatalf("device = %q, want default %q", s.DeviceID, cfg.Ingest.Decoder.DefaultDeviceID)
	}
}

func TestNormalizeLegacyFieldNames(t *testing.T) {
	cfg := config.DefaultConfig()
	p := validPayload()
	p.SpeedKmh = nil
	p.Speed = fptr(12)
	p.IntervalSec = nil
	p.Interval = fptr(2.0)
	s, err := Normalize(p, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.SpeedKmh != 12 || s.IntervalSec != 2.0 {
		t.Fatalf("speed/interval = %f/%f, want legacy fields honored", s.SpeedKmh, s.IntervalSec)
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	cfg := config.DefaultConfig()
	cases := []struct {
		name   string
		mutate func(*SamplePayload)
	}{
		{"latitude too large", func(p *SamplePayload) { p.Latitude = 91 }},
		{"latitude nan", func(p *SamplePayload) { p.Latitude = math.NaN() }},
		{"longitude too small", func(p *SamplePayload) { p.Longitude = -181 }},
		{"nan acceleration", func(p *SamplePayload) { p.ZValues = []float64{0.1, math.NaN()} }},
		{"infinite acceleration", func(p *SamplePayload) { p.ZValues = []float64{math.Inf(1)} }},
		{"nan speed", func(p *SamplePayload) { p.SpeedKmh = fptr(math.NaN()) }},
		{"garbage timestamp", func(p *SamplePayload) { p.Timestamp = "yesterday-ish" }},
		{"oversized batch", func(p *SamplePayload) { p.ZValues = make([]float64, cfg.Ingest.Decoder.MaxBatchSamples+1) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := validPayload()
			tc.mutate(&p)
			if _, err := Normalize(p, cfg); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", "2026-05-10T12:00:00Z", time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)},
		{"space separated", "2026-05-10 12:00:00", time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)},
		{"unix seconds", "1778760000", time.Unix(1778760000, 0).UTC()},
		{"unix milliseconds", "1778760000123", time.Unix(0, 1778760000123*int64(time.Millisecond)).UTC()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimestamp(tc.value, time.UTC)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("parsed %v, want %v", got, tc.want)
			}
		})
	}

	if _, err := ParseTimestamp("", time.UTC); err == nil {
		t.Fatal("empty timestamp should error")
	}
}
