package vibration

import (
	"math"
	"testing"
)

func sineWave(n int, freq, rate float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / rate
		out[i] = math.Sin(2 * math.Pi * freq * t)
	}
	return out
}

func TestZeroForDegenerateInput(t *testing.T) {
	cases := []struct {
		name    string
		samples []float64
		rate    float64
	}{
		{"empty samples", nil, 100},
		{"zero rate", sineWave(100, 2, 100), 0},
		{"negative rate", sineWave(100, 2, 100), -5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Compute(tc.samples, tc.rate, 0.5, 50)
			if m.RMS != 0 || m.VDV != 0 || m.Crest != 0 {
				t.Fatalf("expected zero metrics, got %+v", m)
			}
		})
	}
}

func TestSineRMS(t *testing.T) {
	// a 2 Hz unit sine passes the default band nearly unfiltered; its RMS
	// is 1/sqrt(2)
	z := sineWave(100, 2, 100)
	m := Compute(z, 100, 0.5, 50)
	if m.RMS <= 0.6 || m.RMS >= 0.8 {
		t.Fatalf("rms = %f, want within (0.6, 0.8)", m.RMS)
	}
	if m.Crest <= 1.2 || m.Crest >= 1.8 {
		t.Fatalf("crest = %f, want near sqrt(2)", m.Crest)
	}
	if m.VDV <= 0 {
		t.Fatalf("vdv = %f, want > 0", m.VDV)
	}
}

func TestDegenerateBandAdjusted(t *testing.T) {
	z := sineWave(200, 2, 100)
	cases := []struct {
		name             string
		freqMin, freqMax float64
	}{
		{"min above max", 50, 0.5},
		{"min equals max", 10, 10},
		{"min above nyquist", 120, 130},
		{"zero band", 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := Compute(z, 100, tc.freqMin, tc.freqMax)
			if math.IsNaN(m.RMS) || math.IsInf(m.RMS, 0) {
				t.Fatalf("rms not finite: %f", m.RMS)
			}
			if math.IsNaN(m.VDV) || math.IsNaN(m.Crest) {
				t.Fatalf("metrics not finite: %+v", m)
			}
		})
	}
}

func TestShortSignalFallback(t *testing.T) {
	// far below the zero-phase padding requirement; must not panic and
	// must stay finite
	z := sineWave(10, 2, 100)
	m := Compute(z, 100, 0.5, 50)
	if math.IsNaN(m.RMS) || math.IsInf(m.RMS, 0) {
		t.Fatalf("rms not finite: %f", m.RMS)
	}
}

func TestConstantSignal(t *testing.T) {
	z := make([]float64, 100)
	for i := range z {
		z[i] = 5.0
	}
	m := Compute(z, 100, 0.5, 50)
	if m.RMS > 1e-9 {
		t.Fatalf("constant signal should filter to zero, rms = %g", m.RMS)
	}
	if m.Crest != 0 {
		t.Fatalf("crest should be 0 when rms is 0, got %f", m.Crest)
	}
}
