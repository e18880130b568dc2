package engine

import (
	"roadindexer/internal/model"
	"roadindexer/internal/vibration"
)

// roughnessScore derives the sample rate from the batch size and duration,
// runs the vibration engine, and applies the low-speed zeroing policy. The
// ingest gate has already rejected slow samples by the time this runs; the
// speed check here is a second safety net and deliberately fires after the
// metrics are computed, so the metrics are still reported for a zeroed score.
func roughnessScore(z []float64, speedKmh, intervalSec, freqMin, freqMax, minSpeedKmh float64) (float64, model.VibrationMetrics) {
	if len(z) == 0 || intervalSec <= 0 {
		return 0, model.VibrationMetrics{}
	}
	rate := float64(len(z)) / intervalSec
	if rate <= 0 {
		return 0, model.VibrationMetrics{}
	}
	m := vibration.Compute(z, rate, freqMin, freqMax)
	if speedKmh < minSpeedKmh {
		return 0, m
	}
	return m.RMS, m
}
