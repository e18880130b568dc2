// Package vibration turns a vertical-acceleration time series into scalar
// vibration metrics: RMS, vibration dose value, and crest factor. The input
// is band-pass filtered first to isolate road-induced frequencies from DC
// drift and high-frequency sensor noise.
package vibration

import (
	"math"

	"roadindexer/internal/model"
)

// filterOrder is the order of the Butterworth band-pass prototype.
const filterOrder = 4

// Compute filters the samples through a Butterworth band-pass and reduces
// the result to RMS, VDV and crest factor. It never fails: degenerate input
// (empty samples or a non-positive rate) yields the zero value, and signals
// too short for zero-phase filtering fall back to a single forward pass.
func Compute(samples []float64, sampleRate, freqMin, freqMax float64) model.VibrationMetrics {
	if sampleRate <= 0 || len(samples) == 0 {
		return model.VibrationMetrics{}
	}

	// remove DC offset
	mean := 0.0
	for _, v := range samples {
		mean += v
	}
	mean /= float64(len(samples))
	x := make([]float64, len(samples))
	for i, v := range samples {
		x[i] = v - mean
	}

	nyq := 0.5 * sampleRate
	low := math.Max(freqMin/nyq, 1e-4)
	if low > 0.98 {
		low = 0.98
	}
	high := math.Min(freqMax/nyq, 0.99)
	if high <= low {
		// degenerate band requested; widen just enough to keep the
		// design well-posed
		high = math.Min(low+0.01, 0.99)
	}

	b, a := butterBandpass(filterOrder, low, high)
	var filtered []float64
	if len(x) > padLength(b, a) {
		filtered = filtfilt(b, a, x)
	} else {
		// too short for the zero-phase edge extension
		filtered = applyFilter(b, a, x)
	}

	var sumSq, sumQuad, peak float64
	for _, v := range filtered {
		sumSq += v * v
		sumQuad += v * v * v * v
		if av := math.Abs(v); av > peak {
			peak = av
		}
	}
	rms := math.Sqrt(sumSq / float64(len(filtered)))
	vdv := math.Pow(sumQuad/sampleRate, 0.25)
	crest := 0.0
	if rms != 0 {
		crest = peak / rms
	}
	return model.VibrationMetrics{RMS: rms, VDV: vdv, Crest: crest}
}
