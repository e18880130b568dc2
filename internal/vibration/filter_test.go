package vibration

import (
	"math"
	"testing"
)

func rmsOf(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestButterBandpassCoefficientShape(t *testing.T) {
	b, a := butterBandpass(4, 0.16, 0.24)
	if len(b) != 9 || len(a) != 9 {
		t.Fatalf("coefficient lengths = %d/%d, want 9/9 for order 4", len(b), len(a))
	}
	if math.Abs(a[0]-1) > 1e-9 {
		t.Fatalf("a[0] = %g, want 1", a[0])
	}
	for i := range b {
		if math.IsNaN(b[i]) || math.IsNaN(a[i]) {
			t.Fatalf("non-finite coefficient at %d: b=%g a=%g", i, b[i], a[i])
		}
	}
}

func TestBandpassSelectivity(t *testing.T) {
	// 8-12 Hz band at a 100 Hz sample rate
	b, a := butterBandpass(4, 8.0/50.0, 12.0/50.0)

	inBand := filtfilt(b, a, sineWave(1000, 10, 100))
	if r := rmsOf(inBand); r <= 0.6 || r >= 0.8 {
		t.Fatalf("in-band rms = %f, want near 1/sqrt(2)", r)
	}

	outOfBand := filtfilt(b, a, sineWave(1000, 2, 100))
	if r := rmsOf(outOfBand); r >= 0.1 {
		t.Fatalf("out-of-band rms = %f, want strong attenuation", r)
	}
}

func TestApplyFilterPassthrough(t *testing.T) {
	x := sineWave(50, 2, 100)
	y := applyFilter([]float64{1}, []float64{1}, x)
	if len(y) != len(x) {
		t.Fatalf("output length %d, want %d", len(y), len(x))
	}
	for i := range x {
		if math.Abs(y[i]-x[i]) > 1e-12 {
			t.Fatalf("identity filter changed sample %d: %g != %g", i, y[i], x[i])
		}
	}
}

func TestFiltfiltPreservesLength(t *testing.T) {
	b, a := butterBandpass(4, 0.01, 0.99)
	x := sineWave(100, 2, 100)
	y := filtfilt(b, a, x)
	if len(y) != len(x) {
		t.Fatalf("output length %d, want %d", len(y), len(x))
	}
}

func TestPadLength(t *testing.T) {
	b, a := butterBandpass(4, 0.01, 0.99)
	if got := padLength(b, a); got != 27 {
		t.Fatalf("padLength = %d, want 27 for order 4", got)
	}
}
