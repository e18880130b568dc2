package vibration

import (
	"math"
	"math/cmplx"
)

// butterBandpass designs an order-n Butterworth band-pass filter with cutoffs
// low and high given as fractions of the Nyquist frequency, both in (0, 1).
// The digital transfer function is obtained from the analog prototype via the
// low-pass to band-pass transform and the bilinear transform. Returned
// coefficient slices are ordered by increasing delay, with a[0] == 1.
func butterBandpass(order int, low, high float64) (b, a []float64) {
	// prewarp the band edges; with s = (z-1)/(z+1) the digital angular
	// frequency w lands on the analog frequency tan(w/2)
	w1 := math.Tan(math.Pi * low / 2)
	w2 := math.Tan(math.Pi * high / 2)
	bw := w2 - w1
	w0 := math.Sqrt(w1 * w2)

	// Butterworth prototype poles on the left half of the unit circle
	proto := make([]complex128, order)
	for k := 0; k < order; k++ {
		theta := math.Pi * float64(2*k+order+1) / float64(2*order)
		proto[k] = cmplx.Exp(complex(0, theta))
	}

	// low-pass to band-pass: each prototype pole splits into a pair
	sPoles := make([]complex128, 0, 2*order)
	for _, p := range proto {
		q := complex(bw/2, 0) * p
		d := cmplx.Sqrt(q*q - complex(w0*w0, 0))
		sPoles = append(sPoles, q+d, q-d)
	}

	// bilinear transform; the band-pass zeros land at z = +1 and z = -1
	zPoles := make([]complex128, len(sPoles))
	for i, s := range sPoles {
		zPoles[i] = (1 + s) / (1 - s)
	}
	zZeros := make([]complex128, 0, 2*order)
	for k := 0; k < order; k++ {
		zZeros = append(zZeros, 1, -1)
	}

	bc := polyFromRoots(zZeros)
	ac := polyFromRoots(zPoles)

	// normalize to unit gain at the geometric band center
	wc := 2 * math.Atan(w0)
	z := cmplx.Exp(complex(0, wc))
	g := cmplx.Abs(evalPoly(ac, z)) / cmplx.Abs(evalPoly(bc, z))

	b = make([]float64, len(bc))
	for i, c := range bc {
		b[i] = real(c) * g
	}
	a = make([]float64, len(ac))
	for i, c := range ac {
		a[i] = real(c)
	}
	return b, a
}

// polyFromRoots expands a monic polynomial from its roots. Coefficients come
// back in descending powers; conjugate root pairs make the result real.
func polyFromRoots(roots []complex128) []complex128 {
	coeffs := []complex128{1}
	for _, r := range roots {
		next := make([]complex128, len(coeffs)+1)
		for i, c := range coeffs {
			next[i] += c
			next[i+1] -= c * r
		}
		coeffs = next
	}
	return coeffs
}

func evalPoly(coeffs []complex128, z complex128) complex128 {
	var acc complex128
	for _, c := range coeffs {
		acc = acc*z + c
	}
	return acc
}

// applyFilter runs a single-pass IIR filter in direct form II transposed.
func applyFilter(b, a, x []float64) []float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	bb := make([]float64, n)
	aa := make([]float64, n)
	copy(bb, b)
	copy(aa, a)
	if a0 := aa[0]; a0 != 1 && a0 != 0 {
		for i := range bb {
			bb[i] /= a0
		}
		for i := range aa {
			aa[i] /= a0
		}
	}

	z := make([]float64, n-1)
	y := make([]float64, len(x))
	for i, xv := range x {
		yv := bb[0] * xv
		if n > 1 {
			yv += z[0]
		}
		for j := 1; j < n-1; j++ {
			z[j-1] = bb[j]*xv + z[j] - aa[j]*yv
		}
		if n > 1 {
			z[n-2] = bb[n-1]*xv - aa[n-1]*yv
		}
		y[i] = yv
	}
	return y
}

// padLength is the edge extension the zero-phase pass needs on each side.
// Inputs no longer than this take the single-pass path instead.
func padLength(b, a []float64) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	return 3 * n
}

// filtfilt applies the filter forward and backward for zero phase distortion.
// The input is extended at both ends with an odd reflection of padLength
// samples to suppress startup transients. The caller must guarantee
// len(x) > padLength(b, a).
func filtfilt(b, a, x []float64) []float64 {
	padLen := padLength(b, a)
	ext := make([]float64, 0, len(x)+2*padLen)
	for i := padLen; i >= 1; i-- {
		ext = append(ext, 2*x[0]-x[i])
	}
	ext = append(ext, x...)
	last := len(x) - 1
	for i := 1; i <= padLen; i++ {
		ext = append(ext, 2*x[last]-x[last-i])
	}

	y := applyFilter(b, a, ext)
	reverse(y)
	y = applyFilter(b, a, y)
	reverse(y)
	return y[padLen : padLen+len(x)]
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
