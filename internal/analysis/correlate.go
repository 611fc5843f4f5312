// SPDX-License-Identifier: MIT

// Package analysis measures the relationship between the two output
// channels: their phase correlation and the delay of one relative to the
// other. It runs off the audio thread.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"

	"sculptor/pkg/bitint"
)

// ErrNoSignal is returned by Lag when either input is silent.
var ErrNoSignal = errors.New("no signal to correlate")

// LagResult describes the cross-correlation peak.
type LagResult struct {
	// Samples is how far b trails a, with sub-sample precision. Negative
	// means b leads.
	Samples float64
	// Coefficient is the normalized correlation at the peak in [-1, 1]. A
	// negative value means the channels are inverted relative to each other.
	Coefficient float64
}

// Correlator estimates inter-channel delay by FFT cross-correlation. Buffers
// are sized once; a Correlator is not safe for concurrent use.
type Correlator struct {
	size    int
	fftSize int
	fft     *fourier.FFT
	window  []float64

	a, b   []float64
	ca, cb []complex128
	r      []float64
}

// NewCorrelator returns a correlator analysing up to size samples per call.
func NewCorrelator(size int, win WindowFunc) (*Correlator, error) {
	if size < 2 {
		return nil, fmt.Errorf("correlation size must be at least 2, got %d", size)
	}
	// Zero padding to twice the length keeps the circular correlation from
	// wrapping.
	n := bitint.NextPowerOfTwo(2 * size)

	c := &Correlator{
		size:    size,
		fftSize: n,
		fft:     fourier.NewFFT(n),
		window:  make([]float64, size),
		a:       make([]float64, n),
		b:       make([]float64, n),
		ca:      make([]complex128, n/2+1),
		cb:      make([]complex128, n/2+1),
		r:       make([]float64, n),
	}
	applyWindow(c.window, win)
	return c, nil
}

// Size returns the analysis length.
func (c *Correlator) Size() int {
	return c.size
}

// load copies the overlapping prefix of a and b into the work buffers and
// returns its length.
func (c *Correlator) load(a, b []float32) int {
	m := min(len(a), len(b), c.size)
	clear(c.a)
	clear(c.b)
	for i := range m {
		c.a[i] = float64(a[i]) * c.window[i]
		c.b[i] = float64(b[i]) * c.window[i]
	}
	return m
}

// Correlation returns the zero-lag normalized correlation of a and b: +1 for
// identical signals, -1 for inverted, near 0 for unrelated. Silence
// returns 0.
func (c *Correlator) Correlation(a, b []float32) float64 {
	m := c.load(a, b)
	ea := floats.Dot(c.a[:m], c.a[:m])
	eb := floats.Dot(c.b[:m], c.b[:m])
	if ea == 0 || eb == 0 {
		return 0
	}
	return floats.Dot(c.a[:m], c.b[:m]) / math.Sqrt(ea*eb)
}

// Lag finds the delay of b relative to a within ±maxLag samples.
func (c *Correlator) Lag(a, b []float32, maxLag int) (LagResult, error) {
	m := c.load(a, b)
	ea := floats.Dot(c.a[:m], c.a[:m])
	eb := floats.Dot(c.b[:m], c.b[:m])
	if m == 0 || ea == 0 || eb == 0 {
		return LagResult{}, ErrNoSignal
	}
	maxLag = min(max(maxLag, 0), m-1)

	c.fft.Coefficients(c.ca, c.a)
	c.fft.Coefficients(c.cb, c.b)
	for i := range c.ca {
		c.ca[i] = cmplx.Conj(c.ca[i]) * c.cb[i]
	}
	c.fft.Sequence(c.r, c.ca)
	// Sequence leaves the result scaled by the transform length.
	floats.Scale(1/float64(c.fftSize), c.r)

	best := 0
	bestAbs := -1.0
	for k := -maxLag; k <= maxLag; k++ {
		if v := math.Abs(c.at(k)); v > bestAbs {
			best, bestAbs = k, v
		}
	}

	peak := c.at(best)
	lag := float64(best)
	if best > -maxLag && best < maxLag {
		lag += parabolicOffset(c.at(best-1), peak, c.at(best+1))
	}

	return LagResult{
		Samples:     lag,
		Coefficient: peak / math.Sqrt(ea*eb),
	}, nil
}

// at returns the correlation at lag k, mapping negative lags onto the end
// of the circular buffer.
func (c *Correlator) at(k int) float64 {
	if k < 0 {
		k += c.fftSize
	}
	return c.r[k]
}

// parabolicOffset fits a parabola through three points around a peak and
// returns the vertex offset from the centre in (-0.5, 0.5).
func parabolicOffset(y0, y1, y2 float64) float64 {
	if y1 < 0 {
		y0, y1, y2 = -y0, -y1, -y2
	}
	den := y0 - 2*y1 + y2
	if den >= 0 {
		return 0
	}
	return max(-0.5, min(0.5, 0.5*(y0-y2)/den))
}
