// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"math"
	"testing"

	"sculptor/internal/dsp"
	"sculptor/pkg/utils"
)

const (
	testSampleRate = 48000
	testSize       = 4096
)

func shift(x []float32, d int) []float32 {
	out := make([]float32, len(x))
	for i := range out {
		if j := i - d; j >= 0 && j < len(x) {
			out[i] = x[j]
		}
	}
	return out
}

func newTestCorrelator(t testing.TB) *Correlator {
	t.Helper()
	c, err := NewCorrelator(testSize, Rectangular)
	if err != nil {
		t.Fatalf("NewCorrelator: %v", err)
	}
	return c
}

func TestLagIntegerShift(t *testing.T) {
	c := newTestCorrelator(t)
	noise := utils.GenerateNoise(testSize, 7, 0.5)

	tests := []struct {
		name     string
		a, b     []float32
		wantLag  float64
		wantSign float64
	}{
		{"Identical", noise, noise, 0, 1},
		{"B trails by 10", noise, shift(noise, 10), 10, 1},
		{"B leads by 25", shift(noise, 25), noise, -25, 1},
		{"Inverted", noise, invert(noise), 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Lag(tt.a, tt.b, 100)
			if err != nil {
				t.Fatalf("Lag: %v", err)
			}
			if math.Abs(res.Samples-tt.wantLag) > 0.25 {
				t.Errorf("lag = %.3f, want %v", res.Samples, tt.wantLag)
			}
			if res.Coefficient*tt.wantSign < 0.9 {
				t.Errorf("coefficient = %.3f, want sign %v near 1", res.Coefficient, tt.wantSign)
			}
		})
	}
}

// TestLagProcessorPhaseOffset runs noise through the processor with a
// 32.4 degree offset at 48 kHz, which delays the right channel by 43.2
// samples.
func TestLagProcessorPhaseOffset(t *testing.T) {
	const blockSize = 512
	proc, err := dsp.NewProcessor(testSampleRate, blockSize)
	if err != nil {
		t.Fatal(err)
	}
	params := dsp.DefaultParameterSet()
	params.PhaseOffsetDegrees = 32.4

	src := utils.GenerateNoise(testSize, 3, 0.5)
	left := make([]float32, testSize)
	right := make([]float32, testSize)
	copy(left, src)
	copy(right, src)
	for off := 0; off < testSize; off += blockSize {
		proc.Process([][]float32{left[off : off+blockSize], right[off : off+blockSize]}, blockSize, params)
	}

	c := newTestCorrelator(t)
	res, err := c.Lag(left, right, 200)
	if err != nil {
		t.Fatalf("Lag: %v", err)
	}
	if math.Abs(res.Samples-43.2) > 1 {
		t.Errorf("lag = %.2f samples, want 43.2 ±1", res.Samples)
	}
	if res.Coefficient < 0.8 {
		t.Errorf("coefficient = %.3f, want > 0.8", res.Coefficient)
	}
}

func TestLagMaxLagLimitsSearch(t *testing.T) {
	c := newTestCorrelator(t)
	noise := utils.GenerateNoise(testSize, 11, 0.5)

	res, err := c.Lag(noise, shift(noise, 50), 10)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Samples) > 10 {
		t.Errorf("lag %.2f outside ±10", res.Samples)
	}
	if math.Abs(res.Coefficient) > 0.5 {
		t.Errorf("coefficient %.3f too high for an out-of-range shift", res.Coefficient)
	}
}

func TestLagSilence(t *testing.T) {
	c := newTestCorrelator(t)
	silence := make([]float32, testSize)
	noise := utils.GenerateNoise(testSize, 1, 0.5)

	for _, tc := range [][2][]float32{{silence, noise}, {noise, silence}, {nil, noise}} {
		if _, err := c.Lag(tc[0], tc[1], 10); !errors.Is(err, ErrNoSignal) {
			t.Errorf("err = %v, want ErrNoSignal", err)
		}
	}
}

func TestCorrelation(t *testing.T) {
	c := newTestCorrelator(t)
	sine := utils.GenerateSineWave(testSize, testSampleRate, 1000, 0.5)
	noiseA := utils.GenerateNoise(testSize, 1, 0.5)
	noiseB := utils.GenerateNoise(testSize, 99, 0.5)

	// 43.2 samples of a 1 kHz tone at 48 kHz is 324 degrees.
	delayed := make([]float32, testSize)
	for i := range delayed {
		delayed[i] = float32(0.5 * math.Sin(2*math.Pi*1000*(float64(i)-43.2)/testSampleRate))
	}

	tests := []struct {
		name string
		a, b []float32
		want float64
		tol  float64
	}{
		{"Identical", sine, sine, 1, 1e-9},
		{"Inverted", sine, invert(sine), -1, 1e-9},
		{"Delayed tone", sine, delayed, math.Cos(2 * math.Pi * 0.9), 0.02},
		{"Unrelated noise", noiseA, noiseB, 0, 0.1},
		{"Silence", sine, make([]float32, testSize), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Correlation(tt.a, tt.b); math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Correlation = %.4f, want %.4f", got, tt.want)
			}
		})
	}
}

func TestNewCorrelator(t *testing.T) {
	if _, err := NewCorrelator(1, Hann); err == nil {
		t.Error("expected error for size 1")
	}
	c, err := NewCorrelator(1000, Hann)
	if err != nil {
		t.Fatal(err)
	}
	if c.fftSize != 2048 || c.Size() != 1000 {
		t.Errorf("fftSize = %d, Size = %d", c.fftSize, c.Size())
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		in      string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{" Blackman ", Blackman, false},
		{"", Rectangular, false},
		{"kaiser", Rectangular, true},
	}
	for _, tt := range tests {
		got, err := ParseWindowFunc(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseWindowFunc(%q) = %v, %v", tt.in, got, err)
		}
	}
	if Hann.String() != "hann" || WindowFunc(99).String() != "WindowFunc(99)" {
		t.Errorf("String() = %q, %q", Hann.String(), WindowFunc(99).String())
	}
}

func TestWindowedCorrelationStillFindsLag(t *testing.T) {
	c, err := NewCorrelator(testSize, Hann)
	if err != nil {
		t.Fatal(err)
	}
	noise := utils.GenerateNoise(testSize, 5, 0.5)
	res, err := c.Lag(noise, shift(noise, 17), 64)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.Samples-17) > 0.5 {
		t.Errorf("lag = %.2f, want 17", res.Samples)
	}
}

func BenchmarkLag(b *testing.B) {
	c := newTestCorrelator(b)
	noise := utils.GenerateNoise(testSize, 7, 0.5)
	delayed := shift(noise, 43)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		c.Lag(noise, delayed, 256)
	}
}

func invert(x []float32) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = -v
	}
	return out
}
