// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"
)

func TestDelayLineResize(t *testing.T) {
	var d DelayLine
	if !d.Resize(256, 48000) {
		t.Fatal("first Resize should allocate")
	}
	if got, want := d.Len(), 2*256+480; got != want {
		t.Errorf("Len = %d, want %d", got, want)
	}

	d.Advance(100)
	if d.Resize(128, 48000) {
		t.Error("smaller block should reuse the buffer")
	}
	if d.Pos() != 100 {
		t.Errorf("cursor moved on a no-op resize: %d", d.Pos())
	}

	if !d.Resize(128, 44100) {
		t.Error("sample rate change should reallocate")
	}
	if d.Pos() != 0 {
		t.Errorf("cursor = %d after reallocation, want 0", d.Pos())
	}

	if !d.Resize(4096, 44100) {
		t.Error("larger block should reallocate")
	}
	if !d.Fits(4096) || d.Fits(8192) {
		t.Errorf("Fits disagrees with Len %d", d.Len())
	}
}

func TestDelayLineIntegerDelay(t *testing.T) {
	var d DelayLine
	d.Resize(8, 48000)

	in := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	out := make([]float32, len(in))
	d.Write(in)
	d.ReadFractional(out, 3)
	d.Advance(len(in))

	want := []float32{0, 0, 0, 1, 2, 3, 4, 5}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out = %v, want %v", out, want)
		}
	}

	d.Write(make([]float32, 8))
	d.ReadFractional(out, 3)
	want = []float32{6, 7, 8, 0, 0, 0, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("second block = %v, want %v", out, want)
		}
	}
}

func TestDelayLineFractionalDelay(t *testing.T) {
	tests := []struct {
		name  string
		delay float64
		want  []float32
	}{
		{"Zero", 0, []float32{1, 0, 0, 0}},
		{"Half sample", 0.5, []float32{0.5, 0.5, 0, 0}},
		{"One and a quarter", 1.25, []float32{0, 0.75, 0.25, 0}},
		{"Negative clamps", -3, []float32{1, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d DelayLine
			d.Resize(4, 48000)
			out := make([]float32, 4)
			d.Write([]float32{1, 0, 0, 0})
			d.ReadFractional(out, tt.delay)
			for i := range tt.want {
				if math.Abs(float64(out[i]-tt.want[i])) > 1e-6 {
					t.Fatalf("out = %v, want %v", out, tt.want)
				}
			}
		})
	}
}

func TestDelayLineWrap(t *testing.T) {
	var d DelayLine
	d.Resize(4, 8000) // 2*4 + 80 samples
	size := d.Len()

	block := []float32{1, 2, 3, 4}
	out := make([]float32, 4)
	for range size/4 + 3 {
		d.Write(block)
		d.ReadFractional(out, 4)
		d.Advance(4)
	}
	for i := range block {
		if out[i] != block[i] {
			t.Fatalf("after wrapping out = %v, want %v", out, block)
		}
	}
	if d.Pos() >= size {
		t.Errorf("cursor %d escaped buffer of %d", d.Pos(), size)
	}
}

func TestDelayLineFlushesDenormals(t *testing.T) {
	var d DelayLine
	d.Resize(2, 48000)
	out := make([]float32, 2)
	d.Write([]float32{1e-35, -1e-38})
	d.ReadFractional(out, 0)
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("denormals survived: %v", out)
	}
}

func TestDelayLineReset(t *testing.T) {
	var d DelayLine
	d.Resize(4, 48000)
	d.Write([]float32{1, 1, 1, 1})
	d.Advance(4)
	d.Reset()

	out := make([]float32, 4)
	d.ReadFractional(out, 2)
	for _, s := range out {
		if s != 0 {
			t.Fatalf("Reset left history: %v", out)
		}
	}
	if d.Pos() != 0 {
		t.Errorf("cursor = %d after Reset", d.Pos())
	}
}

func TestDelayLineEmpty(t *testing.T) {
	var d DelayLine
	out := []float32{1, 2}
	d.ReadFractional(out, 1)
	d.Advance(10)
	if out[0] != 0 || out[1] != 0 || d.Pos() != 0 {
		t.Errorf("unallocated delay line produced %v at %d", out, d.Pos())
	}
}
