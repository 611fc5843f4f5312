// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"sync"
	"testing"
)

func TestSampleRingCapacity(t *testing.T) {
	tests := []struct {
		minSize int
		want    int
	}{
		{1, 1},
		{100, 128},
		{1024, 1024},
		{96000 * 2, 262144},
	}
	for _, tt := range tests {
		if got := NewSampleRing(tt.minSize).Cap(); got != tt.want {
			t.Errorf("NewSampleRing(%d).Cap() = %d, want %d", tt.minSize, got, tt.want)
		}
	}
}

func TestSampleRingInterleaves(t *testing.T) {
	r := NewSampleRing(16)
	left := []float32{1, 2, 3}
	right := []float32{-1, -2, -3}

	if err := r.WriteInterleaved([][]float32{left, right}, 3); err != nil {
		t.Fatalf("WriteInterleaved: %v", err)
	}
	if r.Len() != 6 {
		t.Fatalf("Len = %d, want 6", r.Len())
	}

	dst := make([]float32, 4)
	if n := r.Read(dst); n != 4 {
		t.Fatalf("Read = %d, want 4", n)
	}
	want := []float32{1, -1, 2, -2}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("Read = %v, want %v", dst, want)
		}
	}
	if n := r.Read(dst); n != 2 || dst[0] != 3 || dst[1] != -3 {
		t.Errorf("second Read = %d %v", n, dst[:n])
	}
	if n := r.Read(dst); n != 0 {
		t.Errorf("empty ring returned %d samples", n)
	}
}

func TestSampleRingOverrun(t *testing.T) {
	r := NewSampleRing(8)
	block := [][]float32{{1, 2, 3}, {4, 5, 6}}

	if err := r.WriteInterleaved(block, 3); err != nil {
		t.Fatalf("first block: %v", err)
	}
	if err := r.WriteInterleaved(block, 3); !errors.Is(err, ErrRingOverrun) {
		t.Fatalf("expected overrun, got %v", err)
	}
	if r.Overruns() != 1 || r.Len() != 6 {
		t.Errorf("overruns = %d, len = %d", r.Overruns(), r.Len())
	}

	// Reading frees space again, across the wrap point.
	r.Read(make([]float32, 6))
	if err := r.WriteInterleaved(block, 3); err != nil {
		t.Fatalf("write after drain: %v", err)
	}
	dst := make([]float32, 6)
	r.Read(dst)
	if dst[0] != 1 || dst[5] != 6 {
		t.Errorf("wrapped read = %v", dst)
	}
}

func TestSampleRingShortChannel(t *testing.T) {
	r := NewSampleRing(16)
	if err := r.WriteInterleaved([][]float32{{1, 2, 3}, {4}}, 3); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want one frame", r.Len())
	}
	if err := r.WriteInterleaved(nil, 3); err != nil || r.Len() != 2 {
		t.Errorf("empty write changed the ring: %v", err)
	}
}

func TestSampleRingConcurrent(t *testing.T) {
	r := NewSampleRing(256)
	const blocks = 2000
	block := [][]float32{make([]float32, 16), make([]float32, 16)}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for b := range blocks {
			for i := range block[0] {
				block[0][i] = float32(b)
				block[1][i] = float32(-b)
			}
			for r.WriteInterleaved(block, 16) != nil {
			}
		}
	}()

	dst := make([]float32, 64)
	received := 0
	last := float32(0)
	for received < blocks*32 {
		n := r.Read(dst)
		for i := 0; i < n; i += 2 {
			if dst[i] < last || dst[i+1] != -dst[i] {
				t.Fatalf("out of order or torn frame: %v %v after %v", dst[i], dst[i+1], last)
			}
			last = dst[i]
		}
		received += n
	}
	wg.Wait()
}

func TestSampleRingHotPath(t *testing.T) {
	r := NewSampleRing(4096)
	block := [][]float32{make([]float32, 256), make([]float32, 256)}
	dst := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		_ = r.WriteInterleaved(block, 256)
		r.Read(dst)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in ring hot path, got %.1f", allocs)
	}
}

func BenchmarkSampleRing(b *testing.B) {
	r := NewSampleRing(4096)
	block := [][]float32{make([]float32, 512), make([]float32, 512)}
	dst := make([]float32, 1024)

	b.ReportAllocs()
	for b.Loop() {
		_ = r.WriteInterleaved(block, 512)
		r.Read(dst)
	}
}
