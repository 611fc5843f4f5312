// SPDX-License-Identifier: MIT
package render

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"sculptor/internal/dsp"
)

// WriteYAML writes the full report, trace included.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

// Summary renders the headline numbers for a terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d Hz, %d ch %d-bit in, %d-bit stereo out, %s (%d frames)\n",
		r.SampleRate, r.InputChannels, r.InputBitDepth, r.BitDepth,
		r.Duration.Round(1e6), r.Frames)
	fmt.Fprintf(&b, "level  L %s  R %s\n", formatLevel(r.MaxLeft), formatLevel(r.MaxRight))
	fmt.Fprintf(&b, "peak   L %s  R %s\n", formatLevel(r.PeakLeft), formatLevel(r.PeakRight))
	fmt.Fprintf(&b, "clipped blocks %d/%d\n", r.ClippedBlocks, r.Blocks)
	fmt.Fprintf(&b, "correlation %+.3f, right lag %.2f samples (coefficient %+.3f)",
		r.Correlation, r.LagSamples, r.LagCoefficient)
	return b.String()
}

// formatLevel shows a normalized level as dBFS.
func formatLevel(level float32) string {
	db := dsp.FloorDB + float64(level)*-dsp.FloorDB
	if level <= 0 {
		return fmt.Sprintf("<%.0f dB", dsp.FloorDB)
	}
	return fmt.Sprintf("%.1f dB", db)
}
