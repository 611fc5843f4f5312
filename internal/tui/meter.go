// SPDX-License-Identifier: MIT

// Package tui is the terminal front end: a live meter view with parameter
// controls, and a device picker.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sculptor/internal/dsp"
	"sculptor/internal/monitor"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultBarWidth = 48
	minBarWidth     = 10
	// labelWidth covers the channel label and the dB readout around a bar.
	labelWidth = 22
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4A4A4A"))

	clipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#FF3B96")).
			Bold(true)
)

// Controller is the parameter side of the engine.
type Controller interface {
	Params() dsp.ParameterSet
	SetParams(p dsp.ParameterSet)
}

type tickMsg time.Time

// MeterModel is the live meter screen. It polls the monitor on every tick
// and pushes parameter edits to the controller.
type MeterModel struct {
	title    string
	ctrl     Controller
	mon      *monitor.Monitor
	interval time.Duration
	ramp     Ramp

	frame    monitor.Frame
	controls Controls
	keys     keyMap
	help     help.Model
	barWidth int
	clipHold time.Time
}

// NewMeterModel returns a meter screen refreshing every interval.
func NewMeterModel(title string, ctrl Controller, mon *monitor.Monitor, interval time.Duration) MeterModel {
	return MeterModel{
		title:    title,
		ctrl:     ctrl,
		mon:      mon,
		interval: interval,
		ramp:     DefaultRamp(),
		keys:     defaultKeyMap(),
		help:     help.New(),
		barWidth: defaultBarWidth,
	}
}

// Frame returns the last polled frame.
func (m MeterModel) Frame() monitor.Frame {
	return m.frame
}

// Controls returns the editor state.
func (m MeterModel) Controls() Controls {
	return m.controls
}

func (m MeterModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh loop.
func (m MeterModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles ticks, resizes and key presses.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.frame = m.mon.Poll(time.Time(msg))
		if m.frame.Clipped {
			m.clipHold = time.Time(msg).Add(time.Second)
		}
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.barWidth = max(msg.Width-labelWidth, minBarWidth)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m MeterModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.ctrl.Params()
	before := p

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.controls.Next(-1)
	case key.Matches(msg, m.keys.Down):
		m.controls.Next(1)
	case key.Matches(msg, m.keys.FineUp):
		p = m.controls.Adjust(p, 1, true)
	case key.Matches(msg, m.keys.FineDown):
		p = m.controls.Adjust(p, -1, true)
	case key.Matches(msg, m.keys.Increase):
		p = m.controls.Adjust(p, 1, false)
	case key.Matches(msg, m.keys.Decrease):
		p = m.controls.Adjust(p, -1, false)
	case key.Matches(msg, m.keys.Toggle):
		p = m.controls.Toggle(p)
	case key.Matches(msg, m.keys.Reset):
		p = m.controls.Reset(p)
	case key.Matches(msg, m.keys.Bypass):
		p.Bypass = !p.Bypass
	case key.Matches(msg, m.keys.MidSide):
		p.MidSide = !p.MidSide
	case key.Matches(msg, m.keys.Link):
		sel := m.controls.Selected
		m.controls.Selected = LinkGains
		p = m.controls.Toggle(p)
		m.controls.Selected = sel
	case key.Matches(msg, m.keys.ResetPeak):
		m.mon.Reset()
		m.clipHold = time.Time{}
	}

	if p != before {
		m.ctrl.SetParams(p)
	}
	return m, nil
}

// View renders the meters, the placement indicator and the controls.
func (m MeterModel) View() string {
	var sb strings.Builder
	p := m.ctrl.Params()

	sb.WriteString(titleStyle.Render(m.title))
	if p.Bypass {
		sb.WriteString(" ")
		sb.WriteString(clipStyle.Render("BYPASS"))
	}
	if m.clipping() {
		sb.WriteString(" ")
		sb.WriteString(clipStyle.Render("CLIP"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.renderChannel("L", m.frame.Left.Level, m.frame.Left.Peak))
	sb.WriteString("\n")
	sb.WriteString(m.renderChannel("R", m.frame.Right.Level, m.frame.Right.Peak))
	sb.WriteString("\n\n")
	sb.WriteString(m.renderPlacement())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderControls(p))
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m MeterModel) clipping() bool {
	return m.frame.Clipped || (!m.clipHold.IsZero() && m.frame.Time.Before(m.clipHold))
}

func (m MeterModel) renderChannel(label string, level, peak float32) string {
	return fmt.Sprintf("%s %s %s", label, m.renderBar(level, peak), readout(level, peak))
}

// renderBar draws a gradient bar with the held peak as a brighter marker.
func (m MeterModel) renderBar(level, peak float32) string {
	w := m.barWidth
	filled := int(dsp.Clamp01(level) * float32(w))
	peakCell := -1
	if peak > 0 {
		peakCell = min(int(dsp.Clamp01(peak)*float32(w)), w-1)
	}

	var sb strings.Builder
	for i := range w {
		pos := (float32(i) + 0.5) / float32(w)
		switch {
		case i == peakCell && i >= filled:
			sb.WriteString(m.ramp.PeakStyle(peak).Render("│"))
		case i < filled:
			sb.WriteString(m.ramp.Style(pos).Render("█"))
		default:
			sb.WriteString(dimStyle.Render("·"))
		}
	}
	return sb.String()
}

// readout shows the meter values on the -60..0 dB display scale.
func readout(level, peak float32) string {
	return fmt.Sprintf("%6s %6s", displayDB(level), displayDB(peak))
}

func displayDB(v float32) string {
	if v <= 0 {
		return "-inf"
	}
	return fmt.Sprintf("%.1f", float64(v-1)*-dsp.FloorDB)
}

// renderPlacement draws a marker between L and R whose glyph follows the
// placement intensity.
func (m MeterModel) renderPlacement() string {
	pl := m.frame.Placement
	w := m.barWidth
	cell := min(int(dsp.Clamp01(pl.Position)*float32(w)), w-1)

	glyph := "●"
	switch {
	case pl.Intensity < 0.25:
		glyph = "·"
	case pl.Intensity < 0.6:
		glyph = "○"
	}

	var sb strings.Builder
	sb.WriteString("L ")
	for i := range w {
		switch {
		case i == cell:
			sb.WriteString(m.ramp.Style(pl.Intensity).Render(glyph))
		case i == w/2:
			sb.WriteString(dimStyle.Render("┼"))
		default:
			sb.WriteString(dimStyle.Render("─"))
		}
	}
	sb.WriteString(" R")
	return sb.String()
}

func (m MeterModel) renderControls(p dsp.ParameterSet) string {
	var sb strings.Builder
	for c := range numControls {
		line := fmt.Sprintf("  %-14s %s", c, m.controls.Value(p, c))
		if c == m.controls.Selected {
			line = highlightStyle.Render("▶ " + line[2:])
		} else {
			line = infoStyle.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RunMeters runs the meter screen until the user quits or ctx is done.
func RunMeters(ctx context.Context, model MeterModel) error {
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
