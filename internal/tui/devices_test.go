// SPDX-License-Identifier: MIT
package tui

import (
	"strings"
	"testing"

	"sculptor/internal/audio"

	tea "github.com/charmbracelet/bubbletea"
)

func testDevices() []audio.Device {
	return []audio.Device{
		{ID: 0, Name: "Built-in Microphone", MaxInputChannels: 2, DefaultSampleRate: 44100},
		{ID: 1, Name: "USB Interface", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{ID: 2, Name: "Odd Rate Box", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 32000},
	}
}

func pickerUpdate(t *testing.T, m DeviceListModel, msg tea.Msg) (DeviceListModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	dm, ok := next.(DeviceListModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return dm, cmd
}

func TestDevicePickerSelects(t *testing.T) {
	m := NewDeviceListModel(testDevices())
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})

	if !strings.Contains(m.View(), "USB Interface") {
		t.Fatal("device list not rendered")
	}

	// Input-only device cannot run the processor.
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ListScreen {
		t.Fatal("entered configuration for an input-only device")
	}

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeScreen != ConfigScreen {
		t.Fatal("enter did not open configuration")
	}
	if got := m.sampleRates[m.sampleRateIndex]; got != 48000 {
		t.Errorf("initial rate = %v, want device default 48000", got)
	}

	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("confirm did not quit")
	}

	sel, ok := m.Selection()
	if !ok {
		t.Fatal("no selection")
	}
	if sel.Device.ID != 1 || sel.SampleRate != 88200 {
		t.Errorf("selection = device %d at %v, want 1 at 88200", sel.Device.ID, sel.SampleRate)
	}
}

func TestDevicePickerBackAndQuit(t *testing.T) {
	m := NewDeviceListModel(testDevices())
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.activeScreen != ListScreen {
		t.Error("esc did not return to the list")
	}

	m, cmd := pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not quit")
	}
	if _, ok := m.Selection(); ok {
		t.Error("quitting produced a selection")
	}
}

func TestSampleRatesFor(t *testing.T) {
	rates, idx := sampleRatesFor(testDevices()[2])
	if len(rates) != len(CommonSampleRates)+1 {
		t.Fatalf("rates = %v", rates)
	}
	if rates[0] != 32000 || idx != 0 {
		t.Errorf("odd default not first: %v at %d", rates, idx)
	}
	if CommonSampleRates[0] != 44100 {
		t.Error("sampleRatesFor modified CommonSampleRates")
	}
}

func TestDevicePickerEmpty(t *testing.T) {
	m := NewDeviceListModel(nil)
	if m.View() != "Initializing..." {
		t.Errorf("view before size = %q", m.View())
	}
	m, _ = pickerUpdate(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	m, _ = pickerUpdate(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "No audio devices found.") {
		t.Error("empty list message missing")
	}
}
