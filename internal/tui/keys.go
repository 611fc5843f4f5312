// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Increase  key.Binding
	Decrease  key.Binding
	FineUp    key.Binding
	FineDown  key.Binding
	Toggle    key.Binding
	Reset     key.Binding
	Bypass    key.Binding
	MidSide   key.Binding
	Link      key.Binding
	ResetPeak key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "prev control"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next control"),
		),
		Increase: key.NewBinding(
			key.WithKeys("right", "l", "+"),
			key.WithHelp("→/l", "increase"),
		),
		Decrease: key.NewBinding(
			key.WithKeys("left", "h", "-"),
			key.WithHelp("←/h", "decrease"),
		),
		FineUp: key.NewBinding(
			key.WithKeys("shift+right", "L"),
			key.WithHelp("shift+→", "fine increase"),
		),
		FineDown: key.NewBinding(
			key.WithKeys("shift+left", "H"),
			key.WithHelp("shift+←", "fine decrease"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "toggle"),
		),
		Reset: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset control"),
		),
		Bypass: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "bypass"),
		),
		MidSide: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mid/side"),
		),
		Link: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "link L/R"),
		),
		ResetPeak: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "reset meters"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Increase, k.Decrease, k.Toggle, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle, k.Reset},
		{k.Increase, k.Decrease, k.FineUp, k.FineDown},
		{k.Bypass, k.MidSide, k.Link, k.ResetPeak},
		{k.Help, k.Quit},
	}
}
