package tui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "ctrl+c":
		return true
	}
	return false
}

func helpText(canStop bool) string {
	s := "space play/pause  o open  l preview"
	if canStop {
		s += "  s stop"
	}
	s += "  q quit"
	return s
}
