package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/ports"
)

const defaultWidth = 60

// Model is the Bubble Tea model for the bars view.
type Model struct {
	view    *View
	intents ports.Intents
	rows    int
	width   int

	levels domain.Levels
	state  domain.VisualizerState
	info   domain.SourceInfo
	status domain.PlaybackStatus

	errTitle string
	errText  string
	errSeq   uint64

	prompting bool
	input     textinput.Model
	quitting  bool
}

func newModel(v *View, intents ports.Intents, rows int) Model {
	ti := textinput.New()
	ti.Prompt = "open: "
	ti.Placeholder = "path/to/file.mp3"
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	m := Model{
		view:    v,
		intents: intents,
		rows:    rows,
		width:   defaultWidth,
		input:   ti,
	}
	return m.pull()
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.view.wait(), tea.SetWindowTitle(windowTitle(m.info)))
}

// pull copies the view's latest snapshot into the model.
func (m Model) pull() Model {
	s := m.view.latest()
	m.levels = s.levels
	m.state = s.state
	m.status = s.status
	m.info = s.info
	if s.errSeq != m.errSeq {
		m.errSeq = s.errSeq
		m.errTitle = s.errTitle
		m.errText = s.errText
	}
	return m
}

// intent runs fn off the event loop. Services publish events synchronously, and
// the presenter calls back into the view from those handlers.
func (m Model) intent(fn func(ports.Intents)) tea.Cmd {
	intents := m.intents
	if intents == nil {
		return nil
	}
	return func() tea.Msg {
		fn(intents)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		title := m.info.Title
		m = m.pull()
		cmd := m.view.wait()
		if m.info.Title != title {
			cmd = tea.Batch(cmd, tea.SetWindowTitle(windowTitle(m.info)))
		}
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
		return m, nil

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		if isQuit(msg) {
			m.quitting = true
			return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
		}

		m.errTitle, m.errText = "", ""
		switch msg.String() {
		case " ":
			return m, m.intent(ports.Intents.OnPlayPause)
		case "s":
			return m, m.intent(ports.Intents.OnStop)
		case "l":
			return m, m.intent(ports.Intents.OnPreviewLoading)
		case "o":
			m.prompting = true
			m.input.Reset()
			m.input.Focus()
			return m, textinput.Blink
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		path := strings.TrimSpace(m.input.Value())
		m.prompting = false
		m.input.Blur()
		m.input.Reset()
		if path == "" {
			return m, nil
		}
		return m, m.intent(func(i ports.Intents) { i.OnOpen(path) })
	case "esc", "ctrl+c":
		m.prompting = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, line := range renderBars(m.levels, m.rows, m.width-4) {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\n")

	b.WriteString("  " + titleStyle.Render(trackLine(m.info)))
	b.WriteString("  " + labelStyle.Render(m.state.Label()+" · "+m.status.String()) + "\n")

	if m.errText != "" {
		b.WriteString("  " + errorStyle.Render(m.errTitle+": "+m.errText) + "\n")
	}

	if m.prompting {
		b.WriteString("  " + m.input.View() + "\n")
	} else {
		canStop := m.status == domain.StatusPlaying || m.status == domain.StatusPaused
		b.WriteString("  " + helpStyle.Render(helpText(canStop)) + "\n")
	}

	return b.String()
}

func windowTitle(info domain.SourceInfo) string {
	if info.Title == "" {
		return "audiobars"
	}
	return info.Title + " - audiobars"
}
