package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
	"github.com/tejashwikalptaru/audiobars/internal/logger"
	"github.com/tejashwikalptaru/audiobars/internal/testutil"
)

type recordingIntents struct {
	opened    []string
	playPause int
	stops     int
	previews  int
}

func (r *recordingIntents) OnOpen(path string) { r.opened = append(r.opened, path) }
func (r *recordingIntents) OnPlayPause()       { r.playPause++ }
func (r *recordingIntents) OnStop()            { r.stops++ }
func (r *recordingIntents) OnPreviewLoading()  { r.previews++ }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func newTestModel() (*View, Model, *recordingIntents) {
	v := New(logger.NewTestLogger(), Options{Rows: 4})
	intents := &recordingIntents{}
	v.SetIntents(intents)
	return v, newModel(v, intents, 4), intents
}

func TestView_SettersBeforeRunAreKept(t *testing.T) {
	v := New(logger.NewTestLogger(), Options{})
	v.SetLevels(domain.Levels{10, 55, 100, 33})
	v.SetSourceInfo(domain.SourceInfo{Title: "Song"})
	v.SetVisualizerState(domain.StatePlaying)
	v.SetPlaybackStatus(domain.StatusPlaying)

	m := newModel(v, nil, DefaultRows)

	assert.Equal(t, domain.Levels{10, 55, 100, 33}, m.levels)
	assert.Equal(t, "Song", m.info.Title)
	assert.Equal(t, domain.StatePlaying, m.state)
	assert.Equal(t, domain.StatusPlaying, m.status)
}

func TestView_SettersNeverBlock(t *testing.T) {
	v := New(logger.NewTestLogger(), Options{})

	for i := range 1000 {
		v.SetLevels(domain.Uniform(12, i%100))
	}

	assert.Len(t, v.notify, 1, "notifications are coalesced")
	assert.Equal(t, domain.Uniform(12, 99), v.latest().levels)
}

func TestView_QuitBeforeRun(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	v := New(logger.NewTestLogger(), Options{})
	v.Quit()
	assert.NoError(t, v.Run())
}

func TestModel_RefreshPullsSnapshot(t *testing.T) {
	v, m, _ := newTestModel()

	v.SetPlaybackStatus(domain.StatusPaused)
	v.SetLevels(domain.Uniform(4, 14))

	m, cmd := update(t, m, refreshMsg{})
	assert.NotNil(t, cmd, "the model keeps listening")
	assert.Equal(t, domain.StatusPaused, m.status)
	assert.Equal(t, domain.Uniform(4, 14), m.levels)
}

func TestModel_KeysForwardIntents(t *testing.T) {
	_, m, intents := newTestModel()

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())

	m, cmd = update(t, m, runes("s"))
	require.NotNil(t, cmd)
	cmd()

	_, cmd = update(t, m, runes("l"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, intents.playPause)
	assert.Equal(t, 1, intents.stops)
	assert.Equal(t, 1, intents.previews)
}

func TestModel_KeysWithoutIntents(t *testing.T) {
	v := New(logger.NewTestLogger(), Options{})
	m := newModel(v, nil, 4)

	_, cmd := update(t, m, runes("s"))
	assert.Nil(t, cmd)
}

func TestModel_OpenPrompt(t *testing.T) {
	_, m, intents := newTestModel()

	m, _ = update(t, m, runes("o"))
	require.True(t, m.prompting)
	assert.Contains(t, m.View(), "open: ")

	m, _ = update(t, m, runes("song.mp3"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.prompting)
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, []string{"song.mp3"}, intents.opened)
}

func TestModel_OpenPromptCancelled(t *testing.T) {
	_, m, intents := newTestModel()

	m, _ = update(t, m, runes("o"))
	m, _ = update(t, m, runes("x.wav"))
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, m.prompting)
	assert.Nil(t, cmd)
	assert.Empty(t, intents.opened)

	// An empty path is ignored.
	m, _ = update(t, m, runes("o"))
	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}

func TestModel_ErrorShownUntilKeyPress(t *testing.T) {
	v, m, _ := newTestModel()

	v.ShowError("Playback Error", "unsupported audio format")
	m, _ = update(t, m, refreshMsg{})
	assert.Contains(t, m.View(), "unsupported audio format")

	m, _ = update(t, m, runes("x"))
	assert.NotContains(t, m.View(), "unsupported audio format")

	// A refresh without a new error does not bring it back.
	v.SetLevels(domain.Uniform(4, 14))
	m, _ = update(t, m, refreshMsg{})
	assert.NotContains(t, m.View(), "unsupported audio format")
}

func TestModel_Quit(t *testing.T) {
	_, m, _ := newTestModel()

	m, cmd := update(t, m, runes("q"))
	assert.True(t, m.quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestModel_View(t *testing.T) {
	v, m, _ := newTestModel()

	v.SetLevels(domain.Levels{100, 100})
	v.SetSourceInfo(domain.SourceInfo{Title: "Song", Artist: "Band"})
	v.SetVisualizerState(domain.StatePlaying)
	v.SetPlaybackStatus(domain.StatusPlaying)
	m, _ = update(t, m, refreshMsg{})

	out := m.View()
	assert.Contains(t, out, "Band - Song")
	assert.Contains(t, out, "Audio level")
	assert.Contains(t, out, "s stop")
	assert.Equal(t, 4*2*barWidth(2, m.width-4), strings.Count(out, "█"))
}

func TestRenderBars(t *testing.T) {
	tests := []struct {
		name    string
		levels  domain.Levels
		full    int
		partial string
	}{
		{"full and empty", domain.Levels{100, 0}, 4, ""},
		{"half", domain.Levels{50}, 2, ""},
		{"ten percent", domain.Levels{10}, 0, "▃"},
		{"clamped", domain.Levels{150, -3}, 4, "▃"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := renderBars(tt.levels, 4, len(tt.levels)*2-1)
			require.Len(t, lines, 4)

			out := strings.Join(lines, "\n")
			assert.Equal(t, tt.full, strings.Count(out, "█"))
			if tt.partial != "" {
				assert.Contains(t, lines[3], tt.partial)
			}
		})
	}
}

func TestRenderBars_Empty(t *testing.T) {
	assert.Equal(t, []string{"", ""}, renderBars(nil, 2, 40))
	assert.Empty(t, renderBars(domain.Levels{50}, 0, 40))
}

func TestCellBlock(t *testing.T) {
	assert.Equal(t, "█", cellBlock(2, 1))
	assert.Equal(t, " ", cellBlock(1, 1))
	assert.Equal(t, "▄", cellBlock(1.5, 1))
}

func TestTrackLine(t *testing.T) {
	assert.Equal(t, "A - T", trackLine(domain.SourceInfo{Title: "T", Artist: "A"}))
	assert.Equal(t, "T", trackLine(domain.SourceInfo{Title: "T"}))
	assert.Equal(t, "No track loaded", trackLine(domain.SourceInfo{}))
}
