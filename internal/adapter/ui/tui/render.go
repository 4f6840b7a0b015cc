package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tejashwikalptaru/audiobars/internal/domain"
)

// Unicode block elements for the top cell of a bar (9 levels including space)
var barBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// Bars run red at the bottom through yellow to green at the top.
var (
	barLowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff3b30"))
	barMidStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd60a"))
	barHighStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#30d158"))

	titleStyle = lipgloss.NewStyle().Bold(true).Italic(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
	helpStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff3b30")).Bold(true)
)

// barWidth fits n bars separated by single spaces into availWidth columns.
func barWidth(n, availWidth int) int {
	if n <= 0 {
		return 0
	}
	return max((availWidth-(n-1))/n, 1)
}

// renderBars draws levels as rows lines of block characters, top line first.
// Each bar is a percentage of the full height, at least 10%; the top cell uses eighth blocks.
func renderBars(levels domain.Levels, rows, availWidth int) []string {
	lines := make([]string, rows)
	if rows <= 0 || len(levels) == 0 {
		return lines
	}

	bw := barWidth(len(levels), availWidth)
	var sb strings.Builder
	for r := range rows {
		fromBottom := rows - 1 - r
		style := rowStyle(float64(fromBottom) / float64(rows))

		sb.Reset()
		for i, level := range levels {
			cells := float64(min(max(level, domain.DefaultMinHeight), domain.MaxHeight)) / domain.MaxHeight * float64(rows)
			sb.WriteString(style.Render(strings.Repeat(cellBlock(cells, fromBottom), bw)))
			if i < len(levels)-1 {
				sb.WriteString(" ")
			}
		}
		lines[r] = sb.String()
	}
	return lines
}

// cellBlock picks the glyph for the cell row cells above the floor of a bar cells tall.
func cellBlock(cells float64, row int) string {
	switch {
	case cells >= float64(row+1):
		return barBlocks[len(barBlocks)-1]
	case cells > float64(row):
		idx := int((cells - float64(row)) * float64(len(barBlocks)-1))
		return barBlocks[min(idx, len(barBlocks)-1)]
	default:
		return barBlocks[0]
	}
}

func rowStyle(pos float64) lipgloss.Style {
	switch {
	case pos >= 0.66:
		return barHighStyle
	case pos >= 0.33:
		return barMidStyle
	default:
		return barLowStyle
	}
}

// trackLine formats "Artist - Title", falling back to the title alone.
func trackLine(info domain.SourceInfo) string {
	switch {
	case info.Artist != "" && info.Title != "":
		return info.Artist + " - " + info.Title
	case info.Title != "":
		return info.Title
	default:
		return "No track loaded"
	}
}
