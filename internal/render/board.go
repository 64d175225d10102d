// Package render draws a board view for terminals. It is the text
// counterpart of the browser overlay and is used by taskctl.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ent0n29/streamtasks/internal/board"
)

const minWidth = 24

type styles struct {
	frame    lipgloss.Style
	title    lipgloss.Style
	summary  lipgloss.Style
	done     lipgloss.Style
	paused   lipgloss.Style
	offline  lipgloss.Style
	barFill  lipgloss.Style
	barEmpty lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(a board.Appearance) styles {
	fg := lipgloss.Color(a.TextColor)
	bar := lipgloss.Color(a.ProgressBarColor)
	return styles{
		frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(bar).
			Padding(0, 1),
		title:    lipgloss.NewStyle().Bold(true).Foreground(fg),
		summary:  lipgloss.NewStyle().Italic(true).Foreground(fg),
		done:     lipgloss.NewStyle().Strikethrough(true).Faint(true),
		paused:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E0A800")),
		offline:  lipgloss.NewStyle().Faint(true),
		barFill:  lipgloss.NewStyle().Foreground(bar),
		barEmpty: lipgloss.NewStyle().Faint(true),
		muted:    lipgloss.NewStyle().Faint(true),
	}
}

// Board renders every list, the pending queue size and the progress bar.
// width is the outer width; values below a small minimum are raised.
func Board(v board.View, width int) string {
	if width < minWidth {
		width = minWidth
	}
	s := newStyles(v.Config.Appearance)
	inner := width - 4

	blocks := make([]string, 0, len(v.Lists)+1)
	for _, l := range v.Lists {
		blocks = append(blocks, s.frame.Width(inner).Render(list(s, l, v.Config, inner)))
	}
	blocks = append(blocks, progress(s, v, width))
	if n := len(v.PendingTasks); n > 0 {
		blocks = append(blocks, s.muted.Render(fmt.Sprintf("%d task(s) awaiting approval", n)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func list(s styles, l board.List, cfg board.Config, width int) string {
	header := s.title.Render(l.Title())
	if l.Limit > 0 || l.Name == cfg.DefaultListName {
		limit := l.Limit
		if limit <= 0 {
			limit = cfg.ViewerTaskLimit
		}
		header += s.muted.Render(fmt.Sprintf(" %d/%d", len(l.Tasks), limit))
	}
	lines := []string{header}
	if l.Summary != "" && l.Summary != l.Title() {
		lines = append(lines, s.summary.Render(l.Summary))
	}
	if len(l.Tasks) == 0 {
		lines = append(lines, s.muted.Render("no tasks yet"))
	}
	for _, t := range l.Tasks {
		lines = append(lines, taskLine(s, t, width))
	}
	return strings.Join(lines, "\n")
}

func taskLine(s styles, t board.Task, width int) string {
	label := truncate(t.Label(), width-2)
	switch t.Status {
	case board.StatusCompleted:
		return "✔ " + s.done.Render(label)
	case board.StatusPaused:
		return "⏸ " + s.paused.Render(label)
	case board.StatusOffline:
		return "○ " + s.offline.Render(label)
	default:
		return "• " + label
	}
}

func progress(s styles, v board.View, width int) string {
	barWidth := width - 12
	if barWidth < 4 {
		barWidth = 4
	}
	filled := int(v.Percent / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	bar := s.barFill.Render(strings.Repeat("█", filled)) +
		s.barEmpty.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %3.0f%% T%d", bar, v.Percent, v.Tier)
}

func truncate(text string, max int) string {
	r := []rune(text)
	if max <= 1 || len(r) <= max {
		return text
	}
	return string(r[:max-1]) + "…"
}
