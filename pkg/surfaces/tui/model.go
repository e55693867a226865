package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/mixbridge/pkg/session"
	"github.com/germanamz/mixbridge/pkg/surface"
	"github.com/mattn/go-runewidth"
)

const (
	volumeStep   = 0.05
	barWidth     = 20
	minNameWidth = 12
	maxNameWidth = 40
)

// model is the root bubbletea model. Rows are the level controls followed
// by the toggles; cursor indexes into that combined list.
type model struct {
	ctx          context.Context
	host         *Host
	levels       []surface.Snapshot
	toggles      []surface.Snapshot
	status       string
	notice       string
	cursor       int
	dropped      int
	bar          progress.Model
	help         help.Model
	width        int
	cancelBridge context.CancelFunc
}

func newModel(ctx context.Context, h *Host) model {
	return model{
		ctx:  ctx,
		host: h,
		bar: progress.New(
			progress.WithSolidFill("6"),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
		help: help.New(),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case programReadyMsg:
		m.cancelBridge = m.host.startBridge(m.ctx, msg.program)
		return m, nil

	case controlsMsg:
		m.setControls(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// setControls replaces the rows and keeps the cursor on the same control
// when it still exists.
func (m *model) setControls(msg controlsMsg) {
	selected, hadSelection := m.selected()

	m.levels = msg.levels
	m.toggles = msg.toggles
	m.status = msg.status
	m.notice = msg.notice

	if hadSelection {
		for i, s := range m.rows() {
			if s.Kind == selected.Kind && s.ID == selected.ID {
				m.cursor = i
				return
			}
		}
	}
	m.cursor = min(m.cursor, max(len(m.levels)+len(m.toggles)-1, 0))
}

func (m model) rows() []surface.Snapshot {
	rows := make([]surface.Snapshot, 0, len(m.levels)+len(m.toggles))
	rows = append(rows, m.levels...)
	return append(rows, m.toggles...)
}

func (m model) selected() (surface.Snapshot, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return surface.Snapshot{}, false
	}
	return rows[m.cursor], true
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		if m.cancelBridge != nil {
			m.cancelBridge()
			m.cancelBridge = nil
		}
		return m, tea.Quit

	case key.Matches(msg, keys.Reconnect):
		m.host.reconnect()
		return m, nil

	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.levels)+len(m.toggles)-1 {
			m.cursor++
		}
		return m, nil
	}

	s, ok := m.selected()
	if !ok {
		return m, nil
	}

	var action surface.Action
	switch {
	case key.Matches(msg, keys.Louder) && s.Kind == surface.KindLevel:
		action = surface.VolumeChanged{ID: s.ID, Level: surface.ClampLevel(s.Volume + volumeStep)}
	case key.Matches(msg, keys.Quieter) && s.Kind == surface.KindLevel:
		action = surface.VolumeChanged{ID: s.ID, Level: surface.ClampLevel(s.Volume - volumeStep)}
	case key.Matches(msg, keys.Mute) && s.Kind == surface.KindLevel:
		action = surface.MutePressed{ID: s.ID}
	case key.Matches(msg, keys.Press) && s.Kind == surface.KindLevel:
		action = surface.MutePressed{ID: s.ID}
	case key.Matches(msg, keys.Press) && s.Kind == surface.KindToggle:
		action = surface.Pressed{ID: s.ID}
	default:
		return m, nil
	}

	if !m.host.emit(action) {
		m.dropped++
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.host.opts.Title))
	if m.status != "" {
		b.WriteString(dimStyle.Render(" · "))
		b.WriteString(m.statusView())
	}
	b.WriteString("\n\n")

	if len(m.levels) == 0 && len(m.toggles) == 0 {
		b.WriteString(dimStyle.Render("No controls."))
		b.WriteString("\n\n")
	}

	nameWidth := m.nameWidth()

	if len(m.levels) > 0 {
		b.WriteString(sectionStyle.Render("Levels"))
		b.WriteString("\n")
		for i, s := range m.levels {
			b.WriteString(m.levelRow(s, i == m.cursor, nameWidth))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.toggles) > 0 {
		b.WriteString(sectionStyle.Render("Scenes"))
		b.WriteString("\n")
		for i, s := range m.toggles {
			b.WriteString(m.toggleRow(s, len(m.levels)+i == m.cursor))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.notice != "" {
		b.WriteString(errorStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.dropped > 0 {
		b.WriteString(errorStyle.Render(fmt.Sprintf("%d actions dropped", m.dropped)))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(keys))

	return b.String()
}

func (m model) statusView() string {
	switch m.status {
	case session.StatusConnected:
		return activeStyle.Render(m.status)
	case session.StatusConnecting:
		return dimStyle.Render(m.status)
	default:
		return errorStyle.Render(m.status)
	}
}

// nameWidth sizes the name column to the longest level name within bounds.
func (m model) nameWidth() int {
	w := minNameWidth
	for _, s := range m.levels {
		w = max(w, runewidth.StringWidth(s.Name))
	}
	return min(w, maxNameWidth)
}

func (m model) levelRow(s surface.Snapshot, selected bool, nameWidth int) string {
	name := runewidth.FillRight(runewidth.Truncate(s.Name, nameWidth, "…"), nameWidth)

	mark := noCursorMark
	if selected {
		mark = cursorMark
		name = selectedStyle.Render(name)
	}

	row := fmt.Sprintf("%s%s %s %3.0f%%", mark, name, m.bar.ViewAs(s.Volume), s.Volume*100)
	if s.Muted {
		row += " " + mutedStyle.Render("MUTED")
	}
	return row
}

func (m model) toggleRow(s surface.Snapshot, selected bool) string {
	name := runewidth.Truncate(s.Name, maxNameWidth+barWidth, "…")

	mark := noCursorMark
	if selected {
		mark = cursorMark
		name = selectedStyle.Render(name)
	}

	state := dimStyle.Render(inactiveMark)
	if s.Active {
		state = activeStyle.Render(activeMark)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, mark, state, name)
}
