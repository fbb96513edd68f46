// Package tui is a terminal viewer for the rotation: it shows which image is
// current and where it was loaded from, and maps keys onto navigation.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/labstack/gommon/bytes"

	"github.com/wallrot/wallrot/internal/rotator"
)

// Controller is the part of the rotator the viewer drives.
type Controller interface {
	Next()
	Prev()
	Random(ctx context.Context)
	Current() rotator.Position
}

type eventMsg rotator.Event

type eventsClosedMsg struct{}

// Model is the Bubble Tea model of the viewer.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	events <-chan rotator.Event
	keys   keyMap

	spinner spinner.Model
	loading bool
	last    *rotator.Event
	width   int
}

// New creates a viewer reading display events from events.
func New(ctx context.Context, ctrl Controller, events <-chan rotator.Event) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		events:  events,
		keys:    defaultKeyMap(),
		spinner: s,
		loading: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		ev := rotator.Event(msg)
		m.last = &ev
		m.loading = false
		return m, waitForEvent(m.events)

	case eventsClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Next):
		m.ctrl.Next()
	case key.Matches(msg, m.keys.Prev):
		m.ctrl.Prev()
	case key.Matches(msg, m.keys.Random):
		m.ctrl.Random(m.ctx)
	default:
		return m, nil
	}

	wasLoading := m.loading
	m.loading = true
	if wasLoading {
		return m, nil
	}
	return m, m.spinner.Tick
}

// View implements tea.Model.
func (m Model) View() string {
	pos := m.ctrl.Current()

	var b strings.Builder
	b.WriteString(titleStyle.Render("wallrot"))
	if pos.Total > 0 {
		b.WriteString(helpStyle.Render(fmt.Sprintf("  %d / %d", pos.Index+1, pos.Total)))
	}
	b.WriteString("\n")

	var rows []string
	rows = append(rows, row("image", pos.ID))

	switch {
	case m.loading:
		rows = append(rows, row("status", m.spinner.View()+" loading"))
	case m.last != nil && m.last.Err != nil:
		rows = append(rows, labelStyle.Render("error")+errorStyle.Render(m.last.Err.Error()))
	case m.last != nil:
		kind := string(m.last.SourceKind)
		rows = append(rows,
			labelStyle.Render("source")+sourceStyle(kind).Render(kind),
			row("size", formatSize(m.last.Width, m.last.Height, m.last.Size)),
			row("url", m.last.URL))
	}

	panel := panelStyle
	if m.width > 4 {
		panel = panel.Width(m.width - 2)
	}
	b.WriteString(panel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

func (m Model) helpView() string {
	parts := make([]string, 0, len(m.keys.bindings()))
	for _, k := range m.keys.bindings() {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, " · "))
}

func row(label, value string) string {
	if value == "" {
		value = "-"
	}
	return labelStyle.Render(label) + valueStyle.Render(value)
}

// formatSize renders dimensions and byte size, skipping unknown parts.
func formatSize(width, height, size int) string {
	var parts []string
	if width > 0 && height > 0 {
		parts = append(parts, fmt.Sprintf("%d×%d", width, height))
	}
	if size > 0 {
		parts = append(parts, bytes.Format(int64(size)))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " · ")
}

func waitForEvent(events <-chan rotator.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Run starts the viewer and blocks until the user quits or ctx ends.
func Run(ctx context.Context, ctrl Controller, events <-chan rotator.Event) error {
	p := tea.NewProgram(New(ctx, ctrl, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
