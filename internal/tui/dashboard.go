package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/normanctl/internal/coordinator"
	"github.com/muurk/normanctl/internal/gateway"
	"github.com/muurk/normanctl/internal/ui"
)

const commandTimeout = 15 * time.Second

// Controller is the coordinator surface the dashboard drives.
type Controller interface {
	Snapshot() coordinator.Snapshot
	Subscribe(fn func(coordinator.Snapshot)) (cancel func())
	RequestRefresh(delay time.Duration)
	DeviceCovers() []coordinator.DeviceCover
	RoomCovers() []coordinator.RoomCover
	Presets() []coordinator.Preset

	SetDevicePosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	SetRoomPosition(ctx context.Context, id gateway.ID, open int) (gateway.PositionCommand, error)
	OpenDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseDevice(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	OpenRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	CloseRoom(ctx context.Context, id gateway.ID) (gateway.PositionCommand, error)
	ApplyRoomPreset(ctx context.Context, id gateway.ID, name string) (gateway.PositionCommand, error)
}

// Tab selects the list shown by the dashboard.
type Tab int

const (
	TabWindows Tab = iota
	TabRooms
)

func (t Tab) String() string {
	if t == TabRooms {
		return "Rooms"
	}
	return "Windows"
}

type snapshotMsg struct {
	snap coordinator.Snapshot
}

type commandDoneMsg struct {
	label string
	cmd   gateway.PositionCommand
	err   error
}

// row is one line of either tab.
type row struct {
	id          gateway.ID
	name        string
	area        string
	available   bool
	hasPosition bool
	open        int
}

// Model is the watch dashboard.
type Model struct {
	ctx  context.Context
	ctrl Controller

	snap    coordinator.Snapshot
	windows []row
	rooms   []row
	presets []coordinator.Preset

	tab        Tab
	cursor     [2]int
	presetIdx  map[gateway.ID]int
	refreshing bool
	pending    int
	message    string

	Width  int
	Height int

	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New builds the dashboard model from the controller's current state.
func New(ctx context.Context, ctrl Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	m := Model{
		ctx:       ctx,
		ctrl:      ctrl,
		presets:   ctrl.Presets(),
		presetIdx: make(map[gateway.ID]int),
		spinner:   s,
		help:      help.New(),
		keys:      defaultKeyMap(),
		Width:     MinTerminalWidth,
	}
	m.load(ctrl.Snapshot())
	m.refreshing = m.snap.UpdatedAt.IsZero()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) load(snap coordinator.Snapshot) {
	m.snap = snap

	m.windows = nil
	for _, c := range m.ctrl.DeviceCovers() {
		m.windows = append(m.windows, row{
			id:          c.ID,
			name:        c.Name,
			area:        c.Area,
			available:   c.Available,
			hasPosition: c.HasPosition,
			open:        c.OpenPercent,
		})
	}

	m.rooms = nil
	for _, c := range m.ctrl.RoomCovers() {
		name := c.Name
		if name == "" {
			name = "Room " + c.ID.String()
		}
		m.rooms = append(m.rooms, row{
			id:          c.ID,
			name:        name,
			area:        fmt.Sprintf("%d windows", c.Devices),
			available:   c.Available,
			hasPosition: c.HasPosition,
			open:        c.OpenPercent,
		})
	}

	for t, rows := range [][]row{m.windows, m.rooms} {
		if m.cursor[t] >= len(rows) {
			m.cursor[t] = max(len(rows)-1, 0)
		}
	}
}

func (m Model) rows() []row {
	if m.tab == TabRooms {
		return m.rooms
	}
	return m.windows
}

func (m Model) selected() (row, bool) {
	rows := m.rows()
	if len(rows) == 0 {
		return row{}, false
	}
	return rows[m.cursor[m.tab]], true
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = ResponsiveWidth(msg.Width)
		m.Height = msg.Height
		m.help.Width = m.Width
		return m, nil

	case snapshotMsg:
		m.load(msg.snap)
		m.refreshing = false
		return m, nil

	case commandDoneMsg:
		m.pending--
		if msg.err != nil {
			m.message = fmt.Sprintf("%s failed: %s", msg.label, gateway.ShortMessage(msg.err))
		} else {
			m.message = fmt.Sprintf("%s: sent closed %d%%", msg.label, msg.cmd.ClosedPercent)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Tab):
		m.tab = (m.tab + 1) % 2

	case key.Matches(msg, m.keys.Up):
		if m.cursor[m.tab] > 0 {
			m.cursor[m.tab]--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor[m.tab] < len(m.rows())-1 {
			m.cursor[m.tab]++
		}

	case key.Matches(msg, m.keys.Refresh):
		m.refreshing = true
		m.ctrl.RequestRefresh(0)

	case key.Matches(msg, m.keys.Open):
		return m.command("Open", func(ctx context.Context, r row) (gateway.PositionCommand, error) {
			if m.tab == TabRooms {
				return m.ctrl.OpenRoom(ctx, r.id)
			}
			return m.ctrl.OpenDevice(ctx, r.id)
		})

	case key.Matches(msg, m.keys.Close):
		return m.command("Close", func(ctx context.Context, r row) (gateway.PositionCommand, error) {
			if m.tab == TabRooms {
				return m.ctrl.CloseRoom(ctx, r.id)
			}
			return m.ctrl.CloseDevice(ctx, r.id)
		})

	case key.Matches(msg, m.keys.StepOpen):
		return m.step(1)

	case key.Matches(msg, m.keys.StepShut):
		return m.step(-1)

	case key.Matches(msg, m.keys.Preset):
		return m.nextPreset()
	}
	return m, nil
}

// step moves the selection one allowed position towards open (+1) or closed (-1).
// Covers without a position start from fully closed.
func (m Model) step(dir int) (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	current := gateway.CloseClosedPercent
	if r.hasPosition {
		current = 100 - r.open
	}
	open := gateway.OpenFromClosed(gateway.StepClosedPercent(current, dir))

	label := fmt.Sprintf("Set %d%%", open)
	return m.command(label, func(ctx context.Context, r row) (gateway.PositionCommand, error) {
		if m.tab == TabRooms {
			return m.ctrl.SetRoomPosition(ctx, r.id, open)
		}
		return m.ctrl.SetDevicePosition(ctx, r.id, open)
	})
}

func (m Model) nextPreset() (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if m.tab != TabRooms || !ok || len(m.presets) == 0 {
		return m, nil
	}
	idx := m.presetIdx[r.id] % len(m.presets)
	m.presetIdx[r.id] = idx + 1
	preset := m.presets[idx]

	return m.command("Preset "+preset.Name, func(ctx context.Context, r row) (gateway.PositionCommand, error) {
		return m.ctrl.ApplyRoomPreset(ctx, r.id, preset.Name)
	})
}

func (m Model) command(label string, send func(context.Context, row) (gateway.PositionCommand, error)) (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	label = fmt.Sprintf("%s %s", label, r.name)
	m.pending++
	m.message = label + "..."

	parent := m.ctx
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, commandTimeout)
		defer cancel()
		cmd, err := send(ctx, r)
		return commandDoneMsg{label: label, cmd: cmd, err: err}
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString(" ")
	b.WriteString(VersionStyle.Render(AppVersion()))
	b.WriteString("\n\n")

	for _, t := range []Tab{TabWindows, TabRooms} {
		style := TabStyle
		if t == m.tab {
			style = ActiveTabStyle
		}
		b.WriteString(style.Render(t.String()))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderRows())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())

	if m.message != "" {
		b.WriteString("\n")
		b.WriteString(MessageStyle.Render(m.message))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderRows() string {
	rows := m.rows()
	if len(rows) == 0 {
		if m.snap.UpdatedAt.IsZero() {
			return RowStyle.Render("Waiting for the first refresh...")
		}
		return RowStyle.Render("No " + strings.ToLower(m.tab.String()) + " reported by the gateway")
	}

	nameWidth := 8
	for _, r := range rows {
		nameWidth = max(nameWidth, lipgloss.Width(r.name))
	}
	nameWidth = min(nameWidth, 24)

	lines := []string{ColumnHeaderStyle.Render(fmt.Sprintf("  %-*s  %-12s  %s", nameWidth, "NAME", "AREA", "POSITION"))}
	for i, r := range rows {
		name := truncate(r.name, nameWidth)
		area := r.area
		if area == "" {
			area = "-"
		}
		line := fmt.Sprintf("%-*s  %-12s  %s  %s",
			nameWidth, name, area,
			ui.RenderPositionBar(r.open, r.hasPosition),
			ui.AvailabilityMarker(r.available))

		switch {
		case i == m.cursor[m.tab]:
			lines = append(lines, SelectedRowStyle.Render("> "+line))
		case !r.available:
			lines = append(lines, UnavailableRowStyle.Render("  "+line))
		default:
			lines = append(lines, RowStyle.Render("  "+line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	var parts []string
	if m.refreshing || m.pending > 0 {
		parts = append(parts, m.spinner.View())
	}

	switch {
	case m.snap.UpdatedAt.IsZero():
		parts = append(parts, "connecting to gateway")
	case m.snap.LastUpdateSuccess:
		parts = append(parts, "updated "+m.snap.UpdatedAt.Format("15:04:05"))
	default:
		text := "gateway unavailable"
		if m.snap.Err != nil {
			text += ": " + gateway.ShortMessage(m.snap.Err)
		}
		if !m.snap.LastSuccess.IsZero() {
			text += " (last good " + m.snap.LastSuccess.Format("15:04:05") + ")"
		}
		return StatusErrorStyle.Render(strings.Join(append(parts, text), " "))
	}
	return StatusBarStyle.Render(strings.Join(parts, " "))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// Run starts the dashboard and blocks until the user quits or ctx ends. The
// coordinator must be running so refreshes reach the dashboard.
func Run(ctx context.Context, ctrl Controller) error {
	p := tea.NewProgram(New(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx))

	cancel := ctrl.Subscribe(func(s coordinator.Snapshot) {
		p.Send(snapshotMsg{snap: s})
	})
	defer cancel()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
