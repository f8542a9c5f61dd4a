package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gality369/simplefs/internal/schema"
)

const (
	refreshInterval = 500 * time.Millisecond
	maxLogLines     = 100
)

//nolint:gochecknoglobals
var (
	// titleStyle defines the style for a panel's title.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	// borderStyle defines the style for a panel's borders.
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)
)

// TeaModel is the principal [tea.Model] of the table inspector.
type TeaModel struct {
	width  int
	height int

	cancel context.CancelFunc

	uiHandler *Handler

	fullWidthWithBorders  int
	splitWidthWithBorders int

	snapshot TableSnapshotMsg

	occupancy    progress.Model
	treeViewport viewport.Model
	logsViewport viewport.Model
	logs         []string
	activeSlot   int

	ready bool
}

// NewTeaModel returns an initial new [TeaModel].
//
//nolint:mnd
func NewTeaModel(uiHandler *Handler, cancel context.CancelFunc) TeaModel {
	return TeaModel{
		uiHandler: uiHandler,
		occupancy: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(40),
		),
		treeViewport: viewport.New(80, 10),
		logsViewport: viewport.New(80, 10),
		logs:         make([]string, 0, maxLogLines),
		activeSlot:   -1,
		cancel:       cancel,
	}
}

// Init initializes the model within a [tea.Program] and requests the first
// snapshot of the table right away.
func (m TeaModel) Init() tea.Cmd {
	m.uiHandler.Initialized.Store(true)

	table := m.uiHandler.table

	return tea.Batch(
		tea.EnterAltScreen,
		func() tea.Msg {
			return takeSnapshot(table, time.Now())
		},
	)
}

// refreshTable schedules the next [TableSnapshotMsg].
func refreshTable(table tableProvider) tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return takeSnapshot(table, t)
	})
}

// Update is the principal message handling method of the model.
//
//nolint:mnd,ireturn
func (m TeaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()

			return m, tea.Quit
		case "q":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		m.fullWidthWithBorders = m.width - 2
		m.splitWidthWithBorders = (m.width / 2) - 2

		m.occupancy.Width = m.splitWidthWithBorders

		// Upper panels take a fixed height, the rest is split between tree
		// and logs.
		lowerHeight := max(m.height-12, 8)

		m.treeViewport.Width = m.fullWidthWithBorders
		m.treeViewport.Height = lowerHeight/2 - 3
		m.logsViewport.Width = m.fullWidthWithBorders
		m.logsViewport.Height = lowerHeight - lowerHeight/2 - 3

		m.renderTree()
		m.renderLogs()

		m.ready = true

	case TableSnapshotMsg:
		if msg.err == nil {
			m.snapshot = msg
			m.renderTree()

			if msg.stats.Capacity > 0 {
				cmds = append(cmds, m.occupancy.SetPercent(float64(msg.stats.Used)/float64(msg.stats.Capacity)))
			}
		} else {
			m.snapshot.err = msg.err
			m.snapshot.t = msg.t
		}

		cmds = append(cmds, refreshTable(m.uiHandler.table))

	case LogMsg:
		if len(m.logs) >= maxLogLines {
			m.logs = m.logs[1:]
		}
		m.logs = append(m.logs, string(msg))

		if slot, ok := msg.Slot(); ok {
			m.activeSlot = slot
		}

		m.renderLogs()

	case progress.FrameMsg:
		updated, cmd := m.occupancy.Update(msg)
		if progressModel, ok := updated.(progress.Model); ok {
			m.occupancy = progressModel
		}
		cmds = append(cmds, cmd)
	}

	m.treeViewport, cmd = m.treeViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *TeaModel) renderTree() {
	if len(m.snapshot.tree) == 0 {
		return
	}

	m.treeViewport.SetContent(lipgloss.NewStyle().
		Width(m.treeViewport.Width).
		Render(strings.Join(m.snapshot.tree, "\n")))
}

func (m *TeaModel) renderLogs() {
	if len(m.logs) == 0 {
		return
	}

	m.logsViewport.SetContent(lipgloss.NewStyle().
		Width(m.logsViewport.Width).
		Render(strings.TrimSuffix(strings.Join(m.logs, ""), "\n")))
	m.logsViewport.GotoBottom()
}

// View is the principal rendering function of the model.
func (m TeaModel) View() string {
	if !m.ready {
		return "Loading the inspector..."
	}

	upperSection := lipgloss.JoinHorizontal(
		lipgloss.Top,
		borderStyle.Width(m.splitWidthWithBorders).Render(m.occupancyView()),
		borderStyle.Width(m.splitWidthWithBorders).Render(m.slotsView()),
	)

	treeSection := m.panel("Tree", m.treeViewport.View())
	logsSection := m.panel("Log", m.logsViewport.View())

	helpSection := helpStyle.
		Width(m.fullWidthWithBorders).
		Render("up/down: scroll tree • q: quit inspector • ctrl+c: quit program")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		upperSection,
		treeSection,
		logsSection,
		helpSection,
	)
}

func (m TeaModel) panel(title, body string) string {
	return borderStyle.
		Width(m.fullWidthWithBorders).
		Render(
			lipgloss.JoinVertical(
				lipgloss.Left,
				titleStyle.Width(m.fullWidthWithBorders).Render(title),
				lipgloss.NewStyle().Width(m.fullWidthWithBorders).Render(body),
			),
		)
}

func (m TeaModel) occupancyView() string {
	stats := m.snapshot.stats

	details := fmt.Sprintf(
		"Slots: Used=%d, Free=%d, Capacity=%d\n"+
			"Entries: Directories=%d, Files=%d\n"+
			"Data: %s of %s\n"+
			"Updated: %s",
		stats.Used,
		stats.Free,
		stats.Capacity,
		stats.Directories,
		stats.Files,
		humanize.Bytes(uint64(stats.DataBytes)),                    //nolint:gosec
		humanize.Bytes(uint64(stats.Files*schema.DataCapacity)), //nolint:gosec
		m.snapshot.t.Format("15:04:05"),
	)

	parts := []string{
		titleStyle.Width(m.splitWidthWithBorders).Render("Occupancy"),
		"",
		m.occupancy.View(),
		"",
		infoStyle.Width(m.splitWidthWithBorders).Render(details),
	}

	if m.snapshot.err != nil {
		parts = append(parts, errorStyle.Width(m.splitWidthWithBorders).Render(m.snapshot.err.Error()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m TeaModel) slotsView() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Width(m.splitWidthWithBorders).Render("Slots"),
		"",
		infoStyle.Width(m.splitWidthWithBorders).Render(slotMap(m.snapshot.slots, m.snapshot.free, m.activeSlot)),
	)
}
