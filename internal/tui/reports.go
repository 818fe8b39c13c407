// Package tui is the interactive browser for persisted run reports.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yulin-dev/jobsift/internal/model"
)

// Lines per report item in the list view (summary + subtitle + blank separator).
const reportItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(14)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	statusColors = map[model.RunStatus]lipgloss.Style{
		model.RunSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		model.RunPartial: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		model.RunFailed:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

type reportsModel struct {
	reports []model.RunReport

	listViewport   viewport.Model
	detailViewport viewport.Model
	cursor         int
	width          int
	height         int
	ready          bool
	view           viewState
	wantQuit       bool
}

func (m reportsModel) Init() tea.Cmd {
	return nil
}

func (m reportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}

	return m, nil
}

func (m reportsModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.wantQuit = true
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		if len(m.reports) == 0 {
			return m, nil
		}
		m.view = viewDetail
		m.detailViewport = viewport.New(m.width-4, m.height-4)
		m.detailViewport.SetContent(m.renderDetail())
		return m, nil
	}

	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m reportsModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reportsModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.reports)-1, 0))
}

func (m *reportsModel) ensureCursorVisible() {
	cursorTop := m.cursor * reportItemHeight
	cursorBottom := cursorTop + reportItemHeight - 1

	if cursorTop < m.listViewport.YOffset {
		m.listViewport.SetYOffset(cursorTop)
	} else if cursorBottom >= m.listViewport.YOffset+m.listViewport.Height {
		m.listViewport.SetYOffset(cursorBottom - m.listViewport.Height + 1)
	}
}

func (m *reportsModel) recalcLayout() {
	// Header (1) + border top/bottom (2) + status bar (1).
	width := max(m.width-2, 20)
	height := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(width, height)
		m.ready = true
	} else {
		m.listViewport.Width = width
		m.listViewport.Height = height
	}

	m.recalcContent()
}

func (m *reportsModel) recalcContent() {
	m.listViewport.SetContent(renderReports(m.reports, m.cursor))
}

func (m reportsModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}

	header := headerStyle.Render(fmt.Sprintf(" Run Reports (%d)", len(m.reports)))
	pane := borderStyle.Width(m.listViewport.Width).Render(m.listViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(
		" ↑/↓/j/k cursor  Enter detail  q quit")

	return header + "\n" + pane + "\n" + statusBar
}

func (m reportsModel) viewDetail() string {
	title := detailTitleStyle.Render("Run Report")
	content := borderStyle.Width(m.width - 2).Render(m.detailViewport.View())
	statusBar := statusBarStyle.Width(m.width).Render(
		" esc/backspace back  ↑/↓ scroll  q quit")
	return title + "\n" + content + "\n" + statusBar
}

func (m reportsModel) renderDetail() string {
	r := m.reports[m.cursor]
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Source", r.SourceSite)
	addField("Status", statusColors[r.Status].Render(string(r.Status)))
	addField("Run ID", r.ID)

	b.WriteByte('\n')
	addField("Scraped", fmt.Sprintf("%d", r.Scraped))
	addField("New", fmt.Sprintf("%d", r.New))
	addField("Updated", fmt.Sprintf("%d", r.Updated))
	addField("Skipped", fmt.Sprintf("%d", r.Skipped))
	addField("Errors", fmt.Sprintf("%d", r.Errors))

	b.WriteByte('\n')
	addField("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	addField("Completed", r.CompletedAt.Local().Format("2006-01-02 15:04:05 MST"))
	addField("Duration", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String())

	if r.ErrorMessage != "" {
		b.WriteByte('\n')
		b.WriteString(errorStyle.Render("⚠ "+r.ErrorMessage) + "\n")
	}

	return b.String()
}

func renderReports(reports []model.RunReport, cursor int) string {
	if len(reports) == 0 {
		return "  (no reports yet — run `jobsift run` first)"
	}

	var b strings.Builder
	for i, r := range reports {
		titleSt := itemTitleStyle
		subtitleSt := itemSubtitleStyle
		prefix := "  "
		if i == cursor {
			titleSt = selectedTitleStyle
			subtitleSt = selectedSubtitleStyle
			prefix = "> "
		}

		b.WriteString(prefix)
		status := statusColors[r.Status].Render(string(r.Status))
		if i == cursor {
			status = string(r.Status)
		}
		b.WriteString(titleSt.Render(fmt.Sprintf("%-10s", r.SourceSite)) + " " + status)
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %d scraped, %d new, %d updated, %d skipped, %d errors",
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Scraped, r.New, r.Updated, r.Skipped, r.Errors)))
		b.WriteByte('\n')

		if i < len(reports)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// RunReportsTUI launches the interactive report browser over the most recent
// reports in the store.
func RunReportsTUI(ctx context.Context, store model.JobStore, limit int) error {
	reports, err := RunLoader(ctx, "run reports", func(ctx context.Context) ([]model.RunReport, error) {
		return store.RecentReports(ctx, limit)
	})
	if err != nil {
		return err
	}

	m := reportsModel{reports: reports}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
