package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-commgraph/pkg/ingest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(2).
			MarginTop(1)

	contentStyle = lipgloss.NewStyle().
			MarginLeft(2).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginTop(1).
			MarginLeft(2)
)

// maxRecentFailures bounds the failure list shown under the bar.
const maxRecentFailures = 5

var quitKey = key.NewBinding(
	key.WithKeys("q", "ctrl+c"),
	key.WithHelp("q", "stop"),
)

type rowMsg struct {
	row     int
	outcome ingest.Outcome
	tally   ingest.Result
	err     error
}

type doneMsg struct {
	result ingest.Result
	err    error
}

type model struct {
	file         string
	listingSetID string
	total        int

	tally    ingest.Result
	failures []string
	done     bool
	stopping bool
	err      error

	bar     progress.Model
	spinner spinner.Model
	cancel  context.CancelFunc
}

func newModel(file, listingSetID string, total int, cancel context.CancelFunc) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{
		file:         file,
		listingSetID: listingSetID,
		total:        total,
		bar:          progress.New(progress.WithDefaultGradient()),
		spinner:      s,
		cancel:       cancel,
	}
}

func (m model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, quitKey) && !m.stopping {
			m.stopping = true
			m.cancel()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-4, 80)
		return m, nil

	case rowMsg:
		m.tally = msg.tally
		if msg.outcome == ingest.OutcomeFailed && msg.err != nil {
			m.failures = append(m.failures, fmt.Sprintf("row %d: %v", msg.row, msg.err))
			if len(m.failures) > maxRecentFailures {
				m.failures = m.failures[len(m.failures)-maxRecentFailures:]
			}
		}
		return m, nil

	case doneMsg:
		m.tally = msg.result
		m.err = msg.err
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(m.tally.Rows()) / float64(m.total)
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Ingesting " + m.file))
	b.WriteString("\n")

	var body strings.Builder
	fmt.Fprintf(&body, "Listing set %s\n\n", m.listingSetID)
	if !m.done {
		body.WriteString(m.spinner.View() + " ")
	}
	body.WriteString(m.bar.ViewAs(m.percent()))
	fmt.Fprintf(&body, "\n\n%d/%d rows  %s  %s  %s\n",
		m.tally.Rows(), m.total,
		successStyle.Render(fmt.Sprintf("%d ingested", m.tally.Ingested)),
		warnStyle.Render(fmt.Sprintf("%d skipped", m.tally.Skipped)),
		errorStyle.Render(fmt.Sprintf("%d failed", m.tally.Failed)))

	if len(m.failures) > 0 {
		body.WriteString("\nRecent failures:\n")
		for _, f := range m.failures {
			body.WriteString("  " + f + "\n")
		}
	}
	b.WriteString(contentStyle.Render(body.String()))

	switch {
	case m.stopping && !m.done:
		b.WriteString(helpStyle.Render("stopping after the current row..."))
	case !m.done:
		b.WriteString(helpStyle.Render(quitKey.Help().Key + ": " + quitKey.Help().Desc))
	}
	b.WriteString("\n")
	return b.String()
}
