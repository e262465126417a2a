// Package monitor is the live dashboard behind `client monitor`: a
// bubbletea program that polls the scheduler's /stats endpoint once a
// second and renders node-pool occupancy as a table. Read-only — it has no
// write path back into the scheduler.
package monitor

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const pollInterval = time.Second

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#06B6D4"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)
)

// Stats is the JSON shape returned by the scheduler's /stats endpoint.
type Stats struct {
	IdleNodes int `json:"idle_nodes"`
	InFlight  int `json:"in_flight"`
}

// Run starts the dashboard and blocks until the user quits it.
func Run(schedulerAddr string) error {
	m := newModel(schedulerAddr)
	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

type statsMsg Stats
type errMsg struct{ err error }
type tickMsg time.Time

type model struct {
	addr     string
	http     *http.Client
	table    table.Model
	lastPoll time.Time
	err      error
}

func newModel(addr string) *model {
	columns := []table.Column{
		{Title: "Metric", Width: 20},
		{Title: "Value", Width: 10},
	}
	t := table.New(table.WithColumns(columns), table.WithFocused(false), table.WithHeight(4))
	return &model{addr: addr, http: &http.Client{Timeout: 5 * time.Second}, table: t}
}

func (m *model) Init() tea.Cmd {
	return m.poll()
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *model) poll() tea.Cmd {
	return func() tea.Msg {
		resp, err := m.http.Get("http://" + m.addr + "/stats")
		if err != nil {
			return errMsg{err}
		}
		defer resp.Body.Close()
		var s Stats
		if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
			return errMsg{err}
		}
		return statsMsg(s)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.poll()

	case statsMsg:
		m.err = nil
		m.lastPoll = time.Now()
		m.table.SetRows([]table.Row{
			{"Idle nodes", fmt.Sprintf("%d", msg.IdleNodes)},
			{"In-flight dispatchers", fmt.Sprintf("%d", msg.InFlight)},
		})
		return m, tickCmd()

	case errMsg:
		m.err = msg.err
		return m, tickCmd()
	}
	return m, nil
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("remote scheduler — %s", m.addr))
	body := m.table.View()

	footer := footerStyle.Render("q to quit")
	if !m.lastPoll.IsZero() {
		footer = footerStyle.Render(fmt.Sprintf("updated %s — q to quit", humanize.Time(m.lastPoll)))
	}
	if m.err != nil {
		footer = errStyle.Render("poll failed: "+m.err.Error()) + "\n" + footer
	}

	return header + "\n\n" + body + "\n\n" + footer + "\n"
}
