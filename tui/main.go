package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"tui/db"
	"tui/styles"
	"tui/views"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"
)

const (
	dataRefresh = 10 * time.Second
	tailRefresh = 2 * time.Second
	noticeTTL   = 3 * time.Second
)

// command is a key that enqueues something for the crawler daemon.
type command struct {
	key, help string
	send      func(m *model) (string, error)
}

var commands = []command{
	{"s", "crawl all", func(m *model) (string, error) {
		return "queued scrape_now", m.db.ScrapeNow()
	}},
	{"enter", "crawl selected", func(m *model) (string, error) {
		id := m.dashboard.SelectedSearch()
		if id == "" || m.tab != 0 {
			return "", nil
		}
		return "queued scrape_search " + id, m.db.ScrapeSearch(id)
	}},
	{"x", "pause", func(m *model) (string, error) {
		return "queued pause", m.db.Pause()
	}},
	{"u", "resume", func(m *model) (string, error) {
		return "queued resume", m.db.Resume()
	}},
}

type dataTick struct{}
type tailTick struct{}

type model struct {
	db        *db.Client
	tab       int
	width     int
	notice    string
	noticeErr bool
	noticeAt  time.Time

	dashboard views.Dashboard
	logs      views.Logs
}

func newModel(client *db.Client, logPath string) model {
	return model{
		db:        client,
		dashboard: views.NewDashboard(client, logPath),
		logs:      views.NewLogs(client),
	}
}

func after(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.logs.Init(), after(dataRefresh, dataTick{}), after(tailRefresh, tailTick{}))
}

func (m model) refresh() tea.Cmd {
	if m.tab == 1 {
		return m.logs.Refresh()
	}
	return m.dashboard.Refresh()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "1", "2":
			m.tab = (m.tab + 1) % 2
			if key != "tab" {
				m.tab = int(key[0] - '1')
			}
			return m, m.refresh()
		case "r":
			return m, m.refresh()
		}
		for _, c := range commands {
			if c.key != key {
				continue
			}
			text, err := c.send(&m)
			if text != "" || err != nil {
				m.notice, m.noticeErr, m.noticeAt = text, err != nil, time.Now()
				if err != nil {
					m.notice = err.Error()
				}
			}
			return m, nil
		}
		return m.route(msg, false)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.dashboard = m.dashboard.SetSize(msg.Width, msg.Height-3)
		m.logs = m.logs.SetSize(msg.Width, msg.Height-3)
		return m, nil

	case dataTick:
		return m, tea.Batch(m.refresh(), after(dataRefresh, dataTick{}))

	case tailTick:
		return m, tea.Batch(m.dashboard.RefreshLog(), after(tailRefresh, tailTick{}))
	}
	return m.route(msg, true)
}

// route hands msg to the active view, or to every view for data messages.
func (m model) route(msg tea.Msg, all bool) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if all || m.tab == 0 {
		next, cmd := m.dashboard.Update(msg)
		m.dashboard = next.(views.Dashboard)
		cmds = append(cmds, cmd)
	}
	if all || m.tab == 1 {
		next, cmd := m.logs.Update(msg)
		m.logs = next.(views.Logs)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	body := m.dashboard.View()
	if m.tab == 1 {
		body = m.logs.View()
	}
	tabs := styles.Tab("1 overview", m.tab == 0) + styles.Tab("2 logs", m.tab == 1)
	return lipgloss.JoinVertical(lipgloss.Left, tabs, "", body, m.footer())
}

func (m model) footer() string {
	help := []string{"tab switch", "r refresh"}
	for _, c := range commands {
		help = append(help, c.key+" "+c.help)
	}
	help = append(help, "q quit")
	line := styles.Muted.Render(strings.Join(help, " · "))

	if m.notice != "" && time.Since(m.noticeAt) < noticeTTL {
		notice := styles.Notice.Render(m.notice)
		if m.noticeErr {
			notice = styles.ForStatus("failed").Render(m.notice)
		}
		line += "  " + notice
	}
	return line
}

func main() {
	_ = godotenv.Load()

	dbPath := envOr("DB_PATH", "crawler.db")
	client, err := db.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer client.Close()

	if _, err := tea.NewProgram(newModel(client, envOr("LOG_PATH", "crawler.log")), tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
