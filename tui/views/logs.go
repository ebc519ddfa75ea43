package views

import (
	"fmt"

	"tui/db"
	"tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// levelFilters cycle with "f"; "" shows every level.
var levelFilters = []string{"", "info", "warn", "error"}

type logsMsg struct {
	level string
	logs  []db.ScrapeLog
}

// Logs lists scrape_logs newest first with a level filter.
type Logs struct {
	db            *db.Client
	width, height int
	filter        int
	offset        int
	logs          []db.ScrapeLog
}

func NewLogs(dbClient *db.Client) Logs {
	return Logs{db: dbClient}
}

func (l Logs) Init() tea.Cmd { return l.Refresh() }

func (l Logs) level() string { return levelFilters[l.filter] }

func (l Logs) Refresh() tea.Cmd {
	level := l.level()
	return func() tea.Msg {
		var filter *string
		if level != "" {
			filter = &level
		}
		logs, _ := l.db.GetRecentLogs(500, filter)
		return logsMsg{level: level, logs: logs}
	}
}

func (l Logs) SetSize(w, h int) Logs {
	l.width, l.height = w, h
	return l
}

func (l Logs) pageSize() int {
	// heading, filter line, table header and border
	if n := l.height - 7; n > 0 {
		return n
	}
	return 10
}

func (l Logs) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case logsMsg:
		// drop results for a filter the user has already moved past
		if msg.level != l.level() {
			return l, nil
		}
		l.logs = msg.logs
		l.offset = clampOffset(l.offset, len(l.logs), l.pageSize())
	case tea.KeyMsg:
		page := l.pageSize()
		switch msg.String() {
		case "f":
			l.filter = (l.filter + 1) % len(levelFilters)
			l.offset = 0
			return l, l.Refresh()
		case "down", "j":
			l.offset++
		case "up", "k":
			l.offset--
		case "pgdown", " ":
			l.offset += page
		case "pgup":
			l.offset -= page
		case "home":
			l.offset = 0
		case "end":
			l.offset = len(l.logs)
		}
		l.offset = clampOffset(l.offset, len(l.logs), page)
	}
	return l, nil
}

// clampOffset keeps a scroll offset inside [0, total-page].
func clampOffset(offset, total, page int) int {
	if last := total - page; offset > last {
		offset = last
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func (l Logs) View() string {
	level := l.level()
	if level == "" {
		level = "all"
	}
	filter := fmt.Sprintf("level: %s  %s", styles.ForLevel(level).Render(level), styles.Muted.Render("(f to cycle)"))

	if len(l.logs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, styles.Heading.Render("Logs"), filter, styles.Muted.Render("no log entries"))
	}

	end := l.offset + l.pageSize()
	if end > len(l.logs) {
		end = len(l.logs)
	}
	visible := l.logs[l.offset:end]

	rows := make([][]string, 0, len(visible))
	for _, entry := range visible {
		search := "-"
		if entry.SearchID != nil {
			search = *entry.SearchID
		}
		rows = append(rows, []string{entry.Timestamp.Format("01-02 15:04:05"), entry.Level, search, entry.Message})
	}

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("TIME", "LEVEL", "SEARCH", "MESSAGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.Header
			case col == 1 && row < len(visible):
				return styles.ForLevel(visible[row].Level).PaddingRight(2)
			case col == 0 || col == 2:
				return styles.Muted.PaddingRight(2)
			}
			return styles.Cell
		})
	if l.width > 0 {
		t = t.Width(l.width)
	}

	position := styles.Muted.Render(fmt.Sprintf("%d-%d of %d", l.offset+1, end, len(l.logs)))
	return lipgloss.JoinVertical(lipgloss.Left, styles.Heading.Render("Logs"), filter+"  "+position, t.Render())
}
