package views

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tui/db"
	"tui/styles"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type dashboardDataMsg struct {
	stats  []db.SearchStats
	runs   []db.ScrapeRun
	paused bool
}

type logTailMsg struct {
	lines   []string
	modTime time.Time
}

type Dashboard struct {
	db            *db.Client
	width, height int
	stats         []db.SearchStats
	runs          []db.ScrapeRun
	paused        bool
	selected      int
	logLines      []string
	logPath       string
	logViewport   int
	logBuffer     int
	logModTime    time.Time
}

func NewDashboard(dbClient *db.Client, logPath string) Dashboard {
	if logPath == "" {
		logPath = "crawler.log"
	}
	return Dashboard{
		db:          dbClient,
		logPath:     logPath,
		logViewport: 12,
		logBuffer:   200,
	}
}

func (d Dashboard) Init() tea.Cmd {
	return tea.Batch(d.Refresh(), d.RefreshLog())
}

func (d Dashboard) Refresh() tea.Cmd {
	return func() tea.Msg {
		stats, _ := d.db.GetSearchStats()
		runs, _ := d.db.GetRecentRuns(10)
		paused, _ := d.db.Paused()
		return dashboardDataMsg{stats, runs, paused}
	}
}

func (d Dashboard) RefreshLog() tea.Cmd {
	return func() tea.Msg {
		lines, modTime := readLastLines(d.logPath, d.logBuffer)
		return logTailMsg{lines, modTime}
	}
}

func readLastLines(path string, n int) ([]string, time.Time) {
	info, err := os.Stat(path)
	if err != nil {
		return []string{"(no log file)"}, time.Time{}
	}
	modTime := info.ModTime()

	f, err := os.Open(path)
	if err != nil {
		return []string{"(no log file)"}, time.Time{}
	}
	defer f.Close()

	var allLines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		allLines = append(allLines, scanner.Text())
	}

	if len(allLines) == 0 {
		return []string{"(empty log)"}, modTime
	}

	start := len(allLines) - n
	if start < 0 {
		start = 0
	}
	return allLines[start:], modTime
}

// SelectedSearch is the search card under the cursor, or "".
func (d Dashboard) SelectedSearch() string {
	if d.selected < 0 || d.selected >= len(d.stats) {
		return ""
	}
	return d.stats[d.selected].SearchID
}

func (d Dashboard) SetSize(w, h int) Dashboard {
	d.width = w
	d.height = h
	return d
}

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		d.stats = msg.stats
		d.runs = msg.runs
		d.paused = msg.paused
		if d.selected >= len(d.stats) {
			d.selected = 0
		}
	case logTailMsg:
		d.logLines = msg.lines
		d.logModTime = msg.modTime
	case tea.KeyMsg:
		switch msg.String() {
		case "left", "h":
			if d.selected > 0 {
				d.selected--
			}
		case "right", "l":
			if d.selected < len(d.stats)-1 {
				d.selected++
			}
		}
	}
	return d, nil
}

func (d Dashboard) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Heading.Render("Overview"),
		d.renderSummary(),
		d.renderSearches(),
		styles.Heading.Render("Recent runs"),
		d.renderRuns(),
		styles.Heading.Render("Tail of "+filepath.Base(d.logPath)),
		d.renderLogTail(),
	)
}

func (d Dashboard) renderSummary() string {
	var records, errs int
	for _, r := range d.runs {
		records += r.ListRecords + r.PostRecords
		errs += r.ErrorsCount
	}

	scheduler := styles.ForStatus("completed").Render("active")
	if d.paused {
		scheduler = styles.ForStatus("running").Render("paused")
	}

	box := func(value, label string) string {
		return styles.Card(styles.Accent, 20).Align(lipgloss.Center).
			Render(value + "\n" + styles.Muted.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		box(styles.Value.Render(fmt.Sprint(len(d.stats))), "saved searches"),
		box(styles.Value.Render(fmt.Sprint(records)), "records, last 10 runs"),
		box(styles.Value.Render(fmt.Sprint(errs)), "errors, last 10 runs"),
		box(scheduler, "scheduler"),
	)
}

func (d Dashboard) renderSearches() string {
	if len(d.stats) == 0 {
		return styles.Muted.Render("no search has run yet")
	}

	cards := make([]string, 0, len(d.stats))
	for i, s := range d.stats {
		status, last := "never run", "never"
		if s.LastStatus != nil {
			status = *s.LastStatus
		}
		if s.LastRunAt != nil {
			last = relativeTime(*s.LastRunAt)
		}

		accent := lipgloss.TerminalColor(styles.Dim)
		if i == d.selected {
			accent = styles.Accent
		}
		cards = append(cards, styles.Card(accent, 28).Render(lipgloss.JoinVertical(lipgloss.Left,
			styles.Value.Render(truncate(s.SearchID, 24)),
			styles.ForStatus(status).Render(status)+styles.Muted.Render(" · "+last),
			styles.Muted.Render(fmt.Sprintf("%d runs, %d records", s.TotalRuns, s.TotalRecords)),
		)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n" +
		styles.Muted.Render("←/→ select, enter crawls the selected search")
}

func (d Dashboard) renderRuns() string {
	if len(d.runs) == 0 {
		return styles.Muted.Render("no runs recorded")
	}

	rows := make([][]string, 0, len(d.runs))
	for _, r := range d.runs {
		rows = append(rows, []string{
			truncate(r.SearchID, 20),
			r.Status,
			r.StartedAt.Format("01-02 15:04"),
			fmt.Sprint(r.Requests),
			fmt.Sprint(r.ListRecords),
			fmt.Sprint(r.PostRecords),
			fmt.Sprint(r.ErrorsCount),
			filepath.Base(r.FeedPath),
		})
	}

	runs := d.runs
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Muted).
		Headers("SEARCH", "STATUS", "STARTED", "REQ", "LIST", "POST", "ERR", "FEED").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.Header
			case col == 1 && row < len(runs):
				return styles.ForStatus(runs[row].Status).PaddingRight(2)
			case col >= 3 && col <= 6:
				return styles.Cell.Align(lipgloss.Right)
			case col == 7:
				return styles.Muted.PaddingRight(2)
			}
			return styles.Cell
		}).
		Render()
}

func (d Dashboard) renderLogTail() string {
	lines := d.logLines
	if len(lines) > d.logViewport {
		lines = lines[len(lines)-d.logViewport:]
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if d.width > 5 {
			line = truncate(line, d.width-2)
		}
		out = append(out, styles.Muted.Render(line))
	}
	return strings.Join(out, "\n")
}

func relativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
