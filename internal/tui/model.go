// Package tui renders the live billing-block dashboard.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"ccmeter/internal/live"
	"ccmeter/internal/render"
)

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// SnapshotMsg delivers a fresh engine snapshot to the model.
type SnapshotMsg live.Snapshot

// Token limit gauge thresholds, as used fractions.
const (
	limitWarnThreshold = 0.7
	limitCritThreshold = 0.9
)

// Model is the live dashboard state. All mutation happens in Update.
type Model struct {
	snap    live.Snapshot
	hasData bool
	now     time.Time
	width   int
	height  int

	tokenLimit string        // raw token limit setting, "" disables the gauge
	tick       time.Duration // engine pass interval, drives the stale marker
}

func NewModel(tokenLimit string, tick time.Duration) Model {
	if tick <= 0 {
		tick = live.DefaultTickInterval
	}
	return Model{tokenLimit: tokenLimit, tick: tick}
}

func (m Model) Init() tea.Cmd { return tickCmd() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SnapshotMsg:
		m.snap = live.Snapshot(msg)
		m.hasData = true
		if m.now.Before(m.snap.At) {
			m.now = m.snap.At
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(headerBrandStyle.Render("ccmeter"))
	sb.WriteString(headerStyle.Render(" live blocks"))
	sb.WriteString("\n\n")

	if !m.hasData {
		sb.WriteString(dimStyle.Render("waiting for first scan..."))
		sb.WriteString("\n")
		return m.fitWidth(sb.String())
	}

	sb.WriteString(m.viewActiveBlock())
	sb.WriteString("\n")
	sb.WriteString(m.viewToday())
	sb.WriteString("\n")
	sb.WriteString(sectionHeaderStyle.Render("RECENT BLOCKS"))
	sb.WriteString("\n")
	sb.WriteString(RenderBlockChart(m.snap.Blocks, m.contentWidth()))
	sb.WriteString("\n\n")
	sb.WriteString(m.viewFooter())
	sb.WriteString("\n")
	return m.fitWidth(sb.String())
}

// fitWidth cuts every rendered line at the terminal edge so narrow windows
// never wrap the dashboard. ansi.Cut measures visible cells, not bytes.
func (m Model) fitWidth(s string) string {
	if m.width <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Cut(line, 0, m.width)
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewActiveBlock() string {
	var sb strings.Builder
	sb.WriteString(sectionHeaderStyle.Render("ACTIVE BLOCK"))
	sb.WriteString("\n")

	row, ok := m.snap.ActiveBlock()
	if !ok {
		sb.WriteString(dimStyle.Render("no active block"))
		sb.WriteString("\n")
		return sb.String()
	}

	loc := m.snap.Blocks.Location
	if loc == nil {
		loc = time.UTC
	}
	remaining := row.Last.Sub(m.now)

	sb.WriteString(statLine("started", row.First.In(loc).Format("15:04")))
	sb.WriteString(statLine("remaining", render.ShortDuration(remaining)))
	sb.WriteString(statLine("tokens", render.Tokens(row.Tokens.Total())))
	sb.WriteString(statLine("cost", render.Cost(row.Cost)))
	if row.Burn != nil {
		sb.WriteString(statLine("burn", fmt.Sprintf("%s/h, %s tok/h",
			render.Cost(row.Burn.CostPerHour),
			render.CompactTokens(int64(row.Burn.TokensPerHour)))))
		sb.WriteString(statLine("projected", render.Cost(row.Burn.ProjectedCost)))
	}

	if limit, err := render.TokenLimit(m.tokenLimit, m.snap.Blocks.MaxBlockTokens); err == nil && limit > 0 {
		used := float64(row.Tokens.Total()) / float64(limit) * 100
		sb.WriteString(labelStyle.Render(fmt.Sprintf("%-10s ", "limit")))
		sb.WriteString(RenderUsageGauge(used, m.gaugeWidth(), limitWarnThreshold, limitCritThreshold))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) viewToday() string {
	var sb strings.Builder
	sb.WriteString(sectionHeaderStyle.Render("TODAY"))
	sb.WriteString("\n")
	t := m.snap.Today
	sb.WriteString(valueStyle.Render(fmt.Sprintf("%s  %s tok  %d events",
		render.Cost(t.Cost), render.CompactTokens(t.Tokens.Total()), t.Events)))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) viewFooter() string {
	age := m.now.Sub(m.snap.At)
	if age < 0 {
		age = 0
	}
	status := dimStyle.Render(fmt.Sprintf("updated %s ago", render.ShortDuration(age)))
	if age > 3*m.tick {
		status = warnStyle.Render(fmt.Sprintf("stale, last update %s ago", render.ShortDuration(age)))
	}
	sep := dimStyle.Render("  ")
	counters := dimStyle.Render(fmt.Sprintf("%d files, %d events, %d dups",
		m.snap.Files, m.snap.Events, m.snap.Duplicates))
	return status + sep + counters + sep + dimStyle.Render("q to quit")
}

func statLine(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s ", label)) + valueStyle.Render(value) + "\n"
}

func (m Model) contentWidth() int {
	w := m.width
	if w <= 0 {
		w = 80
	}
	return w - 2
}

func (m Model) gaugeWidth() int {
	w := m.contentWidth() - 20
	if w < 10 {
		w = 10
	}
	if w > 40 {
		w = 40
	}
	return w
}
