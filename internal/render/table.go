package render

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/usagelog"
)

// TokenLimit parses the configured token limit. "max" means the highest
// historical block; empty disables the limit column.
func TokenLimit(setting string, maxBlockTokens int64) (int64, error) {
	switch strings.ToLower(strings.TrimSpace(setting)) {
	case "":
		return 0, nil
	case "max":
		return maxBlockTokens, nil
	default:
		v, err := strconv.ParseInt(setting, 10, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("invalid token limit %q: want a number or max", setting)
		}
		return v, nil
	}
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.SetAutoWrapText(false)
	return table
}

func tokenCells(tk usagelog.TokenCounts, cost float64) []string {
	return []string{
		Tokens(tk.Input),
		Tokens(tk.Output),
		Tokens(tk.CacheCreation),
		Tokens(tk.CacheRead),
		Tokens(tk.Total()),
		Cost(cost),
	}
}

func keyHeader(kind aggregate.Kind) string {
	switch kind {
	case aggregate.KindWeekly:
		return "WEEK"
	case aggregate.KindMonthly:
		return "MONTH"
	default:
		return "DATE"
	}
}

// WriteBucketTable renders a daily, weekly or monthly report. Breakdown
// rows are nested under their bucket row.
func WriteBucketTable(w io.Writer, rep aggregate.Report) {
	withProject := false
	for _, row := range rep.Rows {
		if row.Project != "" {
			withProject = true
			break
		}
	}

	headers := []string{keyHeader(rep.Kind)}
	if withProject {
		headers = append(headers, "PROJECT")
	}
	headers = append(headers, "INPUT", "OUTPUT", "CACHE CREATE", "CACHE READ", "TOTAL", "COST")

	table := newTable(w, headers)
	for _, row := range rep.Rows {
		cells := []string{row.Key}
		if withProject {
			cells = append(cells, row.Project)
		}
		table.Append(append(cells, tokenCells(row.Tokens, row.Cost)...))

		for _, m := range row.Models {
			sub := []string{"  " + modelLabel(m)}
			if withProject {
				sub = append(sub, "")
			}
			table.Append(append(sub, tokenCells(m.Tokens, m.Cost)...))
		}
	}

	footer := []string{"TOTAL"}
	if withProject {
		footer = append(footer, "")
	}
	table.SetFooter(append(footer, tokenCells(rep.Totals.Tokens, rep.Totals.Cost)...))
	table.Render()

	if hasBreakdown(rep) {
		writeModelSummary(w, rep.Models)
	}
}

// hasBreakdown reports whether per-model rows were requested for this
// report.
func hasBreakdown(rep aggregate.Report) bool {
	for _, row := range rep.Rows {
		if row.Models != nil {
			return true
		}
	}
	return false
}

// WriteSessionsTable renders per-session rows, most recent first.
func WriteSessionsTable(w io.Writer, rep aggregate.Report) {
	loc := rep.Location
	if loc == nil {
		loc = time.UTC
	}

	table := newTable(w, []string{"SESSION", "PROJECT", "LAST ACTIVITY", "DURATION", "TOKENS", "COST", "STATE"})
	for _, row := range rep.Rows {
		state := "closed"
		if row.Active {
			state = "open"
		}
		table.Append([]string{
			row.Key,
			row.Project,
			row.Last.In(loc).Format("2006-01-02 15:04"),
			ShortDuration(row.Last.Sub(row.First)),
			Tokens(row.Tokens.Total()),
			Cost(row.Cost),
			state,
		})
	}
	table.SetFooter([]string{"TOTAL", "", "", "", Tokens(rep.Totals.Tokens.Total()), Cost(rep.Totals.Cost), ""})
	table.Render()

	if hasBreakdown(rep) {
		writeModelSummary(w, rep.Models)
	}
}

// WriteBlocksTable renders billing-block rows. tokenLimit > 0 adds the
// percent-of-limit column.
func WriteBlocksTable(w io.Writer, rep aggregate.Report, tokenLimit int64) {
	loc := rep.Location
	if loc == nil {
		loc = time.UTC
	}

	headers := []string{"START", "END", "TOKENS", "COST", "BURN", "PROJECTED", "STATUS"}
	if tokenLimit > 0 {
		headers = append(headers, "LIMIT")
	}

	table := newTable(w, headers)
	for _, row := range rep.Rows {
		burn, projected := "-", "-"
		status := "-"
		if row.Active {
			status = "ACTIVE " + ShortDuration(time.Until(row.Last)) + " left"
			if row.Burn != nil {
				burn = fmt.Sprintf("%s/h", Cost(row.Burn.CostPerHour))
				projected = Cost(row.Burn.ProjectedCost)
			}
		}
		cells := []string{
			row.First.In(loc).Format("2006-01-02 15:04"),
			row.Last.In(loc).Format("15:04"),
			Tokens(row.Tokens.Total()),
			Cost(row.Cost),
			burn,
			projected,
			status,
		}
		if tokenLimit > 0 {
			cells = append(cells, Percent(row.Tokens.Total(), tokenLimit))
		}
		table.Append(cells)

		for _, m := range row.Models {
			sub := []string{"  " + modelLabel(m), "", Tokens(m.Tokens.Total()), Cost(m.Cost), "", "", ""}
			if tokenLimit > 0 {
				sub = append(sub, "")
			}
			table.Append(sub)
		}
	}

	footer := []string{"TOTAL", "", Tokens(rep.Totals.Tokens.Total()), Cost(rep.Totals.Cost), "", "", ""}
	if tokenLimit > 0 {
		footer = append(footer, "")
	}
	table.SetFooter(footer)
	table.Render()
}

func modelLabel(m aggregate.ModelBreakdown) string {
	label := ShortModel(m.Model)
	if m.Unpriced {
		label += " (unpriced)"
	}
	return label
}

// writeModelSummary prints the report-wide per-model totals under the
// table when breakdowns were requested.
func writeModelSummary(w io.Writer, models []aggregate.ModelBreakdown) {
	if len(models) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, m := range models {
		fmt.Fprintf(w, "  %-24s %12s tokens %10s\n",
			modelLabel(m), Tokens(m.Tokens.Total()), Cost(m.Cost))
	}
}
