package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"ccmeter/internal/aggregate"
)

// Statusline prints the one-line summary for prompt embedding: today's
// spend, then the active block's remaining time, burn rate and share of
// the token limit when one is configured.
func Statusline(w io.Writer, today aggregate.Totals, blocks aggregate.Report, tokenLimit int64) {
	parts := []string{
		color.GreenString("%s today", Cost(today.Cost)),
	}

	if row, ok := activeRow(blocks); ok {
		parts = append(parts, color.CyanString("block %s left", ShortDuration(time.Until(row.Last))))
		if row.Burn != nil {
			parts = append(parts, color.YellowString("%s/h", Cost(row.Burn.CostPerHour)))
		}
		if tokenLimit > 0 {
			parts = append(parts, limitPart(row.Tokens.Total(), tokenLimit))
		}
	} else {
		parts = append(parts, "no active block")
	}

	fmt.Fprintln(w, strings.Join(parts, " | "))
}

func activeRow(rep aggregate.Report) (aggregate.Row, bool) {
	for _, row := range rep.Rows {
		if row.Active {
			return row, true
		}
	}
	return aggregate.Row{}, false
}

func limitPart(tokens, limit int64) string {
	used := tokens * 100 / limit
	text := fmt.Sprintf("%d%% of limit", used)
	switch {
	case used >= 90:
		return color.RedString("%s", text)
	case used >= 70:
		return color.YellowString("%s", text)
	default:
		return color.GreenString("%s", text)
	}
}
