package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/render"
)

const (
	blockChartHeight   = 6
	blockChartBarWidth = 3
	blockChartBarGap   = 1
	blockChartMaxBars  = 16
)

// RenderBlockChart draws one cost bar per billing block, oldest on the
// left, the active block in the accent color.
func RenderBlockChart(rep aggregate.Report, width int) string {
	rows := rep.Rows
	if len(rows) == 0 {
		return dimStyle.Render("no blocks yet")
	}
	if len(rows) > blockChartMaxBars {
		rows = rows[:blockChartMaxBars]
	}

	var maxCost float64
	for _, row := range rows {
		if row.Cost > maxCost {
			maxCost = row.Cost
		}
	}
	scale := maxCost
	if scale == 0 {
		scale = 1
	}

	chartWidth := len(rows)*(blockChartBarWidth+blockChartBarGap) + 4
	if width > 0 && chartWidth > width {
		chartWidth = width
	}

	chart := barchart.New(chartWidth, blockChartHeight,
		barchart.WithStyles(chartAxisStyle, chartLabelStyle),
	)
	chart.SetBarWidth(blockChartBarWidth)
	chart.SetBarGap(blockChartBarGap)
	chart.SetMax(scale)

	loc := rep.Location
	if loc == nil {
		loc = time.UTC
	}
	// Rows come newest first; draw chronologically.
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		style := chartBarStyle
		if row.Active {
			style = chartActiveBarStyle
		}
		label := row.First.In(loc).Format("15:04")
		chart.Push(barchart.BarData{
			Label: label,
			Values: []barchart.BarValue{
				{Name: "cost", Value: row.Cost, Style: style},
			},
		})
	}
	chart.Draw()

	var sb strings.Builder
	sb.WriteString(chartLabelStyle.Render(fmt.Sprintf("cost per block, peak %s", render.Cost(maxCost))))
	sb.WriteString("\n")
	sb.WriteString(chart.View())
	return sb.String()
}
