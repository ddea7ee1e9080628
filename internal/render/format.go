// Package render turns reports into terminal tables, JSON envelopes and
// the one-line statusline.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Cost renders a USD amount for table cells.
func Cost(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

// Tokens renders a token count with thousands grouping.
func Tokens(n int64) string {
	return humanize.Comma(n)
}

// CompactTokens renders a token count in the short form used in dense
// columns and chart labels.
func CompactTokens(n int64) string {
	v := float64(n)
	if v >= 1_000_000 {
		return fmt.Sprintf("%.1fM", v/1_000_000)
	}
	if v >= 1_000 {
		return fmt.Sprintf("%.1fK", v/1_000)
	}
	return fmt.Sprintf("%d", n)
}

// ShortModel trims the family prefix and date suffix from a model id for
// display: "claude-sonnet-4-20250514" becomes "sonnet-4".
func ShortModel(id string) string {
	out := strings.TrimPrefix(id, "claude-")
	if i := strings.LastIndex(out, "-"); i > 0 && isDateSuffix(out[i+1:]) {
		out = out[:i]
	}
	return out
}

func isDateSuffix(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ShortDuration renders a duration as 3h12m / 42m / 30s for statusline
// and table cells.
func ShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

// Percent renders a share as a whole-number percentage.
func Percent(part, whole int64) string {
	if whole <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d%%", part*100/whole)
}
