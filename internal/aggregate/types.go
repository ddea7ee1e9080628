package aggregate

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"ccmeter/internal/pricing"
	"ccmeter/internal/usagelog"
)

// syntheticModel marks internal placeholder records in the source logs.
// Their tokens count toward totals but they never appear in breakdowns.
const syntheticModel = "<synthetic>"

// CostedEvent is a usage event with its cost resolved under the run's
// pricing table and mode.
type CostedEvent struct {
	usagelog.Event
	Cost     float64
	Unpriced bool
}

// CostEvents resolves pricing once per event. The zero-rate sentinel keeps
// unknown models at cost 0 and marks them unpriced.
func CostEvents(events []usagelog.Event, table *pricing.Table, mode pricing.Mode) []CostedEvent {
	out := make([]CostedEvent, 0, len(events))
	for _, ev := range events {
		entry, matched := table.Resolve(ev.Model)
		out = append(out, CostedEvent{
			Event:    ev,
			Cost:     pricing.Cost(ev, entry, mode),
			Unpriced: !matched && ev.Model != "",
		})
	}
	return out
}

// SortByTime orders costed events chronologically with the same tie-break
// as the parse layer, so grouping passes see a stable order.
func SortByTime(events []CostedEvent) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.SessionID != b.SessionID {
			return a.SessionID < b.SessionID
		}
		if a.MessageID != b.MessageID {
			return a.MessageID < b.MessageID
		}
		return a.RequestID < b.RequestID
	})
}

// Totals accumulates token and cost sums plus the event count behind them.
type Totals struct {
	Tokens usagelog.TokenCounts
	Cost   float64
	Events int64
}

func (t *Totals) add(ev CostedEvent) {
	t.Tokens.Add(ev.Tokens)
	t.Cost += ev.Cost
	t.Events++
}

func (t *Totals) merge(o Totals) {
	t.Tokens.Add(o.Tokens)
	t.Cost += o.Cost
	t.Events += o.Events
}

// ModelBreakdown is one model's share of a row or report.
type ModelBreakdown struct {
	Model    string
	Tokens   usagelog.TokenCounts
	Cost     float64
	Unpriced bool
}

type modelAcc struct {
	tokens   usagelog.TokenCounts
	cost     float64
	unpriced bool
}

type modelMap map[string]*modelAcc

func (m modelMap) add(ev CostedEvent) {
	if ev.Model == "" || ev.Model == syntheticModel {
		return
	}
	acc, ok := m[ev.Model]
	if !ok {
		acc = &modelAcc{}
		m[ev.Model] = acc
	}
	acc.tokens.Add(ev.Tokens)
	acc.cost += ev.Cost
	if ev.Unpriced {
		acc.unpriced = true
	}
}

func (m modelMap) merge(o modelMap) {
	for model, other := range o {
		acc, ok := m[model]
		if !ok {
			acc = &modelAcc{}
			m[model] = acc
		}
		acc.tokens.Add(other.tokens)
		acc.cost += other.cost
		if other.unpriced {
			acc.unpriced = true
		}
	}
}

// breakdowns flattens the map into name-sorted rows.
func (m modelMap) breakdowns() []ModelBreakdown {
	models := lo.Keys(m)
	sort.Strings(models)
	out := make([]ModelBreakdown, 0, len(models))
	for _, model := range models {
		acc := m[model]
		out = append(out, ModelBreakdown{
			Model:    model,
			Tokens:   acc.tokens,
			Cost:     acc.cost,
			Unpriced: acc.unpriced,
		})
	}
	return out
}

// Order directs report row sorting by bucket key.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Kind names a report type.
type Kind string

const (
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindMonthly  Kind = "monthly"
	KindSessions Kind = "sessions"
	KindBlocks   Kind = "blocks"
)

// Options carries the resolved configuration consumed by report builders.
type Options struct {
	Location  *time.Location
	WeekStart time.Weekday
	Since     string // inclusive local day key, "" = open
	Until     string
	Project   string // exact-match filters, "" = all
	Instance  string
	Instances bool // emit one row per (bucket, project/instance) pair
	Breakdown bool // include per-model breakdowns on rows
	Order     Order

	// Blocks reports only.
	RecentDays int  // keep blocks ending within the last N days, 0 = all
	ActiveOnly bool // keep only the active block
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) order() Order {
	if o.Order == "" {
		return OrderDesc
	}
	return o.Order
}

// Admits applies the project/instance and date-range filters. Range checks
// compare local day keys, which order lexicographically.
func (o Options) Admits(ev CostedEvent) bool {
	if o.Project != "" && ev.Project != o.Project {
		return false
	}
	if o.Instance != "" && ev.Instance != o.Instance {
		return false
	}
	if o.Since == "" && o.Until == "" {
		return true
	}
	day := DayKey(ev.Timestamp, o.location())
	if o.Since != "" && day < o.Since {
		return false
	}
	if o.Until != "" && day > o.Until {
		return false
	}
	return true
}

// Burn is the live-rate extrapolation attached to an active block row.
type Burn struct {
	CostPerHour   float64
	TokensPerHour float64
	ProjectedCost float64
	Remaining     time.Duration
}

// Row is one finished report row.
type Row struct {
	Key     string // day, week-start day, month, session id, or block start
	Project string // set when Instances grouping is on
	Totals
	Models []ModelBreakdown

	// Session and block rows only.
	First  time.Time
	Last   time.Time
	Active bool
	Burn   *Burn
}

// Report is the typed output handed to the rendering layer.
type Report struct {
	Kind      Kind
	Timezone  string
	Location  *time.Location
	WeekStart string // weekly reports only
	Since     string
	Until     string
	Rows      []Row
	Totals    Totals
	Models    []ModelBreakdown

	// Blocks reports carry the historical per-block token peak for
	// percent-of-limit rendering with a "max" token limit.
	MaxBlockTokens int64
}
