package aggregate

import (
	"sort"
	"strings"
	"time"
)

type rowKey struct {
	key     string
	project string
}

type rowAcc struct {
	totals Totals
	models modelMap
}

// Fold is an incremental bucket accumulator. Adding is commutative and
// associative across events, so partial folds built in parallel or across
// live ticks merge into the same result as one sequential pass.
type Fold struct {
	rows map[rowKey]*rowAcc
}

func NewFold() *Fold {
	return &Fold{rows: make(map[rowKey]*rowAcc)}
}

func (f *Fold) Add(key, project string, ev CostedEvent) {
	rk := rowKey{key: key, project: project}
	acc, ok := f.rows[rk]
	if !ok {
		acc = &rowAcc{models: make(modelMap)}
		f.rows[rk] = acc
	}
	acc.totals.add(ev)
	acc.models.add(ev)
}

func (f *Fold) Merge(o *Fold) {
	for rk, other := range o.rows {
		acc, ok := f.rows[rk]
		if !ok {
			acc = &rowAcc{models: make(modelMap)}
			f.rows[rk] = acc
		}
		acc.totals.merge(other.totals)
		acc.models.merge(other.models)
	}
}

func (f *Fold) Len() int { return len(f.rows) }

// Total sums every row filed under one bucket key.
func (f *Fold) Total(key string) Totals {
	var out Totals
	for rk, acc := range f.rows {
		if rk.key == key {
			out.merge(acc.totals)
		}
	}
	return out
}

// Rows flattens the fold, key-ascending then project-ascending.
func (f *Fold) Rows(withModels bool) []Row {
	keys := make([]rowKey, 0, len(f.rows))
	for rk := range f.rows {
		keys = append(keys, rk)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].key != keys[j].key {
			return keys[i].key < keys[j].key
		}
		return keys[i].project < keys[j].project
	})

	rows := make([]Row, 0, len(keys))
	for _, rk := range keys {
		acc := f.rows[rk]
		row := Row{Key: rk.key, Project: rk.project, Totals: acc.totals}
		if withModels {
			row.Models = acc.models.breakdowns()
		}
		rows = append(rows, row)
	}
	return rows
}

func (f *Fold) totalsAndModels() (Totals, modelMap) {
	var totals Totals
	models := make(modelMap)
	for _, acc := range f.rows {
		totals.merge(acc.totals)
		models.merge(acc.models)
	}
	return totals, models
}

func reverseRows(rows []Row) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

func bucketKeyFunc(kind Kind, opts Options) func(time.Time) string {
	loc := opts.location()
	switch kind {
	case KindWeekly:
		ws := opts.WeekStart
		return func(ts time.Time) string { return WeekKey(ts, loc, ws) }
	case KindMonthly:
		return func(ts time.Time) string { return MonthKey(ts, loc) }
	default:
		return func(ts time.Time) string { return DayKey(ts, loc) }
	}
}

// BuildBucketReport folds events into daily, weekly or monthly rows.
func BuildBucketReport(kind Kind, events []CostedEvent, opts Options) Report {
	keyFor := bucketKeyFunc(kind, opts)

	fold := NewFold()
	for _, ev := range events {
		if !opts.Admits(ev) {
			continue
		}
		project := ""
		if opts.Instances {
			project = ev.Project
		}
		fold.Add(keyFor(ev.Timestamp), project, ev)
	}

	rows := fold.Rows(opts.Breakdown)
	if opts.order() == OrderDesc {
		reverseRows(rows)
	}
	totals, models := fold.totalsAndModels()

	rep := Report{
		Kind:     kind,
		Timezone: opts.location().String(),
		Location: opts.location(),
		Since:    opts.Since,
		Until:    opts.Until,
		Rows:     rows,
		Totals:   totals,
		Models:   models.breakdowns(),
	}
	if kind == KindWeekly {
		rep.WeekStart = strings.ToLower(opts.WeekStart.String())
	}
	return rep
}

// BuildSessionsReport lists sessions by most recent activity. The order
// option does not apply: recency is the one ordering that makes sense for
// session rows, matching the upstream tool.
func BuildSessionsReport(events []CostedEvent, opts Options, idleTimeout time.Duration, now time.Time) Report {
	admitted := filterEvents(events, opts)
	sessions := GroupSessions(admitted, idleTimeout, now)

	var totals Totals
	models := make(modelMap)
	rows := make([]Row, 0, len(sessions))
	for _, s := range sessions {
		row := Row{
			Key:     s.ID,
			Project: s.Project,
			Totals:  s.Totals,
			First:   s.StartedAt,
			Last:    s.LastAt,
			Active:  s.Open,
		}
		if opts.Breakdown {
			row.Models = s.Models()
		}
		rows = append(rows, row)
		totals.merge(s.Totals)
		models.merge(s.models)
	}

	return Report{
		Kind:     KindSessions,
		Timezone: opts.location().String(),
		Location: opts.location(),
		Since:    opts.Since,
		Until:    opts.Until,
		Rows:     rows,
		Totals:   totals,
		Models:   models.breakdowns(),
	}
}

// BuildBlocksReport folds events into billing blocks. RecentDays windows
// the rows; the historical token peak is computed before windowing so a
// "max" token limit keeps meaning.
func BuildBlocksReport(events []CostedEvent, opts Options, duration time.Duration, anchor AnchorMode, now time.Time) Report {
	admitted := filterEvents(events, opts)
	blocks := GroupBlocks(admitted, duration, anchor, opts.location(), now)
	maxTokens := MaxBlockTokens(blocks)

	if opts.RecentDays > 0 {
		cutoff := now.AddDate(0, 0, -opts.RecentDays)
		kept := blocks[:0]
		for _, b := range blocks {
			if b.End.After(cutoff) {
				kept = append(kept, b)
			}
		}
		blocks = kept
	}

	loc := opts.location()
	var totals Totals
	models := make(modelMap)
	rows := make([]Row, 0, len(blocks))
	for _, b := range blocks {
		if opts.ActiveOnly && !b.Active {
			continue
		}
		row := Row{
			Key:    b.Start.In(loc).Format(time.RFC3339),
			Totals: b.Totals,
			First:  b.Start,
			Last:   b.End,
			Active: b.Active,
		}
		if b.Active && b.BurnRatePerHour > 0 {
			row.Burn = &Burn{
				CostPerHour:   b.BurnRatePerHour,
				TokensPerHour: b.TokensPerHour,
				ProjectedCost: b.ProjectedCost,
				Remaining:     b.Remaining,
			}
		}
		if opts.Breakdown {
			row.Models = b.Breakdowns()
		}
		rows = append(rows, row)
		totals.merge(b.Totals)
		models.merge(b.models)
	}

	if opts.order() == OrderDesc {
		reverseRows(rows)
	}

	return Report{
		Kind:           KindBlocks,
		Timezone:       loc.String(),
		Location:       loc,
		Since:          opts.Since,
		Until:          opts.Until,
		Rows:           rows,
		Totals:         totals,
		Models:         models.breakdowns(),
		MaxBlockTokens: maxTokens,
	}
}

func filterEvents(events []CostedEvent, opts Options) []CostedEvent {
	out := make([]CostedEvent, 0, len(events))
	for _, ev := range events {
		if opts.Admits(ev) {
			out = append(out, ev)
		}
	}
	return out
}
