// Package live drives the incremental recompute loop behind watch mode:
// one goroutine owns the deduper, per-file offsets and running aggregates,
// re-reads only appended bytes each tick, and publishes immutable
// snapshots for the statusline and dashboard.
package live

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/pricing"
	"ccmeter/internal/usagelog"
)

const (
	DefaultTickInterval = 5 * time.Second
	DefaultStallTimeout = 10 * time.Second
)

// Config carries the resolved settings the engine runs under.
type Config struct {
	Dirs          []string
	Table         *pricing.Table
	Mode          pricing.Mode
	Options       aggregate.Options
	BlockDuration time.Duration
	Anchor        aggregate.AnchorMode
	TickInterval  time.Duration
	StallTimeout  time.Duration
	Watch         bool // fsnotify wake-ups on top of the ticker
}

// Snapshot is the published view of live state after one pass. Reports are
// rebuilt from scratch each pass, so a snapshot shares no memory with the
// engine's mutable state.
type Snapshot struct {
	At       time.Time
	Blocks   aggregate.Report
	Today    aggregate.Totals
	TodayKey string

	Files      int
	Events     int64
	Failed     int64
	Duplicates int64
	Mismatches int64
}

// ActiveBlock returns the in-progress block row, if any.
func (s Snapshot) ActiveBlock() (aggregate.Row, bool) {
	for _, row := range s.Blocks.Rows {
		if row.Active {
			return row, true
		}
	}
	return aggregate.Row{}, false
}

type fileState struct {
	offset int64
}

// Engine owns all mutable live state. Run is the single mutator; everyone
// else sees value snapshots.
type Engine struct {
	cfg   Config
	dedup *usagelog.Deduper

	files  map[string]*fileState
	events []aggregate.CostedEvent
	days   *aggregate.Fold
	failed int64

	mu   sync.Mutex
	last Snapshot

	updates chan Snapshot

	logMu     sync.Mutex
	lastLogAt map[string]time.Time
}

func NewEngine(cfg Config) *Engine {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.StallTimeout <= 0 {
		cfg.StallTimeout = DefaultStallTimeout
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = aggregate.DefaultBlockDuration
	}
	return &Engine{
		cfg:       cfg,
		dedup:     usagelog.NewDeduper(),
		files:     make(map[string]*fileState),
		days:      aggregate.NewFold(),
		updates:   make(chan Snapshot, 1),
		lastLogAt: make(map[string]time.Time),
	}
}

// Updates streams snapshots, latest wins: when the consumer lags, the
// stale snapshot is dropped rather than blocking the engine.
func (e *Engine) Updates() <-chan Snapshot { return e.updates }

// Snapshot returns the most recently published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Run drives the loop until ctx is cancelled: one pass immediately, then
// one per tick or filesystem wake-up. Cancellation is a normal stop.
func (e *Engine) Run(ctx context.Context) {
	var wake <-chan struct{}
	if e.cfg.Watch {
		w, err := newWatcher(e.cfg.Dirs)
		if err != nil {
			// Polling stays the correctness backstop.
			warnf("watch_init", "err=%v", err)
		} else {
			defer w.Close()
			go w.Run(ctx)
			wake = w.Wake()
		}
	}

	e.pass(ctx, time.Now())

	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logf("stopped", "")
			return
		case <-ticker.C:
		case <-wake:
		}
		if ctx.Err() != nil {
			logf("stopped", "")
			return
		}
		e.pass(ctx, time.Now())

		// A tick or wake that fired mid-pass is dropped, not queued.
		select {
		case <-ticker.C:
		default:
		}
		if wake != nil {
			select {
			case <-wake:
			default:
			}
		}
	}
}

// pass reads appended bytes from every known or newly discovered file,
// folds the admitted delta into held state and publishes a snapshot.
func (e *Engine) pass(ctx context.Context, now time.Time) {
	paths := usagelog.CollectFiles(e.cfg.Dirs)
	sort.Strings(paths)

	var delta []usagelog.Event
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		st, ok := e.files[path]
		if !ok {
			st = &fileState{}
			e.files[path] = st
		}

		if info, err := os.Stat(path); err == nil && info.Size() < st.offset {
			// Truncated or rewritten: replay from the start. The deduper
			// keeps already-seen lines from counting twice.
			logf("truncated", "file=%s", path)
			st.offset = 0
		}

		rctx, cancel := context.WithTimeout(ctx, e.cfg.StallTimeout)
		events, off, stats, err := usagelog.ReadFileFrom(rctx, path, st.offset, e.dedup)
		cancel()

		st.offset = off
		e.failed += int64(stats.Failed)
		delta = append(delta, events...)

		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			if e.shouldLog("read_stall:"+path, time.Minute) {
				warnf("read_stall", "file=%s offset=%d", path, off)
			}
		case ctx.Err() != nil:
			return
		default:
			if e.shouldLog("read_error:"+path, time.Minute) {
				warnf("read_error", "file=%s err=%v", path, err)
			}
		}
	}

	if len(delta) > 0 {
		deltaFold := aggregate.NewFold()
		loc := e.cfg.Options.Location
		if loc == nil {
			loc = time.UTC
		}
		for _, ev := range aggregate.CostEvents(delta, e.cfg.Table, e.cfg.Mode) {
			if !e.cfg.Options.Admits(ev) {
				continue
			}
			e.events = append(e.events, ev)
			deltaFold.Add(aggregate.DayKey(ev.Timestamp, loc), "", ev)
		}
		e.days.Merge(deltaFold)
		aggregate.SortByTime(e.events)
	}

	e.publish(e.buildSnapshot(now))
}

func (e *Engine) buildSnapshot(now time.Time) Snapshot {
	blocks := aggregate.BuildBlocksReport(e.events, e.cfg.Options,
		e.cfg.BlockDuration, e.cfg.Anchor, now)

	loc := e.cfg.Options.Location
	if loc == nil {
		loc = time.UTC
	}
	todayKey := aggregate.DayKey(now, loc)

	return Snapshot{
		At:         now,
		Blocks:     blocks,
		Today:      e.days.Total(todayKey),
		TodayKey:   todayKey,
		Files:      len(e.files),
		Events:     int64(len(e.events)),
		Failed:     e.failed,
		Duplicates: e.dedup.Duplicates(),
		Mismatches: e.dedup.Mismatches(),
	}
}

func (e *Engine) publish(s Snapshot) {
	e.mu.Lock()
	e.last = s
	e.mu.Unlock()

	for {
		select {
		case e.updates <- s:
			return
		default:
		}
		select {
		case <-e.updates:
		default:
		}
	}
}

func (e *Engine) shouldLog(key string, interval time.Duration) bool {
	e.logMu.Lock()
	defer e.logMu.Unlock()
	now := time.Now()
	if last, ok := e.lastLogAt[key]; ok && now.Sub(last) < interval {
		return false
	}
	e.lastLogAt[key] = now
	return true
}
