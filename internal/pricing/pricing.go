// Package pricing maps model identifiers to per-token rates and computes
// event costs. The table ships embedded in the binary and can be overlaid
// by a local file; nothing here touches the network.
package pricing

import (
	"fmt"
	"sort"
	"strings"

	"ccmeter/internal/usagelog"
)

// Entry holds USD rates per million tokens for one model.
type Entry struct {
	InputPerMillion       float64 `json:"input"`
	OutputPerMillion      float64 `json:"output"`
	CacheCreatePerMillion float64 `json:"cache_create"`
	CacheReadPerMillion   float64 `json:"cache_read"`
}

// Zero is the sentinel for models the table does not know. Costs resolve
// to 0 and the row is flagged unpriced downstream.
var Zero Entry

// Mode selects how an event's cost is derived.
type Mode string

const (
	// ModeAuto uses the log's embedded cost when present, else calculates.
	ModeAuto Mode = "auto"
	// ModePreferField behaves like auto; the name matches the CLI surface.
	ModePreferField Mode = "prefer-field"
	// ModeCalculate always recomputes from token counts and rates.
	ModeCalculate Mode = "calculate"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModePreferField:
		return ModePreferField, nil
	case ModeCalculate:
		return ModeCalculate, nil
	}
	return "", fmt.Errorf("unknown cost mode %q", s)
}

// Normalize lowercases a model id and strips provider routing prefixes so
// log variants of the same model hit one table key.
func Normalize(model string) string {
	m := strings.ToLower(strings.TrimSpace(model))
	for _, prefix := range []string{"anthropic/", "openrouter/", "openai/"} {
		m = strings.TrimPrefix(m, prefix)
	}
	return m
}

type tableEntry struct {
	key   string
	entry Entry
}

// Table is an immutable pricing index. Keys are matched longest-first so a
// dated id beats its family fallback.
type Table struct {
	version string
	entries []tableEntry
}

// NewTable indexes models under both their raw and normalized keys,
// first-wins, then orders keys longest first for prefix matching.
func NewTable(version string, models map[string]Entry) *Table {
	combined := make(map[string]Entry, len(models)*2)
	keys := make([]string, 0, len(models))
	for k := range models {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := combined[k]; !ok {
			combined[k] = models[k]
		}
		norm := Normalize(k)
		if _, ok := combined[norm]; !ok {
			combined[norm] = models[k]
		}
	}

	entries := make([]tableEntry, 0, len(combined))
	for k, e := range combined {
		entries = append(entries, tableEntry{key: k, entry: e})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].key) != len(entries[j].key) {
			return len(entries[i].key) > len(entries[j].key)
		}
		return entries[i].key < entries[j].key
	})

	return &Table{version: version, entries: entries}
}

func (t *Table) Version() string { return t.version }

func (t *Table) Len() int { return len(t.entries) }

// Resolve returns the rates for a model id. Never fails: unmatched ids get
// the zero sentinel and matched=false.
func (t *Table) Resolve(model string) (Entry, bool) {
	if model == "" {
		return Zero, false
	}
	norm := Normalize(model)
	for _, te := range t.entries {
		if strings.HasPrefix(norm, te.key) {
			return te.entry, true
		}
	}
	return Zero, false
}

// Cost derives one event's cost under the given mode. Rates are applied
// per token kind; cache tokens are billed only at their own rates.
func Cost(ev usagelog.Event, entry Entry, mode Mode) float64 {
	if mode != ModeCalculate && ev.CostUSD != nil && *ev.CostUSD >= 0 {
		return *ev.CostUSD
	}
	return calculate(ev.Tokens, entry)
}

func calculate(tk usagelog.TokenCounts, entry Entry) float64 {
	const million = 1_000_000
	cost := float64(tk.Input) * entry.InputPerMillion / million
	cost += float64(tk.Output) * entry.OutputPerMillion / million
	cost += float64(tk.CacheCreation) * entry.CacheCreatePerMillion / million
	cost += float64(tk.CacheRead) * entry.CacheReadPerMillion / million
	return cost
}
