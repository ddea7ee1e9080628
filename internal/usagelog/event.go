// Package usagelog reads Claude Code JSONL usage logs: it discovers log
// files under the configured data directories, parses usage records out of
// them, and filters duplicates that appear across files and processes.
package usagelog

import (
	"sort"
	"time"
)

// Schema identifies which log record layout an event was parsed from.
// Detection is per record, not per file: one file can span a migration.
type Schema string

const (
	// SchemaCurrent nests usage under message.usage with message.id.
	SchemaCurrent Schema = "current"
	// SchemaLegacy carries usage, model and message_id at the top level.
	SchemaLegacy Schema = "legacy"
)

// TokenCounts holds the four token kinds recorded per model invocation.
type TokenCounts struct {
	Input         int64
	Output        int64
	CacheCreation int64
	CacheRead     int64
}

func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheCreation + t.CacheRead
}

func (t *TokenCounts) Add(o TokenCounts) {
	t.Input += o.Input
	t.Output += o.Output
	t.CacheCreation += o.CacheCreation
	t.CacheRead += o.CacheRead
}

// Event is one recorded unit of token consumption. Immutable once parsed.
type Event struct {
	Timestamp time.Time // UTC
	Model     string
	Project   string
	Instance  string // source file stem
	SessionID string // conversation id: sessionId field, file stem fallback
	Tokens    TokenCounts
	CostUSD   *float64 // embedded cost from the source log, if any
	MessageID string
	RequestID string
	Schema    Schema
}

// DedupKey is the pair that identifies a duplicate log entry.
type DedupKey struct {
	MessageID string
	RequestID string
}

// Key returns the event's dedup key. ok is false when either component is
// missing; such events cannot be deduplicated and are always counted.
func (e Event) Key() (DedupKey, bool) {
	if e.MessageID == "" || e.RequestID == "" {
		return DedupKey{}, false
	}
	return DedupKey{MessageID: e.MessageID, RequestID: e.RequestID}, true
}

// SortByTime orders events chronologically with a deterministic tie-break,
// so grouping stages see the same order regardless of scan parallelism.
func SortByTime(events []Event) {
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
