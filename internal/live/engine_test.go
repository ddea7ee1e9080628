package live

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/pricing"
)

func testConfig(dirs ...string) Config {
	return Config{
		Dirs: dirs,
		Table: pricing.NewTable("test", map[string]pricing.Entry{
			"m1": {InputPerMillion: 10_000, OutputPerMillion: 20_000},
		}),
		Mode:    pricing.ModeCalculate,
		Options: aggregate.Options{Location: time.UTC, Order: aggregate.OrderAsc},
		Anchor:  aggregate.AnchorFirstEvent,
	}
}

func logDir(t *testing.T, root, project string) string {
	t.Helper()
	dir := filepath.Join(root, "projects", project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func usageLine(ts, session, msgID string, input int) string {
	return `{"timestamp":"` + ts + `","sessionId":"` + session + `","message":{"id":"` + msgID +
		`","model":"m1","usage":{"input_tokens":` + strconv.Itoa(input) +
		`,"output_tokens":50}},"requestId":"req-` + msgID + `"}` + "\n"
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("append %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func TestEngine_PassReadsOnlyAppendedBytes(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path, usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100))

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T10:30:00Z")
	e.pass(context.Background(), now)

	snap := e.Snapshot()
	if snap.Events != 1 || snap.Files != 1 {
		t.Fatalf("first pass snapshot = %+v", snap)
	}
	if snap.Today.Tokens.Input != 100 {
		t.Fatalf("today input = %d", snap.Today.Tokens.Input)
	}

	appendFile(t, path, usageLine("2025-03-10T10:15:00Z", "s1", "msg_2", 200))
	e.pass(context.Background(), now)

	snap = e.Snapshot()
	if snap.Events != 2 {
		t.Fatalf("after append snapshot events = %d", snap.Events)
	}
	if snap.Today.Tokens.Input != 300 {
		t.Fatalf("today input = %d, want 300", snap.Today.Tokens.Input)
	}
	if snap.Duplicates != 0 {
		t.Fatalf("append-only growth produced %d duplicates", snap.Duplicates)
	}
}

func TestEngine_IdlePassChangesNothing(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path, usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100))

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T10:30:00Z")
	e.pass(context.Background(), now)
	before := e.Snapshot()

	e.pass(context.Background(), now)
	after := e.Snapshot()
	if after.Events != before.Events || after.Today != before.Today {
		t.Fatalf("idle pass changed state: %+v vs %+v", after, before)
	}
}

func TestEngine_TruncationReplayIsDeduped(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	first := usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100)
	second := usageLine("2025-03-10T10:10:00Z", "s1", "msg_2", 200)
	appendFile(t, path, first+second)

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T10:30:00Z")
	e.pass(context.Background(), now)
	if e.Snapshot().Events != 2 {
		t.Fatalf("initial events = %d", e.Snapshot().Events)
	}

	// Rewrite the file shorter than the stored offset: the engine replays
	// from byte 0 and the deduper absorbs the lines it already saw.
	if err := os.WriteFile(path, []byte(first), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	e.pass(context.Background(), now)

	snap := e.Snapshot()
	if snap.Events != 2 {
		t.Fatalf("events after replay = %d, want 2", snap.Events)
	}
	if snap.Duplicates != 1 {
		t.Fatalf("duplicates after replay = %d, want 1", snap.Duplicates)
	}
	if snap.Today.Tokens.Input != 300 {
		t.Fatalf("today input after replay = %d, want 300", snap.Today.Tokens.Input)
	}
}

func TestEngine_DiscoversNewFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path, usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100))

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T10:30:00Z")
	e.pass(context.Background(), now)

	other := filepath.Join(logDir(t, root, "other"), "sess-2.jsonl")
	appendFile(t, other, usageLine("2025-03-10T10:20:00Z", "s2", "msg_9", 400))
	e.pass(context.Background(), now)

	snap := e.Snapshot()
	if snap.Files != 2 || snap.Events != 2 {
		t.Fatalf("snapshot after new file = %+v", snap)
	}
}

func TestEngine_ActiveBlockInSnapshot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path, usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100))

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T12:00:00Z")
	e.pass(context.Background(), now)

	row, ok := e.Snapshot().ActiveBlock()
	if !ok {
		t.Fatalf("expected an active block")
	}
	if row.Burn == nil || row.Burn.Remaining != 3*time.Hour {
		t.Fatalf("active row burn = %+v", row.Burn)
	}
}

func TestEngine_TodayExcludesOtherDays(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path,
		usageLine("2025-03-09T10:00:00Z", "s1", "msg_1", 100)+
			usageLine("2025-03-10T10:00:00Z", "s1", "msg_2", 200))

	e := NewEngine(testConfig(root))
	now := mustTime(t, "2025-03-10T12:00:00Z")
	e.pass(context.Background(), now)

	snap := e.Snapshot()
	if snap.TodayKey != "2025-03-10" {
		t.Fatalf("today key = %s", snap.TodayKey)
	}
	if snap.Today.Tokens.Input != 200 {
		t.Fatalf("today input = %d, want 200", snap.Today.Tokens.Input)
	}
	if snap.Events != 2 {
		t.Fatalf("held events = %d", snap.Events)
	}
}

func TestEngine_PublishLatestWins(t *testing.T) {
	e := NewEngine(testConfig(t.TempDir()))

	e.publish(Snapshot{Events: 1})
	e.publish(Snapshot{Events: 2})
	e.publish(Snapshot{Events: 3})

	select {
	case snap := <-e.Updates():
		if snap.Events != 3 {
			t.Fatalf("received snapshot %d, want latest", snap.Events)
		}
	default:
		t.Fatalf("no snapshot pending")
	}
	if e.Snapshot().Events != 3 {
		t.Fatalf("accessor snapshot = %d", e.Snapshot().Events)
	}
}

func TestEngine_CancelledPassPublishesNothing(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(logDir(t, root, "demo"), "sess-1.jsonl")
	appendFile(t, path, usageLine("2025-03-10T10:00:00Z", "s1", "msg_1", 100))

	e := NewEngine(testConfig(root))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.pass(ctx, mustTime(t, "2025-03-10T12:00:00Z"))

	if snap := e.Snapshot(); !snap.At.IsZero() {
		t.Fatalf("cancelled pass published %+v", snap)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %s: %v", value, err)
	}
	return ts
}
