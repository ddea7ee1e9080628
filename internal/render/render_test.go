package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/usagelog"
)

func TestShortModel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"claude-sonnet-4-20250514", "sonnet-4"},
		{"claude-opus-4-1-20250805", "opus-4-1"},
		{"claude-3-5-haiku-20241022", "3-5-haiku"},
		{"claude-sonnet-4", "sonnet-4"},
		{"gpt-4o", "gpt-4o"},
		{"<synthetic>", "<synthetic>"},
	}
	for _, tc := range cases {
		if got := ShortModel(tc.in); got != tc.want {
			t.Errorf("ShortModel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCompactTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{950, "950"},
		{12_300, "12.3K"},
		{1_200_000, "1.2M"},
		{0, "0"},
	}
	for _, tc := range cases {
		if got := CompactTokens(tc.in); got != tc.want {
			t.Errorf("CompactTokens(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokens_Grouping(t *testing.T) {
	if got := Tokens(1_234_567); got != "1,234,567" {
		t.Fatalf("Tokens = %q", got)
	}
}

func TestShortDuration(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{3*time.Hour + 12*time.Minute, "3h12m"},
		{42 * time.Minute, "42m"},
		{30 * time.Second, "30s"},
		{-time.Minute, "0s"},
	}
	for _, tc := range cases {
		if got := ShortDuration(tc.in); got != tc.want {
			t.Errorf("ShortDuration(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenLimit(t *testing.T) {
	if v, err := TokenLimit("", 9000); err != nil || v != 0 {
		t.Errorf("empty limit = %d, %v", v, err)
	}
	if v, err := TokenLimit("max", 9000); err != nil || v != 9000 {
		t.Errorf("max limit = %d, %v", v, err)
	}
	if v, err := TokenLimit("500000", 0); err != nil || v != 500000 {
		t.Errorf("numeric limit = %d, %v", v, err)
	}
	if _, err := TokenLimit("plenty", 0); err == nil {
		t.Error("expected error for non-numeric limit")
	}
	if _, err := TokenLimit("-5", 0); err == nil {
		t.Error("expected error for negative limit")
	}
}

func bucketReport(breakdown bool) aggregate.Report {
	row := aggregate.Row{
		Key: "2025-03-10",
		Totals: aggregate.Totals{
			Tokens: usagelog.TokenCounts{Input: 1200, Output: 340},
			Cost:   2.5,
			Events: 3,
		},
	}
	models := []aggregate.ModelBreakdown{{
		Model:  "claude-sonnet-4-20250514",
		Tokens: usagelog.TokenCounts{Input: 1200, Output: 340},
		Cost:   2.5,
	}}
	if breakdown {
		row.Models = models
	}
	return aggregate.Report{
		Kind:     aggregate.KindDaily,
		Timezone: "UTC",
		Location: time.UTC,
		Rows:     []aggregate.Row{row},
		Totals:   row.Totals,
		Models:   models,
	}
}

func TestWriteBucketTable(t *testing.T) {
	var buf bytes.Buffer
	WriteBucketTable(&buf, bucketReport(false))
	out := buf.String()

	for _, want := range []string{"DATE", "2025-03-10", "1,200", "340", "$2.50", "TOTAL"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "sonnet-4") {
		t.Errorf("model rows rendered without breakdown:\n%s", out)
	}
}

func TestWriteBucketTable_Breakdown(t *testing.T) {
	var buf bytes.Buffer
	WriteBucketTable(&buf, bucketReport(true))
	out := buf.String()

	if !strings.Contains(out, "sonnet-4") {
		t.Errorf("breakdown output missing model row:\n%s", out)
	}
}

func TestWriteSessionsTable(t *testing.T) {
	last := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	rep := aggregate.Report{
		Kind:     aggregate.KindSessions,
		Timezone: "UTC",
		Location: time.UTC,
		Rows: []aggregate.Row{{
			Key:     "b7ec2a14",
			Project: "demo",
			Totals:  aggregate.Totals{Tokens: usagelog.TokenCounts{Input: 500}, Cost: 1.0, Events: 2},
			First:   last.Add(-time.Hour),
			Last:    last,
			Active:  true,
		}},
		Totals: aggregate.Totals{Tokens: usagelog.TokenCounts{Input: 500}, Cost: 1.0, Events: 2},
	}

	var buf bytes.Buffer
	WriteSessionsTable(&buf, rep)
	out := buf.String()
	for _, want := range []string{"b7ec2a14", "demo", "2025-03-10 15:30", "1h00m", "open"} {
		if !strings.Contains(out, want) {
			t.Errorf("sessions output missing %q:\n%s", want, out)
		}
	}
}

func blocksReport() aggregate.Report {
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return aggregate.Report{
		Kind:     aggregate.KindBlocks,
		Timezone: "UTC",
		Location: time.UTC,
		Rows: []aggregate.Row{{
			Key:    "2025-03-10T10:00:00Z",
			Totals: aggregate.Totals{Tokens: usagelog.TokenCounts{Input: 4500}, Cost: 1.0, Events: 5},
			First:  start,
			Last:   start.Add(5 * time.Hour),
			Active: true,
			Burn: &aggregate.Burn{
				CostPerHour:   0.5,
				TokensPerHour: 2250,
				ProjectedCost: 2.5,
				Remaining:     3 * time.Hour,
			},
		}},
		Totals:         aggregate.Totals{Tokens: usagelog.TokenCounts{Input: 4500}, Cost: 1.0, Events: 5},
		MaxBlockTokens: 9000,
	}
}

func TestWriteBlocksTable(t *testing.T) {
	var buf bytes.Buffer
	WriteBlocksTable(&buf, blocksReport(), 9000)
	out := buf.String()

	for _, want := range []string{"2025-03-10 10:00", "ACTIVE", "$0.50/h", "$2.50", "50%"} {
		if !strings.Contains(out, want) {
			t.Errorf("blocks output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON_Envelope(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, blocksReport()); err != nil {
		t.Fatalf("WriteJSON() error: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if out["kind"] != "blocks" || out["timezone"] != "UTC" {
		t.Fatalf("envelope = %v", out)
	}
	rows, ok := out["rows"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("rows = %v", out["rows"])
	}
	row := rows[0].(map[string]any)
	if row["total_tokens"].(float64) != 4500 || row["active"] != true {
		t.Fatalf("row = %v", row)
	}
	burn := row["burn"].(map[string]any)
	if burn["remaining_seconds"].(float64) != 10800 {
		t.Fatalf("burn = %v", burn)
	}
	if _, ok := out["model_breakdowns"]; !ok {
		t.Fatal("envelope missing model_breakdowns")
	}
	if out["max_block_tokens"].(float64) != 9000 {
		t.Fatalf("max_block_tokens = %v", out["max_block_tokens"])
	}
}

func TestStatusline(t *testing.T) {
	old := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = old }()

	rep := blocksReport()
	rep.Rows[0].Last = time.Now().Add(3 * time.Hour)

	var buf bytes.Buffer
	Statusline(&buf, aggregate.Totals{Cost: 12.34}, rep, 9000)
	out := buf.String()

	for _, want := range []string{"$12.34 today", "block ", " left", "$0.50/h", "of limit"} {
		if !strings.Contains(out, want) {
			t.Errorf("statusline missing %q: %s", want, out)
		}
	}

	buf.Reset()
	Statusline(&buf, aggregate.Totals{Cost: 0}, aggregate.Report{}, 0)
	if !strings.Contains(buf.String(), "no active block") {
		t.Errorf("idle statusline = %s", buf.String())
	}
}
