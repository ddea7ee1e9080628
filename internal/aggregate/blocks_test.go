package aggregate

import (
	"testing"
	"time"
)

func TestGroupBlocks_GapOpensNewWindow(t *testing.T) {
	base := mustTime(t, "2025-03-10T10:00:00Z")
	events := []CostedEvent{
		usageAt(t, "2025-03-10T10:00:00Z", "demo", "s1", "m1", 100, 1.0),
		usageAt(t, "2025-03-10T14:00:00Z", "demo", "s1", "m1", 100, 1.0),
		usageAt(t, "2025-03-10T16:00:00Z", "demo", "s1", "m1", 100, 1.0),
	}
	now := mustTime(t, "2025-03-12T00:00:00Z")

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if !blocks[0].Start.Equal(base) || !blocks[0].End.Equal(base.Add(5*time.Hour)) {
		t.Fatalf("first window = [%s, %s)", blocks[0].Start, blocks[0].End)
	}
	if !blocks[1].Start.Equal(base.Add(6*time.Hour)) || !blocks[1].End.Equal(base.Add(11*time.Hour)) {
		t.Fatalf("second window = [%s, %s)", blocks[1].Start, blocks[1].End)
	}
	if blocks[0].Totals.Events != 2 || blocks[1].Totals.Events != 1 {
		t.Fatalf("membership = %d/%d, want 2/1", blocks[0].Totals.Events, blocks[1].Totals.Events)
	}
	if blocks[0].Active || blocks[1].Active {
		t.Fatalf("no block should be active after both windows passed")
	}
}

func TestGroupBlocks_EventsPartitionIntoWindows(t *testing.T) {
	events := []CostedEvent{
		usageAt(t, "2025-03-10T10:00:00Z", "demo", "s1", "m1", 10, 0.1),
		usageAt(t, "2025-03-10T12:30:00Z", "demo", "s1", "m1", 10, 0.1),
		// Exactly the window end: belongs to the next block.
		usageAt(t, "2025-03-10T15:00:00Z", "demo", "s1", "m1", 10, 0.1),
		usageAt(t, "2025-03-11T09:00:00Z", "demo", "s1", "m1", 10, 0.1),
	}
	now := mustTime(t, "2025-03-12T00:00:00Z")

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}

	var covered int64
	for _, ev := range events {
		hits := 0
		for _, b := range blocks {
			if !ev.Timestamp.Before(b.Start) && ev.Timestamp.Before(b.End) {
				hits++
			}
		}
		if hits != 1 {
			t.Fatalf("event at %s falls in %d windows", ev.Timestamp, hits)
		}
		covered++
	}
	var assigned int64
	for _, b := range blocks {
		assigned += b.Totals.Events
	}
	if assigned != covered {
		t.Fatalf("assigned %d events, want %d", assigned, covered)
	}
}

func TestGroupBlocks_ActiveBlockBurn(t *testing.T) {
	now := mustTime(t, "2025-03-10T12:00:00Z")
	events := []CostedEvent{
		usageAt(t, "2025-03-10T10:00:00Z", "demo", "s1", "m1", 3000, 1.0),
	}

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if !b.Active {
		t.Fatalf("block covering now should be active")
	}
	if b.Remaining != 3*time.Hour {
		t.Fatalf("remaining = %s, want 3h", b.Remaining)
	}
	if b.BurnRatePerHour != 0.5 {
		t.Fatalf("burn rate = %v, want 0.5", b.BurnRatePerHour)
	}
	if b.TokensPerHour != 1500 {
		t.Fatalf("tokens per hour = %v, want 1500", b.TokensPerHour)
	}
	if b.ProjectedCost != 2.5 {
		t.Fatalf("projected cost = %v, want 2.5", b.ProjectedCost)
	}
}

func TestGroupBlocks_ExpiredBlockNotActive(t *testing.T) {
	now := mustTime(t, "2025-03-10T16:00:01Z")
	events := []CostedEvent{
		usageAt(t, "2025-03-10T11:00:00Z", "demo", "s1", "m1", 10, 0.1),
	}

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if blocks[0].Active {
		t.Fatalf("window ended at 16:00, block must not be active")
	}
	if blocks[0].BurnRatePerHour != 0 {
		t.Fatalf("inactive block carries burn rate %v", blocks[0].BurnRatePerHour)
	}
}

func TestGroupBlocks_GridAnchor(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 11:30 UTC is 13:30 local, which sits in the 10:00-15:00 local slot.
	events := []CostedEvent{
		usageAt(t, "2025-03-10T11:30:00Z", "demo", "s1", "m1", 10, 0.1),
	}
	now := mustTime(t, "2025-03-12T00:00:00Z")

	blocks := GroupBlocks(events, 5*time.Hour, AnchorGrid, loc, now)
	wantStart := time.Date(2025, 3, 10, 10, 0, 0, 0, loc)
	if !blocks[0].Start.Equal(wantStart) {
		t.Fatalf("grid start = %s, want %s", blocks[0].Start, wantStart)
	}
	if !blocks[0].End.Equal(wantStart.Add(5 * time.Hour)) {
		t.Fatalf("grid end = %s", blocks[0].End)
	}
}

func TestGroupBlocks_IdleGapProducesNoEmptyBlocks(t *testing.T) {
	events := []CostedEvent{
		usageAt(t, "2025-03-10T10:00:00Z", "demo", "s1", "m1", 10, 0.1),
		usageAt(t, "2025-03-11T09:00:00Z", "demo", "s1", "m1", 10, 0.1),
	}
	now := mustTime(t, "2025-03-12T00:00:00Z")

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if len(blocks) != 2 {
		t.Fatalf("idle gap should yield 2 blocks, got %d", len(blocks))
	}
}

func TestParseAnchorMode(t *testing.T) {
	cases := []struct {
		in      string
		want    AnchorMode
		wantErr bool
	}{
		{"", AnchorFirstEvent, false},
		{"first-event", AnchorFirstEvent, false},
		{"Grid", AnchorGrid, false},
		{"midnight", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAnchorMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAnchorMode(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseAnchorMode(%q) = %s, %v; want %s", tc.in, got, err, tc.want)
		}
	}
}

func TestMaxBlockTokens(t *testing.T) {
	events := []CostedEvent{
		usageAt(t, "2025-03-10T10:00:00Z", "demo", "s1", "m1", 500, 0.1),
		usageAt(t, "2025-03-10T11:00:00Z", "demo", "s1", "m1", 700, 0.1),
		usageAt(t, "2025-03-11T10:00:00Z", "demo", "s1", "m1", 900, 0.1),
	}
	now := mustTime(t, "2025-03-12T00:00:00Z")

	blocks := GroupBlocks(events, 5*time.Hour, AnchorFirstEvent, time.UTC, now)
	if got := MaxBlockTokens(blocks); got != 1200 {
		t.Fatalf("max block tokens = %d, want 1200", got)
	}
	if got := MaxBlockTokens(nil); got != 0 {
		t.Fatalf("max of no blocks = %d", got)
	}
}
