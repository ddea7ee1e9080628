package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// DefaultBlockDuration matches the upstream 5-hour billing window.
const DefaultBlockDuration = 5 * time.Hour

// AnchorMode decides where a new block's window starts.
type AnchorMode string

const (
	// AnchorFirstEvent starts the window at the opening event's timestamp.
	AnchorFirstEvent AnchorMode = "first-event"
	// AnchorGrid snaps the start to a wall-clock grid aligned to local
	// midnight, the way the upstream tool draws block boundaries.
	AnchorGrid AnchorMode = "grid"
)

// ParseAnchorMode reads the configured anchor name. Empty input means
// first-event.
func ParseAnchorMode(s string) (AnchorMode, error) {
	switch AnchorMode(strings.ToLower(strings.TrimSpace(s))) {
	case AnchorFirstEvent, "":
		return AnchorFirstEvent, nil
	case AnchorGrid:
		return AnchorGrid, nil
	}
	return "", fmt.Errorf("unknown block anchor %q", s)
}

// Block is one fixed-duration accounting window.
type Block struct {
	Start  time.Time
	End    time.Time
	Totals Totals
	models modelMap
	Active bool

	// Populated on the active block only.
	BurnRatePerHour float64 // USD/h over the observed span
	TokensPerHour   float64
	ProjectedCost   float64 // burn rate extended to the full window
	Remaining       time.Duration
}

// Models returns the model ids seen in the block, name-sorted.
func (b *Block) Models() []string {
	names := lo.Keys(b.models)
	sort.Strings(names)
	return names
}

// Breakdowns returns the block's per-model totals, name-sorted.
func (b *Block) Breakdowns() []ModelBreakdown {
	return b.models.breakdowns()
}

func anchorStart(ts time.Time, duration time.Duration, anchor AnchorMode, loc *time.Location) time.Time {
	if anchor != AnchorGrid {
		return ts
	}
	local := ts.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	durHours := int(duration / time.Hour)
	if durHours < 1 {
		durHours = 1
	}
	slot := local.Hour() / durHours * durHours
	return midnight.Add(time.Duration(slot) * time.Hour)
}

// GroupBlocks folds time-sorted events into non-overlapping blocks. An
// event inside the current window appends; an event past the window closes
// it and opens a new one at the event's anchor point. Idle gaps produce no
// empty blocks. now decides whether the final block is still active and
// carries its burn figures.
func GroupBlocks(events []CostedEvent, duration time.Duration, anchor AnchorMode, loc *time.Location, now time.Time) []*Block {
	if duration <= 0 {
		duration = DefaultBlockDuration
	}
	if loc == nil {
		loc = time.UTC
	}

	var blocks []*Block
	var cur *Block

	for _, ev := range events {
		if cur == nil || !ev.Timestamp.Before(cur.End) {
			start := anchorStart(ev.Timestamp, duration, anchor, loc)
			cur = &Block{
				Start:  start,
				End:    start.Add(duration),
				models: make(modelMap),
			}
			blocks = append(blocks, cur)
		}
		cur.Totals.add(ev)
		cur.models.add(ev)
	}

	if cur != nil && now.Before(cur.End) && !now.Before(cur.Start) {
		cur.Active = true
		cur.Remaining = cur.End.Sub(now)

		elapsed := now.Sub(cur.Start)
		if elapsed > time.Minute {
			hours := elapsed.Hours()
			cur.BurnRatePerHour = cur.Totals.Cost / hours
			cur.TokensPerHour = float64(cur.Totals.Tokens.Total()) / hours
			cur.ProjectedCost = cur.BurnRatePerHour * duration.Hours()
		}
	}

	return blocks
}

// MaxBlockTokens is the historical per-block token peak, used when the
// token limit is configured as "max".
func MaxBlockTokens(blocks []*Block) int64 {
	var max int64
	for _, b := range blocks {
		if t := b.Totals.Tokens.Total(); t > max {
			max = t
		}
	}
	return max
}
