package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/config"
	"ccmeter/internal/render"
)

func newStatuslineCommand(cfg config.Config) *cobra.Command {
	var dirs []string
	var timezone, mode, tokenLimit string

	cmd := &cobra.Command{
		Use:   "statusline",
		Short: "One-line usage summary for prompts and editors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			drainHookPayload(os.Stdin)

			fl := config.Flags{Dirs: dirs, Timezone: timezone, Mode: mode, TokenLimit: tokenLimit}
			r, err := cfg.Resolve("statusline", fl)
			if err != nil {
				return err
			}
			events, err := loadEvents(cmd.Context(), r)
			if err != nil {
				return err
			}

			now := time.Now()
			opts := r.Options()
			blocks := aggregate.BuildBlocksReport(events, opts,
				r.BlockDuration, r.Anchor, now)
			limit, err := render.TokenLimit(r.TokenLimit, blocks.MaxBlockTokens)
			if err != nil {
				return err
			}

			render.Statusline(cmd.OutOrStdout(), todayTotals(events, opts, now), blocks, limit)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&dirs, "dirs", nil, "usage log directories (default: Claude Code data dirs)")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for the day boundary (default: local)")
	cmd.Flags().StringVar(&mode, "mode", "", "cost mode: auto, calculate, or prefer-field")
	cmd.Flags().StringVar(&tokenLimit, "token-limit", "", "token limit for the percent part (number or \"max\")")
	return cmd
}

// todayTotals sums the current local day. Instance splitting is forced off
// so the line reflects the whole day regardless of section settings.
func todayTotals(events []aggregate.CostedEvent, opts aggregate.Options, now time.Time) aggregate.Totals {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	key := aggregate.DayKey(now, loc)
	opts.Instances = false
	daily := aggregate.BuildBucketReport(aggregate.KindDaily, events, opts)
	for _, row := range daily.Rows {
		if row.Key == key {
			return row.Totals
		}
	}
	return aggregate.Totals{}
}

// drainHookPayload consumes the JSON hook payload from stdin when the
// command is piped. The payload names the calling session; the summary
// covers all sessions, so the content is discarded.
func drainHookPayload(f *os.File) {
	st, err := f.Stat()
	if err != nil || st.Mode()&os.ModeCharDevice != 0 {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(f, 1<<20))
}
