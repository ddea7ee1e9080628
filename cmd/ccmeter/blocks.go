package main

import (
	"time"

	"github.com/spf13/cobra"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/config"
	"ccmeter/internal/render"
)

func newBlocksCommand(cfg config.Config) *cobra.Command {
	var rf reportFlags
	var recent int
	var tokenLimit string
	var activeOnly bool
	var liveMode bool

	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Report 5-hour billing blocks, optionally as a live dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fl := rf.configFlags(cmd)
			fl.TokenLimit = tokenLimit
			if cmd.Flags().Changed("recent") {
				fl.RecentDays = &recent
			}
			r, err := cfg.Resolve("blocks", fl)
			if err != nil {
				return err
			}
			opts := r.Options()
			opts.ActiveOnly = activeOnly

			if liveMode {
				return runLive(cmd.Context(), r, opts)
			}

			events, err := loadEvents(cmd.Context(), r)
			if err != nil {
				return err
			}
			rep := aggregate.BuildBlocksReport(events, opts,
				r.BlockDuration, r.Anchor, time.Now())

			limit, err := render.TokenLimit(r.TokenLimit, rep.MaxBlockTokens)
			if err != nil {
				return err
			}
			if rf.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), rep)
			}
			render.WriteBlocksTable(cmd.OutOrStdout(), rep, limit)
			return nil
		},
	}
	addReportFlags(cmd, &rf)
	cmd.Flags().IntVar(&recent, "recent", 0, "keep blocks from the last N days (0 = all)")
	cmd.Flags().StringVar(&tokenLimit, "token-limit", "", "token limit for the percent column (number or \"max\")")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "only the active block")
	cmd.Flags().BoolVar(&liveMode, "live", false, "full-screen live dashboard")
	return cmd
}
