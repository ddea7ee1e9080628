package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/config"
	"ccmeter/internal/pricing"
	"ccmeter/internal/render"
	"ccmeter/internal/usagelog"
)

// reportFlags holds the raw flag values shared by the report commands.
type reportFlags struct {
	dirs      []string
	timezone  string
	weekStart string
	mode      string
	order     string
	since     string
	until     string
	project   string
	instance  string
	instances bool
	breakdown bool
	jsonOut   bool
}

func addReportFlags(cmd *cobra.Command, rf *reportFlags) {
	fl := cmd.Flags()
	fl.StringSliceVar(&rf.dirs, "dirs", nil, "usage log directories (default: Claude Code data dirs)")
	fl.StringVar(&rf.timezone, "timezone", "", "IANA timezone for bucketing (default: local)")
	fl.StringVar(&rf.since, "since", "", "start date filter, YYYY-MM-DD")
	fl.StringVar(&rf.until, "until", "", "end date filter, YYYY-MM-DD")
	fl.StringVar(&rf.mode, "mode", "", "cost mode: auto, calculate, or prefer-field")
	fl.StringVar(&rf.order, "order", "", "row order: asc or desc")
	fl.StringVar(&rf.project, "project", "", "only events from this project")
	fl.StringVar(&rf.instance, "instance", "", "only events from this instance")
	fl.BoolVar(&rf.instances, "instances", false, "one row per project and instance")
	fl.BoolVar(&rf.breakdown, "breakdown", false, "per-model rows under each bucket")
	fl.BoolVar(&rf.jsonOut, "json", false, "emit the JSON envelope instead of a table")
}

// configFlags converts flag values into the config layering input. For the
// bool flags, Changed separates "false given" from "not given" so a flag
// can override a true from the settings file.
func (rf *reportFlags) configFlags(cmd *cobra.Command) config.Flags {
	fl := config.Flags{
		Dirs:      rf.dirs,
		Timezone:  rf.timezone,
		WeekStart: rf.weekStart,
		Mode:      rf.mode,
		Order:     rf.order,
		Since:     rf.since,
		Until:     rf.until,
		Project:   rf.project,
		Instance:  rf.instance,
	}
	if cmd.Flags().Changed("instances") {
		fl.Instances = &rf.instances
	}
	if cmd.Flags().Changed("breakdown") {
		fl.Breakdown = &rf.breakdown
	}
	return fl
}

// loadEvents runs the batch ingest pipeline: discover files, price the
// deduplicated events. Zero discovered files is an error so a typoed
// --dirs fails loudly instead of printing an empty report.
func loadEvents(ctx context.Context, r config.Resolved) ([]aggregate.CostedEvent, error) {
	files := usagelog.CollectFiles(r.Dirs)
	if len(files) == 0 {
		return nil, fmt.Errorf("no usage logs found under %v", r.Dirs)
	}

	table, err := pricing.Load(r.PricingPath, r.PricingOffline)
	if err != nil {
		return nil, err
	}

	result := usagelog.Scan(ctx, files, nil)
	return aggregate.CostEvents(result.Events, table, r.Mode), nil
}

func reportShort(kind aggregate.Kind) string {
	switch kind {
	case aggregate.KindDaily:
		return "Report usage and cost per day"
	case aggregate.KindWeekly:
		return "Report usage and cost per week"
	default:
		return "Report usage and cost per month"
	}
}

func newReportCommand(cfg config.Config, kind aggregate.Kind) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: reportShort(kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := cfg.Resolve(string(kind), rf.configFlags(cmd))
			if err != nil {
				return err
			}
			events, err := loadEvents(cmd.Context(), r)
			if err != nil {
				return err
			}
			rep := aggregate.BuildBucketReport(kind, events, r.Options())
			if rf.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), rep)
			}
			render.WriteBucketTable(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	addReportFlags(cmd, &rf)
	if kind == aggregate.KindWeekly {
		cmd.Flags().StringVar(&rf.weekStart, "week-start", "", "first day of the week (e.g. monday, sunday)")
	}
	return cmd
}

func newSessionsCommand(cfg config.Config) *cobra.Command {
	var rf reportFlags

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Report usage and cost per session, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := cfg.Resolve("sessions", rf.configFlags(cmd))
			if err != nil {
				return err
			}
			events, err := loadEvents(cmd.Context(), r)
			if err != nil {
				return err
			}
			rep := aggregate.BuildSessionsReport(events, r.Options(), r.SessionIdle, time.Now())
			if rf.jsonOut {
				return render.WriteJSON(cmd.OutOrStdout(), rep)
			}
			render.WriteSessionsTable(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	addReportFlags(cmd, &rf)
	return cmd
}
