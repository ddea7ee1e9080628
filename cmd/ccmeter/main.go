package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/config"
)

func main() {
	if os.Getenv("CCMETER_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	var verbose bool
	root := &cobra.Command{
		Use:   "ccmeter",
		Short: "ccmeter reports Claude Code token usage and cost from local session logs.",
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if verbose {
				log.SetOutput(os.Stderr)
			}
		},
	}
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "log scan diagnostics to stderr")

	root.AddCommand(
		newReportCommand(cfg, aggregate.KindDaily),
		newReportCommand(cfg, aggregate.KindWeekly),
		newReportCommand(cfg, aggregate.KindMonthly),
		newSessionsCommand(cfg),
		newBlocksCommand(cfg),
		newStatuslineCommand(cfg),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
