package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"ccmeter/internal/aggregate"
	"ccmeter/internal/config"
	"ccmeter/internal/live"
	"ccmeter/internal/pricing"
	"ccmeter/internal/tui"
)

// runLive starts the incremental engine and hands its snapshots to the
// dashboard as bubbletea messages.
func runLive(ctx context.Context, r config.Resolved, opts aggregate.Options) error {
	table, err := pricing.Load(r.PricingPath, r.PricingOffline)
	if err != nil {
		return err
	}

	eng := live.NewEngine(live.Config{
		Dirs:          r.Dirs,
		Table:         table,
		Mode:          r.Mode,
		Options:       opts,
		BlockDuration: r.BlockDuration,
		Anchor:        r.Anchor,
		TickInterval:  r.Tick,
		StallTimeout:  r.Stall,
		Watch:         true,
	})

	model := tui.NewModel(r.TokenLimit, r.Tick)
	program := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go eng.Run(ctx)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-eng.Updates():
				program.Send(tui.SnapshotMsg(snap))
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
