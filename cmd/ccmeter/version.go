package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ccmeter/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ccmeter version",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println("ccmeter " + version.String())
		},
	}
}
