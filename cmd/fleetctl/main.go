// Package main provides fleetctl, a command-line front end to the
// compatibility and compliance engines over a fleet fixture file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// options are the flags shared by every subcommand.
type options struct {
	fleet string
	now   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "fleetctl",
		Short: "Vehicle-trailer compatibility and fleet compliance checks",
		Long: `fleetctl evaluates towing compatibility and document compliance for the
fleet described in a YAML or JSON fixture file.

Every date calculation uses the current time unless --now pins it.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVar(&opts.fleet, "fleet", "", "fleet fixture file (YAML or JSON)")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "evaluate as of this date (2006-01-02 or RFC 3339)")
	_ = root.MarkPersistentFlagRequired("fleet")

	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newMatchCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newTimelineCmd(opts))

	return root
}
