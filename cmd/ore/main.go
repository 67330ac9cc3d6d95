// Command ore runs one batch valuation: it loads a run configuration,
// simulates the portfolio, and writes whichever NPV/cashflow/XVA/
// sensitivity reports the configuration's active stages request.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run builds and executes the root command, translating its outcome into
// a process exit code: 0 on normal completion (including skipped
// stages), -1 on a usage error (bad arguments or an unreadable config),
// and a nonzero code on any other unrecoverable failure.
func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			return -1
		}
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:           "ore <path/to/config.xml>",
		Short:         "Run a scripted-payoff valuation and XVA post-processing batch",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion || len(args) == 1 {
				return nil
			}
			return &usageError{fmt.Errorf("expected exactly one argument: path to config.xml")}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Println(version)
				return nil
			}
			return runOre(context.Background(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	return cmd
}
