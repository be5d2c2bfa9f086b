package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect route catalogs",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a catalog without encoding it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, err := semanticrouter.LoadCatalog(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if err := semanticrouter.ValidateCatalog(routes); err != nil {
			var cfgErr *semanticrouter.ConfigError
			if !errors.As(err, &cfgErr) {
				return err
			}
			for _, p := range cfgErr.Problems {
				fmt.Fprintf(out, "  - %v\n", p)
			}
			return fmt.Errorf("%s: %d problem(s) found", args[0], len(cfgErr.Problems))
		}

		examples, empty := 0, 0
		for _, r := range routes {
			examples += len(r.Examples)
			if len(r.Examples) == 0 {
				empty++
			}
		}
		fmt.Fprintf(out, "%s: %d routes, %d examples", args[0], len(routes), examples)
		if empty > 0 {
			fmt.Fprintf(out, " (%d routes without examples are never matched while others have examples)", empty)
		}
		fmt.Fprintln(out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "semrouter %s\n", version)
	},
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
}
