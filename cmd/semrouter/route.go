package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	semanticrouter "github.com/liliang-cn/semrouter/pkg/semantic-router"
)

var routeCmd = &cobra.Command{
	Use:   "route <query>...",
	Short: "Route one or more queries",
	Long:  `Route every argument as a separate query and print its best routes.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		outputJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		router, closer, err := buildRouter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closer.Close()

		if !cmd.Flags().Changed("top-k") {
			topK = router.DefaultTopK()
		}

		results, err := router.RouteBatch(ctx, args, topK)
		if err != nil {
			return err
		}

		if outputJSON {
			return printJSON(cmd.OutOrStdout(), results)
		}
		printResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResults(w io.Writer, results []semanticrouter.Result) {
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Query: %s\n", res.Query)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RANK\tROUTE\tSIMILARITY")
		for _, m := range res.Matches {
			fmt.Fprintf(tw, "%d\t%s\t%.6f\n", m.Rank, m.RouteName, m.Score)
		}
		_ = tw.Flush()
	}
}

func init() {
	routeCmd.Flags().IntP("top-k", "k", 0, "Number of routes to return (default: router.top_k)")
	routeCmd.Flags().Bool("json", false, "Output as JSON")
}
