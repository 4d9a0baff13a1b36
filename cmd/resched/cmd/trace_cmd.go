package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schedlab/resched/recording"
	"github.com/schedlab/resched/tracing"
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Inspect a recorded trace database",
}

var traceListCmd = &cobra.Command{
	Use:   "list <db-file>",
	Short: "List the tables of a trace database",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		reader := recording.NewReader(args[0])
		defer reader.Close()

		names, err := reader.TableNames(context.Background())
		if err != nil {
			return err
		}

		for _, name := range names {
			fmt.Println(name)
		}

		return nil
	},
}

var traceDumpCmd = &cobra.Command{
	Use:   "dump <db-file>",
	Short: "Dump the system executions recorded in a trace database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := recording.NewReader(args[0])
		defer reader.Close()

		tracing.MapTraceTables(reader)

		round, _ := cmd.Flags().GetInt("round")

		params := recording.QueryParams{OrderBy: "Round ASC, Seq ASC"}
		if round >= 0 {
			params.Where = "Round = ?"
			params.Args = []any{round}
		}

		results, total, err := reader.Query(
			context.Background(), tracing.SystemTraceTable, params)
		if err != nil {
			return err
		}

		for _, result := range results {
			entry := result.(*tracing.SystemTraceEntry)
			fmt.Printf("round %d seq %d %-30s [%s] %s %s\n",
				entry.Round, entry.Seq, entry.System,
				entry.Accesses, entry.Status, entry.Detail)
		}

		fmt.Printf("%d executions\n", total)

		return nil
	},
}

func init() {
	traceDumpCmd.Flags().Int("round", -1, "only dump the given round")
	traceCmd.AddCommand(traceListCmd)
	traceCmd.AddCommand(traceDumpCmd)
	rootCmd.AddCommand(traceCmd)
}
