package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/schedlab/resched/recording"
	"github.com/schedlab/resched/sched"
	"github.com/schedlab/resched/tracing"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a small traced schedule and write the trace database",
	Run: func(cmd *cobra.Command, _ []string) {
		output, _ := cmd.Flags().GetString("output")
		rounds, _ := cmd.Flags().GetInt("rounds")

		runDemo(output, rounds)

		atexit.Exit(0)
	},
}

func init() {
	demoCmd.Flags().StringP("output", "o", "resched_demo",
		"trace database name, without the .sqlite3 suffix")
	demoCmd.Flags().IntP("rounds", "n", 3, "number of rounds to run")
	rootCmd.AddCommand(demoCmd)
}

type tickCount struct {
	N int
}

func runDemo(output string, rounds int) {
	s := sched.New()
	recorder := recording.NewRecorder(output)
	tracing.CollectTraces(s, recorder)

	sched.AddResource(s, tickCount{})
	sched.AddResource(s, "resched demo")

	sched.AddSystem1(s, func(count sched.Mut[tickCount]) {
		count.Value().N++
	})
	sched.AddSystem1(s, func(banner sched.Res[string]) {
		fmt.Println(banner.Value())
	})

	for i := 0; i < rounds; i++ {
		if err := s.Run(); err != nil {
			fmt.Println("round failed:", err)
			return
		}
	}

	recorder.Flush()
	fmt.Printf("ran %d rounds over %d systems\n", s.Rounds(), len(s.Systems()))
}
