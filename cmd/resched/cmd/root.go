// Package cmd provides the command-line interface for resched.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "resched",
	Short: "The resched CLI runs demo schedules and inspects trace databases.",
	Long: `The resched CLI can perform common tasks related to working with the ` +
		`resched round scheduler. It currently provides a traced demo schedule ` +
		`(demo) and trace database inspection (trace).`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
