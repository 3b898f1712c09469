package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
)

func printResults(w io.Writer, results []bucket.AcceptedResult, failedOnly bool) {
	passed, failed := 0, 0

	for _, accepted := range results {
		for _, result := range accepted.Result.Results {
			status := "PASS"
			switch {
			case result.IsLost():
				status = "LOST"
			case !result.Succeeded():
				status = "FAIL"
			}

			if result.Succeeded() {
				passed++
				if failedOnly {
					continue
				}
			} else {
				failed++
			}

			fmt.Fprintf(w, "%s  %s  %s  %s\n", status, result.Entry, accepted.Result.TestDestination, accepted.WorkerId)
			for _, run := range result.Runs {
				for _, exception := range run.Exceptions {
					fmt.Fprintf(w, "      %s:%d: %s\n", exception.FilePath, exception.Line, exception.Reason)
				}
			}
		}
	}

	fmt.Fprintf(w, "%d passed, %d failed\n", passed, failed)
}

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Print final test results collected by the queue",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		failedOnly, _ := cmd.Flags().GetBool("failed")

		results, err := NewQueueClient().Results(ctx)
		if err != nil {
			log.Fatal(err)
		}

		printResults(os.Stdout, results, failedOnly)
	},
}

func init() {
	resultsCmd.Flags().BoolP("failed", "f", false, "Only print failed tests")
	rootCmd.AddCommand(resultsCmd)
}
