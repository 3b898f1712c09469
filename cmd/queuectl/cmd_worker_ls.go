package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/protocol"
)

func printWorker(w io.Writer, worker *protocol.WorkerStatus, verbose bool) {
	fmt.Fprintf(w, "%s  %s", worker.WorkerId, worker.Status)
	if !worker.LastResponse.IsZero() {
		fmt.Fprintf(w, "  last response %s", worker.LastResponse.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(w)

	if len(worker.BucketIds) > 0 {
		fmt.Fprintln(w, "  Buckets")
		for _, id := range worker.BucketIds {
			fmt.Fprintf(w, "    %s\n", id)
		}
	}

	if verbose && len(worker.Capabilities) > 0 {
		fmt.Fprintln(w, "  Capabilities")
		for _, capability := range worker.Capabilities {
			fmt.Fprintf(w, "    %s: %s\n", capability.Name, capability.Value)
		}
	}
}

var workerListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List workers",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		verbose, _ := cmd.Flags().GetBool("capabilities")

		workers, err := NewQueueClient().Workers(ctx)
		if err != nil {
			log.Fatal(err)
		}

		for _, worker := range workers {
			printWorker(os.Stdout, worker, verbose)
		}
	},
}

var workerShowCmd = &cobra.Command{
	Use:   "show <worker>",
	Short: "Show worker status and capabilities",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		worker, err := NewQueueClient().Worker(ctx, workerId(args[0]))
		if err != nil {
			log.Fatal(err)
		}

		printWorker(os.Stdout, worker, true)
	},
}

func init() {
	workerListCmd.Flags().BoolP("capabilities", "c", false, "Print worker capabilities")
	workerCmd.AddCommand(workerListCmd)
	workerCmd.AddCommand(workerShowCmd)
}
