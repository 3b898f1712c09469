package main

import (
	"github.com/spf13/cobra"
	"github.com/srand/jolt/testqueue/pkg/bucket"
	"github.com/srand/jolt/testqueue/pkg/log"
)

func workerId(arg string) bucket.WorkerId {
	return bucket.WorkerId(arg)
}

var workerDisableCmd = &cobra.Command{
	Use:   "disable <worker>...",
	Short: "Stop workers from receiving buckets",
	Long:  "Stop workers from receiving buckets. Buckets the workers are running are taken away and retried elsewhere.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewQueueClient()
		for _, arg := range args {
			if err := client.DisableWorker(ctx, workerId(arg)); err != nil {
				log.Fatal(err)
			}
			log.Info("Disabled", arg)
		}
	},
}

var workerEnableCmd = &cobra.Command{
	Use:   "enable <worker>...",
	Short: "Allow disabled workers to receive buckets again",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		client := NewQueueClient()
		for _, arg := range args {
			if err := client.EnableWorker(ctx, workerId(arg)); err != nil {
				log.Fatal(err)
			}
			log.Info("Enabled", arg)
		}
	},
}

func init() {
	workerCmd.AddCommand(workerDisableCmd)
	workerCmd.AddCommand(workerEnableCmd)
}
