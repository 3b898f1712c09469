package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/srand/jolt/testqueue/pkg/log"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the queue is serving",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := DefaultDeadlineContext()
		defer cancel()

		service, _ := cmd.Flags().GetString("service")

		conn := NewHealthConn()
		defer conn.Close()

		response, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(response.Status)
		if response.Status != healthpb.HealthCheckResponse_SERVING {
			os.Exit(1)
		}
	},
}

func init() {
	healthCmd.Flags().String("service", "", "Name of the service to check")
	rootCmd.AddCommand(healthCmd)
}
