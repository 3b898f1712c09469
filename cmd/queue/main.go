package main

import (
	"fmt"
	"os"

	"github.com/srand/jolt/testqueue/pkg/dashboard"
	"github.com/srand/jolt/testqueue/pkg/log"
	"github.com/srand/jolt/testqueue/pkg/queue"
	"github.com/srand/jolt/testqueue/pkg/utils"
	"golang.org/x/sync/errgroup"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var config = &Config{}

var rootCmd = &cobra.Command{
	Use:   "queue",
	Short: "Jolt distributed test execution queue",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetEnvPrefix("jolt")
		viper.AutomaticEnv()

		viper.SetConfigName("queue.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/jolt/")
		viper.AddConfigPath("$HOME/.config/jolt")
		viper.AddConfigPath(".")

		viper.ReadInConfig()

		if err := utils.UnmarshalConfig(viper.GetViper(), config); err != nil {
			log.Fatal(err)
		}

		config.SetDefaults()
		if err := config.Validate(); err != nil {
			log.Fatal(err)
		}

		if config.LogLevel != "" {
			level, _ := log.ParseLevel(config.LogLevel)
			log.SetLevel(level)
		}

		verbosity, err := cmd.Flags().GetCount("verbose")
		if err != nil {
			panic(err)
		}

		switch {
		case verbosity >= 2:
			log.SetLevel(log.TraceLevel)
		case verbosity >= 1:
			log.SetLevel(log.DebugLevel)
		}

		config.Log()
	},
	Run: func(cmd *cobra.Command, args []string) {
		utils.DumpStacksOnSignal()

		if err := run(); err != nil {
			log.Fatal(err)
		}
	},
}

func run() error {
	ctx, cancel := utils.TerminationContext()
	defer cancel()

	// Create test history storage
	storage, closeStorage, err := config.History.CreateStorage()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			log.Error("Failed to close test history:", err)
		}
	}()

	// Create queue
	q := queue.NewQueue(config, storage, nil)

	// Create dashboard telemetry provider if configured
	if config.Dashboard != nil {
		hooks := dashboard.NewDashboardTelemetryHook(config)
		defer hooks.Close()
		q.AddObserver(hooks)
	}

	healthServer := newHealthServer()

	eg, ctx := errgroup.WithContext(ctx)

	// Start listening for gRPC health checks on all configured addresses
	for _, uri := range config.ListenGrpc {
		eg.Go(func() error { return serveGrpc(ctx, healthServer, uri) })
	}

	// Start listening for HTTP connections on all configured addresses
	for _, uri := range config.ListenHttp {
		eg.Go(func() error { return serveHttp(ctx, q, uri) })
	}

	// Ready to run the queue
	eg.Go(func() error {
		setServing(healthServer, true)
		defer setServing(healthServer, false)
		return q.Run(ctx)
	})

	return eg.Wait()
}

func init() {
	rootCmd.Flags().StringSliceP("listen-http", "l", []string{"tcp://:8080"}, "Addresses to listen on for HTTP connections")
	rootCmd.Flags().StringSliceP("listen-grpc", "g", []string{"tcp://:9090"}, "Addresses to listen on for gRPC health checks")
	rootCmd.Flags().String("candidate-scan", "first", "Dequeue candidate scan: first or all")
	rootCmd.Flags().CountP("verbose", "v", "Verbosity (repeatable)")

	viper.BindPFlag("listen_grpc", rootCmd.Flags().Lookup("listen-grpc"))
	viper.BindPFlag("listen_http", rootCmd.Flags().Lookup("listen-http"))
	viper.BindPFlag("dequeue.candidate_scan", rootCmd.Flags().Lookup("candidate-scan"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
