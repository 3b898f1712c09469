package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/srand/jolt/testqueue/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:   "queuectl",
	Short: "Test queue control command",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		viper.SetConfigName("queuectl.yaml")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("/etc/jolt/")
		viper.AddConfigPath("$HOME/.config/jolt")
		viper.AddConfigPath(".")
		viper.ReadInConfig()

		viper.SetEnvPrefix("jolt")
		viper.AutomaticEnv()

		config, err := ParseConfig(viper.GetViper())
		if err != nil {
			log.Fatal(err)
		}
		configData = *config

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
	},
}

var configData = ControlConfig{}

func main() {
	rootCmd.PersistentFlags().StringP("queue-uri", "q", "tcp://queue:8080", "Queue service URI")
	rootCmd.PersistentFlags().StringP("health-uri", "g", "tcp://queue:9090", "Queue gRPC health service URI")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity (repeatable)")
	viper.BindPFlag("queue_uri", rootCmd.PersistentFlags().Lookup("queue-uri"))
	viper.BindPFlag("health_uri", rootCmd.PersistentFlags().Lookup("health-uri"))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
