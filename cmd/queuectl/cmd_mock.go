package main

import "github.com/spf13/cobra"

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Simulate queue clients",
}

func init() {
	rootCmd.AddCommand(mockCmd)
}
