package main

import (
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Build, fetch, and inspect the territory catalog artifact",
}

func init() {
	rootCmd.AddCommand(catalogCmd)
}
