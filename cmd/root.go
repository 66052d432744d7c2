package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "klunkaz",
	Short:   "Bike registry service",
	Long:    `Klunkaz keeps a registry of bikes: who owns them, who may transfer them, sales, rentals, stolen flags and reviews.`,
	Version: version,
	// The bare command starts the server, like the original binary did.
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, schemaCmd, tokenCmd)
	serveCmd.Flags().StringToInt64Var(&fundFlag, "fund", nil,
		"opening balances in book settlement mode, e.g. --fund 0xA11CE=1000")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())
}
