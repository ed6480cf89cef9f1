package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian manages declarative SQL Server schema migrations across tenants.",
	Long: `Meridian is a declarative schema migration engine for SQL Server.

It derives a desired entity model (from Go-coded descriptors or a JSON
schema file), introspects a live database's current shape, computes the
difference, and plans, previews, or applies the resulting DDL — one
tenant at a time or fanned out across a whole tenant population.`,
}

func init() {
	rootCmd.Version = getVersion()
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
