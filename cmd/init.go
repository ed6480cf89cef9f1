package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Register a tenant and write meridian.toml",
	Long:  `Init runs an interactive wizard that registers one tenant in meridian.toml and writes its .env.<tenant> file.`,
	Run:   runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing tenant entry with the same id")
}

func runInit(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")
	if err := wizard.Run(force); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
