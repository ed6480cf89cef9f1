package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/schemafile"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a desired-state JSON schema file",
	Long: `Validate checks a desired-state JSON schema file against the embedded
JSON Schema document and reports any structural errors before it ever
reaches plan or apply.`,
	Example: `  meridian validate schema.json`,
	Args:    cobra.ExactArgs(1),
	Run:     runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) {
	path := args[0]
	if _, err := schemafile.Load(path); err != nil {
		log.Fatalf("Schema validation failed: %v", err)
	}
	fmt.Fprintf(os.Stderr, "valid: %s\n", path)
}
