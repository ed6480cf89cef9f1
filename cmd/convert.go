package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/schemafile"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a desired-state schema between its JSON and SQL Server DDL forms",
	Long: `Convert round-trips a desired entity model between the JSON snapshot
format meridian plan/apply read and a rendered, fresh-install SQL Server
DDL script.`,
	Example: `  # Render JSON to a fresh-install DDL script
  meridian convert --input schema.json --output schema.sql --to sql

  # Reformat/validate a JSON schema file in place
  meridian convert --input schema.json --to json`,
	Run: runConvert,
}

var (
	convertInput  string
	convertOutput string
	convertTo     string
)

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertInput, "input", "", "Input JSON schema file")
	convertCmd.Flags().StringVar(&convertOutput, "output", "", "Output file (defaults to stdout)")
	convertCmd.Flags().StringVar(&convertTo, "to", "json", "Output format: json or sql")
	_ = convertCmd.MarkFlagRequired("input")
}

func runConvert(cmd *cobra.Command, args []string) {
	defs, err := schemafile.Load(convertInput)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	var outputData []byte
	switch convertTo {
	case "json":
		outputData, err = json.MarshalIndent(defs, "", "  ")
		if err != nil {
			log.Fatalf("Failed to marshal JSON: %v", err)
		}
	case "sql":
		sqlText, err := schemafile.RenderSQL(dialect.NewMSSQL(), defs)
		if err != nil {
			log.Fatalf("Failed to render SQL: %v", err)
		}
		outputData = []byte(sqlText)
	default:
		log.Fatalf("Unsupported output format: %s (use 'json' or 'sql')", convertTo)
	}

	if convertOutput == "" {
		fmt.Print(string(outputData))
		return
	}
	if err := os.WriteFile(convertOutput, outputData, 0o644); err != nil {
		log.Fatalf("Failed to write output file: %v", err)
	}
	fmt.Printf("Converted %s to %s: %s\n", convertInput, convertTo, convertOutput)
}
