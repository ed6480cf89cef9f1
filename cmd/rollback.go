package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/diff"
	"github.com/meridian-db/meridian/executor"
	"github.com/meridian-db/meridian/schemafile"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Synthesize and optionally execute the inverse of a pending migration",
	Long: `Rollback diffs a tenant's live tables against a desired-state JSON
schema file and synthesizes the inverse statements that would undo that
migration: added columns are dropped, modified columns with a recorded
original type are altered back, added constraints and indexes are
dropped. Dropped items have no synthesizable inverse and are reported
separately as irreversible.

With --preview, rollback only renders the inverse script (§6's
rollbackPreviewOnly option) and never touches the database.`,
	Example: `  meridian rollback --tenant acme --desired schema.json --preview
  meridian rollback --tenant acme --desired schema.json`,
	Run: runRollback,
}

var (
	rollbackTenantID string
	rollbackDesired  string
	rollbackPreview  bool
)

func init() {
	rootCmd.AddCommand(rollbackCmd)

	rollbackCmd.Flags().StringVar(&rollbackTenantID, "tenant", "", "Tenant id to resolve from meridian.toml")
	rollbackCmd.Flags().StringVar(&rollbackDesired, "desired", "", "Path to the desired-state JSON schema file")
	rollbackCmd.Flags().BoolVar(&rollbackPreview, "preview", false, "Render the inverse script without executing it")
	_ = rollbackCmd.MarkFlagRequired("tenant")
	_ = rollbackCmd.MarkFlagRequired("desired")
}

func runRollback(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg := loadConfigOrExit()
	t := resolveTenantOrExit(cfg, rollbackTenantID)
	schemaName := tenantSchemaName(t)

	defs, err := schemafile.Load(rollbackDesired)
	if err != nil {
		log.Fatalf("Failed to load desired schema: %v", err)
	}

	db, err := openTenant(ctx, t)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	d := dialect.NewMSSQL()
	allCurrent := loadAllCurrent(ctx, db, d, schemaName, defs)

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen, color.Bold)

	var allStatements []string
	for _, def := range defs {
		oldEntity, _, err := planEntity(ctx, db, d, schemaName, def, allCurrent)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if oldEntity == nil {
			continue
		}

		impacts := diff.Diff(oldEntity, def)
		rollback := executor.BuildRollback(d, schemaName, impacts)

		if len(rollback.Statements) == 0 && len(rollback.Irreversible) == 0 {
			continue
		}

		_, _ = red.Fprintf(os.Stderr, "\n%s.%s rollback:\n", schemaName, def.Name)
		for _, stmt := range rollback.Statements {
			fmt.Fprintf(os.Stderr, "  %s;\n", stmt)
		}
		for _, reason := range rollback.Irreversible {
			_, _ = yellow.Fprintf(os.Stderr, "  irreversible: %s\n", reason)
		}

		allStatements = append(allStatements, rollback.Statements...)
	}

	if rollbackPreview {
		return
	}

	if len(allStatements) == 0 {
		_, _ = green.Fprintln(os.Stderr, "\nnothing to roll back")
		return
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin rollback transaction: %v", err)
	}
	for _, stmt := range allStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			log.Fatalf("Rollback statement failed, nothing was changed: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit rollback: %v", err)
	}

	_, _ = green.Fprintf(os.Stderr, "\nrolled back %d statements\n", len(allStatements))
}
