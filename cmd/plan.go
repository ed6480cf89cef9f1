package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/safety"
	"github.com/meridian-db/meridian/schemafile"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the migration script a tenant's current shape would need to reach a desired schema",
	Long: `Plan introspects a tenant's live tables, diffs them against a desired-state
JSON schema file, and prints the DDL script the planner would emit — it
never touches the database (§4.E, §4.G's dry-run mode).`,
	Example: `  meridian plan --tenant acme --desired schema.json`,
	Run:     runPlan,
}

var (
	planTenantID string
	planDesired  string
	planSafety   bool
)

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVar(&planTenantID, "tenant", "", "Tenant id to resolve from meridian.toml")
	planCmd.Flags().StringVar(&planDesired, "desired", "", "Path to the desired-state JSON schema file")
	planCmd.Flags().BoolVar(&planSafety, "safety", false, "Also print the §4.F safety analysis for each table")
	_ = planCmd.MarkFlagRequired("tenant")
	_ = planCmd.MarkFlagRequired("desired")
}

func runPlan(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg := loadConfigOrExit()
	t := resolveTenantOrExit(cfg, planTenantID)
	schemaName := tenantSchemaName(t)

	defs, err := schemafile.Load(planDesired)
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

	for _, def := range defs {
		_, plan, err := planEntity(ctx, db, d, schemaName, def, allCurrent)
		if err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("-- %s.%s\n", schemaName, def.Name)
		fmt.Print(plan.Script())
		if planSafety {
			sr := safety.Analyze(plan, nil)
			printSafety(sr)
		}
		fmt.Println()
	}
}

// loadAllCurrent introspects every table named in defs that already
// exists, so the primary-key migration path (§4.E.2) can discover child
// foreign keys across the whole schema, not just the one table being
// planned.
func loadAllCurrent(ctx context.Context, db *sql.DB, d dialect.Adapter, schemaName string, defs []*entity.Definition) []*entity.Definition {
	var all []*entity.Definition
	for _, def := range defs {
		current, _, err := planEntity(ctx, db, d, schemaName, def, nil)
		if err != nil || current == nil {
			continue
		}
		all = append(all, current)
	}
	return all
}

func printSafety(sr safety.MigrationSafetyResult) {
	if sr.IsSafe {
		fmt.Println("-- safety: safe")
		return
	}
	fmt.Println("-- safety: UNSAFE")
	for _, reason := range sr.Reasons {
		fmt.Fprintf(os.Stderr, "  - %s\n", reason)
	}
}
