package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/executor"
	"github.com/meridian-db/meridian/schemafile"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a desired-state schema to a tenant's database",
	Long: `Apply introspects a tenant's live tables, diffs them against a
desired-state JSON schema file, and executes the resulting migration
according to --mode (§4.G): dry-run, preview, interactive, auto-merge,
or impact-analysis.`,
	Example: `  meridian apply --tenant acme --desired schema.json --mode auto-merge
  meridian apply --tenant acme --desired schema.json --mode interactive
  meridian apply --tenant acme --desired schema.json --mode impact-analysis --report-format html`,
	Run: runApply,
}

var (
	applyTenantID     string
	applyDesired      string
	applyMode         string
	applyGroupLabel   string
	applyReportFormat string
	applySnapshotDir  string
	applyLogFile      string
)

func init() {
	rootCmd.AddCommand(applyCmd)

	applyCmd.Flags().StringVar(&applyTenantID, "tenant", "", "Tenant id to resolve from meridian.toml")
	applyCmd.Flags().StringVar(&applyDesired, "desired", "", "Path to the desired-state JSON schema file")
	applyCmd.Flags().StringVar(&applyMode, "mode", "preview", "Execution mode: dry-run, preview, interactive, auto-merge, impact-analysis")
	applyCmd.Flags().StringVar(&applyGroupLabel, "group-label", "", "Tag applied to every migration-history row written by this run")
	applyCmd.Flags().StringVar(&applyReportFormat, "report-format", "markdown", "Report format for impact-analysis mode: markdown or html")
	applyCmd.Flags().StringVar(&applySnapshotDir, "snapshot-dir", "", "Directory to receive one JSON snapshot per applied version (§6, §8.2)")
	applyCmd.Flags().StringVar(&applyLogFile, "log-file", "", "Write a rotating migration.log of lifecycle events (§6's logToFile)")
	_ = applyCmd.MarkFlagRequired("tenant")
	_ = applyCmd.MarkFlagRequired("desired")
}

func runApply(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	mode, err := parseMode(applyMode)
	if err != nil {
		log.Fatalf("%v", err)
	}

	cfg := loadConfigOrExit()
	t := resolveTenantOrExit(cfg, applyTenantID)
	schemaName := tenantSchemaName(t)

	defs, err := schemafile.Load(applyDesired)
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
	ex := executor.NewExecutor(db, d, schemaName)
	if cfg.HistoryTable != "" {
		ex = ex.WithHistoryTable(cfg.HistoryTable)
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	logger := newMigrationLogger(applyLogFile)

	exitCode := 0
	for _, def := range defs {
		oldEntity, plan, err := planEntity(ctx, db, d, schemaName, def, allCurrent)
		if err != nil {
			log.Fatalf("%v", err)
		}

		_, _ = cyan.Fprintf(os.Stderr, "\n%s.%s\n", schemaName, def.Name)

		opts := executor.ExecuteOptions{
			Mode:         mode,
			GroupLabel:   applyGroupLabel,
			OldEntity:    oldEntity,
			NewEntity:    def,
			ReportFormat: applyReportFormat,
			SnapshotDir:  applySnapshotDir,
			Logger:       logger,
		}
		if mode == executor.ModeInteractive {
			opts.OnStep = promptStepDecision
		}

		result, err := ex.Execute(ctx, plan, opts)
		if err != nil {
			_, _ = red.Fprintf(os.Stderr, "  failed: %v\n", err)
			exitCode = 1
			continue
		}

		printApplyResult(result)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	_, _ = green.Fprintln(os.Stderr, "\ndone")
}

func parseMode(s string) (executor.Mode, error) {
	switch executor.Mode(s) {
	case executor.ModeDryRun, executor.ModePreview, executor.ModeInteractive, executor.ModeAutoMerge, executor.ModeImpactAnalysis:
		return executor.Mode(s), nil
	default:
		return "", fmt.Errorf("unknown --mode %q (want dry-run, preview, interactive, auto-merge, or impact-analysis)", s)
	}
}

func printApplyResult(result *executor.ExecutionResult) {
	switch {
	case result.Skipped:
		fmt.Fprintln(os.Stderr, "  skipped: this version is already applied")
	case result.Applied:
		fmt.Fprintf(os.Stderr, "  applied: %d batches in %s\n", result.BatchesRun, result.Duration)
	default:
		fmt.Fprint(os.Stdout, result.Script)
	}

	if result.Safety != nil && !result.Safety.IsSafe {
		fmt.Fprintln(os.Stderr, "  unsafe statements:")
		for _, reason := range result.Safety.Reasons {
			fmt.Fprintf(os.Stderr, "    - %s\n", reason)
		}
	}

	if result.Report != "" {
		fmt.Fprintln(os.Stdout, result.Report)
	}

	if result.Mode == executor.ModePreview || result.Mode == executor.ModeImpactAnalysis {
		data, err := json.MarshalIndent(result.Impact, "", "  ")
		if err == nil && string(data) != "null" {
			fmt.Fprintln(os.Stdout, string(data))
		}
	}
}
