package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/config"
	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/executor"
	"github.com/meridian-db/meridian/schemafile"
	"github.com/meridian-db/meridian/tenant"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Operate across every tenant configured in meridian.toml",
}

var tenantsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply a desired-state schema across every active tenant",
	Long: `Run fans a migration out across every active tenant in meridian.toml
with bounded parallelism (§4.H), applying the same desired-state schema
to each one and aggregating a per-tenant report.`,
	Example: `  meridian tenants run --desired schema.json --mode auto-merge
  meridian tenants run --desired schema.json --mode auto-merge --parallelism 4 --continue-on-error`,
	Run: runTenantsRun,
}

var (
	tenantsDesired         string
	tenantsMode            string
	tenantsGroupLabel      string
	tenantsParallelism     int
	tenantsContinueOnError bool
	tenantsLogFile         string
)

func init() {
	rootCmd.AddCommand(tenantsCmd)
	tenantsCmd.AddCommand(tenantsRunCmd)

	tenantsRunCmd.Flags().StringVar(&tenantsDesired, "desired", "", "Path to the desired-state JSON schema file")
	tenantsRunCmd.Flags().StringVar(&tenantsMode, "mode", "auto-merge", "Execution mode: dry-run, preview, auto-merge, impact-analysis")
	tenantsRunCmd.Flags().StringVar(&tenantsGroupLabel, "group-label", "", "Tag applied to every migration-history row written by this run")
	tenantsRunCmd.Flags().IntVar(&tenantsParallelism, "parallelism", 0, "Bounded concurrency (0 uses meridian.toml's parallelism setting)")
	tenantsRunCmd.Flags().BoolVar(&tenantsContinueOnError, "continue-on-error", false, "Keep running remaining tenants after one fails")
	tenantsRunCmd.Flags().StringVar(&tenantsLogFile, "log-file", "", "Write a rotating migration.log of lifecycle events across every tenant (§6's logToFile)")
	_ = tenantsRunCmd.MarkFlagRequired("desired")
}

func runTenantsRun(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	mode, err := parseMode(tenantsMode)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if mode == executor.ModeInteractive {
		log.Fatal("interactive mode is not supported across a tenant fan-out; use 'meridian apply' for one tenant at a time")
	}

	cfg := loadConfigOrExit()
	defs, err := schemafile.Load(tenantsDesired)
	if err != nil {
		log.Fatalf("Failed to load desired schema: %v", err)
	}

	tenants, err := config.ResolveAllTenants(cfg)
	if err != nil {
		log.Fatalf("Failed to resolve tenants: %v", err)
	}

	parallelism := tenantsParallelism
	if parallelism <= 0 {
		parallelism = cfg.Parallelism
	}

	cyan := color.New(color.FgCyan)
	opts := tenant.Options{
		Parallelism:     parallelism,
		ContinueOnError: tenantsContinueOnError,
		OnTenantStart: func(tenantID string) {
			_, _ = cyan.Fprintf(os.Stderr, "-> %s: starting\n", tenantID)
		},
		OnTenantCompleted: func(tenantID string, report tenant.MigrationRunReport) {
			if report.Err != nil {
				fmt.Fprintf(os.Stderr, "<- %s: failed: %v\n", tenantID, report.Err)
				return
			}
			fmt.Fprintf(os.Stderr, "<- %s: done in %s\n", tenantID, report.Duration)
		},
	}

	logger := newMigrationLogger(tenantsLogFile)
	result, err := tenant.Run(ctx, tenants, opts, func(ctx context.Context, t tenant.Tenant) (tenant.MigrationRunReport, error) {
		return runOneTenant(ctx, t, defs, mode, logger)
	})
	if err != nil {
		log.Fatalf("Migration run aborted: %v", err)
	}

	green := color.New(color.FgGreen, color.Bold)
	_, _ = green.Fprintf(os.Stderr, "\n%d/%d tenants succeeded in %s\n", result.Succeeded, result.TotalTenants, result.TotalDuration)
	if result.Failed > 0 {
		os.Exit(1)
	}
}

func runOneTenant(ctx context.Context, t tenant.Tenant, defs []*entity.Definition, mode executor.Mode, logger *slog.Logger) (tenant.MigrationRunReport, error) {
	report := tenant.MigrationRunReport{TenantID: t.TenantID}

	db, err := openTenant(ctx, t)
	if err != nil {
		return report, err
	}
	defer db.Close()

	schemaName := tenantSchemaName(t)
	d := dialect.NewMSSQL()
	allCurrent := loadAllCurrent(ctx, db, d, schemaName, defs)
	ex := executor.NewExecutor(db, d, schemaName)

	var impactLines []string
	for _, def := range defs {
		oldEntity, plan, err := planEntity(ctx, db, d, schemaName, def, allCurrent)
		if err != nil {
			return report, fmt.Errorf("%s.%s: %w", schemaName, def.Name, err)
		}

		result, err := ex.Execute(ctx, plan, executor.ExecuteOptions{
			Mode:       mode,
			GroupLabel: tenantsGroupLabel,
			OldEntity:  oldEntity,
			NewEntity:  def,
			Logger:     logger,
		})
		if err != nil {
			return report, fmt.Errorf("%s.%s: %w", schemaName, def.Name, err)
		}

		if result.Applied {
			report.MigrationsApplied = true
		}
		if mode == executor.ModeImpactAnalysis || mode == executor.ModePreview {
			report.ImpactAnalysisRan = true
			impactLines = append(impactLines, fmt.Sprintf("%s: %d changes", def.Name, len(result.Impact)))
		}
	}
	report.ImpactSummary = strings.Join(impactLines, "; ")

	return report, nil
}
