package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/meridian-db/meridian/introspect"
	"github.com/meridian-db/meridian/tenant"
)

var introspectCmd = &cobra.Command{
	Use:   "introspect",
	Short: "Introspect a live table's current shape",
	Long: `Introspect reconstructs an entity.Definition by querying a tenant's live
SQL Server catalog for one table, and prints it as JSON (§4.C).`,
	Example: `  meridian introspect --tenant acme --table Orders
  meridian introspect --db "sqlserver://..." --schema dbo --table Orders`,
	Run: runIntrospect,
}

var (
	introspectTenantID string
	introspectDB       string
	introspectSchema   string
	introspectTable    string
)

func init() {
	rootCmd.AddCommand(introspectCmd)

	introspectCmd.Flags().StringVar(&introspectTenantID, "tenant", "", "Tenant id to resolve from meridian.toml")
	introspectCmd.Flags().StringVar(&introspectDB, "db", "", "Connection string (overrides --tenant resolution)")
	introspectCmd.Flags().StringVar(&introspectSchema, "schema", "", "Schema name (overrides the tenant's configured schema, defaults to dbo)")
	introspectCmd.Flags().StringVar(&introspectTable, "table", "", "Table name to introspect")
	_ = introspectCmd.MarkFlagRequired("table")
}

func runIntrospect(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	var t tenant.Tenant
	if introspectDB != "" {
		t = tenant.Tenant{TenantID: "ad-hoc", ConnectionString: introspectDB, IsActive: true}
	} else {
		if introspectTenantID == "" {
			log.Fatal("one of --tenant or --db is required")
		}
		cfg := loadConfigOrExit()
		t = resolveTenantOrExit(cfg, introspectTenantID)
	}

	schemaName := tenantSchemaName(t)
	if introspectSchema != "" {
		schemaName = introspectSchema
	}

	db, err := openTenant(ctx, t)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	def, err := introspect.New(db).IntrospectSchema(ctx, schemaName, introspectTable)
	if err != nil {
		log.Fatalf("Failed to introspect %s.%s: %v", schemaName, introspectTable, err)
	}

	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal schema to JSON: %v", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
}
