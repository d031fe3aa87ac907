// Package gen implements the gen command. It generates Go view declarations
// from the views that already exist in a database.
package gen

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/codegen"
	"github.com/pgview/pgview/ir"
)

var (
	genHost            string
	genPort            int
	genDB              string
	genUser            string
	genPassword        string
	genSchema          string
	genPackage         string
	genOut             string
	genApplicationName string
)

var GenCmd = &cobra.Command{
	Use:          "gen",
	Short:        "Generate Go view declarations from a database",
	Long:         "Inspect the views and materialized views of a schema and emit Go source that declares and registers them. Use this to adopt existing views into code.",
	RunE:         runGen,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithEnvVars(&genDB, &genUser, &genHost, &genPort, &genApplicationName),
}

func init() {
	GenCmd.Flags().StringVar(&genHost, "host", "localhost", "Database server host (env: PGHOST)")
	GenCmd.Flags().IntVar(&genPort, "port", 5432, "Database server port (env: PGPORT)")
	GenCmd.Flags().StringVar(&genDB, "db", "", "Database name (required) (env: PGDATABASE)")
	GenCmd.Flags().StringVar(&genUser, "user", "", "Database user name (required) (env: PGUSER)")
	GenCmd.Flags().StringVar(&genPassword, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	GenCmd.Flags().StringVar(&genSchema, "schema", "public", "Schema name")
	GenCmd.Flags().StringVar(&genPackage, "package", "views", "Package name for the generated file")
	GenCmd.Flags().StringVar(&genOut, "out", "", "Write generated code to file instead of stdout")
	GenCmd.Flags().StringVar(&genApplicationName, "application-name", "pgview", "Application name for database connection (visible in pg_stat_activity)")
}

func runGen(cmd *cobra.Command, args []string) error {
	finalPassword := genPassword
	if finalPassword == "" {
		if envPassword := os.Getenv("PGPASSWORD"); envPassword != "" {
			finalPassword = envPassword
		}
	}

	conn, err := util.Connect(&util.ConnectionConfig{
		Host:            genHost,
		Port:            genPort,
		Database:        genDB,
		User:            genUser,
		Password:        finalPassword,
		ApplicationName: genApplicationName,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	catalog, err := ir.NewInspector(conn).Build(cmd.Context(), genSchema)
	if err != nil {
		return fmt.Errorf("failed to inspect schema %s: %w", genSchema, err)
	}

	source, err := codegen.Generate(catalog, genPackage)
	if err != nil {
		return err
	}

	if genOut != "" {
		if err := os.WriteFile(genOut, source, 0644); err != nil {
			return fmt.Errorf("failed to write generated code to %s: %w", genOut, err)
		}
		return nil
	}

	fmt.Print(string(source))
	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	genHost = "localhost"
	genPort = 5432
	genDB = ""
	genUser = ""
	genPassword = ""
	genSchema = "public"
	genPackage = "views"
	genOut = ""
	genApplicationName = "pgview"
}
