// Package dump implements the dump command. It renders the views of a schema
// as a SQL state file that plan and apply accept as desired state.
package dump

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/diff"
	"github.com/pgview/pgview/ir"
)

var (
	dumpHost            string
	dumpPort            int
	dumpDB              string
	dumpUser            string
	dumpPassword        string
	dumpSchema          string
	dumpFile            string
	dumpNoComments      bool
	dumpApplicationName string
)

var DumpCmd = &cobra.Command{
	Use:          "dump",
	Short:        "Dump views as SQL declarations",
	Long:         "Dump the views and materialized views of a schema as SQL. The output is a valid desired state file: feeding it back to plan produces no changes.",
	RunE:         runDump,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithEnvVars(&dumpDB, &dumpUser, &dumpHost, &dumpPort, &dumpApplicationName),
}

func init() {
	DumpCmd.Flags().StringVar(&dumpHost, "host", "localhost", "Database server host (env: PGHOST)")
	DumpCmd.Flags().IntVar(&dumpPort, "port", 5432, "Database server port (env: PGPORT)")
	DumpCmd.Flags().StringVar(&dumpDB, "db", "", "Database name (required) (env: PGDATABASE)")
	DumpCmd.Flags().StringVar(&dumpUser, "user", "", "Database user name (required) (env: PGUSER)")
	DumpCmd.Flags().StringVar(&dumpPassword, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	DumpCmd.Flags().StringVar(&dumpSchema, "schema", "public", "Schema name to dump")
	DumpCmd.Flags().StringVar(&dumpFile, "file", "", "Write output to file instead of stdout")
	DumpCmd.Flags().BoolVar(&dumpNoComments, "no-comments", false, "Omit COMMENT ON statements")
	DumpCmd.Flags().StringVar(&dumpApplicationName, "application-name", "pgview", "Application name for database connection (visible in pg_stat_activity)")
}

func runDump(cmd *cobra.Command, args []string) error {
	finalPassword := dumpPassword
	if finalPassword == "" {
		if envPassword := os.Getenv("PGPASSWORD"); envPassword != "" {
			finalPassword = envPassword
		}
	}

	conn, err := util.Connect(&util.ConnectionConfig{
		Host:            dumpHost,
		Port:            dumpPort,
		Database:        dumpDB,
		User:            dumpUser,
		Password:        finalPassword,
		ApplicationName: dumpApplicationName,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	catalog, err := ir.NewInspector(conn).Build(cmd.Context(), dumpSchema)
	if err != nil {
		return fmt.Errorf("failed to inspect schema %s: %w", dumpSchema, err)
	}

	output := diff.GenerateCatalogSQL(catalog, !dumpNoComments)

	if dumpFile != "" {
		if err := os.WriteFile(dumpFile, []byte(output), 0644); err != nil {
			return fmt.Errorf("failed to write dump to %s: %w", dumpFile, err)
		}
		return nil
	}

	fmt.Print(output)
	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	dumpHost = "localhost"
	dumpPort = 5432
	dumpDB = ""
	dumpUser = ""
	dumpPassword = ""
	dumpSchema = "public"
	dumpFile = ""
	dumpNoComments = false
	dumpApplicationName = "pgview"
}
