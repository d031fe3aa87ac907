// Package apply implements the apply command. It executes a migration plan
// against a target database inside a transaction.
package apply

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	planCmd "github.com/pgview/pgview/cmd/plan"
	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/fingerprint"
	"github.com/pgview/pgview/internal/plan"
	"github.com/pgview/pgview/ir"
)

var (
	applyHost            string
	applyPort            int
	applyDB              string
	applyUser            string
	applyPassword        string
	applySchema          string
	applyFile            string
	applyManifest        string
	applyPlanFile        string
	applyPrune           bool
	applyAutoApprove     bool
	applyNoColor         bool
	applyDryRun          bool
	applyLockTimeout     string
	applyApplicationName string
)

var ApplyCmd = &cobra.Command{
	Use:          "apply",
	Short:        "Apply view migrations to a database",
	Long:         "Apply the desired view state to a target database schema. The desired state comes from a SQL state file (--file), a YAML manifest (--manifest), or a previously saved plan (--plan). Changes run in a single transaction.",
	RunE:         runApply,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithEnvVars(&applyDB, &applyUser, &applyHost, &applyPort, &applyApplicationName),
}

func init() {
	ApplyCmd.Flags().StringVar(&applyHost, "host", "localhost", "Database server host (env: PGHOST)")
	ApplyCmd.Flags().IntVar(&applyPort, "port", 5432, "Database server port (env: PGPORT)")
	ApplyCmd.Flags().StringVar(&applyDB, "db", "", "Database name (required) (env: PGDATABASE)")
	ApplyCmd.Flags().StringVar(&applyUser, "user", "", "Database user name (required) (env: PGUSER)")
	ApplyCmd.Flags().StringVar(&applyPassword, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	ApplyCmd.Flags().StringVar(&applySchema, "schema", "public", "Schema name")

	ApplyCmd.Flags().StringVar(&applyFile, "file", "", "Path to desired state SQL file")
	ApplyCmd.Flags().StringVar(&applyManifest, "manifest", "", "Path to desired state YAML manifest")
	ApplyCmd.Flags().StringVar(&applyPlanFile, "plan", "", "Path to a plan file saved with 'plan --output-json'")
	ApplyCmd.Flags().BoolVar(&applyPrune, "prune", false, "Drop database views that are not declared in the desired state")

	ApplyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Apply changes without prompting for approval")
	ApplyCmd.Flags().BoolVar(&applyNoColor, "no-color", false, "Disable colored output")
	ApplyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show plan without applying changes")
	ApplyCmd.Flags().StringVar(&applyLockTimeout, "lock-timeout", "", "Maximum time to wait for database locks (e.g., 30s, 5m, 1h)")
	ApplyCmd.Flags().StringVar(&applyApplicationName, "application-name", "pgview", "Application name for database connection (visible in pg_stat_activity)")

	ApplyCmd.MarkFlagsOneRequired("file", "manifest", "plan")
	ApplyCmd.MarkFlagsMutuallyExclusive("file", "manifest", "plan")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	finalPassword := applyPassword
	if finalPassword == "" {
		if envPassword := os.Getenv("PGPASSWORD"); envPassword != "" {
			finalPassword = envPassword
		}
	}

	var lockTimeout time.Duration
	if applyLockTimeout != "" {
		parsed, err := time.ParseDuration(applyLockTimeout)
		if err != nil {
			return fmt.Errorf("invalid lock timeout %q: %w", applyLockTimeout, err)
		}
		lockTimeout = parsed
	}

	connConfig := &util.ConnectionConfig{
		Host:            applyHost,
		Port:            applyPort,
		Database:        applyDB,
		User:            applyUser,
		Password:        finalPassword,
		ApplicationName: applyApplicationName,
	}

	var migrationPlan *plan.Plan
	if applyPlanFile != "" {
		loaded, err := loadStoredPlan(ctx, applyPlanFile, connConfig)
		if err != nil {
			return err
		}
		migrationPlan = loaded
	} else {
		config := &planCmd.PlanConfig{
			Host:            applyHost,
			Port:            applyPort,
			DB:              applyDB,
			User:            applyUser,
			Password:        finalPassword,
			Schema:          applySchema,
			File:            applyFile,
			Manifest:        applyManifest,
			Prune:           applyPrune,
			ApplicationName: applyApplicationName,
		}
		generated, err := planCmd.GeneratePlan(ctx, config)
		if err != nil {
			return err
		}
		migrationPlan = generated
	}

	if !migrationPlan.HasChanges() {
		fmt.Println("No changes to apply. Views are already up to date.")
		return nil
	}

	fmt.Print(migrationPlan.HumanColored(!applyNoColor))

	if applyDryRun {
		return nil
	}

	if !applyAutoApprove {
		approved, err := promptForApproval(os.Stdin)
		if err != nil {
			return err
		}
		if !approved {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Println("\nApplying changes...")

	conn, err := util.Connect(connConfig)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := ExecutePlan(ctx, conn, migrationPlan, lockTimeout); err != nil {
		return err
	}

	fmt.Println("Changes applied successfully!")
	return nil
}

// loadStoredPlan reads a plan file and verifies that the database has not
// drifted since the plan was generated.
func loadStoredPlan(ctx context.Context, path string, connConfig *util.ConnectionConfig) (*plan.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	storedPlan, err := plan.FromJSON(data)
	if err != nil {
		return nil, err
	}

	if storedPlan.Fingerprint == nil {
		return storedPlan, nil
	}

	conn, err := util.Connect(connConfig)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Re-inspect the same schema set the plan's fingerprint covered
	var extraSchemas []string
	for _, schema := range storedPlan.Schemas {
		if schema != storedPlan.TargetSchema {
			extraSchemas = append(extraSchemas, schema)
		}
	}
	current, err := ir.NewInspector(conn).Build(ctx, storedPlan.TargetSchema, extraSchemas...)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect current state: %w", err)
	}
	currentFingerprint, err := fingerprint.Compute(current)
	if err != nil {
		return nil, fmt.Errorf("failed to compute current fingerprint: %w", err)
	}

	if err := fingerprint.Compare(storedPlan.Fingerprint, currentFingerprint); err != nil {
		return nil, fmt.Errorf("database changed since the plan was generated, regenerate the plan: %w", err)
	}

	return storedPlan, nil
}

// promptForApproval asks for confirmation and accepts yes or y
func promptForApproval(in *os.File) (bool, error) {
	fmt.Print("\nDo you want to apply these changes? (yes/no): ")
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes" || response == "y", nil
}

// ExecutePlan runs every step of the plan inside one transaction. View DDL is
// transactional in PostgreSQL, so a failing step rolls back the whole plan.
func ExecutePlan(ctx context.Context, db *sql.DB, migrationPlan *plan.Plan, lockTimeout time.Duration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if lockTimeout > 0 {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds()))
		if err != nil {
			return fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	for _, step := range migrationPlan.Steps {
		description := fmt.Sprintf("%s %s %s", step.Operation, step.ObjectType, step.ObjectPath)
		if _, err := util.ExecContextWithLogging(ctx, tx, step.SQL, description); err != nil {
			return fmt.Errorf("failed to %s: %w", description, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	applyHost = "localhost"
	applyPort = 5432
	applyDB = ""
	applyUser = ""
	applyPassword = ""
	applySchema = "public"
	applyFile = ""
	applyManifest = ""
	applyPlanFile = ""
	applyPrune = false
	applyAutoApprove = false
	applyNoColor = false
	applyDryRun = false
	applyLockTimeout = ""
	applyApplicationName = "pgview"
}
