// Package plan implements the plan command. It compares the desired view
// state against a live database and renders the migration plan.
package plan

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgview/pgview/cmd/util"
	"github.com/pgview/pgview/internal/diff"
	"github.com/pgview/pgview/internal/fingerprint"
	"github.com/pgview/pgview/internal/manifest"
	"github.com/pgview/pgview/internal/plan"
	"github.com/pgview/pgview/ir"
	"github.com/pgview/pgview/view"
)

var (
	planHost     string
	planPort     int
	planDB       string
	planUser     string
	planPassword string
	planSchema   string
	planFile     string
	planManifest string
	planPrune    bool
	outputHuman  string
	outputJSON   string
	outputSQL    string
	planNoColor  bool
)

var PlanCmd = &cobra.Command{
	Use:          "plan",
	Short:        "Generate a view migration plan",
	Long:         "Generate a migration plan that brings the views of a target schema to the desired state. The desired state comes from a SQL state file (--file) or a YAML manifest (--manifest); the current state is inspected from the database.",
	RunE:         runPlan,
	SilenceUsage: true,
	PreRunE:      util.PreRunEWithEnvVars(&planDB, &planUser, &planHost, &planPort, nil),
}

func init() {
	PlanCmd.Flags().StringVar(&planHost, "host", "localhost", "Database server host (env: PGHOST)")
	PlanCmd.Flags().IntVar(&planPort, "port", 5432, "Database server port (env: PGPORT)")
	PlanCmd.Flags().StringVar(&planDB, "db", "", "Database name (required) (env: PGDATABASE)")
	PlanCmd.Flags().StringVar(&planUser, "user", "", "Database user name (required) (env: PGUSER)")
	PlanCmd.Flags().StringVar(&planPassword, "password", "", "Database password (optional, can also use PGPASSWORD env var)")
	PlanCmd.Flags().StringVar(&planSchema, "schema", "public", "Schema name")

	PlanCmd.Flags().StringVar(&planFile, "file", "", "Path to desired state SQL file")
	PlanCmd.Flags().StringVar(&planManifest, "manifest", "", "Path to desired state YAML manifest")
	PlanCmd.Flags().BoolVar(&planPrune, "prune", false, "Drop database views that are not declared in the desired state")

	PlanCmd.Flags().StringVar(&outputHuman, "output-human", "", "Output human-readable format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputJSON, "output-json", "", "Output JSON format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputSQL, "output-sql", "", "Output SQL format to stdout or file path")
	PlanCmd.Flags().BoolVar(&planNoColor, "no-color", false, "Disable colored output")

	PlanCmd.MarkFlagsOneRequired("file", "manifest")
	PlanCmd.MarkFlagsMutuallyExclusive("file", "manifest")
}

func runPlan(cmd *cobra.Command, args []string) error {
	finalPassword := planPassword
	if finalPassword == "" {
		if envPassword := os.Getenv("PGPASSWORD"); envPassword != "" {
			finalPassword = envPassword
		}
	}

	config := &PlanConfig{
		Host:            planHost,
		Port:            planPort,
		DB:              planDB,
		User:            planUser,
		Password:        finalPassword,
		Schema:          planSchema,
		File:            planFile,
		Manifest:        planManifest,
		Prune:           planPrune,
		ApplicationName: "pgview",
	}

	migrationPlan, err := GeneratePlan(cmd.Context(), config)
	if err != nil {
		return err
	}

	outputs, err := determineOutputs()
	if err != nil {
		return err
	}

	for _, output := range outputs {
		if err := processOutput(migrationPlan, output); err != nil {
			return err
		}
	}

	return nil
}

// PlanConfig holds configuration for plan generation
type PlanConfig struct {
	Host            string
	Port            int
	DB              string
	User            string
	Password        string
	Schema          string
	ApplicationName string

	// Desired state sources. Exactly one of File, Manifest, or Registry
	// must be set.
	File     string
	Manifest string
	Registry *view.Registry

	// Prune drops database views absent from the desired state
	Prune bool
}

// DesiredCatalog resolves the desired view state from the configured source
func (c *PlanConfig) DesiredCatalog() (*ir.Catalog, error) {
	switch {
	case c.File != "":
		data, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read desired state file: %w", err)
		}
		return ir.ParseSQL(string(data), c.Schema)
	case c.Manifest != "":
		return manifest.Load(c.Manifest, c.Schema)
	case c.Registry != nil:
		return c.Registry.Catalog(c.Schema)
	default:
		return nil, fmt.Errorf("no desired state source configured")
	}
}

// GeneratePlan inspects the target database, compares it with the desired
// state, and builds a migration plan.
func GeneratePlan(ctx context.Context, config *PlanConfig) (*plan.Plan, error) {
	desired, err := config.DesiredCatalog()
	if err != nil {
		return nil, err
	}

	db, err := util.Connect(&util.ConnectionConfig{
		Host:            config.Host,
		Port:            config.Port,
		Database:        config.DB,
		User:            config.User,
		Password:        config.Password,
		ApplicationName: config.ApplicationName,
	})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	// Declarations may name schemas beyond the target; the inspection has to
	// cover them or applied views there would be re-created on every plan.
	var extraSchemas []string
	for _, schema := range desired.Schemas() {
		if schema != config.Schema {
			extraSchemas = append(extraSchemas, schema)
		}
	}

	current, err := ir.NewInspector(db).Build(ctx, config.Schema, extraSchemas...)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect current state: %w", err)
	}

	sourceFingerprint, err := fingerprint.Compute(current)
	if err != nil {
		return nil, fmt.Errorf("failed to compute source fingerprint: %w", err)
	}

	d := diff.Diff(current, desired, diff.Options{Prune: config.Prune})
	migrationPlan := plan.NewPlan(d, config.Schema, sourceFingerprint)
	migrationPlan.Schemas = desired.Schemas()
	return migrationPlan, nil
}

// outputSpec represents a single output specification
type outputSpec struct {
	format string // "human", "json", or "sql"
	target string // "stdout" or file path
}

// determineOutputs parses the output flags and returns the list of outputs to generate
func determineOutputs() ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0

	if outputHuman != "" {
		if outputHuman == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "human", target: outputHuman})
	}

	if outputJSON != "" {
		if outputJSON == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "json", target: outputJSON})
	}

	if outputSQL != "" {
		if outputSQL == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, outputSpec{format: "sql", target: outputSQL})
	}

	if stdoutCount > 1 {
		return nil, fmt.Errorf("only one output format can use stdout")
	}

	// Default behavior: if no outputs specified, output human to stdout
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}

	return outputs, nil
}

// processOutput writes the plan in the specified format to the target destination
func processOutput(migrationPlan *plan.Plan, output outputSpec) error {
	var content string
	var err error

	switch output.format {
	case "human":
		// Colored output only when writing to a terminal-bound stdout
		useColor := output.target == "stdout" && !planNoColor
		content = migrationPlan.HumanColored(useColor)
	case "json":
		content, err = migrationPlan.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to generate JSON output: %w", err)
		}
		content += "\n"
	case "sql":
		content = migrationPlan.ToSQL()
	default:
		return fmt.Errorf("unknown output format: %s", output.format)
	}

	if output.target == "stdout" {
		fmt.Print(content)
	} else {
		if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s output to %s: %w", output.format, output.target, err)
		}
	}

	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	planHost = "localhost"
	planPort = 5432
	planDB = ""
	planUser = ""
	planPassword = ""
	planSchema = "public"
	planFile = ""
	planManifest = ""
	planPrune = false
	outputHuman = ""
	outputJSON = ""
	outputSQL = ""
	planNoColor = false
}
