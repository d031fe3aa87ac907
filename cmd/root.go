package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgview/pgview/cmd/apply"
	"github.com/pgview/pgview/cmd/dump"
	"github.com/pgview/pgview/cmd/gen"
	"github.com/pgview/pgview/cmd/plan"
	"github.com/pgview/pgview/cmd/refresh"
	"github.com/pgview/pgview/internal/logger"
	"github.com/pgview/pgview/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "pgview",
	Short: "PostgreSQL view and materialized view migration tool",
	Long: fmt.Sprintf(`pgview manages PostgreSQL views and materialized views declaratively.

Version: %s@%s %s %s

Commands:
  plan     Generate a view migration plan
  apply    Apply view migrations
  refresh  Refresh materialized views
  dump     Dump views as SQL declarations
  gen      Generate Go view declarations from a database

Use "pgview [command] --help" for more information about a command.`,
		version.App(), version.GetGitCommit(), version.Platform(), version.GetBuildDate()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func setupLogger() {
	level := slog.LevelInfo
	if Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger.SetGlobal(slog.New(handler), Debug)
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(plan.PlanCmd)
	RootCmd.AddCommand(apply.ApplyCmd)
	RootCmd.AddCommand(refresh.RefreshCmd)
	RootCmd.AddCommand(dump.DumpCmd)
	RootCmd.AddCommand(gen.GenCmd)
	RootCmd.AddCommand(VersionCmd)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
