package util

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("PGHOST", "db.internal")
	t.Setenv("PGPORT", "5433")
	t.Setenv("PGDATABASE", "appdb")
	t.Setenv("PGUSER", "app")
	t.Setenv("PGPASSWORD", "secret")
	t.Setenv("PGAPPNAME", "myapp")

	env, err := LoadEnvironment()
	if err != nil {
		t.Fatalf("LoadEnvironment failed: %v", err)
	}

	if env.Host != "db.internal" || env.Port != 5433 || env.Database != "appdb" ||
		env.User != "app" || env.Password != "secret" || env.ApplicationName != "myapp" {
		t.Errorf("unexpected environment: %+v", env)
	}
}

func TestLoadEnvironmentInvalidPort(t *testing.T) {
	t.Setenv("PGPORT", "not-a-port")
	if _, err := LoadEnvironment(); err == nil {
		t.Error("expected parse error for non-numeric PGPORT")
	}
}

func newTestCommand(db, user, host *string, port *int, appName *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "test",
		PreRunE: PreRunEWithEnvVars(db, user, host, port, appName),
		RunE:    func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.Flags().StringVar(db, "db", "", "")
	cmd.Flags().StringVar(user, "user", "", "")
	cmd.Flags().StringVar(host, "host", "localhost", "")
	cmd.Flags().IntVar(port, "port", 5432, "")
	cmd.Flags().StringVar(appName, "application-name", "pgview", "")
	return cmd
}

func TestPreRunEFillsFromEnvironment(t *testing.T) {
	t.Setenv("PGDATABASE", "envdb")
	t.Setenv("PGUSER", "envuser")
	t.Setenv("PGHOST", "envhost")
	t.Setenv("PGPORT", "6432")
	t.Setenv("PGAPPNAME", "envapp")

	var db, user, host, appName string
	var port int
	cmd := newTestCommand(&db, &user, &host, &port, &appName)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if db != "envdb" || user != "envuser" || host != "envhost" || port != 6432 || appName != "envapp" {
		t.Errorf("env vars not applied: db=%q user=%q host=%q port=%d app=%q", db, user, host, port, appName)
	}
}

func TestPreRunEFlagsWinOverEnvironment(t *testing.T) {
	t.Setenv("PGDATABASE", "envdb")
	t.Setenv("PGUSER", "envuser")
	t.Setenv("PGHOST", "envhost")

	var db, user, host, appName string
	var port int
	cmd := newTestCommand(&db, &user, &host, &port, &appName)
	cmd.SetArgs([]string{"--db", "flagdb", "--host", "flaghost"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if db != "flagdb" {
		t.Errorf("db = %q, explicit flag must win", db)
	}
	if host != "flaghost" {
		t.Errorf("host = %q, explicit flag must win", host)
	}
	if user != "envuser" {
		t.Errorf("user = %q, unset flag should fall back to env", user)
	}
}

func TestPreRunERequiresDatabaseAndUser(t *testing.T) {
	t.Setenv("PGDATABASE", "")
	t.Setenv("PGUSER", "")

	var db, user, host, appName string
	var port int
	cmd := newTestCommand(&db, &user, &host, &port, &appName)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "database name is required") {
		t.Errorf("Execute = %v, want missing database error", err)
	}

	cmd = newTestCommand(&db, &user, &host, &port, &appName)
	cmd.SetArgs([]string{"--db", "somedb"})
	err = cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "database user is required") {
		t.Errorf("Execute = %v, want missing user error", err)
	}
}

func TestBuildDSN(t *testing.T) {
	config := &ConnectionConfig{
		Host:            "localhost",
		Port:            5432,
		Database:        "appdb",
		User:            "app",
		Password:        "secret",
		SSLMode:         "prefer",
		ApplicationName: "pgview",
	}

	dsn := buildDSN(config)
	for _, want := range []string{
		"host=localhost", "port=5432", "dbname=appdb",
		"user=app", "password=secret", "sslmode=prefer", "application_name=pgview",
	} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN missing %q: %s", want, dsn)
		}
	}

	minimal := buildDSN(&ConnectionConfig{Host: "h", Port: 1, Database: "d", User: "u"})
	if strings.Contains(minimal, "password=") || strings.Contains(minimal, "application_name=") {
		t.Errorf("optional parts should be omitted: %s", minimal)
	}
}
