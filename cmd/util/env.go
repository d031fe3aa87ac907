package util

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"
)

// Environment holds connection parameters read from the standard libpq
// environment variables
type Environment struct {
	Host            string `env:"PGHOST"`
	Port            int    `env:"PGPORT"`
	Database        string `env:"PGDATABASE"`
	User            string `env:"PGUSER"`
	Password        string `env:"PGPASSWORD"`
	ApplicationName string `env:"PGAPPNAME"`
}

// LoadEnvironment parses the PG* environment variables
func LoadEnvironment() (*Environment, error) {
	var e Environment
	if err := env.Parse(&e); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	return &e, nil
}

// PreRunEWithEnvVars creates a PreRunE function that fills connection flags
// from the PG* environment variables when the flags were not set explicitly,
// then validates that the required values are present.
func PreRunEWithEnvVars(dbPtr, userPtr, hostPtr *string, portPtr *int, appNamePtr *string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		environment, err := LoadEnvironment()
		if err != nil {
			return err
		}

		if environment.Database != "" && !cmd.Flags().Changed("db") {
			*dbPtr = environment.Database
		}
		if environment.User != "" && !cmd.Flags().Changed("user") {
			*userPtr = environment.User
		}
		if hostPtr != nil && environment.Host != "" && !cmd.Flags().Changed("host") {
			*hostPtr = environment.Host
		}
		if portPtr != nil && environment.Port != 0 && !cmd.Flags().Changed("port") {
			*portPtr = environment.Port
		}
		if appNamePtr != nil && environment.ApplicationName != "" && !cmd.Flags().Changed("application-name") {
			*appNamePtr = environment.ApplicationName
		}

		if *dbPtr == "" {
			return fmt.Errorf("database name is required (use --db flag or PGDATABASE environment variable)")
		}
		if *userPtr == "" {
			return fmt.Errorf("database user is required (use --user flag or PGUSER environment variable)")
		}

		return nil
	}
}
