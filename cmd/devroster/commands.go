package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/m3rciful/devroster/core/buildinfo"
	corecmd "github.com/m3rciful/devroster/core/cmd"
	"github.com/m3rciful/devroster/core/database"
	"github.com/m3rciful/devroster/internal/app"
	"github.com/m3rciful/devroster/migrations"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return corecmd.Run(corecmd.Options{
			ConfigPath:        configPath,
			ConfigEnvVar:      corecmd.DefaultConfigEnvVar,
			DefaultConfigPath: defaultConfigPath,
			LoadConfig:        app.LoadCarrier,
			Bootstrap:         app.Bootstrap,
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := migrator()
		if err != nil {
			return err
		}
		return m.Up()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Revert migrations; all of them when steps is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		m, err := migrator()
		if err != nil {
			return err
		}
		return m.Down(steps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := migrator()
		if err != nil {
			return err
		}
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		suffix := ""
		if dirty {
			suffix = " (dirty)"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d%s\n", v, suffix)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "devroster "+buildinfo.String())
	},
}

func migrator() (*database.Migrator, error) {
	path, err := corecmd.ResolveConfigPath(configPath, corecmd.DefaultConfigEnvVar, defaultConfigPath)
	if err != nil {
		return nil, err
	}
	cfg, err := app.LoadDatabase(path)
	if err != nil {
		return nil, err
	}
	return database.NewMigrator(cfg, migrations.FS)
}
