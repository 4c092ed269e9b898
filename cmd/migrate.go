package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newhook/remedy/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage archive database migrations",
	Long:  `Manage database migrations for the session archive.`,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied migrations",
	Args:  cobra.NoArgs,
	RunE:  runMigrateStatus,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long:  `Apply all pending database migrations. This happens automatically when the archive is opened, but can be run manually if needed.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrateUp,
}

var migrateRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last migration",
	Args:  cobra.NoArgs,
	RunE:  runMigrateRollback,
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateRollbackCmd)
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	versions, err := db.MigrationStatus(GetContext(), database.DB)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(versions) == 0 {
		fmt.Fprintln(out, "No migrations applied.")
		return nil
	}
	fmt.Fprintf(out, "Applied migrations (%d):\n", len(versions))
	for _, version := range versions {
		fmt.Fprintf(out, "  %s\n", version)
	}
	return nil
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	// Opening already migrates; running again is a no-op when current.
	if err := db.RunMigrations(GetContext(), database.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All migrations applied successfully.")
	return nil
}

func runMigrateRollback(cmd *cobra.Command, args []string) error {
	database, err := openArchive()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RollbackMigration(GetContext(), database.DB); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Migration rolled back successfully.")
	return nil
}
