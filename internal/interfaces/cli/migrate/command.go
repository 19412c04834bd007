package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/migration"
	"github.com/corates/billing/internal/interfaces/cli/bootstrap"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/logger"
)

const defaultScriptsDir = "./internal/infrastructure/migration/scripts"

var (
	opts       bootstrap.Options
	name       string
	scriptsDir string
	steps      int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations: apply, roll back, check status and create new goose scripts.`,
	}

	cmd.PersistentFlags().StringVarP(&opts.Env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations.`,
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database.`,
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a new SQL migration file for the configured driver's dialect.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.Flags().StringVar(&scriptsDir, "dir", defaultScriptsDir, "Scripts root; the dialect subdirectory is appended")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// withStrategy loads config, opens the database and hands the goose strategy
// for the configured driver to fn.
func withStrategy(fn func(cfg *config.Config, strategy *migration.GooseStrategy, log logger.Interface) error) error {
	cfg, log, err := bootstrap.Load(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	strategy, err := migration.NewGooseStrategy(cfg.Database.Driver)
	if err != nil {
		return err
	}
	return fn(cfg, strategy, log)
}

func runUp(cmd *cobra.Command, args []string) error {
	return withStrategy(func(cfg *config.Config, strategy *migration.GooseStrategy, log logger.Interface) error {
		db, closeDB, err := bootstrap.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		log.Infow("running up migrations", "driver", cfg.Database.Driver)
		if err := strategy.Migrate(db); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	})
}

func runDown(cmd *cobra.Command, args []string) error {
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	return withStrategy(func(cfg *config.Config, strategy *migration.GooseStrategy, log logger.Interface) error {
		db, closeDB, err := bootstrap.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		log.Infow("running down migrations", "steps", steps)
		if err := strategy.MigrateDown(db, steps); err != nil {
			return fmt.Errorf("down migration failed: %w", err)
		}
		return nil
	})
}

func runStatus(cmd *cobra.Command, args []string) error {
	return withStrategy(func(cfg *config.Config, strategy *migration.GooseStrategy, log logger.Interface) error {
		db, closeDB, err := bootstrap.OpenDatabase(cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		version, err := strategy.GetVersion(db)
		if err != nil {
			return fmt.Errorf("failed to get migration version: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nMigration Status:\n")
		fmt.Fprintf(out, "  Driver:          %s\n", cfg.Database.Driver)
		fmt.Fprintf(out, "  Current Version: %d\n", version)

		return strategy.Status(db)
	})
}

func runCreate(cmd *cobra.Command, args []string) error {
	return withStrategy(func(cfg *config.Config, strategy *migration.GooseStrategy, log logger.Interface) error {
		if err := strategy.Create(scriptsDir, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Migration '%s' created\n", name)
		return nil
	})
}
