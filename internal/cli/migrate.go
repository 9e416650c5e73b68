package cli

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/b2bportal/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultMigrationsPath = "migrations"

type migrateOptions struct {
	path string
}

func newMigrateCommand(g *globalOptions) *cobra.Command {
	opts := &migrateOptions{}

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the mirror schema",
	}
	cmd.PersistentFlags().StringVar(&opts.path, "path", "", "migrations directory (default: ./migrations)")

	withMigrator := func(fn func(cmd *cobra.Command, a *app, m *migration.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := newApp(g)
			if err != nil {
				return err
			}
			defer a.close(cmd.Context())

			m, err := openMigrator(a, resolveMigrationsPath(opts.path))
			if err != nil {
				return err
			}
			defer m.Close()
			return fn(cmd, a, m, args)
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, _ *app, m *migration.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back n migrations (default 1)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, _ *app, m *migration.Migrator, args []string) error {
				n := 1
				if len(args) == 1 {
					v, err := strconv.Atoi(args[0])
					if err != nil || v <= 0 {
						return fmt.Errorf("invalid step count %q", args[0])
					}
					n = v
				}
				return m.Steps(-n)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the applied schema version",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, _ *app, m *migration.Migrator, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				if version == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty: %t)\n", version, dirty)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the applied version and pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(cmd *cobra.Command, _ *app, m *migration.Migrator, _ []string) error {
				status, err := m.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Version: %d (dirty: %t)\n", status.Version, status.Dirty)
				if len(status.Pending) == 0 {
					fmt.Fprintln(out, "No pending migrations")
					return nil
				}
				fmt.Fprintln(out, "Pending:")
				for _, p := range status.Pending {
					fmt.Fprintf(out, "  %d_%s\n", p.Version, p.Name)
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, a *app, m *migration.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				a.logger.Warn("Forcing migration version", zap.Int("version", version))
				return m.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "create <name> [description]",
			Short: "Create an empty up/down migration pair",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				description := ""
				if len(args) == 2 {
					description = args[1]
				}
				mf, err := migration.CreateMigration(resolveMigrationsPath(opts.path), args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n        %s\n", mf.UpPath, mf.DownPath)
				return nil
			},
		},
	)
	return cmd
}

func openMigrator(a *app, path string) (*migration.Migrator, error) {
	db, err := sql.Open("postgres", a.cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, path, a.logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.logger.Debug("Migrator ready", zap.String("path", path))
	return m, nil
}

// resolveMigrationsPath prefers an explicit path, then ./migrations, then the
// directory two levels above the executable
func resolveMigrationsPath(path string) string {
	if path == "" {
		path = defaultMigrationsPath
		if _, err := os.Stat(path); err != nil {
			if exe, err := os.Executable(); err == nil {
				candidate := filepath.Join(filepath.Dir(exe), "..", "..", defaultMigrationsPath)
				if _, err := os.Stat(candidate); err == nil {
					path = candidate
				}
			}
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
