package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/database/postgres"
)

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database schema migrations",
	}

	cmd.AddCommand(
		newMigrateUpCmd(),
		newMigrateStatusCmd(),
	)

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			conn, err := openDatabase(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			dir := path
			if dir == "" {
				dir = cliCtx.Config.Database.MigrationPath
			}
			if err := conn.RunMigrations(dir); err != nil {
				return err
			}

			PrintSuccess(cmd, "migrations applied")
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "migrations directory (default from configuration)")
	return cmd
}

// migrationStatus reports the state golang-migrate records in the
// schema_migrations table.
type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func (s migrationStatus) String() string {
	return fmt.Sprintf("version=%d dirty=%t", s.Version, s.Dirty)
}

func (s migrationStatus) TableHeaders() []string {
	return []string{"VERSION", "DIRTY"}
}

func (s migrationStatus) TableRows() [][]string {
	return [][]string{{fmt.Sprintf("%d", s.Version), fmt.Sprintf("%t", s.Dirty)}}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			conn, err := openDatabase(cliCtx)
			if err != nil {
				return err
			}
			defer conn.Close()

			var status migrationStatus
			row := conn.DB().QueryRowContext(cmd.Context(),
				`SELECT version, dirty FROM schema_migrations`)
			if err := row.Scan(&status.Version, &status.Dirty); err != nil {
				if err == sql.ErrNoRows {
					return PrintResult(cmd, "no migrations applied")
				}
				return err
			}

			return PrintResult(cmd, status)
		},
	}
}

// openDatabase connects to PostgreSQL using the loaded configuration.
func openDatabase(cliCtx *CLIContext) (*postgres.Connection, error) {
	cfg := cliCtx.Config.Database
	return postgres.NewConnection(postgres.PostgresConfig{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Database:        cfg.DBName,
		Username:        cfg.User,
		Password:        cfg.Password,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}, cliCtx.Logger)
}
