package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jt828/wolam/pkg/observability"
	"github.com/jt828/wolam/pkg/observability/implementation"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		direction string
		steps     int
		path      string
		dsn       string
	)

	cmd := &cobra.Command{
		Use:          "migration",
		Short:        "Apply the generation job store schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("dsn") {
				dsn = os.Getenv("DATABASE_DSN")
			}
			if dsn == "" {
				return errors.New("DATABASE_DSN or --dsn is required")
			}
			return migrateSchema("file://"+path, dsn, direction, steps)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "up", "migration direction: up or down")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of steps to migrate (0 = all)")
	cmd.Flags().StringVar(&path, "path", "migrations", "directory holding the migration files")
	cmd.Flags().StringVar(&dsn, "dsn", "", "postgres dsn (defaults to DATABASE_DSN)")

	return cmd
}

func migrateSchema(source, dsn, direction string, steps int) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown direction: %s", direction)
	}

	log, err := implementation.NewZapLogger(implementation.LoggerConfig{
		Name:  "migration",
		Level: observability.LevelInfo,
	})
	if err != nil {
		return err
	}

	m, err := migrate.New(source, dsn)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("no migration to apply", observability.String("direction", direction))
		return nil
	}
	if err != nil {
		log.Error("migration failed", observability.Err(err))
		return err
	}

	log.Info("migration completed", observability.String("direction", direction))
	return nil
}
