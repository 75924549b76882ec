package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/redmonkez12/notes-api/internal/database/migrations"
)

// Migration directions accepted by Migrate.
const (
	MigrateUp     = "up"
	MigrateDown   = "down"
	MigrateStatus = "status"
)

// Migrate runs the embedded goose migrations in the given direction.
func Migrate(ctx context.Context, db *sql.DB, direction string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	var err error
	switch direction {
	case MigrateUp:
		err = goose.UpContext(ctx, db, ".")
	case MigrateDown:
		err = goose.DownContext(ctx, db, ".")
	case MigrateStatus:
		err = goose.StatusContext(ctx, db, ".")
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}

	return nil
}
