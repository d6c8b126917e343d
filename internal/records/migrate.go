package records

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/momento-app/momento/internal/records/migrations"
	"github.com/pressly/goose/v3"
)

// migrate applies the embedded migrations in dir for the given dialect.
func migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, dir string) error {
	sub, err := fs.Sub(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dir, err)
	}
	provider, err := goose.NewProvider(dialect, db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply %s migrations: %w", dir, err)
	}
	return nil
}
