// Package migrations holds the embedded schema migrations. Up runs against
// the writer handle during startup, before any repository is built.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed files/*.sql
var schemaFS embed.FS

func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(schemaFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("migrations: select dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "files"); err != nil {
		return fmt.Errorf("migrations: apply schema: %w", err)
	}
	return nil
}
