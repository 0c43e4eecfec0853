package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/phrazzld/biotrack-api/internal/platform/logger"
	"github.com/phrazzld/biotrack-api/internal/store"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// CreateSchema applies the embedded goose migrations, bringing the schema
// to the latest version. Idempotent: running against an up-to-date schema
// is a no-op. Fails with store.ErrSchema only on underlying I/O failure.
func (d *DB) CreateSchema(ctx context.Context) error {
	return d.runSchemaOp(ctx, "create", func(p *goose.Provider) error {
		_, err := p.Up(ctx)
		return err
	})
}

// DropSchema rolls every migration back, removing all tables. Idempotent:
// dropping an absent schema is a no-op.
func (d *DB) DropSchema(ctx context.Context) error {
	return d.runSchemaOp(ctx, "drop", func(p *goose.Provider) error {
		_, err := p.DownTo(ctx, 0)
		return err
	})
}

func (d *DB) runSchemaOp(ctx context.Context, op string, fn func(p *goose.Provider) error) error {
	log := logger.FromContext(ctx)

	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	migrations, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrSchema, op, err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, d.sql, migrations,
		goose.WithVerbose(false))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", store.ErrSchema, op, err)
	}

	if err := fn(provider); err != nil {
		log.Error("schema operation failed", "operation", op, "error", err)
		return fmt.Errorf("%w: %s: %v", store.ErrSchema, op, err)
	}

	log.Info("schema operation completed", "operation", op)
	return nil
}
