package pg

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/connkeeper/internal/store/schema"
)

// schemaStatements retorna el DDL idempotente de la tabla de usuarios plana.
func schemaStatements(table string) []string {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE,
			email TEXT UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, table),
	}
	for _, col := range schema.FlatColumns() {
		typ := "TEXT"
		if col.Timestamp {
			typ = "TIMESTAMPTZ"
		}
		stmts = append(stmts, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, table, col.Name, typ))
	}
	return stmts
}

// EnsureSchema crea la tabla y agrega las columnas de conexión que falten.
func (b *Backend) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(b.table) {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("pg: ensure schema: %w", err)
		}
	}
	return nil
}
