// Package pg implementa el backend PostgreSQL para el store de usuarios de esquema plano.
// Usa pgxpool directamente; cada campo canónico es una columna de la tabla de usuarios.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/connkeeper/internal/domain/repository"
	"github.com/dropDatabas3/connkeeper/internal/store"
)

const defaultTable = "users"

func init() {
	store.RegisterDriver(&postgresDriver{})
}

// postgresDriver implementa store.Driver para PostgreSQL.
type postgresDriver struct{}

func (d *postgresDriver) Name() string { return "postgres" }

func (d *postgresDriver) Open(ctx context.Context, cfg store.BackendConfig) (store.Backend, error) {
	if cfg.Schema != "" && cfg.Schema != "flat" {
		return nil, fmt.Errorf("pg: schema %q not supported (only flat)", cfg.Schema)
	}
	table, err := tableIdent(cfg.Table)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	// Configurar pool
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: pg: create pool: %w", repository.ErrStoreUnavailable, err)
	}

	// Conectar para fallar rápido si hay problema
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pg: ping failed: %w", repository.ErrStoreUnavailable, err)
	}

	b := &Backend{pool: pool, table: table}
	if cfg.EnsureSchema {
		if err := b.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return b, nil
}

// Backend es una conexión activa a la tabla de usuarios.
type Backend struct {
	pool  *pgxpool.Pool
	table string
}

var _ store.Backend = (*Backend)(nil)

func (b *Backend) Name() string { return "postgres" }

func (b *Backend) FindOne(ctx context.Context, field, value string) (store.Document, error) {
	if !validIdentifier.MatchString(field) {
		return nil, fmt.Errorf("pg: invalid column %q", field)
	}
	if value == "" {
		return nil, repository.ErrNotFound
	}
	query := fmt.Sprintf(`SELECT * FROM %s WHERE %s = $1 LIMIT 1`, b.table, field)
	rows, err := b.pool.Query(ctx, query, value)
	if err != nil {
		return nil, err
	}
	doc, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *Backend) Set(ctx context.Context, id string, fields store.Document) error {
	query, args, err := buildUpdate(b.table, id, fields)
	if err != nil {
		return err
	}
	tag, err := b.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (b *Backend) Unset(ctx context.Context, id string, fields []string) error {
	nulls := make(store.Document, len(fields))
	for _, f := range fields {
		nulls[f] = nil
	}
	return b.Set(ctx, id, nulls)
}

func (b *Backend) Insert(ctx context.Context, doc store.Document) error {
	doc = store.CloneDocument(doc)
	if store.AsString(doc["id"]) == "" {
		doc["id"] = uuid.NewString()
	}
	query, args, err := buildInsert(b.table, doc)
	if err != nil {
		return err
	}
	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("pg: %w: %s", repository.ErrAlreadyExists, pgErr.ConstraintName)
		}
		return err
	}
	return nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// tableIdent valida y quotea el nombre de tabla ("users" o "schema.users").
func tableIdent(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTable
	}
	parts := strings.Split(name, ".")
	for _, p := range parts {
		if !validIdentifier.MatchString(p) {
			return "", fmt.Errorf("pg: invalid table name %q", name)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}
