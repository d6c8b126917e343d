package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresBackend persists rows as JSONB in PostgreSQL.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = migrate(ctx, db, goose.DialectPostgres, "postgres")
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Mode() string { return "postgres" }

func (b *PostgresBackend) Ping(ctx context.Context) error { return b.pool.Ping(ctx) }

func (b *PostgresBackend) Fetch(ctx context.Context, kind Kind, q Query) ([]Row, error) {
	filter := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		filter[f.Field] = f.Value
	}
	contains, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filters: %w", err)
	}

	limit := any(nil)
	if q.Limit > 0 {
		limit = q.Limit
	}
	order := "id"
	if idDescending(q.OrderBy) {
		order = "id DESC"
	}
	rows, err := b.pool.Query(ctx,
		`SELECT id, fields FROM records
		 WHERE kind = $1 AND fields @> $2::jsonb
		 ORDER BY `+order+` LIMIT $3 OFFSET $4`,
		string(kind), string(contains), limit, q.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		row, err := unmarshalRow(raw, id)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", kind, err)
	}
	return out, nil
}

func (b *PostgresBackend) FetchByID(ctx context.Context, kind Kind, id int64) (Row, error) {
	var raw []byte
	err := b.pool.QueryRow(ctx, `SELECT fields FROM records WHERE kind = $1 AND id = $2`, string(kind), id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return unmarshalRow(raw, id)
}

func (b *PostgresBackend) CreateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serializes id assignment per kind for the rest of the transaction.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(kind)); err != nil {
		return nil, fmt.Errorf("lock %s ids: %w", kind, err)
	}
	var maxID int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM records WHERE kind = $1`, string(kind)).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("next %s id: %w", kind, err)
	}

	results := make([]Result, 0, len(rows))
	for _, fields := range rows {
		maxID++
		body, err := json.Marshal(stripID(fields))
		if err != nil {
			return nil, fmt.Errorf("encode %s row: %w", kind, err)
		}
		var raw []byte
		if err := tx.QueryRow(ctx,
			`INSERT INTO records (kind, id, fields) VALUES ($1, $2, $3::jsonb) RETURNING fields`,
			string(kind), maxID, string(body),
		).Scan(&raw); err != nil {
			return nil, fmt.Errorf("insert %s: %w", kind, err)
		}
		row, err := unmarshalRow(raw, maxID)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Success: true, Data: row})
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create %s: %w", kind, err)
	}
	return results, nil
}

func (b *PostgresBackend) UpdateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := make([]Result, 0, len(rows))
	for _, patch := range rows {
		id, _ := patch.ID()
		body, err := json.Marshal(stripID(patch))
		if err != nil {
			return nil, fmt.Errorf("encode %s patch: %w", kind, err)
		}
		var raw []byte
		err = tx.QueryRow(ctx,
			`UPDATE records SET fields = fields || $3::jsonb, updated_at = now()
			 WHERE kind = $1 AND id = $2 RETURNING fields`,
			string(kind), id, string(body),
		).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			results = append(results, notFoundResult(id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update %s %d: %w", kind, id, err)
		}
		row, err := unmarshalRow(raw, id)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Success: true, Data: row})
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", kind, err)
	}
	return results, nil
}

func (b *PostgresBackend) DeleteRows(ctx context.Context, kind Kind, ids []int64) ([]Result, error) {
	rows, err := b.pool.Query(ctx,
		`DELETE FROM records WHERE kind = $1 AND id = ANY($2) RETURNING id`,
		string(kind), ids,
	)
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", kind, err)
	}
	deleted, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", kind, err)
	}
	gone := make(map[int64]bool, len(deleted))
	for _, id := range deleted {
		gone[id] = true
	}

	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if !gone[id] {
			results = append(results, notFoundResult(id))
			continue
		}
		results = append(results, Result{Success: true, Data: Row{IDField: id}})
	}
	return results, nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
