package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteBackend stores rows as JSON text in a single records table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
// ":memory:" gives a private in-process database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps writers serialized and :memory: shared.
	db.SetMaxOpenConns(1)
	if err := migrate(ctx, db, goose.DialectSQLite3, "sqlite"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Mode() string { return "sqlite" }

func (b *SQLiteBackend) Ping(ctx context.Context) error { return b.db.PingContext(ctx) }

func (b *SQLiteBackend) Fetch(ctx context.Context, kind Kind, q Query) ([]Row, error) {
	var sb strings.Builder
	args := []any{string(kind)}
	sb.WriteString(`SELECT id, fields FROM records WHERE kind = ?`)
	for _, f := range q.Filters {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter %s: %w", f.Field, err)
		}
		sb.WriteString(` AND json_extract(fields, ?) IS json_extract(?, '$')`)
		args = append(args, "$."+f.Field, string(val))
	}
	if idDescending(q.OrderBy) {
		sb.WriteString(` ORDER BY id DESC`)
	} else {
		sb.WriteString(` ORDER BY id`)
	}
	if q.Limit > 0 || q.Offset > 0 {
		limit := q.Limit
		if limit <= 0 {
			limit = -1
		}
		sb.WriteString(` LIMIT ? OFFSET ?`)
		args = append(args, limit, q.Offset)
	}

	rows, err := b.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer rows.Close()

	out := make([]Row, 0)
	for rows.Next() {
		var (
			id  int64
			raw string
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", kind, err)
		}
		row, err := unmarshalRow([]byte(raw), id)
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

func (b *SQLiteBackend) FetchByID(ctx context.Context, kind Kind, id int64) (Row, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT fields FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return unmarshalRow([]byte(raw), id)
}

func (b *SQLiteBackend) CreateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	var maxID int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM records WHERE kind = ?`, string(kind)).Scan(&maxID); err != nil {
		return nil, fmt.Errorf("next %s id: %w", kind, err)
	}
	results := make([]Result, 0, len(rows))
	for _, fields := range rows {
		maxID++
		body, err := json.Marshal(stripID(fields))
		if err != nil {
			return nil, fmt.Errorf("encode %s row: %w", kind, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO records (kind, id, fields) VALUES (?, ?, ?)`, string(kind), maxID, string(body)); err != nil {
			return nil, fmt.Errorf("insert %s: %w", kind, err)
		}
		row, err := unmarshalRow(body, maxID)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Success: true, Data: row})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create %s: %w", kind, err)
	}
	return results, nil
}

func (b *SQLiteBackend) UpdateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update %s: %w", kind, err)
	}
	defer func() { _ = tx.Rollback() }()

	results := make([]Result, 0, len(rows))
	for _, patch := range rows {
		id, _ := patch.ID()
		body, err := json.Marshal(stripID(patch))
		if err != nil {
			return nil, fmt.Errorf("encode %s patch: %w", kind, err)
		}
		var raw string
		err = tx.QueryRowContext(ctx,
			`UPDATE records SET fields = json_patch(fields, ?), updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE kind = ? AND id = ? RETURNING fields`,
			string(body), string(kind), id,
		).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			results = append(results, notFoundResult(id))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("update %s %d: %w", kind, id, err)
		}
		row, err := unmarshalRow([]byte(raw), id)
		if err != nil {
			return nil, err
		}
		results = append(results, Result{Success: true, Data: row})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update %s: %w", kind, err)
	}
	return results, nil
}

func (b *SQLiteBackend) DeleteRows(ctx context.Context, kind Kind, ids []int64) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		res, err := b.db.ExecContext(ctx, `DELETE FROM records WHERE kind = ? AND id = ?`, string(kind), id)
		if err != nil {
			return nil, fmt.Errorf("delete %s %d: %w", kind, id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("delete %s %d: %w", kind, id, err)
		}
		if n == 0 {
			results = append(results, notFoundResult(id))
			continue
		}
		results = append(results, Result{Success: true, Data: Row{IDField: id}})
	}
	return results, nil
}

func (b *SQLiteBackend) Close() error { return b.db.Close() }

func unmarshalRow(raw []byte, id int64) (Row, error) {
	row := Row{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode stored row %d: %w", id, err)
		}
	}
	row[IDField] = id
	return row, nil
}
