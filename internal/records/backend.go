package records

import (
	"bytes"
	"context"
	"encoding/json"
)

// Backend is the raw storage behind a Store. Write calls return one Result
// per input; per-record failures are reported in results, not as errors.
type Backend interface {
	Mode() string
	Ping(ctx context.Context) error
	Fetch(ctx context.Context, kind Kind, q Query) ([]Row, error)
	FetchByID(ctx context.Context, kind Kind, id int64) (Row, error)
	CreateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error)
	UpdateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error)
	DeleteRows(ctx context.Context, kind Kind, ids []int64) ([]Result, error)
	Close() error
}

// idDescending reports whether q asks for newest ids first.
func idDescending(orders []Order) bool {
	return len(orders) > 0 && orders[0].Field == IDField && orders[0].Desc
}

func matchesFilters(row Row, filters []Filter) bool {
	for _, f := range filters {
		if !jsonEqual(row[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b any) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// withID returns a copy of fields carrying id.
func withID(fields Row, id int64) Row {
	out := make(Row, len(fields)+1)
	for k, v := range fields {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	out[IDField] = id
	return out
}

func stripID(row Row) Row {
	out := make(Row, len(row))
	for k, v := range row {
		if k != IDField {
			out[k] = v
		}
	}
	return out
}
