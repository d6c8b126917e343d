package records

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryBackend keeps rows in process. Every call holds one mutex, so id
// assignment (max existing id + 1 per kind) is atomic.
type MemoryBackend struct {
	mu     sync.Mutex
	tables map[Kind]map[int64]Row
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{tables: make(map[Kind]map[int64]Row)}
}

func (b *MemoryBackend) Mode() string { return "memory" }

func (b *MemoryBackend) Ping(context.Context) error { return nil }

func (b *MemoryBackend) Fetch(_ context.Context, kind Kind, q Query) ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	table := b.tables[kind]
	ids := slices.Sorted(maps.Keys(table))
	if idDescending(q.OrderBy) {
		slices.Reverse(ids)
	}
	out := make([]Row, 0, len(ids))
	for _, id := range ids {
		row := table[id]
		if matchesFilters(row, q.Filters) {
			out = append(out, maps.Clone(row))
		}
	}
	return page(out, q.Limit, q.Offset), nil
}

func (b *MemoryBackend) FetchByID(_ context.Context, kind Kind, id int64) (Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	row, ok := b.tables[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(row), nil
}

func (b *MemoryBackend) CreateRows(_ context.Context, kind Kind, rows []Row) ([]Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	table := b.tables[kind]
	if table == nil {
		table = make(map[int64]Row)
		b.tables[kind] = table
	}
	results := make([]Result, 0, len(rows))
	for _, fields := range rows {
		var next int64 = 1
		for id := range table {
			if id >= next {
				next = id + 1
			}
		}
		row := withID(fields, next)
		table[next] = row
		results = append(results, Result{Success: true, Data: maps.Clone(row)})
	}
	return results, nil
}

func (b *MemoryBackend) UpdateRows(_ context.Context, kind Kind, rows []Row) ([]Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make([]Result, 0, len(rows))
	for _, patch := range rows {
		id, _ := patch.ID()
		current, ok := b.tables[kind][id]
		if !ok {
			results = append(results, notFoundResult(id))
			continue
		}
		for k, v := range stripID(patch) {
			current[k] = v
		}
		results = append(results, Result{Success: true, Data: maps.Clone(current)})
	}
	return results, nil
}

func (b *MemoryBackend) DeleteRows(_ context.Context, kind Kind, ids []int64) ([]Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		if _, ok := b.tables[kind][id]; !ok {
			results = append(results, notFoundResult(id))
			continue
		}
		delete(b.tables[kind], id)
		results = append(results, Result{Success: true, Data: Row{IDField: id}})
	}
	return results, nil
}

func (b *MemoryBackend) Close() error { return nil }
