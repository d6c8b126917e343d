// Package records is the adapter between the journaling services and the
// record store. Each kind has a Schema that shapes application input into
// wire rows, and every write goes through one failure policy: any failed
// record in a batch fails the call.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/momento-app/momento/internal/observability"
)

// Store applies schemas, paging defaults and the batch failure policy on top
// of a Backend.
type Store struct {
	backend   Backend
	log       zerolog.Logger
	metrics   *observability.Metrics
	pageLimit int
}

func NewStore(backend Backend, logger zerolog.Logger, metrics *observability.Metrics, pageLimit int) *Store {
	if pageLimit <= 0 {
		pageLimit = 100
	}
	return &Store{
		backend:   backend,
		log:       logger.With().Str("component", "records").Str("backend", backend.Mode()).Logger(),
		metrics:   metrics,
		pageLimit: pageLimit,
	}
}

func (s *Store) Mode() string { return s.backend.Mode() }

func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func (s *Store) Close() error { return s.backend.Close() }

// List returns records of the schema's kind. A zero Limit uses the page limit.
func (s *Store) List(ctx context.Context, schema *Schema, q Query) (out []Record, err error) {
	defer s.observe(schema.kind, "list", 0, time.Now(), &err)

	if q.Limit <= 0 {
		q.Limit = s.pageLimit
	}
	if len(q.Fields) == 0 {
		q.Fields = schema.FieldNames()
	}
	filters := make([]Filter, 0, len(q.Filters))
	for _, f := range q.Filters {
		name, value, ferr := schema.EncodeFilter(f.Field, f.Value)
		if ferr != nil {
			return nil, ferr
		}
		filters = append(filters, Filter{Field: name, Value: value})
	}
	q.Filters = filters

	rows, err := s.backend.Fetch(ctx, schema.kind, q)
	if err != nil {
		return nil, err
	}
	out = make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, derr := schema.Decode(row)
		if derr != nil {
			return nil, derr
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListAll pages through every record matching q's filters, advancing Offset
// until an empty page comes back. Pages are read in Id order so none are
// skipped; callers sort the result themselves.
func ListAll(ctx context.Context, repo Repository, schema *Schema, q Query) ([]Record, error) {
	q.OrderBy = []Order{{Field: IDField}}
	q.Offset = 0
	var (
		out    []Record
		lastID int64
	)
	for {
		page, err := repo.List(ctx, schema, q)
		if err != nil {
			return nil, err
		}
		// A backend that ignores Offset would hand back the same page forever.
		if len(page) == 0 || page[0].ID <= lastID {
			return out, nil
		}
		out = append(out, page...)
		lastID = page[len(page)-1].ID
		q.Offset += len(page)
	}
}

func (s *Store) Get(ctx context.Context, schema *Schema, id int64) (rec Record, err error) {
	defer s.observe(schema.kind, "get", id, time.Now(), &err)

	row, err := s.backend.FetchByID(ctx, schema.kind, id)
	if err != nil {
		return Record{}, err
	}
	return schema.Decode(row)
}

// Create shapes fields through the schema and inserts one record.
func (s *Store) Create(ctx context.Context, schema *Schema, fields map[string]any) (rec Record, err error) {
	defer s.observe(schema.kind, "create", 0, time.Now(), &err)

	row, err := schema.ShapeCreate(fields)
	if err != nil {
		return Record{}, err
	}
	results, err := s.backend.CreateRows(ctx, schema.kind, []Row{row})
	if err != nil {
		return Record{}, err
	}
	return s.single(schema, "create", results)
}

// Update applies a partial update. Create-only and unknown fields are
// dropped; when allow is given only those fields are written.
func (s *Store) Update(ctx context.Context, schema *Schema, id int64, fields map[string]any, allow ...string) (rec Record, err error) {
	defer s.observe(schema.kind, "update", id, time.Now(), &err)

	row, err := schema.ShapeUpdate(fields, allow...)
	if err != nil {
		return Record{}, err
	}
	row[IDField] = id
	results, err := s.backend.UpdateRows(ctx, schema.kind, []Row{row})
	if err != nil {
		return Record{}, err
	}
	return s.single(schema, "update", results)
}

// Delete removes the given ids. It reports true only when every id was
// deleted; a missing id yields ErrNotFound.
func (s *Store) Delete(ctx context.Context, schema *Schema, ids ...int64) (ok bool, err error) {
	var first int64
	if len(ids) > 0 {
		first = ids[0]
	}
	defer s.observe(schema.kind, "delete", first, time.Now(), &err)

	if len(ids) == 0 {
		return true, nil
	}
	results, err := s.backend.DeleteRows(ctx, schema.kind, ids)
	if err != nil {
		return false, err
	}
	if err := firstFailure("delete", schema.kind, results); err != nil {
		return false, err
	}
	return len(results) == len(ids), nil
}

func (s *Store) single(schema *Schema, op string, results []Result) (Record, error) {
	if err := firstFailure(op, schema.kind, results); err != nil {
		return Record{}, err
	}
	if len(results) == 0 || results[0].Data == nil {
		return Record{}, &BatchError{Op: op, Kind: schema.kind, Message: "store returned no record"}
	}
	return schema.Decode(results[0].Data)
}

func (s *Store) observe(kind Kind, op string, id int64, started time.Time, errp *error) {
	err := *errp
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case IsValidation(err):
		outcome = "invalid"
	default:
		outcome = "error"
	}
	s.metrics.ObserveRecordOp(string(kind), op, outcome, time.Since(started))
	if err == nil {
		return
	}

	evt := s.log.Error()
	if outcome != "error" {
		evt = s.log.Warn()
	}
	evt = evt.Err(err).Str("op", op).Str("kind", string(kind))
	if id != 0 {
		evt = evt.Int64("id", id)
	}
	evt.Msg("record operation failed")
}

// Repository is the record adapter contract the services depend on.
type Repository interface {
	List(ctx context.Context, schema *Schema, q Query) ([]Record, error)
	Get(ctx context.Context, schema *Schema, id int64) (Record, error)
	Create(ctx context.Context, schema *Schema, fields map[string]any) (Record, error)
	Update(ctx context.Context, schema *Schema, id int64, fields map[string]any, allow ...string) (Record, error)
	Delete(ctx context.Context, schema *Schema, ids ...int64) (bool, error)
}

var _ Repository = (*Store)(nil)
