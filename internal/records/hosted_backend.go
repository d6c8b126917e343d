package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/momento-app/momento/internal/reliability"
)

// HostedConfig configures the client for the hosted record API.
type HostedConfig struct {
	BaseURL    string
	ProjectID  string
	PublicKey  string
	Timeout    time.Duration
	MaxRetries int
}

// HostedBackend talks to a generic hosted record service over HTTP.
// Reads are retried on retryable statuses; writes are sent once.
type HostedBackend struct {
	http       *resty.Client
	maxRetries int
}

type hostedEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Results []Result        `json:"results"`
}

type hostedFieldSpec struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

type hostedWhere struct {
	FieldName string `json:"FieldName"`
	Operator  string `json:"Operator"`
	Values    []any  `json:"Values"`
}

type hostedOrder struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type hostedQuery struct {
	Fields     []hostedFieldSpec `json:"fields,omitempty"`
	Where      []hostedWhere     `json:"where,omitempty"`
	OrderBy    []hostedOrder     `json:"orderBy,omitempty"`
	PagingInfo struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"pagingInfo"`
}

func NewHostedBackend(cfg HostedConfig) *HostedBackend {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Project-Id", cfg.ProjectID).
		SetHeader("X-Public-Key", cfg.PublicKey)
	return &HostedBackend{http: client, maxRetries: cfg.MaxRetries}
}

func (b *HostedBackend) Mode() string { return "hosted" }

func (b *HostedBackend) Ping(ctx context.Context) error {
	resp, err := b.http.R().SetContext(ctx).Get("/v1/health")
	if err != nil {
		return fmt.Errorf("hosted ping: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("hosted ping: status %d", resp.StatusCode())
	}
	return nil
}

func (b *HostedBackend) Fetch(ctx context.Context, kind Kind, q Query) ([]Row, error) {
	var body hostedQuery
	for _, name := range q.Fields {
		var spec hostedFieldSpec
		spec.Field.Name = name
		body.Fields = append(body.Fields, spec)
	}
	for _, f := range q.Filters {
		body.Where = append(body.Where, hostedWhere{FieldName: f.Field, Operator: "EqualTo", Values: []any{f.Value}})
	}
	for _, o := range q.OrderBy {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		body.OrderBy = append(body.OrderBy, hostedOrder{FieldName: o.Field, SortType: dir})
	}
	body.PagingInfo.Limit = q.Limit
	body.PagingInfo.Offset = q.Offset

	env, err := b.read(ctx, "fetch", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("kind", string(kind)).SetBody(body).Post("/v1/tables/{kind}/records/query")
	})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0)
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &rows); err != nil {
			return nil, fmt.Errorf("decode %s rows: %w", kind, err)
		}
	}
	return rows, nil
}

func (b *HostedBackend) FetchByID(ctx context.Context, kind Kind, id int64) (Row, error) {
	env, err := b.read(ctx, "get", func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParams(map[string]string{
			"kind": string(kind),
			"id":   strconv.FormatInt(id, 10),
		}).Get("/v1/tables/{kind}/records/{id}")
	})
	if err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, ErrNotFound
	}
	var row Row
	if err := json.Unmarshal(env.Data, &row); err != nil {
		return nil, fmt.Errorf("decode %s %d: %w", kind, id, err)
	}
	if _, ok := row.ID(); !ok {
		row[IDField] = id
	}
	return row, nil
}

func (b *HostedBackend) CreateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	return b.write(ctx, kind, http.MethodPost, map[string]any{"records": rows})
}

func (b *HostedBackend) UpdateRows(ctx context.Context, kind Kind, rows []Row) ([]Result, error) {
	return b.write(ctx, kind, http.MethodPut, map[string]any{"records": rows})
}

func (b *HostedBackend) DeleteRows(ctx context.Context, kind Kind, ids []int64) ([]Result, error) {
	return b.write(ctx, kind, http.MethodDelete, map[string]any{"RecordIds": ids})
}

func (b *HostedBackend) Close() error { return nil }

func (b *HostedBackend) write(ctx context.Context, kind Kind, method string, body any) ([]Result, error) {
	var env hostedEnvelope
	resp, err := b.http.R().
		SetContext(ctx).
		SetPathParam("kind", string(kind)).
		SetBody(body).
		SetResult(&env).
		SetError(&env).
		Execute(method, "/v1/tables/{kind}/records")
	if err != nil {
		return nil, fmt.Errorf("hosted %s %s: %w", method, kind, err)
	}
	if resp.IsError() && len(env.Results) == 0 {
		return nil, statusError(method+" "+string(kind), resp.StatusCode(), env.Message)
	}
	if !env.Success && len(env.Results) == 0 {
		return nil, fmt.Errorf("hosted %s %s: %s", method, kind, messageOr(env.Message, "request rejected"))
	}
	return env.Results, nil
}

// read performs an idempotent request, retrying transport failures and
// retryable statuses with capped exponential backoff.
func (b *HostedBackend) read(ctx context.Context, op string, do func(*resty.Request) (*resty.Response, error)) (hostedEnvelope, error) {
	var env hostedEnvelope
	attempt := func() error {
		env = hostedEnvelope{}
		resp, err := do(b.http.R().SetContext(ctx).SetResult(&env).SetError(&env))
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !reliability.IsNetworkError(err) {
				return backoff.Permanent(fmt.Errorf("hosted %s: %w", op, err))
			}
			return fmt.Errorf("hosted %s: %w", op, err)
		}
		code := resp.StatusCode()
		switch {
		case code == http.StatusNotFound:
			return backoff.Permanent(ErrNotFound)
		case reliability.IsRetryableHTTPStatus(code):
			return statusError(op, code, env.Message)
		case resp.IsError():
			return backoff.Permanent(statusError(op, code, env.Message))
		case !env.Success:
			return backoff.Permanent(fmt.Errorf("hosted %s: %s", op, messageOr(env.Message, "request rejected")))
		}
		return nil
	}
	err := backoff.Retry(attempt, reliability.NewBackOff(ctx, b.maxRetries, 200*time.Millisecond, 2*time.Second))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return hostedEnvelope{}, err
	}
	return env, nil
}

func statusError(op string, code int, message string) error {
	return fmt.Errorf("hosted %s: status %d (%s): %s", op, code, reliability.HTTPStatusClass(code), messageOr(message, http.StatusText(code)))
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
