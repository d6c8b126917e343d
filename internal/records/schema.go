package records

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind names a table in the record store.
type Kind string

const (
	KindMemory      Kind = "memory"
	KindCapsule     Kind = "capsule"
	KindChatMessage Kind = "chat_message"
	KindUser        Kind = "app_User"
)

// IDField is the wire name of the store-assigned identifier.
const IDField = "Id"

// TimeLayout is the wire format for time fields. It is fixed width so wire
// values sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeBool
	TypeTime
	TypeList
	TypeIntList
)

// Field describes one permitted wire field of a kind.
type Field struct {
	Name       string
	Label      string
	Type       FieldType
	Aliases    []string
	CreateOnly bool
}

// Row is a record in wire shape: wire field names to wire values.
type Row map[string]any

// ID returns the row's identifier when present and numeric.
func (r Row) ID() (int64, bool) {
	v, ok := r[IDField]
	if !ok {
		return 0, false
	}
	id, err := coerceInt(v)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Schema is the allow-list and type table for one kind.
type Schema struct {
	kind   Kind
	fields []Field
	byKey  map[string]int
}

func NewSchema(kind Kind, fields ...Field) *Schema {
	s := &Schema{kind: kind, fields: fields, byKey: make(map[string]int, len(fields)*2)}
	for i, f := range fields {
		if f.Label == "" {
			s.fields[i].Label = f.Name
		}
		s.byKey[f.Name] = i
		for _, alias := range f.Aliases {
			s.byKey[alias] = i
		}
	}
	return s
}

func (s *Schema) Kind() Kind { return s.kind }

// FieldNames returns the wire names in declaration order.
func (s *Schema) FieldNames() []string {
	out := make([]string, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f.Name)
	}
	return out
}

// Lookup resolves a wire name or alias.
func (s *Schema) Lookup(key string) (Field, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// ShapeCreate converts application input to a wire row. Unknown keys are
// dropped.
func (s *Schema) ShapeCreate(in map[string]any) (Row, error) {
	return s.shape(in, false, nil)
}

// ShapeUpdate converts a partial update to a wire row. Unknown keys and
// create-only fields are dropped; when allow is non-empty only the named
// wire fields survive.
func (s *Schema) ShapeUpdate(in map[string]any, allow ...string) (Row, error) {
	var allowed map[string]bool
	if len(allow) > 0 {
		allowed = make(map[string]bool, len(allow))
		for _, name := range allow {
			if f, ok := s.Lookup(name); ok {
				allowed[f.Name] = true
			}
		}
	}
	return s.shape(in, true, allowed)
}

func (s *Schema) shape(in map[string]any, update bool, allowed map[string]bool) (Row, error) {
	out := make(Row, len(in))
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	// Wire names win over aliases when both are given; sorted keys keep
	// validation errors deterministic.
	sort.Strings(keys)
	for _, key := range keys {
		f, ok := s.Lookup(key)
		if !ok {
			continue
		}
		if update && f.CreateOnly {
			continue
		}
		if allowed != nil && !allowed[f.Name] {
			continue
		}
		if _, set := out[f.Name]; set && key != f.Name {
			continue
		}
		v, err := encodeValue(f, in[key])
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

// EncodeFilter shapes a filter value so it compares equal to stored values.
func (s *Schema) EncodeFilter(key string, value any) (string, any, error) {
	f, ok := s.Lookup(key)
	if !ok {
		if key == IDField {
			id, err := coerceInt(value)
			if err != nil {
				return "", nil, &ValidationError{Field: IDField, Message: err.Error()}
			}
			return IDField, id, nil
		}
		return "", nil, &ValidationError{Field: key, Message: "unknown field"}
	}
	v, err := encodeValue(f, value)
	return f.Name, v, err
}

// Decode converts a wire row into a typed Record. Keys outside the schema
// are ignored.
func (s *Schema) Decode(row Row) (Record, error) {
	rec := Record{Kind: s.kind, Fields: make(map[string]any, len(s.fields))}
	if id, ok := row.ID(); ok {
		rec.ID = id
	}
	for _, f := range s.fields {
		raw, ok := row[f.Name]
		if !ok || raw == nil {
			continue
		}
		v, err := decodeValue(f, raw)
		if err != nil {
			return Record{}, fmt.Errorf("decode %s.%s: %w", s.kind, f.Name, err)
		}
		rec.Fields[f.Name] = v
	}
	return rec, nil
}

func encodeValue(f Field, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	invalid := func(msg string) error {
		return &ValidationError{Field: f.Label, Message: msg}
	}
	switch f.Type {
	case TypeString:
		switch t := v.(type) {
		case string:
			return t, nil
		case fmt.Stringer:
			return t.String(), nil
		default:
			return nil, invalid("must be text")
		}
	case TypeInt:
		n, err := coerceInt(v)
		if err != nil {
			return nil, invalid(err.Error())
		}
		return n, nil
	case TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				return nil, invalid("must be true or false")
			}
			return b, nil
		default:
			return nil, invalid("must be true or false")
		}
	case TypeTime:
		ts, err := coerceTime(v)
		if err != nil {
			return nil, invalid(err.Error())
		}
		if ts.IsZero() {
			return nil, nil
		}
		return ts.UTC().Format(TimeLayout), nil
	case TypeList:
		items, err := coerceStrings(v)
		if err != nil {
			return nil, invalid(err.Error())
		}
		return JoinList(items), nil
	case TypeIntList:
		items, err := coerceStrings(v)
		if err != nil {
			return nil, invalid(err.Error())
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			n, err := coerceInt(item)
			if err != nil {
				return nil, invalid(err.Error())
			}
			parts = append(parts, strconv.FormatInt(n, 10))
		}
		return strings.Join(parts, ","), nil
	default:
		return nil, invalid("unsupported field type")
	}
}

func decodeValue(f Field, v any) (any, error) {
	switch f.Type {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case TypeInt:
		return coerceInt(v)
	case TypeBool:
		switch t := v.(type) {
		case bool:
			return t, nil
		case string:
			return strconv.ParseBool(t)
		case float64:
			return t != 0, nil
		case int64:
			return t != 0, nil
		default:
			return nil, fmt.Errorf("unexpected %T for bool", v)
		}
	case TypeTime:
		return coerceTime(v)
	case TypeList:
		s, ok := v.(string)
		if !ok {
			return coerceStrings(v)
		}
		return SplitList(s), nil
	case TypeIntList:
		var items []string
		if s, ok := v.(string); ok {
			items = SplitList(s)
		} else {
			var err error
			if items, err = coerceStrings(v); err != nil {
				return nil, err
			}
		}
		out := make([]int64, 0, len(items))
		for _, item := range items {
			n, err := coerceInt(item)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported field type %d", f.Type)
	}
}

// JoinList renders a list field in its comma-delimited wire form.
func JoinList(items []string) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			parts = append(parts, item)
		}
	}
	return strings.Join(parts, ",")
}

// SplitList parses a comma-delimited wire value, trimming items and
// dropping empties. It never returns nil.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func coerceInt(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int64(t), nil
	case json.Number:
		return coerceInt(t.String())
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be a whole number")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be a whole number")
	}
}

// ParseTime accepts the wire layout, RFC 3339, datetime-local input
// ("2006-01-02T15:04") and bare dates. Blank input yields the zero time.
func ParseTime(s string) (time.Time, error) {
	return coerceTime(s)
}

func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, nil
		}
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, nil
		}
		for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02T15:04", time.DateOnly} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp")
	default:
		return time.Time{}, fmt.Errorf("must be an RFC 3339 timestamp")
	}
}

func coerceStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return SplitList(t), nil
	case []string:
		return t, nil
	case []int64:
		out := make([]string, 0, len(t))
		for _, n := range t {
			out = append(out, strconv.FormatInt(n, 10))
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case float64, int, int64, json.Number:
				n, err := coerceInt(it)
				if err != nil {
					return nil, err
				}
				out = append(out, strconv.FormatInt(n, 10))
			default:
				return nil, fmt.Errorf("list items must be text")
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("must be a list")
	}
}
