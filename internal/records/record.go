package records

import (
	"time"
	"unicode/utf8"
)

// Record is a decoded row. Fields holds typed values keyed by wire name:
// string, int64, bool, time.Time, []string or []int64.
type Record struct {
	ID     int64
	Kind   Kind
	Fields map[string]any
}

func (r Record) Has(name string) bool {
	_, ok := r.Fields[name]
	return ok
}

func (r Record) Str(name string) string {
	s, _ := r.Fields[name].(string)
	return s
}

func (r Record) Int(name string) int64 {
	n, _ := r.Fields[name].(int64)
	return n
}

func (r Record) Bool(name string) bool {
	b, _ := r.Fields[name].(bool)
	return b
}

func (r Record) Time(name string) time.Time {
	t, _ := r.Fields[name].(time.Time)
	return t
}

// List returns a list field; missing fields yield an empty list.
func (r Record) List(name string) []string {
	if l, ok := r.Fields[name].([]string); ok {
		return l
	}
	return []string{}
}

func (r Record) IntList(name string) []int64 {
	if l, ok := r.Fields[name].([]int64); ok {
		return l
	}
	return []int64{}
}

// Filter restricts a query to rows whose field equals Value.
type Filter struct {
	Field string
	Value any
}

// Order is a sort hint. The hosted backend forwards it; local backends only
// honor a leading order on IDField and otherwise return rows by ascending id.
// Callers sort results themselves.
type Order struct {
	Field string
	Desc  bool
}

// Query selects rows of one kind.
type Query struct {
	Fields  []string
	Filters []Filter
	OrderBy []Order
	Limit   int
	Offset  int
}

// TitleMaxRunes bounds the Name derived from a record's text.
const TitleMaxRunes = 50

// TitleFrom derives a Name from the first TitleMaxRunes runes of text, or
// returns fallback when text is empty.
func TitleFrom(text, fallback string) string {
	if text == "" {
		return fallback
	}
	if utf8.RuneCountInString(text) <= TitleMaxRunes {
		return text
	}
	return string([]rune(text)[:TitleMaxRunes])
}
