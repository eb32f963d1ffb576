package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// sqliteTimeLayout is fixed width so lexical order matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000-07:00"

func (s *Store) timeArg(t time.Time) any {
	if s.dialect == DialectSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (s *Store) nullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return s.timeArg(*t)
}

func (s *Store) listArg(list []string) (any, error) {
	if list == nil {
		list = []string{}
	}
	if s.dialect == DialectPostgres {
		return pq.Array(list), nil
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}
	return string(raw), nil
}

// timeValue scans timestamps from either driver.
type timeValue struct {
	Time  time.Time
	Valid bool
}

func (v *timeValue) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		v.Time, v.Valid = time.Time{}, false
		return nil
	case time.Time:
		v.Time, v.Valid = value.UTC(), true
		return nil
	case []byte:
		return v.parse(string(value))
	case string:
		return v.parse(value)
	}
	return fmt.Errorf("unsupported time value %T", src)
}

func (v *timeValue) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.Time, v.Valid = time.Time{}, false
		return nil
	}
	for _, layout := range []string{sqliteTimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			v.Time, v.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("parse time %q", raw)
}

func (v timeValue) ptr() *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

// listValue scans a TEXT[] (Postgres) or a JSON array (SQLite).
type listValue []string

func (v *listValue) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("unsupported list value %T", src)
	}

	trimmed := bytes.TrimSpace(raw)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var list []string
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return fmt.Errorf("decode list: %w", err)
		}
		*v = list
		return nil
	}

	var arr pq.StringArray
	if err := arr.Scan(trimmed); err != nil {
		return fmt.Errorf("decode array: %w", err)
	}
	*v = []string(arr)
	return nil
}
