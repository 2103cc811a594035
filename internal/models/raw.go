package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RawRecord is a record exactly as decoded from the academic API. Field names
// vary between endpoints, so every accessor takes a list of candidate keys and
// uses the first one present.
type RawRecord map[string]interface{}

// String returns the first candidate holding a string or number.
func (r RawRecord) String(keys ...string) (string, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return "", false
	}
	return scalarString(v)
}

// Text returns the first candidate holding a non-blank string or a number.
// Unlike String it moves on past empty values and embedded objects.
func (r RawRecord) Text(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := r[key]
		if !ok || v == nil {
			continue
		}
		if s, ok := scalarString(v); ok && strings.TrimSpace(s) != "" {
			return s, true
		}
	}
	return "", false
}

// Bool returns the first candidate holding a boolean. String forms "true" and
// "false" are accepted.
func (r RawRecord) Bool(keys ...string) (bool, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return parsed, err == nil
	}
	return false, false
}

// Float returns the first candidate holding a number or numeric string.
func (r RawRecord) Float(keys ...string) (float64, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// Int returns Float truncated to int.
func (r RawRecord) Int(keys ...string) (int, bool) {
	f, ok := r.Float(keys...)
	return int(f), ok
}

// Time parses RFC3339, date-only strings and unix milliseconds.
func (r RawRecord) Time(keys ...string) (time.Time, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return time.Time{}, false
	}
	if s, isString := v.(string); isString {
		s = strings.TrimSpace(s)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	}
	if ms, isNumber := r.Float(keys...); isNumber {
		return time.UnixMilli(int64(ms)).UTC(), true
	}
	return time.Time{}, false
}

// Ref returns a foreign reference that may be a bare identifier or an
// embedded object carrying id or _id.
func (r RawRecord) Ref(keys ...string) (string, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return "", false
	}
	if nested := AsRecord(v); nested != nil {
		return nested.ID()
	}
	s, ok := scalarString(v)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// Refs returns a list of references; elements may be identifiers or objects.
func (r RawRecord) Refs(keys ...string) []string {
	v, ok := r.lookup(keys...)
	if !ok {
		return []string{}
	}
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if nested := AsRecord(item); nested != nil {
			if id, ok := nested.ID(); ok {
				out = append(out, id)
			}
			continue
		}
		if s, ok := scalarString(item); ok && strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Record returns an embedded object.
func (r RawRecord) Record(keys ...string) (RawRecord, bool) {
	v, ok := r.lookup(keys...)
	if !ok {
		return nil, false
	}
	nested := AsRecord(v)
	return nested, nested != nil
}

// ID returns the server-assigned identifier, read from id then _id.
func (r RawRecord) ID() (string, bool) {
	id, ok := r.String("id", "_id")
	if !ok || strings.TrimSpace(id) == "" {
		return "", false
	}
	return id, true
}

func (r RawRecord) lookup(keys ...string) (interface{}, bool) {
	for _, key := range keys {
		if v, ok := r[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// AsRecord converts a decoded JSON object into a RawRecord, or returns nil.
func AsRecord(v interface{}) RawRecord {
	switch m := v.(type) {
	case RawRecord:
		return m
	case map[string]interface{}:
		return RawRecord(m)
	}
	return nil
}

func scalarString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case json.Number:
		return s.String(), true
	}
	return "", false
}
