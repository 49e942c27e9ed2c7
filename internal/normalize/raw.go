package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Raw is a decoded value from an untrusted generative source. Nothing about
// its shape is guaranteed; only the Normalizer reads it, and every accessor
// treats a type mismatch as absence.
type Raw struct {
	v any
}

// RawValue wraps an already decoded value
func RawValue(v any) Raw {
	return Raw{v: v}
}

// ParseRaw decodes a single JSON value. Numbers are kept as json.Number so
// large or odd values survive until the normalizer clamps them.
func ParseRaw(data []byte) (Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Raw{}, fmt.Errorf("decode suggestion: %w", err)
	}
	return Raw{v: v}, nil
}

// IsObject reports whether the value is a JSON object
func (r Raw) IsObject() bool {
	_, ok := r.v.(map[string]any)
	return ok
}

// Field returns the first present field among names. Missing fields and
// non-object values yield an absent Raw.
func (r Raw) Field(names ...string) Raw {
	obj, ok := r.v.(map[string]any)
	if !ok {
		return Raw{}
	}
	for _, name := range names {
		if v, ok := obj[name]; ok && v != nil {
			return Raw{v: v}
		}
	}
	return Raw{}
}

// List returns the elements of an array value, nil otherwise
func (r Raw) List() []Raw {
	arr, ok := r.v.([]any)
	if !ok {
		return nil
	}
	out := make([]Raw, len(arr))
	for i, v := range arr {
		out[i] = Raw{v: v}
	}
	return out
}

// Entries returns the members of an object value, nil otherwise
func (r Raw) Entries() map[string]Raw {
	obj, ok := r.v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]Raw, len(obj))
	for k, v := range obj {
		out[k] = Raw{v: v}
	}
	return out
}

// String returns a string value
func (r Raw) String() (string, bool) {
	s, ok := r.v.(string)
	return s, ok
}

// Bool returns a boolean value
func (r Raw) Bool() (bool, bool) {
	b, ok := r.v.(bool)
	return b, ok
}

// Number returns a finite numeric value. Infinities are reported as numbers
// so callers can clamp them; NaN is not a number here.
func (r Raw) Number() (float64, bool) {
	var f float64
	switch n := r.v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil && !math.IsInf(parsed, 0) {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Key returns the topic key carried by a list entry: either the entry
// itself when it is a string or its "key" field.
func (r Raw) Key() string {
	if s, ok := r.String(); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := r.Field("key", "id").String(); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
