package config

import (
	"strings"
	"time"
)

// Values wraps a decoded configuration document. Keys may be dotted paths
// into nested maps. Accessors return the default when the key is missing or
// the value has the wrong type.
type Values struct {
	data map[string]any
}

// New creates Values from the given map. A nil map yields empty Values.
func New(data map[string]any) Values {
	if data == nil {
		data = make(map[string]any)
	}
	return Values{data: data}
}

// lookup resolves a dotted key. A literal key containing dots wins over the
// nested path.
func (v Values) lookup(key string) (any, bool) {
	if val, ok := v.data[key]; ok {
		return val, true
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil, false
	}
	child, ok := asMap(v.data[head])
	if !ok {
		return nil, false
	}
	return Values{data: child}.lookup(rest)
}

func asMap(val any) (map[string]any, bool) {
	switch m := val.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			s, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[s] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// Section returns the nested map at key, or empty Values.
func (v Values) Section(key string) Values {
	val, ok := v.lookup(key)
	if !ok {
		return New(nil)
	}
	m, ok := asMap(val)
	if !ok {
		return New(nil)
	}
	return New(m)
}

// String returns the string at key, or defaultVal.
func (v Values) String(key, defaultVal string) string {
	if s, ok := v.stringAt(key); ok {
		return s
	}
	return defaultVal
}

func (v Values) stringAt(key string) (string, bool) {
	val, ok := v.lookup(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Duration returns the duration at key, or defaultVal. Strings are parsed
// with time.ParseDuration; numbers are seconds.
func (v Values) Duration(key string, defaultVal time.Duration) time.Duration {
	val, ok := v.lookup(key)
	if !ok {
		return defaultVal
	}
	switch d := val.(type) {
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed
		}
	case float64:
		return time.Duration(d * float64(time.Second))
	case int:
		return time.Duration(d) * time.Second
	case int64:
		return time.Duration(d) * time.Second
	case time.Duration:
		return d
	}
	return defaultVal
}

// Bool returns the bool at key, or defaultVal.
func (v Values) Bool(key string, defaultVal bool) bool {
	val, ok := v.lookup(key)
	if !ok {
		return defaultVal
	}
	if b, ok := val.(bool); ok {
		return b
	}
	return defaultVal
}

// Int returns the integer at key, or defaultVal. A float converts only when
// it has no fractional part.
func (v Values) Int(key string, defaultVal int) int {
	val, ok := v.lookup(key)
	if !ok {
		return defaultVal
	}
	switch n := val.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	return defaultVal
}

// Float returns the number at key, or defaultVal.
func (v Values) Float(key string, defaultVal float64) float64 {
	val, ok := v.lookup(key)
	if !ok {
		return defaultVal
	}
	switch n := val.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return defaultVal
}

// StringSlice returns the strings at key, or defaultVal. A single string is
// split on commas.
func (v Values) StringSlice(key string, defaultVal []string) []string {
	val, ok := v.lookup(key)
	if !ok {
		return defaultVal
	}
	switch s := val.(type) {
	case []string:
		return s
	case string:
		return splitList(s)
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			str, ok := item.(string)
			if !ok {
				return defaultVal
			}
			out = append(out, str)
		}
		return out
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Has reports whether key resolves.
func (v Values) Has(key string) bool {
	_, ok := v.lookup(key)
	return ok
}

// Raw returns the underlying map. It must not be modified.
func (v Values) Raw() map[string]any {
	return v.data
}
