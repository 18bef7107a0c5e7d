package extension

import (
	"fmt"
	"strconv"
)

// Options are the free-form settings of one configured extension. Values
// come from YAML or JSON, so numbers may arrive as int or float64.
type Options map[string]any

// String returns the option as a string.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Int returns the option as an int.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Float returns the option as a float64.
func (o Options) Float(key string, def float64) float64 {
	switch v := o[key].(type) {
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// Bool returns the option as a bool.
func (o Options) Bool(key string, def bool) bool {
	switch v := o[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// StringMap returns a nested mapping option with values rendered as strings.
func (o Options) StringMap(key string) map[string]string {
	raw, ok := o[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// List returns a sequence option whose items are mappings.
func (o Options) List(key string) []Options {
	raw, ok := o[key].([]any)
	if !ok {
		return nil
	}
	var out []Options
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Options(m))
		}
	}
	return out
}
