// Package resolve decides the effective value of an installer field.
//
// Every component asks the same Cascade so that precedence is defined in
// exactly one place: an explicit override wins, then (non-interactive runs
// only) the defaults table, then the caller's fallback.
package resolve

import (
	"strings"

	"github.com/spf13/cast"
)

type Cascade struct {
	// Lazy enables the defaults table (non-interactive mode).
	Lazy bool
	// Overrides holds per-field values supplied for this run. An empty
	// string means "not supplied".
	Overrides map[string]string
	Defaults  map[string]any
}

// Value returns the effective value for name.
func (c Cascade) Value(name string, fallback any) any {
	if v, ok := c.Override(name); ok {
		return v
	}
	if c.Lazy {
		if v, ok := c.Table(name); ok {
			return v
		}
	}
	return fallback
}

func (c Cascade) String(name string, fallback string) string {
	return cast.ToString(c.Value(name, fallback))
}

func (c Cascade) Bool(name string, fallback bool) bool {
	v := c.Value(name, fallback)
	b, err := cast.ToBoolE(v)
	if err != nil {
		return fallback
	}
	return b
}

func (c Cascade) Strings(name string, fallback []string) []string {
	return cast.ToStringSlice(c.Value(name, fallback))
}

// Override reports the explicit override for name, if one was supplied.
func (c Cascade) Override(name string) (string, bool) {
	v, ok := c.Overrides[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Table looks name up in the defaults table regardless of mode. Exact
// keys win; otherwise the first case-insensitive match is used, since
// config files may lowercase keys.
func (c Cascade) Table(name string) (any, bool) {
	if v, ok := c.Defaults[name]; ok {
		return v, true
	}
	for k, v := range c.Defaults {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
