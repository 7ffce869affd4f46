package form

import (
	"errors"
	"maps"
	"strings"
)

// ErrEmptyValue is returned when a value is blank after trimming.
var ErrEmptyValue = errors.New("form: empty value")

// Values maps field names to trimmed user input. Absent and empty are the same;
// defaults are never stored here.
type Values map[string]string

// Set trims raw and stores it under name.
func (v Values) Set(name, raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ErrEmptyValue
	}
	v[name] = trimmed
	return nil
}

// Filled reports whether name has a non-empty value.
func (v Values) Filled(name string) bool {
	return strings.TrimSpace(v[name]) != ""
}

// Clone returns an independent copy; nil stays nil.
func (v Values) Clone() Values {
	return maps.Clone(v)
}
