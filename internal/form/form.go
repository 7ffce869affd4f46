// Package form describes product forms as data: the ordered fields a user
// fills in, how each is prompted and labelled, and which renderer flags
// they map to. One Definition per product replaces per-product code.
package form

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind is the type of input a field accepts.
type Kind string

// Field kinds.
const (
	KindText  Kind = "text"
	KindPhoto Kind = "photo"
)

// Default renderer values substituted for empty fields.
const (
	DefaultNumber = "0"
	DefaultPhoto  = "./assets/void.png"
)

// maxFieldName keeps "\fform_field|<name>" inside Telegram's 64 byte callback limit.
const maxFieldName = 48

var (
	// ErrInvalidDefinition wraps every validation failure.
	ErrInvalidDefinition = errors.New("form: invalid definition")
	// ErrUnknownField is returned for field names a definition does not have.
	ErrUnknownField = errors.New("form: unknown field")
	// ErrUnknownProduct is returned by Catalog lookups.
	ErrUnknownProduct = errors.New("form: unknown product")
)

// Field is one user-editable value of a form.
type Field struct {
	Name string `yaml:"name"`
	// Flag is the renderer flag without dashes; empty means Name.
	Flag   string `yaml:"flag"`
	Kind   Kind   `yaml:"kind"`
	Prompt string `yaml:"prompt"`
	Label  string `yaml:"label"`
	// FilledLabel is shown once the field has a value; empty keeps Label.
	FilledLabel string `yaml:"filled_label"`
	// Default is passed to the renderer while the field is empty.
	Default string `yaml:"default"`
	// Script renders this field alone, replacing the form script,
	// when it is the most recently edited field.
	Script string `yaml:"script"`
	// Hidden fields are passed to the renderer but get no menu button.
	Hidden bool `yaml:"hidden"`
}

// RendererFlag returns the flag name used on the renderer command line.
func (f Field) RendererFlag() string {
	if f.Flag != "" {
		return f.Flag
	}
	return f.Name
}

// MenuLabel returns the button text for the field's fill state.
func (f Field) MenuLabel(filled bool) string {
	if filled && f.FilledLabel != "" {
		return f.FilledLabel
	}
	return f.Label
}

// Definition is the static description of one product form.
type Definition struct {
	Product string `yaml:"product"`
	// Script is the renderer script for fields without their own.
	Script string `yaml:"script"`
	// Template is the image shown before anything is rendered and after a clear.
	Template string `yaml:"template"`
	// OutputPattern names the per-user artifact; "%d" is replaced by the user id.
	OutputPattern string  `yaml:"output_pattern"`
	Fields        []Field `yaml:"fields"`
}

// Validate checks that the definition can drive a conversation and a render.
func (d Definition) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s: %s", ErrInvalidDefinition, d.Product, fmt.Sprintf(format, args...))
	}
	if strings.TrimSpace(d.Product) == "" {
		return fmt.Errorf("%w: empty product name", ErrInvalidDefinition)
	}
	if strings.TrimSpace(d.Template) == "" {
		return invalid("empty template")
	}
	if len(d.Fields) == 0 {
		return invalid("no fields")
	}
	if d.OutputPattern != "" && strings.Count(d.OutputPattern, "%d") != 1 {
		return invalid("output pattern %q must contain exactly one %%d", d.OutputPattern)
	}

	seen := make(map[string]struct{}, len(d.Fields))
	visible := 0
	for i, f := range d.Fields {
		switch {
		case strings.TrimSpace(f.Name) == "":
			return invalid("field #%d has no name", i)
		case len(f.Name) > maxFieldName || strings.ContainsAny(f.Name, "| \t\n"):
			return invalid("field name %q is too long or has separators", f.Name)
		case f.Kind != KindText && f.Kind != KindPhoto:
			return invalid("field %q has unknown kind %q", f.Name, f.Kind)
		case strings.TrimSpace(f.Prompt) == "":
			return invalid("field %q has no prompt", f.Name)
		case strings.TrimSpace(f.Label) == "":
			return invalid("field %q has no label", f.Name)
		case f.Script == "" && d.Script == "":
			return invalid("field %q has no renderer script", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return invalid("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Hidden {
			visible++
		}
	}
	if visible == 0 {
		return invalid("every field is hidden")
	}
	return nil
}

// Field returns the field called name.
func (d Definition) Field(name string) (Field, error) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, d.Product, name)
}

// VariantFields returns the fields that carry their own script, in order.
func (d Definition) VariantFields() []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.Script != "" {
			out = append(out, f)
		}
	}
	return out
}

// OutputPath returns the artifact path for userID under dir.
func (d Definition) OutputPath(dir string, userID int64) string {
	pattern := d.OutputPattern
	if pattern == "" {
		pattern = d.Product + "_post_%d.png"
	}
	return filepath.Join(dir, fmt.Sprintf(pattern, userID))
}
