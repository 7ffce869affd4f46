package form

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Catalog holds definitions by product name.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog validates defs and indexes them. Later definitions override
// earlier ones with the same product name.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	if err := c.Merge(defs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Merge validates and adds or replaces definitions.
func (c *Catalog) Merge(defs ...Definition) error {
	for _, d := range defs {
		d.Product = strings.TrimSpace(d.Product)
		if err := d.Validate(); err != nil {
			return err
		}
		c.defs[d.Product] = d
	}
	return nil
}

// Lookup returns the definition of product.
func (c *Catalog) Lookup(product string) (Definition, error) {
	d, ok := c.defs[strings.TrimSpace(product)]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProduct, product, strings.Join(c.Products(), ", "))
	}
	return d, nil
}

// Products returns the sorted product names.
func (c *Catalog) Products() []string {
	names := lo.Keys(c.defs)
	slices.Sort(names)
	return names
}

type formsFile struct {
	Forms []Definition `yaml:"forms"`
}

// LoadFile reads definitions from a YAML file of the form
//
//	forms:
//	  - product: ...
//	    fields: [...]
//
// Definitions are returned unvalidated; Merge validates them.
func LoadFile(path string) ([]Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("form: read %s: %w", path, err)
	}
	var f formsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("form: parse %s: %w", path, err)
	}
	for i := range f.Forms {
		for j := range f.Forms[i].Fields {
			fld := &f.Forms[i].Fields[j]
			if fld.Kind == "" {
				fld.Kind = KindText
			}
		}
	}
	return f.Forms, nil
}

// Open returns the built-in catalog extended by the definitions in path, if any.
func Open(path string) (*Catalog, error) {
	c, err := NewCatalog(Presets()...)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return c, nil
	}
	defs, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := c.Merge(defs...); err != nil {
		return nil, err
	}
	return c, nil
}
