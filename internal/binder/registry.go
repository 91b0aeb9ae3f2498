package binder

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/born-ml/opbind/internal/mapping"
	"github.com/born-ml/opbind/internal/ops"
)

// Registry maps external operator names to operator definitions.
// It is immutable once built and safe to share between goroutines.
type Registry struct {
	defs       map[string]ops.Definition
	descriptor *mapping.Descriptor
}

// Default returns the registry of built-in operators. It is built on first use.
var Default = sync.OnceValue(func() *Registry {
	r, err := NewRegistry()
	if err != nil {
		panic(fmt.Sprintf("built-in operator definitions: %v", err))
	}
	return r
})

// NewRegistry creates a registry with all built-in operators plus extra.
//
// Every mapping table must name fields its definition declares, and must
// source every required field; extra definitions may not reuse an internal or
// external name already taken.
func NewRegistry(extra ...ops.Definition) (*Registry, error) {
	all := append(ops.Definitions(), extra...)

	r := &Registry{defs: make(map[string]ops.Definition, len(all))}
	var tables []mapping.Table
	for _, def := range all {
		if err := validateDefinition(def); err != nil {
			return nil, err
		}
		if _, dup := r.defs[def.Name]; dup {
			return nil, fmt.Errorf("operator %q defined twice", def.Name)
		}
		r.defs[def.Name] = def
		tables = append(tables, def.Mappings...)
	}

	d, err := mapping.NewDescriptor(tables...)
	if err != nil {
		return nil, err
	}
	r.descriptor = d
	return r, nil
}

func validateDefinition(def ops.Definition) error {
	if def.Name == "" {
		return fmt.Errorf("operator definition without a name")
	}
	if def.Build == nil {
		return fmt.Errorf("operator %q: no build function", def.Name)
	}
	for _, t := range def.Mappings {
		if t.Internal != def.Name {
			return fmt.Errorf("operator %q: %s %s mapping targets %q", def.Name, t.Format, t.External, t.Internal)
		}
		for field := range t.Fields {
			if _, ok := def.Field(field); !ok {
				return fmt.Errorf("operator %q: %s %s maps undeclared field %q", def.Name, t.Format, t.External, field)
			}
		}
		for _, f := range def.Fields {
			if _, ok := t.Source(f.Name); !ok && f.Required() {
				return fmt.Errorf("operator %q: %s %s has no source for required field %q", def.Name, t.Format, t.External, f.Name)
			}
		}
	}
	return nil
}

// Lookup resolves an external operator name to its definition and mapping table.
// Unknown names fail with operror.ErrUnsupportedExternalOperator.
func (r *Registry) Lookup(format mapping.Format, external string) (ops.Definition, mapping.Table, error) {
	t, err := r.descriptor.Describe(format, external)
	if err != nil {
		return ops.Definition{}, mapping.Table{}, err
	}
	return r.defs[t.Internal], t, nil
}

// QualifiedName returns the name a node's operator is registered under.
// Operators of the default domain ("" or "ai.onnx") go by their type alone;
// any other domain prefixes the type as "domain::type", so a custom operator
// set never binds to a built-in record of the same type name.
func QualifiedName(domain, opType string) string {
	if domain == "" || domain == "ai.onnx" {
		return opType
	}
	return domain + "::" + opType
}

// LookupNode is Lookup for the operator of a node in domain.
func (r *Registry) LookupNode(format mapping.Format, domain, opType string) (ops.Definition, mapping.Table, error) {
	return r.Lookup(format, QualifiedName(domain, opType))
}

// Definition returns the definition of an internal operator name.
func (r *Registry) Definition(name string) (ops.Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Definitions returns all definitions sorted by internal name.
func (r *Registry) Definitions() []ops.Definition {
	out := make([]ops.Definition, 0, len(r.defs))
	for _, def := range r.defs {
		out = append(out, def)
	}
	slices.SortFunc(out, func(a, b ops.Definition) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Descriptor returns the mapping descriptor.
func (r *Registry) Descriptor() *mapping.Descriptor {
	return r.descriptor
}

// SupportedOps returns the external operator names supported for format.
func (r *Registry) SupportedOps(format mapping.Format) []string {
	return r.descriptor.Names(format)
}
