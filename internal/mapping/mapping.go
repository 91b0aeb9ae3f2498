// Package mapping describes how an operator's fields are sourced from an
// external node during import.
//
// A Table is declared once per (format, external operator name) and states, for
// every field import must populate, whether the value comes from a named
// attribute, from a positional extra input, or from an implicit constant.
// Tables are collected into an immutable Descriptor at startup.
package mapping

import (
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/opbind/internal/attr"
	"github.com/born-ml/opbind/internal/operror"
)

// Format identifies an external graph interchange format.
type Format string

// Supported formats.
const (
	FormatONNX       Format = "onnx"
	FormatTensorFlow Format = "tensorflow"
)

// ParseFormat parses a format name as used on the command line.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "onnx":
		return FormatONNX, nil
	case "tensorflow", "tf":
		return FormatTensorFlow, nil
	default:
		return "", fmt.Errorf("unknown format %q (want onnx or tensorflow)", s)
	}
}

// SourceKind says where a field value comes from.
type SourceKind int

// Source kinds.
const (
	FromAttribute SourceKind = iota + 1
	FromInput
	FromImplicit
)

// String returns the kind name.
func (k SourceKind) String() string {
	switch k {
	case FromAttribute:
		return "attribute"
	case FromInput:
		return "input"
	case FromImplicit:
		return "implicit"
	default:
		return fmt.Sprintf("SourceKind(%d)", int(k))
	}
}

// Source is where one field is read from. Build it with Attribute, Input,
// InputElement or Implicit; the constructors keep the kinds exclusive.
type Source struct {
	kind      SourceKind
	attribute string
	position  int
	element   int
	value     attr.Value
}

// Attribute sources a field from the named attribute.
func Attribute(name string) Source {
	return Source{kind: FromAttribute, attribute: name, position: -1, element: -1}
}

// Input sources a field from the constant fed to input position pos.
func Input(pos int) Source {
	return Source{kind: FromInput, position: pos, element: -1}
}

// InputElement sources a field from element elem of the list constant fed to
// input position pos.
func InputElement(pos, elem int) Source {
	return Source{kind: FromInput, position: pos, element: elem}
}

// Implicit fixes a field to v for this format.
func Implicit(v attr.Value) Source {
	return Source{kind: FromImplicit, position: -1, element: -1, value: v}
}

// Kind returns the source kind.
func (s Source) Kind() SourceKind { return s.kind }

// AttributeName returns the attribute name for FromAttribute sources.
func (s Source) AttributeName() string { return s.attribute }

// Position returns the input position for FromInput sources, -1 otherwise.
func (s Source) Position() int { return s.position }

// Element returns the list element for FromInput sources, -1 for the whole value.
func (s Source) Element() int { return s.element }

// Value returns the constant for FromImplicit sources.
func (s Source) Value() attr.Value { return s.value }

// String formats the source for diagnostics.
func (s Source) String() string {
	switch s.kind {
	case FromAttribute:
		return "attr " + s.attribute
	case FromInput:
		if s.element >= 0 {
			return fmt.Sprintf("input %d[%d]", s.position, s.element)
		}
		return fmt.Sprintf("input %d", s.position)
	case FromImplicit:
		return "implicit " + s.value.String()
	default:
		return "<invalid>"
	}
}

// Table maps internal field names to sources for one external operator.
type Table struct {
	Format   Format
	External string            // External operator name
	Internal string            // Internal operator name
	Fields   map[string]Source // Field name -> source
}

// Source returns the source of field.
func (t Table) Source(field string) (Source, bool) {
	s, ok := t.Fields[field]
	return s, ok
}

// InputPositions returns the input positions claimed by positional sources, sorted.
func (t Table) InputPositions() []int {
	var out []int
	for _, s := range t.Fields {
		if s.kind == FromInput && !slices.Contains(out, s.position) {
			out = append(out, s.position)
		}
	}
	slices.Sort(out)
	return out
}

func (t Table) clone() Table {
	t.Fields = maps.Clone(t.Fields)
	return t
}

func (t Table) validate() error {
	if t.Format == "" || t.External == "" || t.Internal == "" {
		return fmt.Errorf("mapping table needs format, external and internal names: %+v", t)
	}
	for field, s := range t.Fields {
		switch s.kind {
		case FromAttribute:
			if s.attribute == "" {
				return fmt.Errorf("%s %s: field %q: empty attribute name", t.Format, t.External, field)
			}
		case FromInput:
			if s.position < 0 {
				return fmt.Errorf("%s %s: field %q: negative input position", t.Format, t.External, field)
			}
		case FromImplicit:
			if s.value.IsZero() {
				return fmt.Errorf("%s %s: field %q: implicit source without value", t.Format, t.External, field)
			}
		default:
			return fmt.Errorf("%s %s: field %q: source not set", t.Format, t.External, field)
		}
	}
	return nil
}

type key struct {
	format   Format
	external string
}

// Descriptor is an immutable index of mapping tables by format and external name.
type Descriptor struct {
	tables map[key]Table
}

// NewDescriptor validates and indexes tables. Two tables for the same format
// and external name are an error.
func NewDescriptor(tables ...Table) (*Descriptor, error) {
	d := &Descriptor{tables: make(map[key]Table, len(tables))}
	for _, t := range tables {
		if err := t.validate(); err != nil {
			return nil, err
		}
		k := key{t.Format, t.External}
		if prev, dup := d.tables[k]; dup {
			return nil, fmt.Errorf("%s %q mapped twice (%s and %s)", t.Format, t.External, prev.Internal, t.Internal)
		}
		d.tables[k] = t.clone()
	}
	return d, nil
}

// Describe returns the table for an external operator name.
func (d *Descriptor) Describe(format Format, external string) (Table, error) {
	t, ok := d.tables[key{format, external}]
	if !ok {
		return Table{}, operror.Unsupported(string(format), external)
	}
	return t.clone(), nil
}

// Names returns the external names known for format, sorted.
func (d *Descriptor) Names(format Format) []string {
	var out []string
	for k := range d.tables {
		if k.format == format {
			out = append(out, k.external)
		}
	}
	slices.Sort(out)
	return out
}
