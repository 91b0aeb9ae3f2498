package attr

import (
	"fmt"
	"maps"
	"slices"
)

// Bag maps attribute names to values. Consumers treat it as read-only.
type Bag map[string]Value

// TypeError reports an attribute whose value cannot be converted to the requested kind.
type TypeError struct {
	Name string
	Want Kind
	Got  Kind
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	return fmt.Sprintf("attribute %q: want %s, got %s", e.Name, e.Want, e.Got)
}

// Get returns the raw value stored under name.
func (b Bag) Get(name string) (Value, bool) {
	v, ok := b[name]
	return v, ok
}

// Lookup returns the value stored under name converted to kind.
//
// An empty string counts as absent: neither interchange format distinguishes
// an unset string attribute from one set to "". found is false when the
// attribute is absent; a present value that cannot be converted returns a
// *TypeError.
func (b Bag) Lookup(name string, kind Kind) (v Value, found bool, err error) {
	raw, ok := b[name]
	if !ok || raw.IsZero() || (raw.Kind == KindString && raw.S == "") {
		return Value{}, false, nil
	}
	v, ok = raw.Convert(kind)
	if !ok {
		return Value{}, true, &TypeError{Name: name, Want: kind, Got: raw.Kind}
	}
	return v, true, nil
}

// IntOr returns an int attribute or defaultVal when absent.
func (b Bag) IntOr(name string, defaultVal int64) (int64, error) {
	v, found, err := b.Lookup(name, KindInt)
	if err != nil || !found {
		return defaultVal, err
	}
	return v.I, nil
}

// FloatOr returns a float attribute or defaultVal when absent.
func (b Bag) FloatOr(name string, defaultVal float64) (float64, error) {
	v, found, err := b.Lookup(name, KindFloat)
	if err != nil || !found {
		return defaultVal, err
	}
	return v.F, nil
}

// StringOr returns a string attribute or defaultVal when absent or empty.
func (b Bag) StringOr(name, defaultVal string) (string, error) {
	v, found, err := b.Lookup(name, KindString)
	if err != nil || !found {
		return defaultVal, err
	}
	return v.S, nil
}

// BoolOr returns a bool attribute or defaultVal when absent.
func (b Bag) BoolOr(name string, defaultVal bool) (bool, error) {
	v, found, err := b.Lookup(name, KindBool)
	if err != nil || !found {
		return defaultVal, err
	}
	return v.B, nil
}

// Names returns the attribute names in sorted order.
func (b Bag) Names() []string {
	return slices.Sorted(maps.Keys(b))
}

// Clone returns a deep copy of b.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	out := make(Bag, len(b))
	for k, v := range b {
		v.Strings = slices.Clone(v.Strings)
		v.Ints = slices.Clone(v.Ints)
		v.Floats = slices.Clone(v.Floats)
		out[k] = v
	}
	return out
}

// Equal reports whether b and o hold the same names and values.
func (b Bag) Equal(o Bag) bool {
	return maps.EqualFunc(b, o, Value.Equal)
}
