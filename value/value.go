// Package value defines the tagged-variant value tree used for
// schema-flexible entity payloads and pipeline rows.
//
// A Value is a closed sum over null, bool, number, string, array, and
// object. Payloads are never handled as untyped maps: every field access
// goes through the typed accessors, which makes malformed shapes explicit
// at the call site instead of panicking deep inside a type assertion.
package value

import "sort"

// Kind discriminates the variant held by a Value.
type Kind int

// The closed set of value kinds.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the kind name used in error messages and export schemas.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is one node of the payload tree. The zero value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	a    []Value
	o    Object
}

// Object is a string-keyed collection of values — the root shape of every
// payload and pipeline row.
type Object map[string]Value

// ──────────────────────────────────────────────────
// Constructors
// ──────────────────────────────────────────────────

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64. Integral values survive a JSON round trip exactly
// up to 2^53.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Int wraps an integer as a Number.
func Int(n int64) Value { return Number(float64(n)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a slice of values. The slice is not copied.
func Array(items ...Value) Value { return Value{kind: KindArray, a: items} }

// Obj wraps an Object. The map is not copied.
func Obj(o Object) Value { return Value{kind: KindObject, o: o} }

// ──────────────────────────────────────────────────
// Accessors
// ──────────────────────────────────────────────────

// Kind returns the variant discriminator.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean and true when v holds a bool.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Number returns the float64 and true when v holds a number.
func (v Value) Number() (float64, bool) { return v.n, v.kind == KindNumber }

// String returns the string and true when v holds a string.
func (v Value) String() (string, bool) { return v.s, v.kind == KindString }

// Array returns the items and true when v holds an array.
func (v Value) Array() ([]Value, bool) { return v.a, v.kind == KindArray }

// Object returns the fields and true when v holds an object.
func (v Value) Object() (Object, bool) { return v.o, v.kind == KindObject }

// ──────────────────────────────────────────────────
// Equality and copying
// ──────────────────────────────────────────────────

// Equal reports deep structural equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n == other.n
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.a) != len(other.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(other.a[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.o.Equal(other.o)
	default:
		return false
	}
}

// Clone returns a deep copy. Array and object children are copied
// recursively; scalars are copied by value.
func (v Value) Clone() Value {
	switch v.kind {
	case KindArray:
		items := make([]Value, len(v.a))
		for i := range v.a {
			items[i] = v.a[i].Clone()
		}
		return Value{kind: KindArray, a: items}
	case KindObject:
		return Value{kind: KindObject, o: v.o.Clone()}
	default:
		return v
	}
}

// Equal reports deep structural equality of two objects.
func (o Object) Equal(other Object) bool {
	if len(o) != len(other) {
		return false
	}
	for k, v := range o {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of the object. A nil object clones to nil.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	cp := make(Object, len(o))
	for k, v := range o {
		cp[k] = v.Clone()
	}
	return cp
}

// Keys returns the field names in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
