// Package script evaluates Lua transforms over pipeline rows.
//
// A script receives the current row as the global table `row` and must
// return the transformed row as a table. Each evaluation runs in a fresh
// interpreter with only the base, math, string, and table libraries
// loaded, so scripts cannot touch the filesystem, network, or process.
package script

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shopify/go-lua"

	beema "github.com/prabhatkmr/beema-sub003"
	"github.com/prabhatkmr/beema-sub003/pipeline"
	"github.com/prabhatkmr/beema-sub003/value"
)

// RefPrefix marks a transform reference as an inline Lua script.
const RefPrefix = "lua:"

// IsRef reports whether a transform reference names a Lua script.
func IsRef(ref string) bool { return strings.HasPrefix(ref, RefPrefix) }

// Transform wraps Lua source as a pipeline transform. The source is
// checked lazily on first Apply; a syntax error surfaces as ErrInvalidSpec.
type Transform struct {
	source string
}

var _ pipeline.Transform = (*Transform)(nil)

// New returns a transform for the given Lua source. ref may carry the
// "lua:" prefix or be bare source.
func New(ref string) *Transform {
	return &Transform{source: strings.TrimPrefix(ref, RefPrefix)}
}

// Apply runs the script against row and returns the table it produces.
func (t *Transform) Apply(_ context.Context, row value.Object) (value.Object, error) {
	state := lua.NewState()
	openSandbox(state)

	pushObject(state, row)
	state.SetGlobal("row")

	if err := lua.DoString(state, t.source); err != nil {
		return nil, fmt.Errorf("beema/script: run: %w: %v", beema.ErrInvalidSpec, err)
	}
	if state.Top() < 1 || state.TypeOf(-1) != lua.TypeTable {
		return nil, fmt.Errorf("beema/script: script must return a row table: %w", beema.ErrInvalidSpec)
	}

	out, err := tableToObject(state, -1)
	if err != nil {
		return nil, fmt.Errorf("beema/script: result: %w", err)
	}
	return out, nil
}

// Resolver handles "lua:" references itself and delegates everything
// else to the next resolver, normally the pipeline registry.
type Resolver struct {
	next pipeline.Resolver
}

var _ pipeline.Resolver = (*Resolver)(nil)

// NewResolver chains Lua handling in front of next.
func NewResolver(next pipeline.Resolver) *Resolver {
	return &Resolver{next: next}
}

func (r *Resolver) ResolveTransform(ref string) (pipeline.Transform, error) {
	if IsRef(ref) {
		return New(ref), nil
	}
	if r.next == nil {
		return nil, fmt.Errorf("beema/script: unknown transform %q: %w", ref, beema.ErrInvalidSpec)
	}
	return r.next.ResolveTransform(ref)
}

// openSandbox loads the pure libraries only. No os, io, or package.
func openSandbox(state *lua.State) {
	for _, lib := range []struct {
		name string
		open lua.Function
	}{
		{"_G", lua.BaseOpen},
		{"math", lua.MathOpen},
		{"string", lua.StringOpen},
		{"table", lua.TableOpen},
	} {
		lua.Require(state, lib.name, lib.open, true)
		state.Pop(1)
	}
}

// ──────────────────────────────────────────────
// Value ↔ Lua conversion
// ──────────────────────────────────────────────

func pushObject(state *lua.State, o value.Object) {
	state.NewTable()
	for _, key := range o.Keys() {
		v, _ := o.Get(key)
		pushValue(state, v)
		state.SetField(-2, key)
	}
}

func pushValue(state *lua.State, v value.Value) {
	switch v.Kind() {
	case value.KindNull:
		state.PushNil()
	case value.KindBool:
		b, _ := v.Bool()
		state.PushBoolean(b)
	case value.KindNumber:
		n, _ := v.Number()
		state.PushNumber(n)
	case value.KindString:
		s, _ := v.String()
		state.PushString(s)
	case value.KindArray:
		items, _ := v.Array()
		state.NewTable()
		for i, item := range items {
			pushValue(state, item)
			state.RawSetInt(-2, i+1)
		}
	case value.KindObject:
		o, _ := v.Object()
		pushObject(state, o)
	}
}

func tableToObject(state *lua.State, index int) (value.Object, error) {
	out := value.Object{}
	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) != lua.TypeString {
			state.Pop(2)
			return nil, fmt.Errorf("row keys must be strings: %w", beema.ErrInvalidSpec)
		}
		key, _ := state.ToString(-2)
		v, err := luaToValue(state, -1)
		if err != nil {
			state.Pop(2)
			return nil, err
		}
		out[key] = v
		state.Pop(1)
	}
	return out, nil
}

func luaToValue(state *lua.State, index int) (value.Value, error) {
	switch state.TypeOf(index) {
	case lua.TypeNil:
		return value.Null(), nil
	case lua.TypeBoolean:
		return value.Bool(state.ToBoolean(index)), nil
	case lua.TypeNumber:
		n, _ := state.ToNumber(index)
		return value.Number(n), nil
	case lua.TypeString:
		s, _ := state.ToString(index)
		return value.String(s), nil
	case lua.TypeTable:
		return tableToValue(state, index)
	default:
		return value.Null(), fmt.Errorf("unsupported lua type in row: %w", beema.ErrInvalidSpec)
	}
}

// tableToValue treats a table with contiguous 1..n integer keys as an
// array and anything else as an object.
func tableToValue(state *lua.State, index int) (value.Value, error) {
	index = state.AbsIndex(index)

	isArray := true
	maxIndex, count := 0, 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		items := make([]value.Value, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			v, err := luaToValue(state, -1)
			state.Pop(1)
			if err != nil {
				return value.Null(), err
			}
			items = append(items, v)
		}
		return value.Array(items...), nil
	}

	obj, err := tableToObject(state, index)
	if err != nil {
		return value.Null(), err
	}
	return value.Obj(obj), nil
}
