package pipeline

import (
	"fmt"
	"time"

	"github.com/prabhatkmr/beema-sub003/value"
)

// ParamKind discriminates the closed set of job parameter types.
type ParamKind int

// Supported parameter kinds. There is deliberately no "any" case: a value
// arriving from configuration is either one of these or rejected.
const (
	ParamString ParamKind = iota
	ParamInt
	ParamFloat
	ParamBool
	ParamTime
)

// Param is a closed tagged-variant job parameter.
type Param struct {
	kind ParamKind
	s    string
	i    int64
	f    float64
	b    bool
	t    time.Time
}

// Params is a named parameter set passed to read and write queries.
type Params map[string]Param

// StringParam wraps a string parameter.
func StringParam(s string) Param { return Param{kind: ParamString, s: s} }

// IntParam wraps an integer parameter.
func IntParam(i int64) Param { return Param{kind: ParamInt, i: i} }

// FloatParam wraps a float parameter.
func FloatParam(f float64) Param { return Param{kind: ParamFloat, f: f} }

// BoolParam wraps a boolean parameter.
func BoolParam(b bool) Param { return Param{kind: ParamBool, b: b} }

// TimeParam wraps a timestamp parameter.
func TimeParam(t time.Time) Param { return Param{kind: ParamTime, t: t} }

// Kind returns the parameter's discriminator.
func (p Param) Kind() ParamKind { return p.kind }

// Interface returns the parameter as the native driver argument type.
func (p Param) Interface() any {
	switch p.kind {
	case ParamInt:
		return p.i
	case ParamFloat:
		return p.f
	case ParamBool:
		return p.b
	case ParamTime:
		return p.t
	default:
		return p.s
	}
}

// String formats the parameter for logs.
func (p Param) String() string {
	return fmt.Sprintf("%v", p.Interface())
}

// ParamFromValue converts a payload value into a Param. Arrays and objects
// are not representable as job parameters.
func ParamFromValue(v value.Value) (Param, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.String()
		return StringParam(s), nil
	case value.KindNumber:
		n, _ := v.Number()
		return FloatParam(n), nil
	case value.KindBool:
		b, _ := v.Bool()
		return BoolParam(b), nil
	default:
		return Param{}, fmt.Errorf("pipeline: value kind %s not usable as a parameter", v.Kind())
	}
}

// Merge returns a copy of p overridden by extra. Neither input is mutated.
func (p Params) Merge(extra Params) Params {
	merged := make(Params, len(p)+len(extra))
	for k, v := range p {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
