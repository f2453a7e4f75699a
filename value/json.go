package value

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON encodes the value as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON decodes plain JSON into the value tree.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("value: unmarshal: %w", err)
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Interface converts the value tree to the encoding/json interface shape
// (nil, bool, float64, string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		items := make([]any, len(v.a))
		for i := range v.a {
			items[i] = v.a[i].Interface()
		}
		return items
	case KindObject:
		fields := make(map[string]any, len(v.o))
		for k, fv := range v.o {
			fields[k] = fv.Interface()
		}
		return fields
	default:
		return nil
	}
}

// FromInterface converts an encoding/json interface shape into a value tree.
// Integer types are widened to Number. Unsupported Go types are an error.
func FromInterface(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(Object, len(t))
		for k, item := range t {
			v, err := FromInterface(item)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Obj(fields), nil
	default:
		return Value{}, fmt.Errorf("value: unsupported type %T", raw)
	}
}

// MarshalJSON encodes the object as a JSON document. A nil object encodes
// as {} so that payload columns never store SQL-visible JSON null.
func (o Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("{}"), nil
	}
	return Obj(o).MarshalJSON()
}

// UnmarshalJSON decodes a JSON document into the object.
func (o *Object) UnmarshalJSON(data []byte) error {
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return err
	}
	obj, ok := v.Object()
	if !ok {
		return fmt.Errorf("value: expected JSON object, got %s", v.Kind())
	}
	*o = obj
	return nil
}

// ParseObject decodes a JSON document into an Object.
func ParseObject(data []byte) (Object, error) {
	var o Object
	if err := o.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return o, nil
}
