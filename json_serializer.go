package cql2

import (
	"encoding/json"
	"fmt"
)

// ToValue renders an Expr as a Go value that encoding/json marshals to
// the corresponding cql2-json document — useful when the caller wants to
// embed the expression inside a larger JSON structure. Operations come
// back as the op-before-args jsonOperation struct, integers as int64,
// and other values as map[string]interface{}, []interface{} or scalars.
func ToValue(e Expr) (interface{}, error) {
	switch v := e.(type) {
	case Bool:
		return bool(v), nil
	case Integer:
		return int64(v), nil
	case Float:
		return float64(v), nil
	case String:
		return string(v), nil
	case Null:
		return nil, nil
	case Date:
		return map[string]interface{}{"date": v.Value}, nil
	case Timestamp:
		return map[string]interface{}{"timestamp": v.Value}, nil
	case Interval:
		start, err := ToValue(v.Start)
		if err != nil {
			return nil, err
		}
		end, err := ToValue(v.End)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"interval": []interface{}{start, end}}, nil
	case Property:
		return map[string]interface{}{"property": v.Name}, nil
	case Geometry:
		return v.ToGeoJSON()
	case BBox:
		vals := make([]interface{}, len(v.Values))
		for i, f := range v.Values {
			vals[i] = f
		}
		return map[string]interface{}{"bbox": vals}, nil
	case Array:
		items := make([]interface{}, len(v.Items))
		for i, it := range v.Items {
			val, err := ToValue(it)
			if err != nil {
				return nil, err
			}
			items[i] = val
		}
		return items, nil
	case Operation:
		args := make([]interface{}, len(v.Args))
		for i, a := range v.Args {
			val, err := ToValue(a)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		return jsonOperation{Op: v.Op, Args: args}, nil
	}
	return nil, fmt.Errorf("cql2: cannot render %T as JSON", e)
}

// jsonOperation mirrors an Operation's JSON shape. It is a struct rather
// than a map so encoding/json preserves field declaration order ("op"
// before "args"), matching §4.7's requirement that property order
// within objects be stable for byte-level diffing — a plain
// map[string]interface{} would marshal its keys alphabetically instead.
type jsonOperation struct {
	Op   string        `json:"op"`
	Args []interface{} `json:"args"`
}

// ToJSON renders an Expr as cql2-json.
func ToJSON(e Expr) ([]byte, error) {
	v, err := ToValue(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// ToJSONIndent renders an Expr as pretty-printed cql2-json, the JSON
// analogue of ToText for human-readable output.
func ToJSONIndent(e Expr, prefix, indent string) ([]byte, error) {
	v, err := ToValue(e)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(v, prefix, indent)
}
