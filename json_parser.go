package cql2

import (
	"encoding/json"
	"fmt"
	"time"
)

var geometryTypes = map[string]bool{
	"Point": true, "LineString": true, "Polygon": true,
	"MultiPoint": true, "MultiLineString": true, "MultiPolygon": true,
	"GeometryCollection": true,
}

// ParseJSON parses a cql2-json document into an Expr. It dispatches on
// the structural shape of each JSON value rather than a discriminated
// "kind" field, mirroring the JSON-shape table the format is specified
// by: {"op","args"} operations, {"property"} references, {"date"|
// "timestamp"|"interval"|"bbox"} literals, GeoJSON geometries, and bare
// JSON scalars/arrays.
func ParseJSON(input []byte) (Expr, error) {
	var v interface{}
	if err := json.Unmarshal(input, &v); err != nil {
		perr := &ParseError{Message: err.Error(), Input: string(input)}
		if se, ok := err.(*json.SyntaxError); ok {
			perr.Offset = int(se.Offset)
		}
		return nil, perr
	}
	e, err := exprFromJSON(v)
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Input: string(input)}
	}
	return e, nil
}

// ParseValue converts an already-decoded JSON value (e.g. a
// map[string]interface{} obtained from some other JSON pipeline) into
// an Expr, without re-marshalling it first.
func ParseValue(v interface{}) (Expr, error) {
	e, err := exprFromJSON(v)
	if err != nil {
		return nil, &ParseError{Message: err.Error()}
	}
	return e, nil
}

func exprFromJSON(v interface{}) (Expr, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case float64:
		if val == float64(int64(val)) {
			return Integer(int64(val)), nil
		}
		return Float(val), nil
	case string:
		return String(val), nil
	case []interface{}:
		items := make([]Expr, len(val))
		for i, it := range val {
			e, err := exprFromJSON(it)
			if err != nil {
				return nil, err
			}
			items[i] = e
		}
		return Array{Items: items}, nil
	case map[string]interface{}:
		return exprFromObject(val)
	default:
		return nil, fmt.Errorf("cql2: unsupported JSON value of type %T", v)
	}
}

func exprFromObject(m map[string]interface{}) (Expr, error) {
	if opRaw, ok := m["op"]; ok {
		op, ok := opRaw.(string)
		if !ok {
			return nil, fmt.Errorf("cql2: \"op\" must be a string")
		}
		argsRaw, ok := m["args"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("cql2: operation %q missing \"args\" array", op)
		}
		args := make([]Expr, len(argsRaw))
		for i, a := range argsRaw {
			e, err := exprFromJSON(a)
			if err != nil {
				return nil, err
			}
			args[i] = e
		}
		return Operation{Op: canonicalJSONOp(op), Args: args}, nil
	}

	if name, ok := m["property"].(string); ok {
		return Property{Name: name}, nil
	}

	if dv, ok := m["date"].(string); ok {
		if _, err := time.Parse("2006-01-02", dv); err != nil {
			return nil, fmt.Errorf("cql2: invalid date %q", dv)
		}
		return Date{Value: dv}, nil
	}

	if tv, ok := m["timestamp"].(string); ok {
		if _, err := parseTimestamp(tv); err != nil {
			return nil, fmt.Errorf("cql2: invalid timestamp %q", tv)
		}
		return Timestamp{Value: tv}, nil
	}

	if iv, ok := m["interval"].([]interface{}); ok {
		if len(iv) != 2 {
			return nil, fmt.Errorf("cql2: \"interval\" must have exactly 2 elements")
		}
		start, err := exprFromJSON(iv[0])
		if err != nil {
			return nil, err
		}
		end, err := exprFromJSON(iv[1])
		if err != nil {
			return nil, err
		}
		return Interval{Start: start, End: end}, nil
	}

	if bv, ok := m["bbox"].([]interface{}); ok {
		vals := make([]float64, len(bv))
		for i, n := range bv {
			f, ok := toFloat(n)
			if !ok {
				return nil, fmt.Errorf("cql2: \"bbox\" elements must be numbers")
			}
			vals[i] = f
		}
		return BBox{Values: vals}, nil
	}

	if typ, ok := m["type"].(string); ok && geometryTypes[typ] {
		return geometryFromGeoJSON(m)
	}

	return nil, fmt.Errorf("cql2: unrecognized JSON object shape: %v", keysOf(m))
}

func keysOf(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// canonicalJSONOp lower-cases operator keywords that some producers
// emit upper-case (e.g. "AND"), while leaving symbolic operators like
// "=" and function names untouched.
func canonicalJSONOp(op string) string {
	switch op {
	case "AND", "And":
		return "and"
	case "OR", "Or":
		return "or"
	case "NOT", "Not":
		return "not"
	case "LIKE", "Like":
		return "like"
	case "IN", "In":
		return "in"
	case "BETWEEN", "Between":
		return "between"
	case "ISNULL", "IsNull":
		return "isNull"
	default:
		return canonicalFuncName(op)
	}
}
