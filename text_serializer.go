package cql2

import (
	"fmt"
	"strconv"
	"strings"
)

func quoteTextString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// quotePropertyName always double-quotes a property name.
func quotePropertyName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// textPrecedence orders operators the same way the text grammar's
// precedence levels do. emitOperation wraps every operator expression in
// parentheses, so the rank passed down as parentPrec does not change the
// emitted text.
func textPrecedence(op string) int {
	switch {
	case op == "or":
		return 1
	case op == "and":
		return 2
	case op == "not":
		return 3
	case isComparisonOp(op) || op == "like" || op == "in" || op == "between" || op == "isNull":
		return 4
	case op == concatOp:
		return 5
	case op == "+" || op == "-":
		return 6
	case op == "*" || op == "/" || op == "%" || op == "div":
		return 7
	case op == "^":
		return 8
	default:
		return 10
	}
}

const unaryMinusPrecedence = 9

// ToText renders an Expr as cql2-text.
func ToText(e Expr) (string, error) {
	return emitText(e, 0)
}

func emitText(e Expr, parentPrec int) (string, error) {
	switch v := e.(type) {
	case Bool:
		if v {
			return "true", nil
		}
		return "false", nil

	case Integer:
		return strconv.FormatInt(int64(v), 10), nil

	case Float:
		return strconv.FormatFloat(float64(v), 'g', -1, 64), nil

	case String:
		return quoteTextString(string(v)), nil

	case Null:
		return "NULL", nil

	case Date:
		return fmt.Sprintf("DATE(%s)", quoteTextString(v.Value)), nil

	case Timestamp:
		return fmt.Sprintf("TIMESTAMP(%s)", quoteTextString(v.Value)), nil

	case Interval:
		start, err := emitText(v.Start, 0)
		if err != nil {
			return "", err
		}
		end, err := emitText(v.End, 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("INTERVAL(%s, %s)", start, end), nil

	case Property:
		return quotePropertyName(v.Name), nil

	case Geometry:
		return v.ToWKT()

	case BBox:
		parts := make([]string, len(v.Values))
		for i, f := range v.Values {
			parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprintf("BBOX(%s)", strings.Join(parts, ", ")), nil

	case Array:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			s, err := emitText(it, 0)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", ")), nil

	case Operation:
		return emitOperation(v, parentPrec)
	}
	return "", fmt.Errorf("cql2: cannot render %T as text", e)
}

func emitOperation(op Operation, parentPrec int) (string, error) {
	prec := textPrecedence(op.Op)

	// Every operator expression, the outermost included, is parenthesised;
	// function calls are not.
	wrap := func(s string) string {
		return "(" + s + ")"
	}

	switch op.Op {
	case "and", "or":
		parts := make([]string, len(op.Args))
		for i, a := range op.Args {
			s, err := emitText(a, prec)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return wrap(strings.Join(parts, " "+textUpperOps[op.Op]+" ")), nil

	case "not":
		s, err := emitText(op.Args[0], 0)
		if err != nil {
			return "", err
		}
		return "(NOT " + s + ")", nil

	case "like":
		s, err := binaryKeyword(op, "LIKE", prec)
		if err != nil {
			return "", err
		}
		return wrap(s), nil

	case "between":
		left, err := emitText(op.Args[0], prec)
		if err != nil {
			return "", err
		}
		low, err := emitText(op.Args[1], prec+1)
		if err != nil {
			return "", err
		}
		high, err := emitText(op.Args[2], prec+1)
		if err != nil {
			return "", err
		}
		return wrap(fmt.Sprintf("%s BETWEEN %s AND %s", left, low, high)), nil

	case "in":
		left, err := emitText(op.Args[0], prec)
		if err != nil {
			return "", err
		}
		arr, ok := op.Args[1].(Array)
		if !ok {
			return "", fmt.Errorf("cql2: IN right operand must be an array")
		}
		items := make([]string, len(arr.Items))
		for i, it := range arr.Items {
			s, err := emitText(it, 0)
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return wrap(fmt.Sprintf("%s IN (%s)", left, strings.Join(items, ", "))), nil

	case "isNull":
		left, err := emitText(op.Args[0], prec)
		if err != nil {
			return "", err
		}
		return wrap(left + " IS NULL"), nil

	case concatOp:
		return wrap(binaryArith(op, concatOp, prec, false)), nil

	case "-":
		return wrap(binaryArith(op, "-", prec, true)), nil

	case "*":
		if neg, ok := op.Args[0].(Integer); ok && neg == -1 {
			s, err := emitText(op.Args[1], unaryMinusPrecedence)
			if err != nil {
				return "", err
			}
			return wrap("-" + s), nil
		}
		return wrap(binaryArith(op, "*", prec, false)), nil

	case "+":
		return wrap(binaryArith(op, "+", prec, false)), nil

	case "/", "%":
		return wrap(binaryArith(op, op.Op, prec, true)), nil

	case "^":
		return wrap(binaryArith(op, "^", prec, false)), nil

	case "div":
		return wrap(binaryArith(op, "DIV", prec, true)), nil
	}

	if isComparisonOp(op.Op) {
		return wrap(binaryArith(op, op.Op, prec, false)), nil
	}

	// Spatial (s_*), temporal (t_*), array (a_*), casei/accenti, and
	// user-defined functions all render as ordinary function calls.
	parts := make([]string, len(op.Args))
	for i, a := range op.Args {
		s, err := emitText(a, 0)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return fmt.Sprintf("%s(%s)", functionCallName(op.Op), strings.Join(parts, ", ")), nil
}

// functionCallName renders the name used in `name(args...)` form.
// Temporal operators render fully upper-case (T_INTERSECTS); spatial and
// array operators keep their canonical lower/mixed-case spelling since
// the spec only calls out temporal names for upper-casing.
func functionCallName(op string) string {
	if isTemporalOp(op) {
		return strings.ToUpper(op)
	}
	if isSpatialOp(op) || isArrayOp(op) {
		return op
	}
	if op == "casei" || op == "accenti" {
		return strings.ToUpper(op)
	}
	return op
}

// binaryArith renders `left OP right`. An operand that is itself an
// operation comes back from emitText already parenthesised, so
// "a - (b - c)" keeps its grouping.
func binaryArith(op Operation, symbol string, prec int, rightAssocSensitive bool) string {
	left, _ := emitText(op.Args[0], prec)
	rightPrec := prec
	if rightAssocSensitive {
		rightPrec = prec + 1
	}
	right, _ := emitText(op.Args[1], rightPrec)
	return fmt.Sprintf("%s %s %s", left, symbol, right)
}

func binaryKeyword(op Operation, keyword string, prec int) (string, error) {
	left, err := emitText(op.Args[0], prec)
	if err != nil {
		return "", err
	}
	right, err := emitText(op.Args[1], prec)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, keyword, right), nil
}
