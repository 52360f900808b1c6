package cql2

import (
	"math"
	"regexp"
	"strings"
)

// Reduce performs constant folding: arithmetic on literal operands,
// boolean short-circuiting, and predicate evaluation wherever every
// operand involved is already a literal. Property references that
// cannot be resolved (no item is supplied) are left untouched, so
// Reduce typically returns a smaller, partially-evaluated Operation
// tree rather than a single Bool.
func Reduce(e Expr) (Expr, error) {
	return reduceWith(e, nil)
}

// Matches evaluates e against item, substituting each Property
// reference with the value at its (possibly dotted) path in item, and
// requires the result to fully reduce to a Bool.
func Matches(e Expr, item map[string]interface{}) (bool, error) {
	reduced, err := reduceWith(e, item)
	if err != nil {
		return false, err
	}
	b, ok := reduced.(Bool)
	if !ok {
		return false, newEvalError("matches", "expression did not reduce to a boolean (got %T)", reduced)
	}
	return bool(b), nil
}

func reduceWith(e Expr, item map[string]interface{}) (Expr, error) {
	switch v := e.(type) {
	case Property:
		if item == nil {
			return v, nil
		}
		val, ok := lookupProperty(item, v.Name)
		if !ok {
			return Null{}, nil
		}
		return val, nil

	case Interval:
		start, err := reduceWith(v.Start, item)
		if err != nil {
			return nil, err
		}
		end, err := reduceWith(v.End, item)
		if err != nil {
			return nil, err
		}
		return Interval{Start: start, End: end}, nil

	case Array:
		items := make([]Expr, len(v.Items))
		for i, it := range v.Items {
			r, err := reduceWith(it, item)
			if err != nil {
				return nil, err
			}
			items[i] = r
		}
		return Array{Items: items}, nil

	case Operation:
		return reduceOperation(v, item)

	default:
		return e, nil
	}
}

func lookupProperty(item map[string]interface{}, path string) (Expr, bool) {
	cur := interface{}(item)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	expr, err := exprFromJSON(cur)
	if err != nil {
		return nil, false
	}
	return expr, true
}

// minArity lists the operand count a well-formed Operation of each
// known family must carry. A document that reaches the reducer with
// fewer operands than this (schema-invalid, or constructed directly
// rather than parsed) is reported as an EvalError instead of indexing
// past the end of args and panicking. Families with variable or
// unconstrained arity (spatial predicates, user-defined functions) are
// intentionally absent.
var minArity = map[string]int{
	"not": 1, "isNull": 1, "casei": 1, "accenti": 1,
	"between": 3, "in": 2, "like": 2, concatOp: 2,
	"and": 2, "or": 2,
}

func reduceOperation(op Operation, item map[string]interface{}) (Expr, error) {
	want, hasMin := minArity[op.Op]
	if !hasMin {
		switch {
		case isComparisonOp(op.Op), isArithmeticOp(op.Op), isTemporalOp(op.Op), isArrayOp(op.Op):
			want, hasMin = 2, true
		}
	}
	if hasMin && len(op.Args) < want {
		return nil, newEvalError(op.Op, "expected at least %d argument(s), got %d", want, len(op.Args))
	}

	args := make([]Expr, len(op.Args))
	for i, a := range op.Args {
		r, err := reduceWith(a, item)
		if err != nil {
			return nil, err
		}
		args[i] = r
	}

	switch op.Op {
	case "and":
		return reduceAnd(args), nil
	case "or":
		return reduceOr(args), nil
	case "not":
		if b, ok := args[0].(Bool); ok {
			return Bool(!b), nil
		}
		return Operation{Op: "not", Args: args}, nil
	}

	if isComparisonOp(op.Op) {
		return reduceComparison(op.Op, args)
	}
	if isArithmeticOp(op.Op) {
		return reduceArithmetic(op.Op, args)
	}
	if op.Op == concatOp {
		return reduceConcat(args), nil
	}

	switch op.Op {
	case "like":
		return reduceLike(args)
	case "between":
		return reduceBetween(args)
	case "in":
		return reduceIn(args)
	case "isNull":
		return reduceIsNull(args)
	case "casei":
		if s, ok := args[0].(String); ok {
			return String(strings.ToLower(string(s))), nil
		}
		return Operation{Op: op.Op, Args: args}, nil
	case "accenti":
		if s, ok := args[0].(String); ok {
			return String(stripDiacritics(string(s))), nil
		}
		return Operation{Op: op.Op, Args: args}, nil
	}

	if isTemporalOp(op.Op) {
		return reduceTemporal(op.Op, args)
	}
	if isArrayOp(op.Op) {
		return reduceArrayOp(op.Op, args)
	}

	// Spatial predicates (s_*) and any unrecognized/user-defined
	// function are preserved verbatim with their operands reduced:
	// this package never evaluates geometry.
	return Operation{Op: op.Op, Args: args}, nil
}

func reduceAnd(args []Expr) Expr {
	kept := make([]Expr, 0, len(args))
	for _, a := range args {
		if b, ok := a.(Bool); ok {
			if !bool(b) {
				return Bool(false)
			}
			continue
		}
		kept = append(kept, a)
	}
	switch len(kept) {
	case 0:
		return Bool(true)
	case 1:
		return kept[0]
	default:
		return Operation{Op: "and", Args: kept}
	}
}

func reduceOr(args []Expr) Expr {
	kept := make([]Expr, 0, len(args))
	for _, a := range args {
		if b, ok := a.(Bool); ok {
			if bool(b) {
				return Bool(true)
			}
			continue
		}
		kept = append(kept, a)
	}
	switch len(kept) {
	case 0:
		return Bool(false)
	case 1:
		return kept[0]
	default:
		return Operation{Op: "or", Args: kept}
	}
}

// asNumber reports whether e is a numeric literal, widened to float64.
func asNumber(e Expr) (float64, bool) {
	switch v := e.(type) {
	case Integer:
		return float64(v), true
	case Float:
		return float64(v), true
	default:
		return 0, false
	}
}

func isLiteral(e Expr) bool {
	switch e.(type) {
	case Bool, Integer, Float, String, Null, Date, Timestamp:
		return true
	default:
		return false
	}
}

func compareLiterals(a, b Expr) (int, bool) {
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			switch {
			case an < bn:
				return -1, true
			case an > bn:
				return 1, true
			default:
				return 0, true
			}
		}
		return 0, false
	}
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok {
			return strings.Compare(string(as), string(bs)), true
		}
		return 0, false
	}
	// Dates and timestamps compare by the instant they start at, so a
	// DATE can be compared with a TIMESTAMP.
	switch a.(type) {
	case Date, Timestamp:
		switch b.(type) {
		case Date, Timestamp:
			ra, errA := toDateRange(a)
			rb, errB := toDateRange(b)
			if errA == nil && errB == nil {
				return ra.Start.Compare(rb.Start), true
			}
		}
	}
	if ab, ok := a.(Bool); ok {
		if bb, ok := b.(Bool); ok {
			if ab == bb {
				return 0, true
			}
			return -1, true
		}
	}
	return 0, false
}

func reduceComparison(op string, args []Expr) (Expr, error) {
	left, right := args[0], args[1]
	if _, ok := left.(Null); ok {
		return Operation{Op: op, Args: args}, nil
	}
	if _, ok := right.(Null); ok {
		return Operation{Op: op, Args: args}, nil
	}
	if !isLiteral(left) || !isLiteral(right) {
		return Operation{Op: op, Args: args}, nil
	}
	if op == "=" || op == "<>" {
		eq := Equals(left, right)
		switch left.(type) {
		case Date, Timestamp:
			if cmp, ok := compareLiterals(left, right); ok {
				eq = cmp == 0
			}
		}
		if op == "=" {
			return Bool(eq), nil
		}
		return Bool(!eq), nil
	}
	cmp, ok := compareLiterals(left, right)
	if !ok {
		return Operation{Op: op, Args: args}, nil
	}
	switch op {
	case "<":
		return Bool(cmp < 0), nil
	case "<=":
		return Bool(cmp <= 0), nil
	case ">":
		return Bool(cmp > 0), nil
	case ">=":
		return Bool(cmp >= 0), nil
	}
	return Operation{Op: op, Args: args}, nil
}

// reduceConcat implements the "||" operator: string concatenation when
// both sides are string literals, otherwise left preserved as an
// Operation for the caller (e.g. a Property on either side).
func reduceConcat(args []Expr) Expr {
	left, ok1 := args[0].(String)
	right, ok2 := args[1].(String)
	if !ok1 || !ok2 {
		return Operation{Op: concatOp, Args: args}
	}
	return String(string(left) + string(right))
}

func reduceArithmetic(op string, args []Expr) (Expr, error) {
	a, aok := asNumber(args[0])
	b, bok := asNumber(args[1])
	if !aok || !bok {
		return Operation{Op: op, Args: args}, nil
	}
	_, aIsFloat := args[0].(Float)
	_, bIsFloat := args[1].(Float)
	asFloat := aIsFloat || bIsFloat

	switch op {
	case "+":
		return numericResult(a+b, asFloat), nil
	case "-":
		return numericResult(a-b, asFloat), nil
	case "*":
		return numericResult(a*b, asFloat), nil
	case "/":
		if b == 0 {
			return nil, newEvalError("/", "division by zero")
		}
		return numericResult(a/b, true), nil
	case "%":
		if b == 0 {
			return nil, newEvalError("%", "modulo by zero")
		}
		return numericResult(float64(int64(a)%int64(b)), asFloat), nil
	case "div":
		if b == 0 {
			return nil, newEvalError("div", "division by zero")
		}
		return numericResult(float64(int64(a)/int64(b)), false), nil
	case "^":
		return numericResult(pow(a, b), true), nil
	}
	return Operation{Op: op, Args: args}, nil
}

func pow(base, exp float64) float64 {
	if exp != math.Trunc(exp) {
		return math.Pow(base, exp)
	}
	result := 1.0
	neg := exp < 0
	if neg {
		exp = -exp
	}
	for i := 0; i < int(exp); i++ {
		result *= base
	}
	if neg {
		if result == 0 {
			return 0
		}
		return 1 / result
	}
	return result
}

func numericResult(f float64, asFloat bool) Expr {
	if !asFloat && f == float64(int64(f)) {
		return Integer(int64(f))
	}
	return Float(f)
}

func likePatternToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	return regexp.MustCompile(b.String())
}

func reduceLike(args []Expr) (Expr, error) {
	left, ok1 := args[0].(String)
	right, ok2 := args[1].(String)
	if !ok1 || !ok2 {
		return Operation{Op: "like", Args: args}, nil
	}
	re := likePatternToRegexp(string(right))
	return Bool(re.MatchString(string(left))), nil
}

func reduceBetween(args []Expr) (Expr, error) {
	if !isLiteral(args[0]) || !isLiteral(args[1]) || !isLiteral(args[2]) {
		return Operation{Op: "between", Args: args}, nil
	}
	lo, ok1 := compareLiterals(args[1], args[0])
	hi, ok2 := compareLiterals(args[0], args[2])
	if !ok1 || !ok2 {
		return Operation{Op: "between", Args: args}, nil
	}
	return Bool(lo <= 0 && hi <= 0), nil
}

func reduceIn(args []Expr) (Expr, error) {
	left := args[0]
	arr, ok := args[1].(Array)
	if !ok || !isLiteral(left) {
		return Operation{Op: "in", Args: args}, nil
	}
	for _, item := range arr.Items {
		if !isLiteral(item) {
			return Operation{Op: "in", Args: args}, nil
		}
		if Equals(left, item) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func reduceIsNull(args []Expr) (Expr, error) {
	if _, ok := args[0].(Null); ok {
		return Bool(true), nil
	}
	if isLiteral(args[0]) {
		return Bool(false), nil
	}
	return Operation{Op: "isNull", Args: args}, nil
}

func reduceTemporal(op string, args []Expr) (Expr, error) {
	canonical, swap := invTemporalOp(op)
	a, b := args[0], args[1]
	if swap {
		a, b = b, a
	}
	ra, err := toDateRange(a)
	if err != nil {
		return Operation{Op: op, Args: args}, nil
	}
	rb, err := toDateRange(b)
	if err != nil {
		return Operation{Op: op, Args: args}, nil
	}
	result, err := evalTemporalOp(canonical, ra, rb)
	if err != nil {
		return nil, err
	}
	return Bool(result), nil
}

func reduceArrayOp(op string, args []Expr) (Expr, error) {
	a, ok1 := args[0].(Array)
	b, ok2 := args[1].(Array)
	if !ok1 || !ok2 {
		return Operation{Op: op, Args: args}, nil
	}
	for _, it := range append(append([]Expr{}, a.Items...), b.Items...) {
		if !isLiteral(it) {
			return Operation{Op: op, Args: args}, nil
		}
	}
	contains := func(set Array, e Expr) bool {
		for _, it := range set.Items {
			if Equals(it, e) {
				return true
			}
		}
		return false
	}
	switch canonicalTemporalOrArray(op) {
	case "a_equals":
		if len(a.Items) != len(b.Items) {
			return Bool(false), nil
		}
		for _, it := range a.Items {
			if !contains(b, it) {
				return Bool(false), nil
			}
		}
		for _, it := range b.Items {
			if !contains(a, it) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	case "a_contains":
		for _, it := range b.Items {
			if !contains(a, it) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	case "a_containedBy":
		for _, it := range a.Items {
			if !contains(b, it) {
				return Bool(false), nil
			}
		}
		return Bool(true), nil
	case "a_overlaps":
		for _, it := range a.Items {
			if contains(b, it) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	}
	return Operation{Op: op, Args: args}, nil
}

var diacriticReplacer = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ã", "a", "ä", "a", "å", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ò", "o", "ó", "o", "ô", "o", "õ", "o", "ö", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ý", "y", "ÿ", "y", "ñ", "n", "ç", "c",
	"À", "A", "Á", "A", "Â", "A", "Ã", "A", "Ä", "A", "Å", "A",
	"È", "E", "É", "E", "Ê", "E", "Ë", "E",
	"Ì", "I", "Í", "I", "Î", "I", "Ï", "I",
	"Ò", "O", "Ó", "O", "Ô", "O", "Õ", "O", "Ö", "O",
	"Ù", "U", "Ú", "U", "Û", "U", "Ü", "U",
	"Ý", "Y", "Ñ", "N", "Ç", "C",
)

// stripDiacritics is a best-effort ACCENTI fold over the common Latin-1
// accented letters. It is a deliberately small table rather than a full
// Unicode normalizer — see DESIGN.md.
func stripDiacritics(s string) string {
	return diacriticReplacer.Replace(s)
}
