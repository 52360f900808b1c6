package cql2

import (
	"fmt"
	"strings"
)

// SQLQuery is a parameterized SQL fragment: Text contains positional
// $N placeholders and Params holds the corresponding bind values, in
// order. This mirrors the reference implementation's to_sql, which
// never inlines a literal directly into the query text.
type SQLQuery struct {
	Text   string
	Params []interface{}
}

// Dialect selects the SQL rendering target. The dialect boundary is
// informal by design (§9) — DialectDuckDB only changes LIKE rendering,
// the accenti function name and array-predicate function names,
// everything else is shared.
type Dialect string

const (
	DialectGeneric Dialect = "generic"
	DialectDuckDB  Dialect = "duckdb"
)

// sqlEmitter renders an Expr as SQL. duck selects the DuckDB dialect,
// which only differs from the generic/Postgres dialect in its LIKE
// operator choice, its accenti function (strip_accents instead of
// unaccent) and its array-predicate function names (§4.8);
// literals are placeholder-bound identically in both dialects.
type sqlEmitter struct {
	duck   bool
	params *[]interface{}
}

func (em *sqlEmitter) placeholder(v interface{}) string {
	*em.params = append(*em.params, v)
	return fmt.Sprintf("$%d", len(*em.params))
}

func (em *sqlEmitter) quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ToSQL renders an Expr as a parameterized SQL boolean expression for
// the given dialect.
func ToSQL(e Expr, dialect Dialect) (SQLQuery, error) {
	params := []interface{}{}
	em := &sqlEmitter{duck: dialect == DialectDuckDB, params: &params}
	text, err := em.emit(e)
	if err != nil {
		return SQLQuery{}, err
	}
	return SQLQuery{Text: "(" + text + ")", Params: params}, nil
}

// ToDuckDBSQL is shorthand for ToSQL(e, DialectDuckDB).
func ToDuckDBSQL(e Expr) (SQLQuery, error) {
	return ToSQL(e, DialectDuckDB)
}

func (em *sqlEmitter) emit(e Expr) (string, error) {
	switch v := e.(type) {
	case Bool:
		return em.placeholder(bool(v)), nil
	case Integer:
		return em.placeholder(int64(v)), nil
	case Float:
		return em.placeholder(float64(v)), nil
	case String:
		return em.placeholder(string(v)), nil
	case Null:
		return "NULL", nil
	case Property:
		return em.quoteIdent(v.Name), nil

	case Date:
		return em.placeholder(v.Value), nil

	case Timestamp:
		return em.placeholder(v.Value), nil

	case Interval:
		return em.emitInterval(v)

	case Geometry:
		return em.emitGeometry(v)

	case BBox:
		parts := make([]string, len(v.Values))
		for i, f := range v.Values {
			parts[i] = em.placeholder(f)
		}
		return "(" + strings.Join(parts, ", ") + ")", nil

	case Array:
		parts := make([]string, len(v.Items))
		for i, it := range v.Items {
			s, err := em.emit(it)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ", ") + ")", nil

	case Operation:
		return em.emitOperation(v)
	}
	return "", fmt.Errorf("cql2: cannot render %T as SQL", e)
}

func (em *sqlEmitter) emitInterval(v Interval) (string, error) {
	start, err := em.temporalBoundText(v.Start)
	if err != nil {
		return "", err
	}
	end, err := em.temporalBoundText(v.End)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TSTZRANGE(%s, %s)", start, end), nil
}

func (em *sqlEmitter) temporalBoundText(e Expr) (string, error) {
	if s, ok := e.(String); ok && s == ".." {
		return "NULL", nil
	}
	return em.emit(e)
}

// emitGeometry renders the geometry as a bare EWKT ("SRID=4326;<WKT>")
// bind parameter; no constructor function is wrapped around it.
func (em *sqlEmitter) emitGeometry(g Geometry) (string, error) {
	wkt, err := g.ToWKT()
	if err != nil {
		return "", err
	}
	return em.placeholder("SRID=4326;" + wkt), nil
}

var sqlArithmetic = map[string]string{
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%", "^": "^", "div": "/",
}

// duckArrayFuncs maps each array predicate to DuckDB's native list_*
// function. a_containedBy's arguments are swapped inline in
// emitOperation to match list_has_all's signature.
var duckArrayFuncs = map[string]string{
	"a_equals":      "list_equals",
	"a_contains":    "list_has_all",
	"a_containedBy": "list_has_all",
	"a_overlaps":    "list_has_any",
}

func (em *sqlEmitter) emitOperation(op Operation) (string, error) {
	switch op.Op {
	case "and", "or":
		parts := make([]string, len(op.Args))
		for i, a := range op.Args {
			s, err := em.emit(a)
			if err != nil {
				return "", err
			}
			parts[i] = "(" + s + ")"
		}
		joiner := " AND "
		if op.Op == "or" {
			joiner = " OR "
		}
		return strings.Join(parts, joiner), nil

	case "not":
		inner, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil

	case "like":
		return em.emitLike(op)

	case "between":
		left, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		low, err := em.emit(op.Args[1])
		if err != nil {
			return "", err
		}
		high, err := em.emit(op.Args[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", left, low, high), nil

	case "in":
		left, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		right, err := em.emit(op.Args[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s IN %s", left, right), nil

	case "isNull":
		left, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		return left + " IS NULL", nil

	case "casei":
		inner, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		return "UPPER(" + inner + ")", nil

	case "accenti":
		inner, err := em.emit(op.Args[0])
		if err != nil {
			return "", err
		}
		if em.duck {
			return "strip_accents(" + inner + ")", nil
		}
		return "unaccent(" + inner + ")", nil
	}

	if isComparisonOp(op.Op) {
		return em.binary(op, op.Op)
	}
	if sym, ok := sqlArithmetic[op.Op]; ok {
		return em.binary(op, sym)
	}
	if op.Op == concatOp {
		return em.binary(op, "||")
	}

	// Spatial and temporal predicates are always emitted as function
	// calls of the same operator name; downstream engines must provide
	// the implementations. Array predicates follow the same rule in the
	// generic dialect, but render through DuckDB's native list_*
	// functions in the DuckDB dialect.
	canonical := canonicalTemporalOrArray(op.Op)
	if isArrayOp(op.Op) && em.duck {
		name, ok := duckArrayFuncs[canonical]
		if !ok {
			name = canonical
		}
		args := op.Args
		if canonical == "a_containedBy" {
			args = []Expr{op.Args[1], op.Args[0]}
		}
		return em.emitFunc(name, args)
	}
	if isSpatialOp(op.Op) || isTemporalOp(op.Op) || isArrayOp(op.Op) {
		return em.emitFunc(canonical, op.Args)
	}

	return em.emitFunc(op.Op, op.Args)
}

// emitLike renders the LIKE predicate. DuckDB prefers the `~~` operator
// (its native LIKE-equivalent) whenever the pattern has not already gone
// through casei/accenti folding; once it has, the keyword form reads
// more naturally alongside the UPPER()/strip_accents() wrapping already
// applied to both operands.
func (em *sqlEmitter) emitLike(op Operation) (string, error) {
	if em.duck && !wrapsCaseFold(op.Args[0]) && !wrapsCaseFold(op.Args[1]) {
		return em.binary(op, "~~")
	}
	return em.binary(op, "LIKE")
}

func wrapsCaseFold(e Expr) bool {
	o, ok := e.(Operation)
	return ok && (o.Op == "casei" || o.Op == "accenti")
}

func (em *sqlEmitter) binary(op Operation, symbol string) (string, error) {
	left, err := em.emit(op.Args[0])
	if err != nil {
		return "", err
	}
	right, err := em.emit(op.Args[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %s %s", left, symbol, right), nil
}

func (em *sqlEmitter) emitFunc(name string, args []Expr) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		s, err := em.emit(a)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", ")), nil
}
