package cql2

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/participle/v2"
)

// The grammar below mirrors cql2-text's precedence chain, lowest to
// highest: or, and, not, comparison (=, <>, <, <=, >, >=, like, in,
// between, is null), string concatenation (||), additive,
// multiplicative, exponent, unary minus.
// Each level is its own struct, the standard way to encode precedence
// climbing in a participle PEG grammar — a level only descends to the
// next when no operator at its own level follows.
var (
	textParserOnce sync.Once
	textParser     *participle.Parser[orExpr]
)

// loadTextParser builds the grammar on first use, exactly once.
func loadTextParser() *participle.Parser[orExpr] {
	textParserOnce.Do(func() {
		textParser = participle.MustBuild[orExpr](
			participle.Lexer(cqlLexer),
			participle.CaseInsensitive("Ident"),
			participle.UseLookahead(2),
		)
	})
	return textParser
}

type orExpr struct {
	Left *andExpr   `parser:"@@"`
	Rest []*andExpr `parser:"( \"OR\" @@ )*"`
}

type andExpr struct {
	Left *notExpr   `parser:"@@"`
	Rest []*notExpr `parser:"( \"AND\" @@ )*"`
}

type notExpr struct {
	Negated *notExpr `parser:"(  \"NOT\" @@"`
	Cmp     *cmpExpr `parser:"| @@ )"`
}

type cmpExpr struct {
	Left *concatExpr `parser:"@@"`
	Tail *cmpTail    `parser:"@@?"`
}

type cmpTail struct {
	Op      *opTail      `parser:"  @@"`
	Like    *likeTail    `parser:"| @@"`
	Between *betweenTail `parser:"| @@"`
	In      *inTail      `parser:"| @@"`
	IsNull  *isNullTail  `parser:"| @@"`
}

type opTail struct {
	Op  string      `parser:"@CompOp"`
	RHS *concatExpr `parser:"@@"`
}

type likeTail struct {
	Not bool        `parser:"@\"NOT\"?"`
	RHS *concatExpr `parser:"\"LIKE\" @@"`
}

type betweenTail struct {
	Not  bool        `parser:"@\"NOT\"?"`
	Low  *concatExpr `parser:"\"BETWEEN\" @@"`
	High *concatExpr `parser:"\"AND\" @@"`
}

type inTail struct {
	Not  bool          `parser:"@\"NOT\"?"`
	List []*concatExpr `parser:"\"IN\" \"(\" @@ ( \",\" @@ )* \")\""`
}

// concatExpr is the string-concatenation (||) precedence level, sitting
// between comparison and additive per the grammar's chain.
type concatExpr struct {
	Left *additiveExpr   `parser:"@@"`
	Rest []*additiveExpr `parser:"( Concat @@ )*"`
}

type isNullTail struct {
	Not bool `parser:"\"IS\" @\"NOT\"? \"NULL\""`
}

type additiveExpr struct {
	Left *multiplicativeExpr `parser:"@@"`
	Rest []*additiveTail     `parser:"@@*"`
}

type additiveTail struct {
	Op  string               `parser:"@(\"+\" | \"-\")"`
	RHS *multiplicativeExpr  `parser:"@@"`
}

type multiplicativeExpr struct {
	Left *exponentExpr `parser:"@@"`
	Rest []*multTail   `parser:"@@*"`
}

type multTail struct {
	Op  string        `parser:"@(\"*\" | \"/\" | \"%\" | \"DIV\")"`
	RHS *exponentExpr `parser:"@@"`
}

type exponentExpr struct {
	Left *unaryExpr    `parser:"@@"`
	Rest *exponentExpr `parser:"( \"^\" @@ )?"`
}

type unaryExpr struct {
	Negated *unaryExpr   `parser:"(  \"-\" @@"`
	Prim    *primaryExpr `parser:"| @@ )"`
}

type primaryExpr struct {
	Bool      *boolLit     `parser:"  @@"`
	Null      bool         `parser:"| @\"NULL\""`
	Num       *string      `parser:"| @Number"`
	Str       *string      `parser:"| @String"`
	Date      *dateLit     `parser:"| @@"`
	Timestamp *tsLit       `parser:"| @@"`
	Interval  *intervalLit `parser:"| @@"`
	BBox      *bboxLit     `parser:"| @@"`
	Geom      *wktGeomRule `parser:"| @@"`
	Bracket   *bracketLit  `parser:"| @@"`
	Call      *callExpr    `parser:"| @@"`
	Group     *groupExpr   `parser:"| @@"`
	Property  *propertyRef `parser:"| @@"`
}

type boolLit struct {
	Value string `parser:"@(\"TRUE\" | \"FALSE\")"`
}

type dateLit struct {
	Value string `parser:"\"DATE\" \"(\" @String \")\""`
}

type tsLit struct {
	Value string `parser:"\"TIMESTAMP\" \"(\" @String \")\""`
}

type intervalLit struct {
	Start *orExpr `parser:"\"INTERVAL\" \"(\" @@"`
	End   *orExpr `parser:"\",\" @@ \")\""`
}

type bboxLit struct {
	Values []string `parser:"\"BBOX\" \"(\" @(\"-\"? Number) ( \",\" @(\"-\"? Number) )* \")\""`
}

type bracketLit struct {
	Items []*orExpr `parser:"\"[\" ( @@ ( \",\" @@ )* )? \"]\""`
}

type callExpr struct {
	Name string    `parser:"@Ident"`
	Args []*orExpr `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
}

type groupExpr struct {
	Items []*orExpr `parser:"\"(\" @@ ( \",\" @@ )* \")\""`
}

type propertyRef struct {
	Name   *string `parser:"  @Ident"`
	Quoted *string `parser:"| @QuotedIdent"`
}

// wktGeomRule and coordNodeRule mirror geomNode (geometry.go) at the
// grammar layer: a geometry body is a parenthesised list whose elements
// are either flat coordinate tuples or further parenthesised lists, which
// naturally nests to whatever depth the geometry type calls for.
type wktGeomRule struct {
	Type       string            `parser:"@(\"POINT\" | \"LINESTRING\" | \"POLYGON\" | \"MULTIPOINT\" | \"MULTILINESTRING\" | \"MULTIPOLYGON\" | \"GEOMETRYCOLLECTION\")"`
	Dim        string            `parser:"@(\"Z\" | \"M\" | \"ZM\")?"`
	Collection *wktCollectionRule `parser:"(  @@"`
	Body       *coordNodeRule     `parser:"| @@ )"`
}

type wktCollectionRule struct {
	Items []*wktGeomRule `parser:"\"(\" @@ ( \",\" @@ )* \")\""`
}

type coordNodeRule struct {
	Numbers []string         `parser:"(  @(\"-\"? Number)+"`
	Nested  []*coordNodeRule `parser:"| \"(\" @@ ( \",\" @@ )* \")\" )"`
}

// ---- AST conversion ----

func (e *orExpr) toExpr() (Expr, error) {
	left, err := e.Left.toExpr()
	if err != nil {
		return nil, err
	}
	if len(e.Rest) == 0 {
		return left, nil
	}
	args := []Expr{left}
	for _, r := range e.Rest {
		next, err := r.toExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return Operation{Op: "or", Args: args}, nil
}

func (a *andExpr) toExpr() (Expr, error) {
	left, err := a.Left.toExpr()
	if err != nil {
		return nil, err
	}
	if len(a.Rest) == 0 {
		return left, nil
	}
	args := []Expr{left}
	for _, r := range a.Rest {
		next, err := r.toExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, next)
	}
	return Operation{Op: "and", Args: args}, nil
}

func (n *notExpr) toExpr() (Expr, error) {
	if n.Negated != nil {
		inner, err := n.Negated.toExpr()
		if err != nil {
			return nil, err
		}
		return Operation{Op: "not", Args: []Expr{inner}}, nil
	}
	return n.Cmp.toExpr()
}

func (c *cmpExpr) toExpr() (Expr, error) {
	left, err := c.Left.toExpr()
	if err != nil {
		return nil, err
	}
	if c.Tail == nil {
		return left, nil
	}
	return c.Tail.toExpr(left)
}

func (c *concatExpr) toExpr() (Expr, error) {
	left, err := c.Left.toExpr()
	if err != nil {
		return nil, err
	}
	for _, r := range c.Rest {
		rhs, err := r.toExpr()
		if err != nil {
			return nil, err
		}
		left = Operation{Op: concatOp, Args: []Expr{left, rhs}}
	}
	return left, nil
}

func negate(e Expr, not bool) Expr {
	if !not {
		return e
	}
	return Operation{Op: "not", Args: []Expr{e}}
}

func (t *cmpTail) toExpr(left Expr) (Expr, error) {
	switch {
	case t.Op != nil:
		rhs, err := t.Op.RHS.toExpr()
		if err != nil {
			return nil, err
		}
		return Operation{Op: t.Op.Op, Args: []Expr{left, rhs}}, nil

	case t.Like != nil:
		rhs, err := t.Like.RHS.toExpr()
		if err != nil {
			return nil, err
		}
		return negate(Operation{Op: "like", Args: []Expr{left, rhs}}, t.Like.Not), nil

	case t.Between != nil:
		low, err := t.Between.Low.toExpr()
		if err != nil {
			return nil, err
		}
		high, err := t.Between.High.toExpr()
		if err != nil {
			return nil, err
		}
		return negate(Operation{Op: "between", Args: []Expr{left, low, high}}, t.Between.Not), nil

	case t.In != nil:
		items := make([]Expr, 0, len(t.In.List))
		for _, it := range t.In.List {
			v, err := it.toExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return negate(Operation{Op: "in", Args: []Expr{left, Array{Items: items}}}, t.In.Not), nil

	case t.IsNull != nil:
		return negate(Operation{Op: "isNull", Args: []Expr{left}}, t.IsNull.Not), nil
	}
	return left, nil
}

func (a *additiveExpr) toExpr() (Expr, error) {
	left, err := a.Left.toExpr()
	if err != nil {
		return nil, err
	}
	for _, r := range a.Rest {
		rhs, err := r.RHS.toExpr()
		if err != nil {
			return nil, err
		}
		left = Operation{Op: r.Op, Args: []Expr{left, rhs}}
	}
	return left, nil
}

func (m *multiplicativeExpr) toExpr() (Expr, error) {
	left, err := m.Left.toExpr()
	if err != nil {
		return nil, err
	}
	for _, r := range m.Rest {
		rhs, err := r.RHS.toExpr()
		if err != nil {
			return nil, err
		}
		op := strings.ToLower(r.Op)
		left = Operation{Op: op, Args: []Expr{left, rhs}}
	}
	return left, nil
}

func (x *exponentExpr) toExpr() (Expr, error) {
	left, err := x.Left.toExpr()
	if err != nil {
		return nil, err
	}
	if x.Rest == nil {
		return left, nil
	}
	rhs, err := x.Rest.toExpr()
	if err != nil {
		return nil, err
	}
	return Operation{Op: "^", Args: []Expr{left, rhs}}, nil
}

func (u *unaryExpr) toExpr() (Expr, error) {
	if u.Negated != nil {
		inner, err := u.Negated.toExpr()
		if err != nil {
			return nil, err
		}
		switch v := inner.(type) {
		case Float:
			return Float(-v), nil
		case Integer:
			return Integer(-v), nil
		default:
			return Operation{Op: "*", Args: []Expr{Integer(-1), inner}}, nil
		}
	}
	return u.Prim.toExpr()
}

func parseNumber(raw string) Expr {
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Integer(n)
		}
	}
	f, _ := strconv.ParseFloat(raw, 64)
	return Float(f)
}

func unquoteSingle(s string) string {
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")
	return strings.ReplaceAll(s, "''", "'")
}

func unquoteDouble(s string) string {
	s = strings.TrimPrefix(s, "\"")
	s = strings.TrimSuffix(s, "\"")
	return strings.ReplaceAll(s, "\"\"", "\"")
}

func (p *primaryExpr) toExpr() (Expr, error) {
	switch {
	case p.Bool != nil:
		return Bool(strings.EqualFold(p.Bool.Value, "TRUE")), nil
	case p.Null:
		return Null{}, nil
	case p.Num != nil:
		return parseNumber(*p.Num), nil
	case p.Str != nil:
		return String(unquoteSingle(*p.Str)), nil
	case p.Date != nil:
		dv := unquoteSingle(p.Date.Value)
		if _, err := time.Parse("2006-01-02", dv); err != nil {
			return nil, fmt.Errorf("cql2: invalid date %q", dv)
		}
		return Date{Value: dv}, nil
	case p.Timestamp != nil:
		tv := unquoteSingle(p.Timestamp.Value)
		if _, err := parseTimestamp(tv); err != nil {
			return nil, fmt.Errorf("cql2: invalid timestamp %q", tv)
		}
		return Timestamp{Value: tv}, nil
	case p.Interval != nil:
		start, err := p.Interval.Start.toExpr()
		if err != nil {
			return nil, err
		}
		end, err := p.Interval.End.toExpr()
		if err != nil {
			return nil, err
		}
		return Interval{Start: start, End: end}, nil
	case p.BBox != nil:
		vals := make([]float64, 0, len(p.BBox.Values))
		sign := ""
		for _, s := range p.BBox.Values {
			// The grammar captures an optional "-" as its own entry.
			if s == "-" {
				sign = s
				continue
			}
			f, err := strconv.ParseFloat(sign+s, 64)
			if err != nil {
				return nil, fmt.Errorf("cql2: invalid BBOX number %q", sign+s)
			}
			vals = append(vals, f)
			sign = ""
		}
		return BBox{Values: vals}, nil
	case p.Geom != nil:
		return p.Geom.toGeometry()
	case p.Bracket != nil:
		items := make([]Expr, len(p.Bracket.Items))
		for i, it := range p.Bracket.Items {
			v, err := it.toExpr()
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return Array{Items: items}, nil
	case p.Call != nil:
		args := make([]Expr, len(p.Call.Args))
		for i, a := range p.Call.Args {
			v, err := a.toExpr()
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return Operation{Op: canonicalFuncName(p.Call.Name), Args: args}, nil
	case p.Group != nil:
		if len(p.Group.Items) == 1 {
			return p.Group.Items[0].toExpr()
		}
		items := make([]Expr, len(p.Group.Items))
		for i, it := range p.Group.Items {
			v, err := it.toExpr()
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return Array{Items: items}, nil
	case p.Property != nil:
		if p.Property.Name != nil {
			return Property{Name: *p.Property.Name}, nil
		}
		return Property{Name: unquoteDouble(*p.Property.Quoted)}, nil
	}
	return nil, fmt.Errorf("cql2: empty primary expression")
}

// canonicalFuncName lower-cases the known built-in operator families
// (spatial s_*, temporal t_*, array a_*, and the boolean-affecting casei
// / accenti) while leaving user-defined function names untouched.
func canonicalFuncName(name string) string {
	lower := strings.ToLower(name)
	if isTemporalOp(lower) || isArrayOp(lower) {
		return canonicalTemporalOrArray(lower)
	}
	if isSpatialOp(lower) || lower == "casei" || lower == "accenti" {
		return lower
	}
	return name
}

func (n *wktGeomRule) toGeometry() (Geometry, error) {
	if n.Type == "" {
		return Geometry{}, fmt.Errorf("cql2: missing geometry type")
	}
	if strings.EqualFold(n.Type, "GEOMETRYCOLLECTION") {
		if n.Collection == nil {
			return Geometry{}, fmt.Errorf("cql2: GEOMETRYCOLLECTION missing body")
		}
		children := make([]Geometry, len(n.Collection.Items))
		for i, it := range n.Collection.Items {
			g, err := it.toGeometry()
			if err != nil {
				return Geometry{}, err
			}
			children[i] = g
		}
		return buildGeometry(n.Type, n.Dim, nil, children)
	}
	if n.Body == nil {
		return Geometry{}, fmt.Errorf("cql2: geometry %s missing coordinates", n.Type)
	}
	body, err := n.Body.toNode()
	if err != nil {
		return Geometry{}, err
	}
	return buildGeometry(n.Type, n.Dim, body, nil)
}

func (n *coordNodeRule) toNode() (*geomNode, error) {
	if n.Numbers != nil {
		nums := make([]float64, 0, len(n.Numbers))
		sign := ""
		for _, s := range n.Numbers {
			// The grammar captures an optional "-" as its own entry.
			if s == "-" {
				sign = s
				continue
			}
			f, err := strconv.ParseFloat(sign+s, 64)
			if err != nil {
				return nil, fmt.Errorf("cql2: invalid coordinate %q", sign+s)
			}
			nums = append(nums, f)
			sign = ""
		}
		return &geomNode{Numbers: nums}, nil
	}
	nested := make([]*geomNode, len(n.Nested))
	for i, child := range n.Nested {
		c, err := child.toNode()
		if err != nil {
			return nil, err
		}
		nested[i] = c
	}
	return &geomNode{Nested: nested}, nil
}

// ParseText parses cql2-text into an Expr.
func ParseText(input string) (Expr, error) {
	tree, err := loadTextParser().ParseString("", input)
	if err != nil {
		perr := &ParseError{Message: err.Error(), Input: input}
		if pe, ok := err.(participle.Error); ok {
			pos := pe.Position()
			perr.Message, perr.Offset, perr.Line, perr.Column = pe.Message(), pos.Offset, pos.Line, pos.Column
		}
		return nil, perr
	}
	e, err := tree.toExpr()
	if err != nil {
		return nil, &ParseError{Message: err.Error(), Input: input}
	}
	return e, nil
}
