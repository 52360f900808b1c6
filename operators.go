package cql2

import "strings"

// Operator classification tables. These drive parsing, canonicalisation,
// reduction, and emission without hard-coding the same switch in five
// places.
var (
	logicalOps = map[string]bool{"and": true, "or": true, "not": true}

	comparisonOps = map[string]bool{
		"=": true, "<>": true, "<": true, "<=": true, ">": true, ">=": true,
	}

	arithmeticOps = map[string]bool{
		"+": true, "-": true, "*": true, "/": true, "%": true, "^": true, "div": true,
	}

	// concatOp is string concatenation, its own precedence level between
	// comparison and additive (see text_parser.go's concatExpr).
	concatOp = "||"

	// unaryOps take exactly one argument.
	unaryOps = map[string]bool{"not": true, "isNull": true, "casei": true, "accenti": true}

	// temporalCanonical maps every case-insensitive spelling of a Allen
	// temporal operator to its canonical mixed-case CQL2 name (the
	// converses — metBy, overlappedBy, startedBy, finishedBy — carry an
	// internal capital the way the OGC schema spells them).
	temporalCanonical = map[string]string{
		"t_before": "t_before", "t_after": "t_after", "t_equals": "t_equals",
		"t_disjoint": "t_disjoint", "t_intersects": "t_intersects",
		"t_contains": "t_contains", "t_during": "t_during", "t_meets": "t_meets",
		"t_metby": "t_metBy", "t_overlaps": "t_overlaps",
		"t_overlappedby": "t_overlappedBy", "t_starts": "t_starts",
		"t_startedby": "t_startedBy", "t_finishes": "t_finishes",
		"t_finishedby": "t_finishedBy",
	}

	// arrayCanonical maps every case-insensitive spelling of an array
	// predicate to its canonical mixed-case name.
	arrayCanonical = map[string]string{
		"a_equals": "a_equals", "a_contains": "a_contains",
		"a_containedby": "a_containedBy", "a_overlaps": "a_overlaps",
	}
)

func isSpatialOp(op string) bool {
	return strings.HasPrefix(op, "s_")
}

func isTemporalOp(op string) bool {
	_, ok := temporalCanonical[strings.ToLower(op)]
	return ok
}

func isArrayOp(op string) bool {
	_, ok := arrayCanonical[strings.ToLower(op)]
	return ok
}

// canonicalTemporalOrArray returns the canonical mixed-case spelling for
// any t_*/a_* operator name regardless of the case it was written in; it
// returns name unchanged for anything else (spatial names, casei/accenti,
// and user-defined function names are already canonical as lower-case or
// verbatim).
func canonicalTemporalOrArray(name string) string {
	lower := strings.ToLower(name)
	if c, ok := temporalCanonical[lower]; ok {
		return c
	}
	if c, ok := arrayCanonical[lower]; ok {
		return c
	}
	return name
}

func isLogicalOp(op string) bool  { return logicalOps[op] }
func isComparisonOp(op string) bool { return comparisonOps[op] }
func isArithmeticOp(op string) bool { return arithmeticOps[op] }

// invTemporalOp maps a converse Allen relation to its primary form and
// reports whether the operand order must be swapped, mirroring the
// temporal-algebra reduction used by the reference implementation.
func invTemporalOp(op string) (canonical string, swap bool) {
	switch canonicalTemporalOrArray(op) {
	case "t_after":
		return "t_before", true
	case "t_metBy":
		return "t_meets", true
	case "t_overlappedBy":
		return "t_overlaps", true
	case "t_startedBy":
		return "t_starts", true
	case "t_contains":
		return "t_during", true
	case "t_finishedBy":
		return "t_finishes", true
	default:
		return canonicalTemporalOrArray(op), false
	}
}

// textUpperOps are rendered upper-case in cql2-text.
var textUpperOps = map[string]string{
	"and": "AND", "or": "OR", "not": "NOT",
	"like": "LIKE", "in": "IN", "between": "BETWEEN",
	"isnull": "IS NULL",
}
