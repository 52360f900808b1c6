package cql2

import (
	"time"

	"github.com/araddon/dateparse"
)

// dateRange is a half-open time interval [Start, End) used to evaluate
// the temporal predicates (t_before, t_during, …) against Date,
// Timestamp, and Interval operands uniformly. It mirrors the DateRange
// type the reference implementation derives from an Expr before running
// the Allen interval-algebra comparisons.
type dateRange struct {
	Start time.Time
	End   time.Time
}

var (
	farPast   = time.Date(-292277022399, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture = time.Date(292277026596, 1, 1, 0, 0, 0, 0, time.UTC)
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts the strict RFC 3339/ISO-8601 layouts CQL2
// literals use. Property values sourced from an item document are not
// bound by that grammar, so any value that fails all fixed layouts
// falls back to dateparse's lenient format inference.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseAny(s)
}

// toInstant resolves a single temporal bound. For a Date used as the
// upper edge of a range it returns the start of the following day, so
// that a Date behaves as the whole day it names rather than an instant.
func toInstant(e Expr, upper bool) (time.Time, error) {
	switch v := e.(type) {
	case Date:
		t, err := time.Parse("2006-01-02", v.Value)
		if err != nil {
			return time.Time{}, err
		}
		if upper {
			return t.AddDate(0, 0, 1), nil
		}
		return t, nil
	case Timestamp:
		return parseTimestamp(v.Value)
	case String:
		if v == ".." {
			if upper {
				return farFuture, nil
			}
			return farPast, nil
		}
		return parseTimestamp(string(v))
	default:
		return time.Time{}, newEvalError("temporal", "cannot use %T as a temporal bound", e)
	}
}

func toDateRange(e Expr) (dateRange, error) {
	switch v := e.(type) {
	case Date:
		start, err := toInstant(v, false)
		if err != nil {
			return dateRange{}, err
		}
		end, _ := toInstant(v, true)
		return dateRange{Start: start, End: end}, nil
	case Timestamp:
		t, err := toInstant(v, false)
		if err != nil {
			return dateRange{}, err
		}
		return dateRange{Start: t, End: t}, nil
	case Interval:
		start, err := toInstant(v.Start, false)
		if err != nil {
			return dateRange{}, err
		}
		end, err := toInstant(v.End, true)
		if err != nil {
			return dateRange{}, err
		}
		return dateRange{Start: start, End: end}, nil
	default:
		return dateRange{}, newEvalError("temporal", "cannot derive a date range from %T", e)
	}
}

// evalTemporalOp evaluates one of the 7 primary Allen interval relations plus
// disjoint/intersects over two already-resolved ranges. Converse forms
// (t_after, t_metby, …) are canonicalised to their primary form with
// operands swapped by invTemporalOp before this is called.
func evalTemporalOp(op string, a, b dateRange) (bool, error) {
	switch op {
	case "t_equals":
		return a.Start.Equal(b.Start) && a.End.Equal(b.End), nil
	case "t_before":
		return !a.End.After(b.Start), nil
	case "t_meets":
		return a.End.Equal(b.Start), nil
	case "t_overlaps":
		return a.Start.Before(b.Start) && a.End.Before(b.End) && b.Start.Before(a.End), nil
	case "t_starts":
		return a.Start.Equal(b.Start) && !a.End.After(b.End), nil
	case "t_during":
		return !a.Start.Before(b.Start) && !a.End.After(b.End), nil
	case "t_finishes":
		return a.End.Equal(b.End) && !a.Start.Before(b.Start), nil
	case "t_disjoint":
		return !a.End.After(b.Start) || !b.End.After(a.Start), nil
	case "t_intersects":
		disjoint, err := evalTemporalOp("t_disjoint", a, b)
		if err != nil {
			return false, err
		}
		return !disjoint, nil
	default:
		return false, newEvalError(op, "unknown temporal operator")
	}
}
