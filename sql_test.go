package cql2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustToSQL(t *testing.T, text string, dialect Dialect) SQLQuery {
	t.Helper()
	e, err := ParseText(text)
	require.NoError(t, err)
	q, err := ToSQL(e, dialect)
	require.NoError(t, err)
	return q
}

func TestToSQLPlaceholdersAllLiterals(t *testing.T) {
	q := mustToSQL(t, `"value" BETWEEN 10 AND 20`, DialectGeneric)
	assert.Equal(t, `("value" BETWEEN $1 AND $2)`, q.Text)
	assert.Equal(t, []interface{}{int64(10), int64(20)}, q.Params)
}

func TestToSQLComparisonAndArithmetic(t *testing.T) {
	q := mustToSQL(t, `"id" + 10 = 15`, DialectGeneric)
	assert.Equal(t, `("id" + $1 = $2)`, q.Text)
	assert.Equal(t, []interface{}{int64(10), int64(15)}, q.Params)
}

func TestToSQLStringConcat(t *testing.T) {
	q := mustToSQL(t, `"a" || "b" = 'ab'`, DialectGeneric)
	assert.Equal(t, `("a" || "b" = $1)`, q.Text)
	assert.Equal(t, []interface{}{"ab"}, q.Params)
}

func TestToSQLSpatialFunctionCall(t *testing.T) {
	q := mustToSQL(t, "S_INTERSECTS(geometry, POINT(36.3 32.3))", DialectGeneric)
	assert.Equal(t, `(s_intersects("geometry", $1))`, q.Text)
	require.Len(t, q.Params, 1)
	assert.Equal(t, "SRID=4326;POINT(36.3 32.3)", q.Params[0])
}

func TestToSQLTemporalFunctionCallSameNameBothDialects(t *testing.T) {
	for _, d := range []Dialect{DialectGeneric, DialectDuckDB} {
		q := mustToSQL(t, "T_INTERSECTS(DATE('2020-01-01'), DATE('2020-06-01'))", d)
		assert.Contains(t, q.Text, "t_intersects(")
	}
}

func TestToSQLArrayGenericDialect(t *testing.T) {
	q := mustToSQL(t, `A_CONTAINS(["a","b"], ["a"])`, DialectGeneric)
	assert.Contains(t, q.Text, "a_contains(")
}

func TestToSQLArrayDuckDBDialect(t *testing.T) {
	q := mustToSQL(t, `A_CONTAINS(["a","b"], ["a"])`, DialectDuckDB)
	assert.Contains(t, q.Text, "list_has_all(")
}

func TestToSQLArrayContainedBySwapsArgsInDuckDB(t *testing.T) {
	q := mustToSQL(t, `A_CONTAINEDBY(['a'], ['a','b'])`, DialectDuckDB)
	// a_containedBy(A, B) means A is contained by B, so DuckDB emission
	// swaps to list_has_all(B, A).
	assert.Equal(t, `(list_has_all(($1, $2), ($3)))`, q.Text)
	assert.Equal(t, []interface{}{"a", "b", "a"}, q.Params)
}

func TestToSQLLikeGenericUsesKeyword(t *testing.T) {
	q := mustToSQL(t, `"name" LIKE 'foo%'`, DialectGeneric)
	assert.Equal(t, `("name" LIKE $1)`, q.Text)
}

func TestToSQLLikeDuckDBPrefersTilde(t *testing.T) {
	q := mustToSQL(t, `"name" LIKE 'foo%'`, DialectDuckDB)
	assert.Equal(t, `("name" ~~ $1)`, q.Text)
}

func TestToSQLLikeDuckDBKeepsKeywordUnderCaseFold(t *testing.T) {
	q := mustToSQL(t, `CASEI("name") LIKE CASEI('foo%')`, DialectDuckDB)
	assert.Contains(t, q.Text, "LIKE")
	assert.NotContains(t, q.Text, "~~")
}

func TestToDuckDBSQLIsShorthandForDialect(t *testing.T) {
	e, err := ParseText(`"name" LIKE 'foo%'`)
	require.NoError(t, err)
	viaWrapper, err := ToDuckDBSQL(e)
	require.NoError(t, err)
	viaDialect, err := ToSQL(e, DialectDuckDB)
	require.NoError(t, err)
	assert.Equal(t, viaDialect, viaWrapper)
}

func TestToSQLNotBetweenIn(t *testing.T) {
	q := mustToSQL(t, `NOT "x" IN ('a', 'b')`, DialectGeneric)
	assert.Equal(t, `(NOT ("x" IN ($1, $2)))`, q.Text)
}

func TestToSQLIsNull(t *testing.T) {
	q := mustToSQL(t, `"x" IS NULL`, DialectGeneric)
	assert.Equal(t, `("x" IS NULL)`, q.Text)
}
