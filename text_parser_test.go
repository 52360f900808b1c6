package cql2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Expr
		expectError bool
	}{
		{
			name:     "basic comparison",
			input:    "temperature > 30.5",
			expected: Operation{Op: ">", Args: []Expr{Property{Name: "temperature"}, Float(30.5)}},
		},
		{
			name:  "logical AND",
			input: "temp > 30 AND humidity < 80",
			expected: Operation{Op: "and", Args: []Expr{
				Operation{Op: ">", Args: []Expr{Property{Name: "temp"}, Integer(30)}},
				Operation{Op: "<", Args: []Expr{Property{Name: "humidity"}, Integer(80)}},
			}},
		},
		{
			name:  "flattened AND chain",
			input: "a = 1 AND b = 2 AND c = 3",
			expected: Operation{Op: "and", Args: []Expr{
				Operation{Op: "=", Args: []Expr{Property{Name: "a"}, Integer(1)}},
				Operation{Op: "=", Args: []Expr{Property{Name: "b"}, Integer(2)}},
				Operation{Op: "=", Args: []Expr{Property{Name: "c"}, Integer(3)}},
			}},
		},
		{
			name:  "NOT before LIKE folds to outer NOT",
			input: `"name" NOT LIKE 'foo%'`,
			expected: Operation{Op: "not", Args: []Expr{
				Operation{Op: "like", Args: []Expr{Property{Name: "name"}, String("foo%")}},
			}},
		},
		{
			name:  "explicit NOT LIKE matches same AST",
			input: `NOT ("name" LIKE 'foo%')`,
			expected: Operation{Op: "not", Args: []Expr{
				Operation{Op: "like", Args: []Expr{Property{Name: "name"}, String("foo%")}},
			}},
		},
		{
			name:  "IS NOT NULL",
			input: `"value" IS NOT NULL`,
			expected: Operation{Op: "not", Args: []Expr{
				Operation{Op: "isNull", Args: []Expr{Property{Name: "value"}}},
			}},
		},
		{
			name:  "string concatenation",
			input: `"a" || "b" = 'ab'`,
			expected: Operation{Op: "=", Args: []Expr{
				Operation{Op: concatOp, Args: []Expr{Property{Name: "a"}, Property{Name: "b"}}},
				String("ab"),
			}},
		},
		{
			name:  "concat binds tighter than comparison, looser than additive",
			input: `1 + 2 || 'x'`,
			expected: Operation{Op: concatOp, Args: []Expr{
				Operation{Op: "+", Args: []Expr{Integer(1), Integer(2)}},
				String("x"),
			}},
		},
		{
			name:  "between",
			input: `"value" BETWEEN 10 AND 20`,
			expected: Operation{Op: "between", Args: []Expr{
				Property{Name: "value"}, Integer(10), Integer(20),
			}},
		},
		{
			name:  "in list",
			input: `"code" IN ('a', 'b', 'c')`,
			expected: Operation{Op: "in", Args: []Expr{
				Property{Name: "code"},
				Array{Items: []Expr{String("a"), String("b"), String("c")}},
			}},
		},
		{
			name:  "temporal predicate with converse casing",
			input: `T_METBY(INTERVAL(DATE('2020-01-01'), DATE('2020-01-31')), INTERVAL(DATE('2020-01-31'), DATE('2020-02-15')))`,
			expected: Operation{Op: "t_metBy", Args: []Expr{
				Interval{Start: Date{Value: "2020-01-01"}, End: Date{Value: "2020-01-31"}},
				Interval{Start: Date{Value: "2020-01-31"}, End: Date{Value: "2020-02-15"}},
			}},
		},
		{
			name:  "array predicate with converse casing",
			input: `A_CONTAINEDBY(['a'], ['a', 'b'])`,
			expected: Operation{Op: "a_containedBy", Args: []Expr{
				Array{Items: []Expr{String("a")}},
				Array{Items: []Expr{String("a"), String("b")}},
			}},
		},
		{
			name:  "spatial predicate preserved as function call",
			input: "S_INTERSECTS(geometry, POINT(36.3 32.3))",
			expected: Operation{Op: "s_intersects", Args: []Expr{
				Property{Name: "geometry"},
				pointFlat(36.3, 32.3),
			}},
		},
		{
			name:  "landsat scene id example",
			input: `landsat:scene_id = 'LC82030282019133LGN00'`,
			expected: Operation{Op: "=", Args: []Expr{
				Property{Name: "landsat:scene_id"}, String("LC82030282019133LGN00"),
			}},
		},
		{
			name:     "negative geometry coordinates",
			input:    "POINT(-122.4 37.8)",
			expected: pointFlat(-122.4, 37.8),
		},
		{
			name:  "negative bbox values",
			input: "BBOX(-180, -90, 180, 90)",
			expected: BBox{Values: []float64{-180, -90, 180, 90}},
		},
		{
			name:        "malformed input",
			input:       "temp >",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseText(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, Equals(got, tt.expected), "got %#v, want %#v", got, tt.expected)
		})
	}
}

func TestToTextRoundTrip(t *testing.T) {
	tests := []string{
		`"temperature" > 30.5`,
		`"temp" > 30 AND "humidity" < 80`,
		`("a" > 5 OR "b" < 10) AND NOT "status" = 'active'`,
		`"name" NOT LIKE 'foo%'`,
		`"value" BETWEEN 10 AND 20`,
		`"code" IN ('a', 'b', 'c')`,
		`"a" || "b" = 'ab'`,
		`1 + 2 * 3`,
		`(1 + 2) * 3`,
		`1 - (2 - 3)`,
		`-"x" + 1`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			e, err := ParseText(text)
			require.NoError(t, err)
			out, err := ToText(e)
			require.NoError(t, err)
			reparsed, err := ParseText(out)
			require.NoError(t, err)
			assert.True(t, Equals(e, reparsed), "round trip changed meaning: %s -> %s", text, out)
		})
	}
}

func TestToTextNotIsAlwaysOutermost(t *testing.T) {
	tests := []string{
		`NOT "name" LIKE 'foo%'`,
		`"name" NOT LIKE 'foo%'`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			e, err := ParseText(text)
			require.NoError(t, err)
			out, err := ToText(e)
			require.NoError(t, err)
			assert.Equal(t, `(NOT ("name" LIKE 'foo%'))`, out)
		})
	}
}

func TestToTextConstantFold(t *testing.T) {
	e, err := ParseText("1 + 2")
	require.NoError(t, err)
	reduced, err := Reduce(e)
	require.NoError(t, err)
	out, err := ToText(reduced)
	require.NoError(t, err)
	assert.Equal(t, "3", out)
}

func pointFlat(x, y float64) Geometry {
	g, _ := buildGeometry("POINT", "", &geomNode{Numbers: []float64{x, y}}, nil)
	return g
}
