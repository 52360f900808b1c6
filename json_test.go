package cql2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Expr
		expectError bool
	}{
		{
			name:  "comparison",
			input: `{"op":"=","args":[{"property":"landsat:scene_id"},"LC82030282019133LGN00"]}`,
			expected: Operation{Op: "=", Args: []Expr{
				Property{Name: "landsat:scene_id"}, String("LC82030282019133LGN00"),
			}},
		},
		{
			name:  "upper-case boolean op normalises",
			input: `{"op":"AND","args":[true,false]}`,
			expected: Operation{Op: "and", Args: []Expr{Bool(true), Bool(false)}},
		},
		{
			name:  "date literal",
			input: `{"date":"2020-01-01"}`,
			expected: Date{Value: "2020-01-01"},
		},
		{
			name:  "interval literal",
			input: `{"interval":[{"date":"2020-01-01"},".."]}`,
			expected: Interval{Start: Date{Value: "2020-01-01"}, End: String("..")},
		},
		{
			name:  "bbox literal",
			input: `{"bbox":[-180,-90,180,90]}`,
			expected: BBox{Values: []float64{-180, -90, 180, 90}},
		},
		{
			name:  "point geometry",
			input: `{"type":"Point","coordinates":[36.3,32.3]}`,
			expected: pointFlat(36.3, 32.3),
		},
		{
			name:  "temporal converse casing accepted any case",
			input: `{"op":"T_METBY","args":[{"date":"2020-01-01"},{"date":"2020-02-01"}]}`,
			expected: Operation{Op: "t_metBy", Args: []Expr{
				Date{Value: "2020-01-01"}, Date{Value: "2020-02-01"},
			}},
		},
		{
			name:        "unrecognized shape",
			input:       `{"foo":"bar"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.input))
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, Equals(got, tt.expected), "got %#v, want %#v", got, tt.expected)
		})
	}
}

func TestToJSONFieldOrder(t *testing.T) {
	e := Operation{Op: "=", Args: []Expr{Property{Name: "a"}, Integer(1)}}
	b, err := ToJSON(e)
	require.NoError(t, err)

	opIdx := indexOf(string(b), `"op"`)
	argsIdx := indexOf(string(b), `"args"`)
	require.GreaterOrEqual(t, opIdx, 0)
	require.GreaterOrEqual(t, argsIdx, 0)
	assert.Less(t, opIdx, argsIdx, "op must be emitted before args: %s", b)
}

func TestJSONRoundTrip(t *testing.T) {
	tests := []string{
		`{"op":"and","args":[{"op":">","args":[{"property":"temp"},30]},{"op":"<","args":[{"property":"humidity"},80]}]}`,
		`{"op":"between","args":[{"property":"value"},10,20]}`,
		`{"op":"in","args":[{"property":"code"},["a","b","c"]]}`,
		`{"op":"||","args":[{"property":"a"},{"property":"b"}]}`,
	}
	for _, text := range tests {
		t.Run(text, func(t *testing.T) {
			e, err := ParseJSON([]byte(text))
			require.NoError(t, err)
			out, err := ToJSON(e)
			require.NoError(t, err)
			reparsed, err := ParseJSON(out)
			require.NoError(t, err)
			assert.True(t, Equals(e, reparsed))
		})
	}
}

func TestValidateJSON(t *testing.T) {
	valid := `{"op":"=","args":[{"property":"id"},"abc"]}`
	require.NoError(t, ValidateJSON([]byte(valid)))

	invalid := `{"op":"and","args":[true]}`
	err := ValidateJSON([]byte(invalid))
	require.Error(t, err)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(`"id" = 'abc'`))
	assert.False(t, IsValid(`"id" =`))
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
