package cql2

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// TestToJSONGolden compares the canonical JSON rendering of representative
// expressions against committed fixtures, the way a growing corpus of
// canonical-form cases would in practice rather than one inline string
// literal per case.
func TestToJSONGolden(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"comparison_equals", `"id" = 'abc'`},
		{"between_value", `"value" BETWEEN 10 AND 20`},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := ParseText(tt.text)
			if err != nil {
				t.Fatalf("parse %q: %v", tt.text, err)
			}
			b, err := ToJSON(e)
			if err != nil {
				t.Fatalf("ToJSON: %v", err)
			}
			g.Assert(t, tt.name, b)
		})
	}
}
