package cql2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWKTRoundTrip(t *testing.T) {
	tests := []string{
		"POINT(36.3 32.3)",
		"LINESTRING(30 10, 10 30, 40 40)",
		"POLYGON((30 10, 40 40, 20 40, 10 20, 30 10))",
		"MULTIPOINT((10 40), (40 30), (20 20))",
		"MULTILINESTRING((10 10, 20 20), (15 15, 30 15))",
		"MULTIPOLYGON(((30 20, 45 40, 10 40, 30 20)), ((15 5, 40 10, 10 20, 5 10, 15 5)))",
		"GEOMETRYCOLLECTION(POINT(1 1), LINESTRING(1 1, 2 2))",
	}
	for _, wkt := range tests {
		t.Run(wkt, func(t *testing.T) {
			e, err := ParseText(wkt)
			require.NoError(t, err)
			g, ok := e.(Geometry)
			require.True(t, ok)
			out, err := g.ToWKT()
			require.NoError(t, err)
			reparsed, err := ParseText(out)
			require.NoError(t, err)
			assert.True(t, Equals(e, reparsed), "round trip changed meaning: %s -> %s", wkt, out)
		})
	}
}

func TestGeoJSONRoundTrip(t *testing.T) {
	tests := []string{
		"POINT(36.3 32.3)",
		"LINESTRING(30 10, 10 30, 40 40)",
		"POLYGON((30 10, 40 40, 20 40, 10 20, 30 10))",
		"MULTIPOINT((10 40), (40 30))",
		"GEOMETRYCOLLECTION(POINT(1 1), LINESTRING(1 1, 2 2))",
	}
	for _, wkt := range tests {
		t.Run(wkt, func(t *testing.T) {
			e, err := ParseText(wkt)
			require.NoError(t, err)
			g := e.(Geometry)

			gj, err := g.ToGeoJSON()
			require.NoError(t, err)

			back, err := geometryFromGeoJSON(gj)
			require.NoError(t, err)

			backWKT, err := back.ToWKT()
			require.NoError(t, err)
			origWKT, err := g.ToWKT()
			require.NoError(t, err)
			assert.Equal(t, origWKT, backWKT)
		})
	}
}

func TestGeometryInJSONOperation(t *testing.T) {
	e, err := ParseText("S_INTERSECTS(geometry, POINT(36.3 32.3))")
	require.NoError(t, err)
	b, err := ToJSON(e)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"type":"Point"`)
	assert.Contains(t, string(b), `"coordinates":[36.3,32.3]`)
}

func TestZDimensionPreserved(t *testing.T) {
	e, err := ParseText("POINT Z(1 2 3)")
	require.NoError(t, err)
	g := e.(Geometry)
	out, err := g.ToWKT()
	require.NoError(t, err)
	assert.Equal(t, "POINT Z(1 2 3)", out)
}
