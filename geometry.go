package cql2

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geom"
)

// geomNode is the intermediate coordinate tree the text-grammar geometry
// rules build while parsing WKT. It is either a flat coordinate tuple
// (Numbers) or a parenthesised list of further nodes (Nested) — the same
// shape handles rings, multi-geometry members, and polygon/multipolygon
// nesting uniformly.
type geomNode struct {
	Numbers []float64
	Nested  []*geomNode
}

// buildGeometry turns a WKT keyword, an optional dimensionality tag, and
// the parsed coordinate tree into a Geometry value backed by go-geom.
func buildGeometry(kind, dim string, body *geomNode, collection []Geometry) (Geometry, error) {
	kind = strings.ToUpper(kind)
	if kind == "GEOMETRYCOLLECTION" {
		return Geometry{kindCollection: true, Collection: collection}, nil
	}
	if body == nil {
		return Geometry{}, fmt.Errorf("cql2: geometry %s has no coordinates", kind)
	}

	switch kind {
	case "POINT":
		tuples, err := tuplesOf(body)
		if err != nil {
			return Geometry{}, err
		}
		if len(tuples) != 1 {
			return Geometry{}, fmt.Errorf("cql2: POINT takes exactly one coordinate tuple")
		}
		layout, flat := flattenTuple(tuples[0], dim)
		return Geometry{Dim: dim, G: geom.NewPointFlat(layout, flat)}, nil

	case "LINESTRING":
		tuples, err := tuplesOf(body)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat := flattenTuples(tuples, dim)
		return Geometry{Dim: dim, G: geom.NewLineStringFlat(layout, flat)}, nil

	case "POLYGON":
		rings, err := ringsOf(body)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat, ends := flattenRings(rings, dim)
		return Geometry{Dim: dim, G: geom.NewPolygonFlat(layout, flat, ends)}, nil

	case "MULTIPOINT":
		tuples, err := tuplesOf(body)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat := flattenTuples(tuples, dim)
		return Geometry{Dim: dim, G: geom.NewMultiPointFlat(layout, flat)}, nil

	case "MULTILINESTRING":
		rings, err := ringsOf(body)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat, ends := flattenRings(rings, dim)
		return Geometry{Dim: dim, G: geom.NewMultiLineStringFlat(layout, flat, ends)}, nil

	case "MULTIPOLYGON":
		polys, err := polysOf(body)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat, endss := flattenPolys(polys, dim)
		return Geometry{Dim: dim, G: geom.NewMultiPolygonFlat(layout, flat, endss)}, nil

	default:
		return Geometry{}, fmt.Errorf("cql2: unknown geometry type %s", kind)
	}
}

func tuplesOf(body *geomNode) ([][]float64, error) {
	out := make([][]float64, 0, len(body.Nested)+1)
	if body.Numbers != nil {
		return [][]float64{body.Numbers}, nil
	}
	for _, n := range body.Nested {
		if n.Numbers == nil {
			// Tolerate the `MULTIPOINT((1 2),(3 4))` spelling by unwrapping
			// a single-element nested list down to its tuple.
			if len(n.Nested) == 1 && n.Nested[0].Numbers != nil {
				out = append(out, n.Nested[0].Numbers)
				continue
			}
			return nil, fmt.Errorf("cql2: expected a coordinate tuple")
		}
		out = append(out, n.Numbers)
	}
	return out, nil
}

func ringsOf(body *geomNode) ([][][]float64, error) {
	out := make([][][]float64, 0, len(body.Nested))
	for _, n := range body.Nested {
		tuples, err := tuplesOf(n)
		if err != nil {
			return nil, err
		}
		out = append(out, tuples)
	}
	return out, nil
}

func polysOf(body *geomNode) ([][][][]float64, error) {
	out := make([][][][]float64, 0, len(body.Nested))
	for _, n := range body.Nested {
		rings, err := ringsOf(n)
		if err != nil {
			return nil, err
		}
		out = append(out, rings)
	}
	return out, nil
}

func layoutFor(dim string, n int) geom.Layout {
	switch dim {
	case "Z":
		return geom.XYZ
	case "M":
		return geom.XYM
	case "ZM":
		return geom.XYZM
	default:
		switch n {
		case 3:
			return geom.XYZ
		case 4:
			return geom.XYZM
		default:
			return geom.XY
		}
	}
}

func flattenTuple(nums []float64, dim string) (geom.Layout, []float64) {
	return layoutFor(dim, len(nums)), nums
}

func flattenTuples(tuples [][]float64, dim string) (geom.Layout, []float64) {
	n := 2
	if len(tuples) > 0 {
		n = len(tuples[0])
	}
	layout := layoutFor(dim, n)
	flat := make([]float64, 0, len(tuples)*n)
	for _, t := range tuples {
		flat = append(flat, t...)
	}
	return layout, flat
}

func flattenRings(rings [][][]float64, dim string) (geom.Layout, []float64, []int) {
	n := 2
	if len(rings) > 0 && len(rings[0]) > 0 {
		n = len(rings[0][0])
	}
	layout := layoutFor(dim, n)
	var flat []float64
	ends := make([]int, 0, len(rings))
	for _, ring := range rings {
		for _, t := range ring {
			flat = append(flat, t...)
		}
		ends = append(ends, len(flat))
	}
	return layout, flat, ends
}

func flattenPolys(polys [][][][]float64, dim string) (geom.Layout, []float64, [][]int) {
	n := 2
	if len(polys) > 0 && len(polys[0]) > 0 && len(polys[0][0]) > 0 {
		n = len(polys[0][0][0])
	}
	layout := layoutFor(dim, n)
	var flat []float64
	endss := make([][]int, 0, len(polys))
	for _, rings := range polys {
		ends := make([]int, 0, len(rings))
		for _, ring := range rings {
			for _, t := range ring {
				flat = append(flat, t...)
			}
			ends = append(ends, len(flat))
		}
		endss = append(endss, ends)
	}
	return layout, flat, endss
}

// Geometry is a GeoJSON/WKT geometry value. It wraps go-geom's geom.T for
// everything but GeometryCollection, which is stored here as a slice of
// child geometries of this same type rather than as a geom.T.
type Geometry struct {
	Dim            string
	G              geom.T
	kindCollection bool
	Collection     []Geometry
}

func (Geometry) isExpr() {}

func (g Geometry) isCollection() bool { return g.kindCollection }

func unflatten(flat []float64, stride int) [][]float64 {
	out := make([][]float64, 0, len(flat)/stride)
	for i := 0; i+stride <= len(flat); i += stride {
		out = append(out, append([]float64(nil), flat[i:i+stride]...))
	}
	return out
}

func ringsFromFlat(flat []float64, ends []int, stride int) [][][]float64 {
	out := make([][][]float64, 0, len(ends))
	start := 0
	for _, end := range ends {
		out = append(out, unflatten(flat[start:end], stride))
		start = end
	}
	return out
}

// wktType returns the upper-case WKT keyword for this geometry.
func (g Geometry) wktType() string {
	if g.isCollection() {
		return "GEOMETRYCOLLECTION"
	}
	switch g.G.(type) {
	case *geom.Point:
		return "POINT"
	case *geom.LineString:
		return "LINESTRING"
	case *geom.Polygon:
		return "POLYGON"
	case *geom.MultiPoint:
		return "MULTIPOINT"
	case *geom.MultiLineString:
		return "MULTILINESTRING"
	case *geom.MultiPolygon:
		return "MULTIPOLYGON"
	default:
		return "GEOMETRY"
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func formatTuple(t []float64) string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = formatNumber(v)
	}
	return strings.Join(parts, " ")
}

func dimTagSuffix(dim string) string {
	if dim == "" {
		return ""
	}
	return " " + dim
}

// ToWKT renders the geometry as canonical WKT text, preserving an
// explicit Z/M/ZM dimensionality tag (or inferring Z when the stored
// stride is 3 and no tag was recorded).
func (g Geometry) ToWKT() (string, error) {
	dim := g.Dim
	if g.isCollection() {
		parts := make([]string, len(g.Collection))
		for i, child := range g.Collection {
			s, err := child.ToWKT()
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return fmt.Sprintf("GEOMETRYCOLLECTION(%s)", strings.Join(parts, ", ")), nil
	}

	switch v := g.G.(type) {
	case *geom.Point:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		return fmt.Sprintf("POINT%s(%s)", dimTagSuffix(dim), formatTuple(v.FlatCoords())), nil

	case *geom.LineString:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		tuples := unflatten(v.FlatCoords(), v.Stride())
		return fmt.Sprintf("LINESTRING%s(%s)", dimTagSuffix(dim), joinTuples(tuples)), nil

	case *geom.Polygon:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		rings := ringsFromFlat(v.FlatCoords(), v.Ends(), v.Stride())
		return fmt.Sprintf("POLYGON%s(%s)", dimTagSuffix(dim), joinRings(rings)), nil

	case *geom.MultiPoint:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		tuples := unflatten(v.FlatCoords(), v.Stride())
		return fmt.Sprintf("MULTIPOINT%s(%s)", dimTagSuffix(dim), joinTuples(tuples)), nil

	case *geom.MultiLineString:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		rings := ringsFromFlat(v.FlatCoords(), v.Ends(), v.Stride())
		return fmt.Sprintf("MULTILINESTRING%s(%s)", dimTagSuffix(dim), joinRings(rings)), nil

	case *geom.MultiPolygon:
		if dim == "" && v.Stride() == 3 {
			dim = "Z"
		}
		var polyParts []string
		for i := 0; i < v.NumPolygons(); i++ {
			p := v.Polygon(i)
			rings := ringsFromFlat(p.FlatCoords(), p.Ends(), p.Stride())
			polyParts = append(polyParts, fmt.Sprintf("(%s)", joinRings(rings)))
		}
		return fmt.Sprintf("MULTIPOLYGON%s(%s)", dimTagSuffix(dim), strings.Join(polyParts, ", ")), nil

	default:
		return "", fmt.Errorf("cql2: unsupported geometry value %T", g.G)
	}
}

func joinTuples(tuples [][]float64) string {
	parts := make([]string, len(tuples))
	for i, t := range tuples {
		parts[i] = formatTuple(t)
	}
	return strings.Join(parts, ", ")
}

func joinRings(rings [][][]float64) string {
	parts := make([]string, len(rings))
	for i, r := range rings {
		parts[i] = fmt.Sprintf("(%s)", joinTuples(r))
	}
	return strings.Join(parts, ", ")
}

// ToGeoJSON renders the geometry as a decoded GeoJSON object
// (type + coordinates, or type + geometries for a collection).
func (g Geometry) ToGeoJSON() (map[string]interface{}, error) {
	if g.isCollection() {
		geoms := make([]map[string]interface{}, len(g.Collection))
		for i, child := range g.Collection {
			cg, err := child.ToGeoJSON()
			if err != nil {
				return nil, err
			}
			geoms[i] = cg
		}
		return map[string]interface{}{"type": "GeometryCollection", "geometries": geoms}, nil
	}

	toIface := func(t []float64) []interface{} {
		out := make([]interface{}, len(t))
		for i, v := range t {
			out[i] = v
		}
		return out
	}
	tuplesToIface := func(tuples [][]float64) []interface{} {
		out := make([]interface{}, len(tuples))
		for i, t := range tuples {
			out[i] = toIface(t)
		}
		return out
	}
	ringsToIface := func(rings [][][]float64) []interface{} {
		out := make([]interface{}, len(rings))
		for i, r := range rings {
			out[i] = tuplesToIface(r)
		}
		return out
	}

	switch v := g.G.(type) {
	case *geom.Point:
		return map[string]interface{}{"type": "Point", "coordinates": toIface(v.FlatCoords())}, nil
	case *geom.LineString:
		tuples := unflatten(v.FlatCoords(), v.Stride())
		return map[string]interface{}{"type": "LineString", "coordinates": tuplesToIface(tuples)}, nil
	case *geom.Polygon:
		rings := ringsFromFlat(v.FlatCoords(), v.Ends(), v.Stride())
		return map[string]interface{}{"type": "Polygon", "coordinates": ringsToIface(rings)}, nil
	case *geom.MultiPoint:
		tuples := unflatten(v.FlatCoords(), v.Stride())
		return map[string]interface{}{"type": "MultiPoint", "coordinates": tuplesToIface(tuples)}, nil
	case *geom.MultiLineString:
		rings := ringsFromFlat(v.FlatCoords(), v.Ends(), v.Stride())
		return map[string]interface{}{"type": "MultiLineString", "coordinates": ringsToIface(rings)}, nil
	case *geom.MultiPolygon:
		polys := make([]interface{}, v.NumPolygons())
		for i := 0; i < v.NumPolygons(); i++ {
			p := v.Polygon(i)
			rings := ringsFromFlat(p.FlatCoords(), p.Ends(), p.Stride())
			polys[i] = ringsToIface(rings)
		}
		return map[string]interface{}{"type": "MultiPolygon", "coordinates": polys}, nil
	default:
		return nil, fmt.Errorf("cql2: unsupported geometry value %T", g.G)
	}
}

// geometryFromGeoJSON parses a decoded GeoJSON object (as produced by
// encoding/json) into a Geometry.
func geometryFromGeoJSON(m map[string]interface{}) (Geometry, error) {
	typ, _ := m["type"].(string)
	if typ == "GeometryCollection" {
		raw, _ := m["geometries"].([]interface{})
		children := make([]Geometry, 0, len(raw))
		for _, r := range raw {
			cm, ok := r.(map[string]interface{})
			if !ok {
				return Geometry{}, fmt.Errorf("cql2: invalid geometry in collection")
			}
			c, err := geometryFromGeoJSON(cm)
			if err != nil {
				return Geometry{}, err
			}
			children = append(children, c)
		}
		return Geometry{kindCollection: true, Collection: children}, nil
	}

	coords, ok := m["coordinates"]
	if !ok {
		return Geometry{}, fmt.Errorf("cql2: geometry missing coordinates")
	}

	toFloats := func(v interface{}) ([]float64, error) {
		arr, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("cql2: expected coordinate tuple")
		}
		out := make([]float64, len(arr))
		for i, n := range arr {
			f, ok := toFloat(n)
			if !ok {
				return nil, fmt.Errorf("cql2: non-numeric coordinate")
			}
			out[i] = f
		}
		return out, nil
	}

	switch typ {
	case "Point":
		tuple, err := toFloats(coords)
		if err != nil {
			return Geometry{}, err
		}
		layout, flat := flattenTuple(tuple, "")
		return Geometry{G: geom.NewPointFlat(layout, flat)}, nil

	case "LineString", "MultiPoint":
		raw, _ := coords.([]interface{})
		tuples := make([][]float64, len(raw))
		for i, r := range raw {
			t, err := toFloats(r)
			if err != nil {
				return Geometry{}, err
			}
			tuples[i] = t
		}
		layout, flat := flattenTuples(tuples, "")
		if typ == "LineString" {
			return Geometry{G: geom.NewLineStringFlat(layout, flat)}, nil
		}
		return Geometry{G: geom.NewMultiPointFlat(layout, flat)}, nil

	case "Polygon", "MultiLineString":
		raw, _ := coords.([]interface{})
		rings := make([][][]float64, len(raw))
		for i, ringRaw := range raw {
			ringArr, _ := ringRaw.([]interface{})
			ring := make([][]float64, len(ringArr))
			for j, r := range ringArr {
				t, err := toFloats(r)
				if err != nil {
					return Geometry{}, err
				}
				ring[j] = t
			}
			rings[i] = ring
		}
		layout, flat, ends := flattenRings(rings, "")
		if typ == "Polygon" {
			return Geometry{G: geom.NewPolygonFlat(layout, flat, ends)}, nil
		}
		return Geometry{G: geom.NewMultiLineStringFlat(layout, flat, ends)}, nil

	case "MultiPolygon":
		raw, _ := coords.([]interface{})
		polys := make([][][][]float64, len(raw))
		for i, polyRaw := range raw {
			ringsRaw, _ := polyRaw.([]interface{})
			rings := make([][][]float64, len(ringsRaw))
			for j, ringRaw := range ringsRaw {
				ringArr, _ := ringRaw.([]interface{})
				ring := make([][]float64, len(ringArr))
				for k, r := range ringArr {
					t, err := toFloats(r)
					if err != nil {
						return Geometry{}, err
					}
					ring[k] = t
				}
				rings[j] = ring
			}
			polys[i] = rings
		}
		layout, flat, endss := flattenPolys(polys, "")
		return Geometry{G: geom.NewMultiPolygonFlat(layout, flat, endss)}, nil

	default:
		return Geometry{}, fmt.Errorf("cql2: unknown geometry type %q", typ)
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
