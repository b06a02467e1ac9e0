package placesapi

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/placemap/internal/model"
)

// decodePolygon decodes a GeoJSON Polygon or MultiPolygon into a
// model.Polygon holding the outer ring of the first polygon. The geometry
// may be an object or a JSON string containing one. null decodes to an
// empty polygon.
func decodePolygon(raw json.RawMessage) (model.Polygon, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return model.Polygon{Type: "Polygon"}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return model.Polygon{}, eris.Wrap(err, "decode polygon string")
		}
		raw = []byte(s)
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return model.Polygon{}, eris.Wrap(err, "decode polygon geojson")
	}

	var poly *geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		poly = t
	case *geom.MultiPolygon:
		if t.NumPolygons() > 0 {
			poly = t.Polygon(0)
		}
	default:
		return model.Polygon{}, eris.Errorf("unsupported geometry %T", g)
	}

	out := model.Polygon{Type: "Polygon"}
	if poly == nil || poly.NumLinearRings() == 0 {
		return out, nil
	}

	coords := poly.LinearRing(0).Coords()
	ring := make([]model.Coord, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			continue
		}
		ring = append(ring, model.Coord{c[0], c[1]})
	}
	out.Coordinates = [][]model.Coord{ring}
	return out, nil
}
