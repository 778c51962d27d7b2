package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidGeometry is wrapped by every geometry validation failure.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Ring holds a polygon ring as parallel latitude and longitude slices, one
// entry per vertex in source order.
type Ring struct {
	Lat []float64
	Lon []float64
}

// Len returns the vertex count.
func (r Ring) Len() int { return len(r.Lat) }

// OuterRing returns the outer ring of the first polygon. Holes and any
// further polygons are ignored.
func (s Shape) OuterRing() (Ring, error) {
	if len(s.Coordinates) == 0 || string(s.Coordinates) == "null" {
		return Ring{}, fmt.Errorf("%w: missing coordinates", ErrInvalidGeometry)
	}

	switch s.Type {
	case "Polygon", "MultiPolygon":
		g, err := decodeGeometry(s.Type, s.Coordinates)
		if err != nil {
			return Ring{}, fmt.Errorf("%w: decode %s coordinates: %v", ErrInvalidGeometry, s.Type, err)
		}
		return outerRing(g)
	case "":
		// Untyped geometry: infer from nesting depth.
		for _, typ := range []string{"MultiPolygon", "Polygon"} {
			if g, err := decodeGeometry(typ, s.Coordinates); err == nil {
				return outerRing(g)
			}
		}
		return Ring{}, fmt.Errorf("%w: coordinates are neither Polygon nor MultiPolygon", ErrInvalidGeometry)
	default:
		return Ring{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidGeometry, s.Type)
	}
}

// Validate reports whether the shape has a drawable outer ring.
func (s Shape) Validate() error {
	_, err := s.OuterRing()
	return err
}

func decodeGeometry(typ string, coords json.RawMessage) (orb.Geometry, error) {
	data, err := json.Marshal(Shape{Type: typ, Coordinates: coords})
	if err != nil {
		return nil, err
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, err
	}
	return g.Coordinates, nil
}

func outerRing(g orb.Geometry) (Ring, error) {
	var poly orb.Polygon
	switch v := g.(type) {
	case orb.Polygon:
		poly = v
	case orb.MultiPolygon:
		if len(v) == 0 {
			return Ring{}, fmt.Errorf("%w: no polygons", ErrInvalidGeometry)
		}
		poly = v[0]
	default:
		return Ring{}, fmt.Errorf("%w: unsupported geometry %s", ErrInvalidGeometry, g.GeoJSONType())
	}

	if len(poly) == 0 {
		return Ring{}, fmt.Errorf("%w: polygon has no rings", ErrInvalidGeometry)
	}
	outer := poly[0]
	if len(outer) == 0 {
		return Ring{}, fmt.Errorf("%w: outer ring is empty", ErrInvalidGeometry)
	}

	ring := Ring{
		Lat: make([]float64, 0, len(outer)),
		Lon: make([]float64, 0, len(outer)),
	}
	for _, pt := range outer {
		ring.Lon = append(ring.Lon, pt.Lon())
		ring.Lat = append(ring.Lat, pt.Lat())
	}
	return ring, nil
}
