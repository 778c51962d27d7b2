// Package geojson reads county boundary files.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/precip-map/internal/domain"
)

// ErrInvalidFeature is wrapped when a file lacks a usable named feature.
var ErrInvalidFeature = errors.New("invalid geojson feature")

// Feature is the named geometry taken from a boundary file.
type Feature struct {
	Name  string
	Shape domain.Shape
}

// Glob returns the files in dir matching pattern, sorted by name.
func Glob(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadFeature reads the first feature of a FeatureCollection (or a bare
// Feature) and checks that it has a name and a drawable geometry.
func ReadFeature(path string) (Feature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Feature{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseFeature(data)
}

// ParseFeature is ReadFeature over bytes already in memory.
func ParseFeature(data []byte) (Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Feature{}, fmt.Errorf("%w: decode: %v", ErrInvalidFeature, err)
	}

	var f *geojson.Feature
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return Feature{}, fmt.Errorf("%w: decode: %v", ErrInvalidFeature, err)
		}
		if len(fc.Features) == 0 {
			return Feature{}, fmt.Errorf("%w: no features", ErrInvalidFeature)
		}
		f = fc.Features[0]
	case "Feature":
		var err error
		if f, err = geojson.UnmarshalFeature(data); err != nil {
			return Feature{}, fmt.Errorf("%w: decode: %v", ErrInvalidFeature, err)
		}
	default:
		return Feature{}, fmt.Errorf("%w: unexpected type %q", ErrInvalidFeature, head.Type)
	}

	name := strings.TrimSpace(f.Properties.MustString("name", ""))
	if name == "" {
		return Feature{}, fmt.Errorf("%w: properties.name is missing", ErrInvalidFeature)
	}
	if f.Geometry == nil {
		return Feature{}, fmt.Errorf("%w: %s has no geometry", ErrInvalidFeature, name)
	}

	shape, err := toShape(f)
	if err != nil {
		return Feature{}, fmt.Errorf("%w: %s: encode geometry: %v", ErrInvalidFeature, name, err)
	}
	if err := shape.Validate(); err != nil {
		return Feature{}, fmt.Errorf("%w: %s: %w", ErrInvalidFeature, name, err)
	}

	return Feature{Name: name, Shape: shape}, nil
}

// toShape keeps the geometry in wire form so the manifest carries the
// coordinates exactly as GeoJSON.
func toShape(f *geojson.Feature) (domain.Shape, error) {
	data, err := json.Marshal(geojson.NewGeometry(f.Geometry))
	if err != nil {
		return domain.Shape{}, err
	}
	var shape domain.Shape
	if err := json.Unmarshal(data, &shape); err != nil {
		return domain.Shape{}, err
	}
	return shape, nil
}
