// Package render builds the choropleth map document from loaded asset
// records and writes it as a self-contained HTML page.
package render

import (
	"fmt"
	"time"

	"github.com/couchcryptid/precip-map/internal/domain"
)

// Options are the fixed properties of the map document.
type Options struct {
	Title     string
	CenterLat float64
	CenterLon float64
	Zoom      int
	MapType   string
	APIKey    string
}

// Document is everything the HTML template needs to draw the map.
type Document struct {
	Options
	GeneratedAt time.Time
	Patches     []Patch
	Legend      []LegendEntry
}

// Patch is one filled, stroke-less polygon layer.
type Patch struct {
	AssetID   domain.AssetID `json:"id"`
	Precip    float64        `json:"precip"`
	FillColor string         `json:"color"`
	Lat       []float64      `json:"lat"`
	Lon       []float64      `json:"lon"`
}

// LegendEntry labels one color band of the scale.
type LegendEntry struct {
	Label string
	Color string
}

// Skipped is a record left off the map because its geometry is unusable.
type Skipped struct {
	AssetID domain.AssetID
	Err     error
}

// Build turns asset records into map patches, in record order. Records whose
// geometry fails validation are returned in skipped; the rest still render.
func Build(data domain.AssetData, scale domain.ColorScale, opts Options) (Document, []Skipped) {
	doc := Document{
		Options:     opts,
		GeneratedAt: clock.Now().UTC(),
		Patches:     make([]Patch, 0, len(data.Assets)),
		Legend:      Legend(scale),
	}

	var skipped []Skipped
	for _, rec := range data.Assets {
		ring, err := rec.Ring()
		if err != nil {
			skipped = append(skipped, Skipped{AssetID: rec.ID, Err: err})
			continue
		}
		doc.Patches = append(doc.Patches, Patch{
			AssetID:   rec.ID,
			Precip:    rec.AveragePrecip,
			FillColor: scale.Color(rec.AveragePrecip),
			Lat:       ring.Lat,
			Lon:       ring.Lon,
		})
	}
	return doc, skipped
}

// Legend lists the color bands from lowest to highest. The first band is
// the default color for values at or below the lowest threshold.
func Legend(scale domain.ColorScale) []LegendEntry {
	thresholds := scale.Thresholds()
	if len(thresholds) == 0 {
		return []LegendEntry{{Label: "all values", Color: domain.DefaultColor}}
	}

	entries := make([]LegendEntry, 0, len(thresholds)+1)
	entries = append(entries, LegendEntry{
		Label: fmt.Sprintf("≤ %g mm", thresholds[0].Value),
		Color: domain.DefaultColor,
	})
	for _, t := range thresholds {
		entries = append(entries, LegendEntry{
			Label: fmt.Sprintf("> %g mm", t.Value),
			Color: t.Color,
		})
	}
	return entries
}
