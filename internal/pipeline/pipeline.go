// Package pipeline runs the three stages of the precipitation map: ingest
// GeoJSON regions as assets, load precipitation statistics for them, and
// render the results as a map.
package pipeline

import (
	"context"
	"fmt"

	"github.com/couchcryptid/precip-map/internal/domain"
)

// Stage names used in logs and metric labels.
const (
	StageIngest = "ingest"
	StageLoad   = "load"
	StageRender = "render"
)

// AssetStore creates and removes assets during ingestion.
type AssetStore interface {
	Create(ctx context.Context, asset domain.NewAsset) (domain.Asset, error)
	FindAll(ctx context.Context) ([]domain.Asset, error)
	Destroy(ctx context.Context, id domain.AssetID) error
}

// PrecipitationSource computes precipitation statistics for an asset.
type PrecipitationSource interface {
	DailyPrecipitation(ctx context.Context, id domain.AssetID, window domain.Window) (domain.PrecipitationStats, error)
}

// RecordPublisher forwards loaded records to downstream consumers.
type RecordPublisher interface {
	PublishBatch(ctx context.Context, window domain.Window, records []domain.AssetRecord) error
}

// IncompleteError reports that a stage finished but left some items out.
// Its output file was still written for the items that succeeded.
type IncompleteError struct {
	Stage  string
	Failed int
	Total  int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %d of %d items failed", e.Stage, e.Failed, e.Total)
}
