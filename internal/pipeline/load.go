package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/couchcryptid/precip-map/internal/adapter/datafile"
	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
)

// Loader fetches precipitation statistics for every asset in the manifest.
type Loader struct {
	finder    domain.AssetFinder
	precip    PrecipitationSource
	publisher RecordPublisher
	window    domain.Window
	out       io.Writer
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewLoader creates a Loader. publisher may be nil.
func NewLoader(finder domain.AssetFinder, precip PrecipitationSource, publisher RecordPublisher, window domain.Window, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) *Loader {
	return &Loader{
		finder:    finder,
		precip:    precip,
		publisher: publisher,
		window:    window,
		out:       out,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run reads the manifest, loads each asset in order, and writes the
// combined data file. Assets whose lookups fail are logged and skipped.
func (l *Loader) Run(ctx context.Context, manifestPath, dataPath string) (domain.AssetData, error) {
	start := time.Now()
	defer func() {
		l.metrics.StageDuration.WithLabelValues(StageLoad).Observe(time.Since(start).Seconds())
	}()

	manifest, err := datafile.ReadManifest(manifestPath)
	if err != nil {
		return domain.AssetData{}, err
	}

	data := domain.AssetData{Assets: make([]domain.AssetRecord, 0, len(manifest.AssetIDs))}
	for _, id := range manifest.AssetIDs {
		rec, desc, err := l.loadAsset(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return data, ctx.Err()
			}
			l.metrics.AssetsFailed.WithLabelValues(StageLoad).Inc()
			l.logger.Warn("skipping asset", "asset_id", id, "error", err)
			continue
		}
		data.Assets = append(data.Assets, rec)
		l.metrics.AssetsProcessed.WithLabelValues(StageLoad).Inc()
		fmt.Fprintf(l.out, "%s: %.2f mm\n", desc, rec.AveragePrecip)
	}

	if err := datafile.WriteAssetData(dataPath, data); err != nil {
		return data, err
	}
	l.logger.Info("load complete",
		"loaded", len(data.Assets),
		"skipped", len(manifest.AssetIDs)-len(data.Assets),
		"window", l.window.String(),
		"output", dataPath,
	)

	if l.publisher != nil && len(data.Assets) > 0 {
		if err := l.publisher.PublishBatch(ctx, l.window, data.Assets); err != nil {
			return data, err
		}
		l.metrics.MessagesProduced.Add(float64(len(data.Assets)))
	}
	return data, nil
}

func (l *Loader) loadAsset(ctx context.Context, id domain.AssetID) (domain.AssetRecord, string, error) {
	asset, err := l.finder.Find(ctx, id)
	if err != nil {
		return domain.AssetRecord{}, "", err
	}
	stats, err := l.precip.DailyPrecipitation(ctx, id, l.window)
	if err != nil {
		return domain.AssetRecord{}, "", err
	}
	return domain.AssetRecord{
		ID:            id,
		AveragePrecip: stats.Mean,
		Shape:         asset.Shape,
	}, asset.Description, nil
}
