package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/precip-map/internal/adapter/datafile"
	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
	"github.com/couchcryptid/precip-map/internal/render"
)

// Opener shows a rendered file to the user, e.g. browser.OpenFile.
type Opener func(path string) error

// Renderer draws the map from the loaded asset data.
type Renderer struct {
	scale   domain.ColorScale
	opts    render.Options
	open    Opener
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewRenderer creates a Renderer. open may be nil when the map is never opened.
func NewRenderer(scale domain.ColorScale, opts render.Options, open Opener, logger *slog.Logger, metrics *observability.Metrics) *Renderer {
	return &Renderer{
		scale:   scale,
		opts:    opts,
		open:    open,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a map has been written.
func (r *Renderer) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("map has not been rendered yet")
	}
	return nil
}

// Run reads dataPath and writes the map to outputPath. Records with unusable
// geometry are logged and left off the map.
func (r *Renderer) Run(_ context.Context, dataPath, outputPath string) (render.Document, error) {
	start := time.Now()
	defer func() {
		r.metrics.StageDuration.WithLabelValues(StageRender).Observe(time.Since(start).Seconds())
	}()

	data, err := datafile.ReadAssetData(dataPath)
	if err != nil {
		return render.Document{}, err
	}

	doc, skipped := render.Build(data, r.scale, r.opts)
	for _, s := range skipped {
		r.metrics.AssetsFailed.WithLabelValues(StageRender).Inc()
		r.logger.Warn("skipping asset with invalid geometry", "asset_id", s.AssetID, "error", s.Err)
	}

	if err := render.WriteFile(outputPath, doc); err != nil {
		return doc, err
	}

	r.metrics.AssetsProcessed.WithLabelValues(StageRender).Add(float64(len(doc.Patches)))
	r.metrics.RenderedShapes.Set(float64(len(doc.Patches)))
	r.ready.Store(true)
	r.logger.Info("map rendered", "shapes", len(doc.Patches), "skipped", len(skipped), "output", outputPath)
	return doc, nil
}

// Open shows the rendered map. It is a no-op without an Opener.
func (r *Renderer) Open(outputPath string) error {
	if r.open == nil {
		return nil
	}
	return r.open(outputPath)
}
