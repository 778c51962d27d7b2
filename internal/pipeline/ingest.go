package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/couchcryptid/precip-map/internal/adapter/datafile"
	"github.com/couchcryptid/precip-map/internal/adapter/geojson"
	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
)

var failColor = color.New(color.FgRed)

// IngestOptions locate the input files and the manifest.
type IngestOptions struct {
	DataDir      string
	Pattern      string
	ManifestPath string
	// Purge destroys every existing asset before creating new ones.
	Purge bool
}

// FileError is an input file that could not be turned into an asset.
type FileError struct {
	File string
	Err  error
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

func (e FileError) Unwrap() error { return e.Err }

// IngestResult lists the created asset ids in file order and the files skipped.
type IngestResult struct {
	AssetIDs []domain.AssetID
	Failed   []FileError
}

// Ingestor turns GeoJSON region files into assets and records their ids.
type Ingestor struct {
	store   AssetStore
	out     io.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewIngestor creates an Ingestor. Progress lines go to out.
func NewIngestor(store AssetStore, out io.Writer, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{store: store, out: out, logger: logger, metrics: metrics}
}

// Run creates one asset per input file and writes the manifest for those
// that succeeded. It returns an *IncompleteError when any file was skipped.
func (i *Ingestor) Run(ctx context.Context, opts IngestOptions) (IngestResult, error) {
	start := time.Now()
	defer func() {
		i.metrics.StageDuration.WithLabelValues(StageIngest).Observe(time.Since(start).Seconds())
	}()

	if opts.Purge {
		if err := i.purge(ctx); err != nil {
			return IngestResult{}, err
		}
	}

	files, err := geojson.Glob(opts.DataDir, opts.Pattern)
	if err != nil {
		return IngestResult{}, err
	}
	if len(files) == 0 {
		i.logger.Warn("no input files matched", "dir", opts.DataDir, "pattern", opts.Pattern)
	}

	result := IngestResult{AssetIDs: make([]domain.AssetID, 0, len(files))}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		asset, err := i.ingestFile(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			fe := FileError{File: filepath.Base(file), Err: err}
			result.Failed = append(result.Failed, fe)
			i.metrics.AssetsFailed.WithLabelValues(StageIngest).Inc()
			i.logger.Warn("skipping input file", "file", fe.File, "error", err)
			_, _ = failColor.Fprintf(i.out, "skipped %s\n", fe.Error())
			continue
		}

		result.AssetIDs = append(result.AssetIDs, asset.ID)
		i.metrics.AssetsProcessed.WithLabelValues(StageIngest).Inc()
		fmt.Fprintf(i.out, "%s: %s\n", asset.ID, asset.Description)
	}

	if err := datafile.WriteManifest(opts.ManifestPath, domain.Manifest{AssetIDs: result.AssetIDs}); err != nil {
		return result, err
	}
	i.logger.Info("ingest complete",
		"created", len(result.AssetIDs),
		"failed", len(result.Failed),
		"manifest", opts.ManifestPath,
	)

	if len(result.Failed) > 0 {
		return result, &IncompleteError{Stage: StageIngest, Failed: len(result.Failed), Total: len(files)}
	}
	return result, nil
}

func (i *Ingestor) ingestFile(ctx context.Context, path string) (domain.Asset, error) {
	feature, err := geojson.ReadFeature(path)
	if err != nil {
		return domain.Asset{}, err
	}
	return i.store.Create(ctx, domain.NewAsset{Description: feature.Name, Shape: feature.Shape})
}

// purge destroys every asset visible to the credentials.
func (i *Ingestor) purge(ctx context.Context) error {
	assets, err := i.store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("purge: list assets: %w", err)
	}
	for _, a := range assets {
		if err := i.store.Destroy(ctx, a.ID); err != nil {
			return fmt.Errorf("purge: destroy asset %s: %w", a.ID, err)
		}
	}
	i.logger.Info("purged existing assets", "count", len(assets))
	return nil
}
