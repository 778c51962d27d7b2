// Command precipmap turns GeoJSON regions into a precipitation choropleth.
//
// The three stages run in order and hand off through local files:
//
//	precipmap ingest   # *geo.json    -> asset_ids.json
//	precipmap load     # asset_ids    -> asset_data.json
//	precipmap render   # asset_data   -> county_map.html
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/config"
	"github.com/couchcryptid/precip-map/internal/observability"
)

// app holds the dependencies shared by every subcommand. It is populated in
// the root command's PersistentPreRunE.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics

	envFile      string
	dataDir      string
	manifestPath string
	dataPath     string
	outputPath   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&app{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "precipmap",
		Short:        "Map average precipitation over GeoJSON regions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	root.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "directory holding *geo.json input (default $DATA_DIR)")
	root.PersistentFlags().StringVar(&a.manifestPath, "manifest", "", "asset id manifest path (default $MANIFEST_PATH)")
	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "asset data path (default $ASSET_DATA_PATH)")
	root.PersistentFlags().StringVar(&a.outputPath, "output", "", "map output path (default $OUTPUT_PATH)")

	root.AddCommand(
		newIngestCmd(a),
		newLoadCmd(a),
		newRenderCmd(a),
		newAssetsCmd(a),
		newValidateCmd(a),
	)
	return root
}

// setup loads configuration and builds the logger and metrics. Flags take
// precedence over the environment for file locations.
func (a *app) setup() error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.manifestPath != "" {
		cfg.ManifestPath = a.manifestPath
	}
	if a.dataPath != "" {
		cfg.AssetDataPath = a.dataPath
	}
	if a.outputPath != "" {
		cfg.OutputPath = a.outputPath
	}

	a.cfg = cfg
	a.logger = observability.NewLogger(cfg)
	if a.metrics == nil {
		a.metrics = observability.NewMetrics()
	}
	return nil
}

// pushMetrics sends the run's metrics to the Pushgateway when one is configured.
func (a *app) pushMetrics(ctx context.Context, stage string) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	if err := observability.Push(ctx, a.cfg.PushgatewayURL, "precipmap_"+stage); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}
