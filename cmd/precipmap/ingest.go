package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/adapter/insight"
	"github.com/couchcryptid/precip-map/internal/pipeline"
)

func newIngestCmd(a *app) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Create an asset for each GeoJSON region and write the id manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireInsightCredentials(); err != nil {
				return err
			}

			client := insight.NewClient(a.cfg, a.metrics, a.logger)
			ingestor := pipeline.NewIngestor(client, cmd.OutOrStdout(), a.logger, a.metrics)

			_, err := ingestor.Run(cmd.Context(), pipeline.IngestOptions{
				DataDir:      a.cfg.DataDir,
				Pattern:      a.cfg.GeoJSONPattern,
				ManifestPath: a.cfg.ManifestPath,
				Purge:        purge,
			})
			a.pushMetrics(cmd.Context(), pipeline.StageIngest)
			return err
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", true, "destroy every existing asset before ingesting")
	return cmd
}
