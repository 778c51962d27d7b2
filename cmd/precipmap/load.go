package main

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/adapter/insight"
	"github.com/couchcryptid/precip-map/internal/adapter/kafka"
	"github.com/couchcryptid/precip-map/internal/pipeline"
)

func newLoadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Fetch average precipitation for every asset in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireInsightCredentials(); err != nil {
				return err
			}

			client := insight.NewClient(a.cfg, a.metrics, a.logger)
			finder := insight.NewCachedFinder(client, a.cfg.InsightCacheSize, a.metrics)

			var publisher pipeline.RecordPublisher
			if a.cfg.KafkaEnabled {
				writer := kafka.NewWriter(a.cfg, a.logger)
				defer func() {
					if err := writer.Close(); err != nil {
						a.logger.Error("kafka writer close error", "error", err)
					}
				}()
				publisher = writer
				a.logger.Info("publishing records to kafka", "topic", a.cfg.KafkaTopic, "brokers", a.cfg.KafkaBrokers)
			}

			loader := pipeline.NewLoader(finder, client, publisher, a.cfg.Window, cmd.OutOrStdout(), a.logger, a.metrics)
			_, err := loader.Run(cmd.Context(), a.cfg.ManifestPath, a.cfg.AssetDataPath)
			a.pushMetrics(cmd.Context(), pipeline.StageLoad)
			return err
		},
	}
}
