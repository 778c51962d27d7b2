package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/adapter/insight"
)

func newAssetsCmd(a *app) *cobra.Command {
	assets := &cobra.Command{
		Use:   "assets",
		Short: "Inspect assets stored in the asset service",
	}

	assets.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every asset visible to the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.RequireInsightCredentials(); err != nil {
				return err
			}

			list, err := insight.NewClient(a.cfg, a.metrics, a.logger).FindAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assets.")
				return nil
			}
			for _, asset := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", asset.ID, asset.Description)
			}
			return nil
		},
	})
	return assets
}
