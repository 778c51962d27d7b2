package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cli/browser"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/precip-map/internal/adapter/httpadapter"
	"github.com/couchcryptid/precip-map/internal/config"
	"github.com/couchcryptid/precip-map/internal/pipeline"
	"github.com/couchcryptid/precip-map/internal/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		noOpen bool
		watch  bool
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw the precipitation map from the loaded asset data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opener pipeline.Opener
			if !noOpen && !watch {
				opener = browser.OpenFile
			}
			renderer := pipeline.NewRenderer(a.cfg.ColorScale, renderOptions(a.cfg), opener, a.logger, a.metrics)

			if watch {
				return runWatch(cmd, a, renderer)
			}

			if _, err := renderer.Run(cmd.Context(), a.cfg.AssetDataPath, a.cfg.OutputPath); err != nil {
				a.pushMetrics(cmd.Context(), pipeline.StageRender)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Map saved to %s\n", a.cfg.OutputPath)
			if err := renderer.Open(a.cfg.OutputPath); err != nil {
				a.logger.Warn("could not open map in browser", "path", a.cfg.OutputPath, "error", err)
			}
			a.pushMetrics(cmd.Context(), pipeline.StageRender)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noOpen, "no-open", false, "do not open the map in a browser")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-render when the data file changes and serve the map over HTTP")
	return cmd
}

func renderOptions(cfg *config.Config) render.Options {
	return render.Options{
		Title:     cfg.MapTitle,
		CenterLat: cfg.MapCenterLat,
		CenterLon: cfg.MapCenterLon,
		Zoom:      cfg.MapZoom,
		MapType:   cfg.MapType,
		APIKey:    cfg.MapAPIKey,
	}
}

// runWatch serves the map and re-renders it on every data change until the
// command's context is cancelled.
func runWatch(cmd *cobra.Command, a *app, renderer *pipeline.Renderer) error {
	ctx := cmd.Context()

	if _, err := renderer.Run(ctx, a.cfg.AssetDataPath, a.cfg.OutputPath); err != nil {
		a.logger.Warn("initial render failed, waiting for data", "error", err)
	}

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.cfg.OutputPath, renderer, a.logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	_, _ = color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
		"Watching %s. Map served on %s. Press Ctrl+C to stop.\n", a.cfg.AssetDataPath, a.cfg.HTTPAddr)

	watchErr := renderer.Watch(ctx, a.cfg.AssetDataPath, a.cfg.OutputPath)

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	a.logger.Info("shutdown complete")
	return watchErr
}
