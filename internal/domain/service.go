package domain

import "context"

// AssetFinder looks up a single asset by id.
type AssetFinder interface {
	Find(ctx context.Context, id AssetID) (Asset, error)
}

// AssetService is the hosted asset and precipitation API.
type AssetService interface {
	AssetFinder

	// Create stores a new asset and returns it with its assigned id.
	Create(ctx context.Context, asset NewAsset) (Asset, error)

	// FindAll lists every asset visible to the credentials.
	FindAll(ctx context.Context) ([]Asset, error)

	// Destroy deletes an asset.
	Destroy(ctx context.Context, id AssetID) error

	// DailyPrecipitation returns accumulation statistics of daily
	// precipitation over the asset's area for the window.
	DailyPrecipitation(ctx context.Context, id AssetID, window Window) (PrecipitationStats, error)
}
