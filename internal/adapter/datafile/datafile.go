// Package datafile reads and writes the JSON files that hand data from one
// stage to the next.
package datafile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/couchcryptid/precip-map/internal/domain"
)

var (
	// ErrInvalidManifest is wrapped when asset_ids.json is malformed.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrInvalidAssetData is wrapped when asset_data.json is malformed.
	ErrInvalidAssetData = errors.New("invalid asset data")
)

// WriteManifest atomically writes the manifest to path.
func WriteManifest(path string, m domain.Manifest) error {
	if m.AssetIDs == nil {
		m.AssetIDs = []domain.AssetID{}
	}
	return writeJSON(path, m)
}

// ReadManifest reads and validates a manifest.
func ReadManifest(path string) (domain.Manifest, error) {
	var m domain.Manifest
	if err := readJSON(path, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s: %w", ErrInvalidManifest, path, err)
	}
	if m.AssetIDs == nil {
		return domain.Manifest{}, fmt.Errorf("%w: %s: missing asset_ids", ErrInvalidManifest, path)
	}
	for i, id := range m.AssetIDs {
		if id == "" {
			return domain.Manifest{}, fmt.Errorf("%w: %s: asset_ids[%d] is empty", ErrInvalidManifest, path, i)
		}
	}
	return m, nil
}

// WriteAssetData atomically writes the combined data file to path.
func WriteAssetData(path string, d domain.AssetData) error {
	if d.Assets == nil {
		d.Assets = []domain.AssetRecord{}
	}
	return writeJSON(path, d)
}

// precipPresence distinguishes an absent average_precip from a zero one.
type precipPresence struct {
	Assets []struct {
		AveragePrecip *float64 `json:"average_precip"`
	} `json:"assets"`
}

// ReadAssetData reads the combined data file. Record geometry is not
// validated here; the renderer reports bad shapes per asset.
func ReadAssetData(path string) (domain.AssetData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AssetData{}, fmt.Errorf("%w: %s: %w", ErrInvalidAssetData, path, err)
	}
	var d domain.AssetData
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.AssetData{}, fmt.Errorf("%w: %s: %w", ErrInvalidAssetData, path, err)
	}
	if d.Assets == nil {
		return domain.AssetData{}, fmt.Errorf("%w: %s: missing assets", ErrInvalidAssetData, path)
	}
	var present precipPresence
	if err := json.Unmarshal(data, &present); err != nil {
		return domain.AssetData{}, fmt.Errorf("%w: %s: %w", ErrInvalidAssetData, path, err)
	}
	for i, rec := range d.Assets {
		if rec.ID == "" {
			return domain.AssetData{}, fmt.Errorf("%w: %s: assets[%d] has no id", ErrInvalidAssetData, path, i)
		}
		if present.Assets[i].AveragePrecip == nil {
			return domain.AssetData{}, fmt.Errorf("%w: %s: assets[%d] has no average_precip", ErrInvalidAssetData, path, i)
		}
	}
	return d, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// writeJSON writes through a temp file and rename so a reader never sees a
// partial file.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
