package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// AssetID is the opaque identifier the asset service assigns to an asset.
// The service may emit it as a JSON string or a JSON integer; both decode to
// the same value. It is always encoded as a JSON string.
type AssetID string

// UnmarshalJSON accepts a JSON string or number.
func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("asset id: null")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("asset id: %w", err)
		}
		*id = AssetID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("asset id: %w", err)
	}
	*id = AssetID(n.String())
	return nil
}

func (id AssetID) String() string { return string(id) }

// Shape is a GeoJSON geometry object. Coordinates stay raw so geometry
// returned by the service passes through each stage unchanged.
type Shape struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Asset is a named geographic region stored by the asset service.
type Asset struct {
	ID          AssetID `json:"id"`
	Description string  `json:"description"`
	Shape       Shape   `json:"shape"`
}

// NewAsset is the payload submitted to create an asset.
type NewAsset struct {
	Description string `json:"description"`
	Shape       Shape  `json:"shape"`
}

// PrecipitationStats are the accumulation statistics the service computes
// over a window of daily precipitation, in millimeters.
type PrecipitationStats struct {
	Mean float64  `json:"mean"`
	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Sum  *float64 `json:"sum,omitempty"`
}

// Window is an inclusive date range for precipitation queries.
type Window struct {
	Start time.Time
	End   time.Time
}

// DateLayout is the day format used for windows on the wire and in config.
const DateLayout = "2006-01-02"

// ParseWindow parses two YYYY-MM-DD dates. Start must not be after end.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Window{}, fmt.Errorf("parse window start %q: %w", start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Window{}, fmt.Errorf("parse window end %q: %w", end, err)
	}
	if s.After(e) {
		return Window{}, fmt.Errorf("window start %s is after end %s", start, end)
	}
	return Window{Start: s, End: e}, nil
}

func (w Window) String() string {
	return w.Start.Format(DateLayout) + ".." + w.End.Format(DateLayout)
}

// Manifest is the hand-off from ingestion to loading (asset_ids.json).
type Manifest struct {
	AssetIDs []AssetID `json:"asset_ids"`
}

// AssetRecord is one asset's precipitation summary with its geometry.
type AssetRecord struct {
	ID            AssetID `json:"id"`
	AveragePrecip float64 `json:"average_precip"`
	Shape         Shape   `json:"shape"`
}

// Ring returns the drawable outer ring of the record's geometry. Errors
// identify the asset.
func (r AssetRecord) Ring() (Ring, error) {
	ring, err := r.Shape.OuterRing()
	if err != nil {
		return Ring{}, fmt.Errorf("asset %s: %w", r.ID, err)
	}
	return ring, nil
}

// AssetData is the hand-off from loading to rendering (asset_data.json).
type AssetData struct {
	Assets []AssetRecord `json:"assets"`
}
