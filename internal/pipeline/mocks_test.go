package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-map/internal/domain"
)

// --- mocks ---

type mockStore struct {
	existing  []domain.Asset
	listErr   error
	createErr map[string]error
	created   []domain.NewAsset
	destroyed []domain.AssetID
	nextID    int
}

func (m *mockStore) Create(_ context.Context, asset domain.NewAsset) (domain.Asset, error) {
	if err := m.createErr[asset.Description]; err != nil {
		return domain.Asset{}, err
	}
	m.nextID++
	m.created = append(m.created, asset)
	return domain.Asset{ID: domain.AssetID(strconv.Itoa(m.nextID)), Description: asset.Description, Shape: asset.Shape}, nil
}

func (m *mockStore) FindAll(_ context.Context) ([]domain.Asset, error) {
	return m.existing, m.listErr
}

func (m *mockStore) Destroy(_ context.Context, id domain.AssetID) error {
	m.destroyed = append(m.destroyed, id)
	return nil
}

type mockService struct {
	assets map[domain.AssetID]domain.Asset
	means  map[domain.AssetID]float64
	errs   map[domain.AssetID]error
	window domain.Window
}

func (m *mockService) Find(_ context.Context, id domain.AssetID) (domain.Asset, error) {
	a, ok := m.assets[id]
	if !ok {
		return domain.Asset{}, errors.New("asset not found")
	}
	return a, nil
}

func (m *mockService) DailyPrecipitation(_ context.Context, id domain.AssetID, window domain.Window) (domain.PrecipitationStats, error) {
	m.window = window
	if err := m.errs[id]; err != nil {
		return domain.PrecipitationStats{}, err
	}
	return domain.PrecipitationStats{Mean: m.means[id]}, nil
}

type mockPublisher struct {
	mu      sync.Mutex
	records []domain.AssetRecord
	window  domain.Window
	err     error
}

func (m *mockPublisher) PublishBatch(_ context.Context, window domain.Window, records []domain.AssetRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.window = window
	m.records = append(m.records, records...)
	return nil
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func polygon(coords string) domain.Shape {
	return domain.Shape{Type: "Polygon", Coordinates: json.RawMessage(coords)}
}

func writeGeoJSON(t *testing.T, dir, file, name, coords string) {
	t.Helper()
	doc := `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"name":` +
		strconv.Quote(name) + `},"geometry":{"type":"Polygon","coordinates":` + coords + `}}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(doc), 0o600))
}
