package datafile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-map/internal/domain"
)

func TestManifest_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_ids.json")
	want := domain.Manifest{AssetIDs: []domain.AssetID{"17", "a-3", "9", "17"}}

	require.NoError(t, WriteManifest(path, want))
	got, err := ReadManifest(path)
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteManifest_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_ids.json")
	require.NoError(t, WriteManifest(path, domain.Manifest{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"asset_ids":[]}`, string(data))
}

func TestReadManifest_IntegerIDs(t *testing.T) {
	path := writeFile(t, "asset_ids.json", `{"asset_ids":[101,102]}`)

	m, err := ReadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []domain.AssetID{"101", "102"}, m.AssetIDs)
}

func TestReadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"not json", `{asset_ids`, "asset_ids.json"},
		{"missing key", `{"ids":[1]}`, "missing asset_ids"},
		{"empty id", `{"asset_ids":["1",""]}`, "asset_ids[1] is empty"},
		{"null id", `{"asset_ids":[null]}`, "asset id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "asset_ids.json", tt.content)
			_, err := ReadManifest(path)
			require.ErrorIs(t, err, ErrInvalidManifest)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestReadManifest_MissingFile(t *testing.T) {
	_, err := ReadManifest(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrInvalidManifest)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAssetData_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_data.json")
	want := domain.AssetData{Assets: []domain.AssetRecord{
		{
			ID:            "1",
			AveragePrecip: 275,
			Shape:         domain.Shape{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0],[0,1],[1,1]]]`)},
		},
		{
			ID:            "2",
			AveragePrecip: 90.25,
			Shape:         domain.Shape{Type: "MultiPolygon", Coordinates: json.RawMessage(`[[[[1,1],[1,2],[2,2]]]]`)},
		},
	}}

	require.NoError(t, WriteAssetData(path, want))
	got, err := ReadAssetData(path)
	require.NoError(t, err)

	require.Len(t, got.Assets, 2)
	for i := range want.Assets {
		assert.Equal(t, want.Assets[i].ID, got.Assets[i].ID)
		assert.Equal(t, want.Assets[i].AveragePrecip, got.Assets[i].AveragePrecip)
		assert.Equal(t, want.Assets[i].Shape.Type, got.Assets[i].Shape.Type)
		assert.JSONEq(t, string(want.Assets[i].Shape.Coordinates), string(got.Assets[i].Shape.Coordinates))
	}
}

func TestWriteAssetData_Format(t *testing.T) {
	path := filepath.Join(t.TempDir(), "asset_data.json")
	require.NoError(t, WriteAssetData(path, domain.AssetData{Assets: []domain.AssetRecord{{
		ID:            "7",
		AveragePrecip: 120.5,
		Shape:         domain.Shape{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0]]]`)},
	}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"assets":[{"id":"7","average_precip":120.5,"shape":{"type":"Polygon","coordinates":[[[0,0]]]}}]}`,
		string(data))
}

func TestReadAssetData_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{"missing key", `{"records":[]}`, "missing assets"},
		{"missing id", `{"assets":[{"average_precip":1}]}`, "assets[0] has no id"},
		{"missing precip", `{"assets":[{"id":1,"average_precip":0},{"id":2,"shape":null}]}`, "assets[1] has no average_precip"},
		{"null precip", `{"assets":[{"id":1,"average_precip":null}]}`, "assets[0] has no average_precip"},
		{"bad precip", `{"assets":[{"id":1,"average_precip":"wet"}]}`, "asset_data.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "asset_data.json", tt.content)
			_, err := ReadAssetData(path)
			require.ErrorIs(t, err, ErrInvalidAssetData)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestWriteManifest_UnwritableDir(t *testing.T) {
	err := WriteManifest(filepath.Join(t.TempDir(), "missing", "asset_ids.json"), domain.Manifest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
