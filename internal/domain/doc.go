// Package domain models county assets, their precipitation summaries, and the
// choropleth scale used to shade them.
//
// # Data Flow
//
// Three stages hand data to each other through files only:
//
//	*geo.json  --ingest-->  asset_ids.json  --load-->  asset_data.json  --render-->  county_map.html
//
// The manifest carries only asset identifiers. The combined data file carries
// each asset's id, mean daily precipitation over the query window, and the
// geometry the asset service stored for it.
//
// # Identifiers
//
// The asset service has returned ids both as strings and as integers. [AssetID]
// accepts either and always encodes as a string, so a manifest written by this
// package reads back to the same sequence.
//
// # Geometry
//
// Shapes are GeoJSON Polygon or MultiPolygon objects with [lon, lat]
// positions. Only the outer ring of the first polygon is drawn; holes and
// additional polygons are ignored. Malformed shapes fail with
// [ErrInvalidGeometry] instead of an index fault.
//
// # Color Scale
//
// A [ColorScale] is an ascending list of (threshold, color) pairs. A value
// takes the color of the highest threshold it strictly exceeds:
//
//	v <= 100       -> #FFFFFF (default)
//	100 < v <= 150 -> #DBDCF6
//	...
//	v > 350        -> #282ECB
//
// A value equal to a threshold keeps the previous color.
package domain
