package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// MultiPolygon represents a PostGIS MultiPolygon geometry.
// It stores coordinates in GeoJSON format: [polygons][rings][points][lon,lat]
// SRID 4326 (WGS84) is used for lat/lng coordinates.
// Farm boundaries are stored exclusively as multipolygons; the client submits
// them as WKT and the database converts with ST_GeomFromText.
type MultiPolygon struct {
	Coordinates [][][][2]float64 // GeoJSON coordinate structure for MultiPolygon
	SRID        int              // Spatial Reference ID (default: 4326)
}

// Scan implements sql.Scanner interface for reading multipolygon geometry from database.
// PostGIS returns geometry data which we parse as GeoJSON.
// This is typically called on rows selected with ST_AsGeoJSON.
func (mp *MultiPolygon) Scan(value interface{}) error {
	if value == nil {
		return nil
	}

	// PostGIS with ST_AsGeoJSON returns JSON as []byte or string depending on driver path
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to scan MultiPolygon: expected []byte or string, got %T", value)
	}

	// Parse GeoJSON geometry structure
	var geom struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(bytes, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal multipolygon geometry: %w", err)
	}

	if geom.Type != "MultiPolygon" {
		return fmt.Errorf("expected MultiPolygon type, got %s", geom.Type)
	}

	mp.Coordinates = geom.Coordinates
	mp.SRID = 4326 // Default to WGS84

	return nil
}

// Value implements driver.Valuer interface for writing multipolygon geometry to database.
// Returns GeoJSON string to be used with ST_GeomFromGeoJSON in raw SQL queries.
func (mp MultiPolygon) Value() (driver.Value, error) {
	if len(mp.Coordinates) == 0 {
		return nil, nil
	}

	// Convert to GeoJSON format
	geom := map[string]interface{}{
		"type":        "MultiPolygon",
		"coordinates": mp.Coordinates,
	}

	geoJSON, err := json.Marshal(geom)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal multipolygon to GeoJSON: %w", err)
	}

	// Return as string for use with ST_GeomFromGeoJSON
	return string(geoJSON), nil
}

// MarshalJSON implements json.Marshaler for API responses.
// Returns GeoJSON-compliant format for frontend consumption.
func (mp MultiPolygon) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}{
		Type:        "MultiPolygon",
		Coordinates: mp.Coordinates,
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for parsing GeoJSON input.
func (mp *MultiPolygon) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal multipolygon: %w", err)
	}

	if geom.Type != "" && geom.Type != "MultiPolygon" {
		return fmt.Errorf("expected MultiPolygon type, got %s", geom.Type)
	}

	mp.Coordinates = geom.Coordinates
	mp.SRID = 4326

	return nil
}
