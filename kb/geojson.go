package kb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/signalsfoundry/holo-globe/model"
)

// ErrInvalidDataset indicates the input is not a GeoJSON Feature or
// FeatureCollection at all. Individual bad features never produce it.
var ErrInvalidDataset = errors.New("invalid boundary dataset")

// nameKeys are the feature properties consulted, in order, for a region
// name.
var nameKeys = []string{"name", "NAME", "ADMIN", "name_en", "admin"}

// idKeys are consulted when a feature has no top-level id.
var idKeys = []string{"iso_a3", "ISO_A3", "id", "code"}

// LoadReport summarises a dataset load.
type LoadReport struct {
	Features int
	Loaded   int
	Skipped  []SkippedFeature
}

// SkippedFeature records why one feature was left out.
type SkippedFeature struct {
	Index  int
	Reason string
}

// internal JSON shapes; geometry is decoded per feature so a bad entry
// cannot fail the whole collection.
type rawCollection struct {
	Type     string            `json:"type"`
	Features []json.RawMessage `json:"features"`
}

type rawFeature struct {
	ID         any             `json:"id"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// LoadGeoJSON reads a FeatureCollection (or a single Feature) of Polygon and
// MultiPolygon features into a RegionIndex, keeping feature order.
//
// Features whose geometry is missing, malformed or of another type are
// skipped and listed in the report.
func LoadGeoJSON(r io.Reader) (*RegionIndex, LoadReport, error) {
	var report LoadReport

	data, err := io.ReadAll(r)
	if err != nil {
		return NewRegionIndex(), report, fmt.Errorf("read boundary dataset: %w", err)
	}

	var top rawCollection
	if err := json.Unmarshal(data, &top); err != nil {
		return NewRegionIndex(), report, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	var features []json.RawMessage
	switch strings.ToLower(top.Type) {
	case "featurecollection":
		features = top.Features
	case "feature":
		features = []json.RawMessage{data}
	default:
		return NewRegionIndex(), report, fmt.Errorf("%w: unsupported top-level type %q", ErrInvalidDataset, top.Type)
	}

	report.Features = len(features)
	boundaries := make([]model.RegionBoundary, 0, len(features))
	for i, raw := range features {
		b, err := parseFeature(raw)
		if err != nil {
			report.Skipped = append(report.Skipped, SkippedFeature{Index: i, Reason: err.Error()})
			continue
		}
		boundaries = append(boundaries, b)
	}
	report.Loaded = len(boundaries)

	return NewRegionIndex(boundaries...), report, nil
}

// LoadGeoJSONFile is LoadGeoJSON over a file. On any error the returned
// index is empty but usable, so callers can log and run without regions.
func LoadGeoJSONFile(path string) (*RegionIndex, LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return NewRegionIndex(), LoadReport{}, fmt.Errorf("open boundary dataset %q: %w", path, err)
	}
	defer f.Close()
	return LoadGeoJSON(f)
}

func parseFeature(raw json.RawMessage) (model.RegionBoundary, error) {
	var f rawFeature
	if err := json.Unmarshal(raw, &f); err != nil {
		return model.RegionBoundary{}, fmt.Errorf("decode feature: %w", err)
	}
	trimmed := bytes.TrimSpace(f.Geometry)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.RegionBoundary{}, errors.New("feature has no geometry")
	}

	g, err := geojson.UnmarshalGeometry(trimmed)
	if err != nil {
		return model.RegionBoundary{}, fmt.Errorf("decode geometry: %w", err)
	}

	var polys []orb.Polygon
	switch geom := g.Geometry().(type) {
	case orb.Polygon:
		polys = []orb.Polygon{geom}
	case orb.MultiPolygon:
		polys = []orb.Polygon(geom)
	default:
		return model.RegionBoundary{}, fmt.Errorf("unsupported geometry type %q", g.Type)
	}

	return model.RegionBoundary{
		ID:       featureID(f),
		Name:     firstString(f.Properties, nameKeys),
		Polygons: polys,
	}, nil
}

func featureID(f rawFeature) string {
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return fmt.Sprintf("%g", v)
	}
	return firstString(f.Properties, idKeys)
}

func firstString(props map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
