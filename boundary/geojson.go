package boundary

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/twpayne/go-geom/encoding/geojson"
)

// Property names used by simplified departments layers.
const (
	fallbackDepartmentField = "code"
	fallbackRegionField     = "region"
)

// LoadGeoJSON reads a departments feature collection and maps each
// feature's department property to its region property, falling back to
// "code" and "region". Features missing either property are ignored.
func LoadGeoJSON(path string, opts Options) (Lookup, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: read %s: %w", path, err)
	}
	return ParseGeoJSON(raw, opts)
}

// ParseGeoJSON is LoadGeoJSON over an in-memory document.
func ParseGeoJSON(raw []byte, opts Options) (Lookup, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("boundary: decode feature collection: %w", err)
	}

	l := make(Lookup, len(fc.Features))
	for _, f := range fc.Features {
		dept, ok := firstProperty(f.Properties, opts.DepartmentField, fallbackDepartmentField)
		if !ok {
			continue
		}
		region, ok := firstProperty(f.Properties, opts.RegionField, fallbackRegionField)
		if !ok {
			continue
		}
		l.add(dept, region)
	}
	return l, nil
}

func firstProperty(props map[string]interface{}, names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := propertyString(props, name); ok {
			return v, true
		}
	}
	return "", false
}

// propertyString renders a feature property as a code. Numeric codes come
// out of JSON as float64 and are printed without a fraction.
func propertyString(props map[string]interface{}, name string) (string, bool) {
	v, ok := props[name]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	}
	return fmt.Sprint(v), true
}
