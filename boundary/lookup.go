// Package boundary loads the department to region mapping from boundary
// resources.
package boundary

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Options names the fields holding the department and region codes.
type Options struct {
	DepartmentField string
	RegionField     string
	// Delimiter is used by delimited mapping files.
	Delimiter rune
}

// DefaultOptions matches the official departments layer.
func DefaultOptions() Options {
	return Options{
		DepartmentField: "code_insee",
		RegionField:     "code_insee_de_la_region",
		Delimiter:       ',',
	}
}

// Lookup is an in-memory department to region mapping.
type Lookup map[string]string

// RegionOf returns the region of a department. Codes are matched as given,
// then left-padded to two digits so "1" finds "01".
func (l Lookup) RegionOf(department string) (string, bool) {
	dept := strings.TrimSpace(department)
	if dept == "" {
		return "", false
	}
	if r, ok := l[dept]; ok {
		return r, true
	}
	if len(dept) == 1 {
		if r, ok := l["0"+dept]; ok {
			return r, true
		}
	}
	return "", false
}

// Load reads a mapping file, choosing the format from its extension:
// .geojson or .json for a feature collection, anything else as delimited text.
func Load(path string, opts Options) (Lookup, error) {
	var (
		l   Lookup
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		l, err = LoadGeoJSON(path, opts)
	default:
		l, err = LoadDelimited(path, opts)
	}
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, fmt.Errorf("boundary: %s: no department mapping found", path)
	}
	return l, nil
}

func (l Lookup) add(dept, region string) {
	dept = strings.TrimSpace(dept)
	region = strings.TrimSpace(region)
	if dept == "" || region == "" {
		return
	}
	l[dept] = region
}
