package boundary

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const departmentsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [2.35, 48.85]},
     "properties": {"code_insee": "75", "nom_officiel": "Paris", "code_insee_de_la_region": "11"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [5.2, 46.2]},
     "properties": {"code_insee": "01", "code_insee_de_la_region": "84"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [9.1, 42.1]},
     "properties": {"code_insee": "2A", "code_insee_de_la_region": 94}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [0, 0]},
     "properties": {"code_insee": "99"}}
  ]
}`

func TestParseGeoJSON(t *testing.T) {
	l, err := ParseGeoJSON([]byte(departmentsGeoJSON), DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, l, 3, "feature without a region is ignored")

	r, ok := l.RegionOf("75")
	assert.True(t, ok)
	assert.Equal(t, "11", r)

	r, ok = l.RegionOf("2A")
	assert.True(t, ok)
	assert.Equal(t, "94", r, "numeric properties are rendered as codes")
}

func TestParseGeoJSONFallbackFields(t *testing.T) {
	raw := `{"type": "FeatureCollection", "features": [
	  {"type": "Feature", "geometry": {"type": "Point", "coordinates": [5.4, 43.3]}, "properties": {"code": "13", "region": "93"}}
	]}`
	l, err := ParseGeoJSON([]byte(raw), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Lookup{"13": "93"}, l)
}

func TestRegionOfPadsSingleDigit(t *testing.T) {
	l := Lookup{"01": "84"}
	r, ok := l.RegionOf("1")
	assert.True(t, ok)
	assert.Equal(t, "84", r)

	_, ok = l.RegionOf("")
	assert.False(t, ok)
	_, ok = l.RegionOf("971")
	assert.False(t, ok)
}

func TestParseDelimited(t *testing.T) {
	text := "code_insee;nom;code_insee_de_la_region\n75;Paris;11\n13;Bouches-du-Rhône;93\n;vide;00\n"
	opts := DefaultOptions()
	opts.Delimiter = ';'

	l, err := ParseDelimited(strings.NewReader(text), opts)
	require.NoError(t, err)
	assert.Equal(t, Lookup{"75": "11", "13": "93"}, l)
}

func TestParseDelimitedMissingField(t *testing.T) {
	_, err := ParseDelimited(strings.NewReader("dep,reg\n75,11\n"), DefaultOptions())
	assert.Error(t, err)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	gj := filepath.Join(dir, "departements.geojson")
	require.NoError(t, os.WriteFile(gj, []byte(departmentsGeoJSON), 0o644))
	csvPath := filepath.Join(dir, "departements.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("code_insee,code_insee_de_la_region\n75,11\n"), 0o644))

	l, err := Load(gj, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, l, 3)

	l, err = Load(csvPath, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, Lookup{"75": "11"}, l)

	_, err = Load(filepath.Join(dir, "missing.geojson"), DefaultOptions())
	assert.Error(t, err)
}

func TestLoadEmptyMappingIsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("code_insee,code_insee_de_la_region\n"), 0o644))
	_, err := Load(path, DefaultOptions())
	assert.Error(t, err)
}
