package services

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dvf-mart/models"
)

func TestIdentityKeys(t *testing.T) {
	n := NewNormalizer(testPipeline(), quietLogger())
	table, _, err := n.Load(strings.NewReader(rawText(testHeader,
		sale("D1", "250000,00", "50"),
		sale("", "250000,00", "50").with("Section", "NA"),
	)))
	require.NoError(t, err)

	keys, err := NewIdentityResolver(testPipeline().Columns).Keys(table)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	assert.Equal(t, "D1|05/01/2024|250000,00|75|101|AB|12", keys[0], "raw price text, not the parsed value")
	assert.Equal(t, "|05/01/2024|250000,00|75|101||12", keys[1], "missing fields become empty")
}

func TestIdentityKeysDeterministic(t *testing.T) {
	table := models.NewRawTable(testHeader, [][]string{
		{"D1", "05/01/2024", "Vente", "1", "12", "AB", "75001", "101", "75", "Maison", "", "", ""},
	})
	r := NewIdentityResolver(testPipeline().Columns)
	a, err := r.Keys(table)
	require.NoError(t, err)
	b, err := r.Keys(table)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestIdentityMissingColumnsIsSchemaError(t *testing.T) {
	header := []string{"Identifiant de document", "Date mutation", "Valeur fonciere", "Code departement", "Code commune"}
	table := models.NewRawTable(header, nil)

	_, err := NewIdentityResolver(testPipeline().Columns).Keys(table)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"Section", "No plan"}, schemaErr.Missing)
	assert.Contains(t, err.Error(), "Section, No plan")
}

func TestIdentityKeysIgnoreInputDelimiter(t *testing.T) {
	cfg := testPipeline()
	cfg.Delimiter = ";"
	text := strings.ReplaceAll(rawText(testHeader, sale("D1", "250000,00", "50")), "|", ";")

	table, _, err := NewNormalizer(cfg, quietLogger()).Load(strings.NewReader(text))
	require.NoError(t, err)

	keys, err := NewIdentityResolver(cfg.Columns).Keys(table)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1|05/01/2024|250000,00|75|101|AB|12"}, keys)
}
