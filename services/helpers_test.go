package services

import (
	"strings"
	"time"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/utils"
)

var testHeader = []string{
	"Identifiant de document", "Date mutation", "Nature mutation", "Valeur fonciere",
	"No plan", "Section", "Code postal", "Code commune", "Code departement", "Type local",
	"Surface reelle bati", "Surface Carrez du 1er lot", "Surface terrain",
}

// rawRow is one test DVF line keyed by header name; absent keys are empty.
type rawRow map[string]string

func sale(doc, price, surface string) rawRow {
	return rawRow{
		"Identifiant de document": doc,
		"Date mutation":           "05/01/2024",
		"Nature mutation":         "Vente",
		"Valeur fonciere":         price,
		"No plan":                 "12",
		"Section":                 "AB",
		"Code postal":             "75001",
		"Code commune":            "101",
		"Code departement":        "75",
		"Type local":              "Appartement",
		"Surface reelle bati":     surface,
	}
}

func (r rawRow) with(col, val string) rawRow {
	out := make(rawRow, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out[col] = val
	return out
}

func rawText(header []string, rows ...rawRow) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, "|"))
	b.WriteString("\n")
	for _, r := range rows {
		vals := make([]string, len(header))
		for i, h := range header {
			vals[i] = r[h]
		}
		b.WriteString(strings.Join(vals, "|"))
		b.WriteString("\n")
	}
	return b.String()
}

func testPipeline() config.PipelineConfig {
	return config.DefaultPipeline()
}

func quietLogger() *utils.Logger { return utils.Discard() }

func tx(seq int, key string, surface, ppm2 float64) *models.Transaction {
	return &models.Transaction{
		Seq:          seq,
		Key:          key,
		PropertyType: models.Apartment,
		Price:        ppm2 * surface,
		Surface:      surface,
		PricePerM2:   ppm2,
		Department:   "75",
		Commune:      "101",
		PostalCode:   "75001",
		Date:         time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
}
