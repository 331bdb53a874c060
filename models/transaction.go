package models

import "time"

// PropertyType is the residential category a sale is reported under.
type PropertyType string

const (
	House     PropertyType = "House"
	Apartment PropertyType = "Apartment"
)

// Surface sources recorded on each transaction.
const (
	SurfaceBuilt  = "built"
	SurfaceCarrez = "carrez"
)

// Number is a parsed numeric field. Valid is false when the raw text was
// empty, a null marker, or not a strict decimal.
type Number struct {
	Value float64
	Valid bool
}

// Some returns a valid Number holding v.
func Some(v float64) Number { return Number{Value: v, Valid: true} }

// RawTable holds a delimited source file as text, plus the numeric columns
// reparsed from it. Rows are never mutated after loading.
type RawTable struct {
	Header  []string
	Rows    [][]string
	Numeric map[string][]Number
	Dates   []time.Time

	index map[string]int
}

// NewRawTable indexes the header for column lookups.
func NewRawTable(header []string, rows [][]string) *RawTable {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return &RawTable{
		Header:  header,
		Rows:    rows,
		Numeric: make(map[string][]Number),
		index:   idx,
	}
}

// Has reports whether the header declares the named column.
func (t *RawTable) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Value returns the text of a cell, or "" when the column is absent.
func (t *RawTable) Value(row int, name string) string {
	i, ok := t.index[name]
	if !ok {
		return ""
	}
	return t.Rows[row][i]
}

// Num returns the parsed value of a numeric column for a row.
func (t *RawTable) Num(row int, name string) Number {
	col, ok := t.Numeric[name]
	if !ok {
		return Number{}
	}
	return col[row]
}

// Date returns the parsed mutation date of a row, zero when missing.
func (t *RawTable) Date(row int) time.Time {
	if t.Dates == nil {
		return time.Time{}
	}
	return t.Dates[row]
}

// Len returns the number of data rows.
func (t *RawTable) Len() int { return len(t.Rows) }

// Transaction is one residential sale after deduplication and price filtering.
type Transaction struct {
	Seq           int
	Key           string
	DocumentID    string
	PropertyType  PropertyType
	Price         float64
	Surface       float64
	SurfaceSource string
	LandSurface   Number
	PricePerM2    float64
	Date          time.Time
	Department    string
	Commune       string
	PostalCode    string
	Neighborhood  string
	Region        string
}

// Geography field names a Level can group on.
const (
	FieldRegion       = "region"
	FieldDepartment   = "department"
	FieldCommune      = "commune"
	FieldPostalCode   = "postal_code"
	FieldNeighborhood = "neighborhood"
)

// Field returns the geography identifier stored under name, "" if unknown.
func (t *Transaction) Field(name string) string {
	switch name {
	case FieldRegion:
		return t.Region
	case FieldDepartment:
		return t.Department
	case FieldCommune:
		return t.Commune
	case FieldPostalCode:
		return t.PostalCode
	case FieldNeighborhood:
		return t.Neighborhood
	}
	return ""
}

// CleanTable is the normalized transaction table handed to aggregation.
// HasNeighborhood is true only when the input carried neighborhood codes.
type CleanTable struct {
	Transactions    []*Transaction
	HasNeighborhood bool
}
