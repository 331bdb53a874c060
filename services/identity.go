package services

import (
	"fmt"
	"strings"

	"dvf-mart/config"
	"dvf-mart/models"
)

// keySeparator joins the identity fields. It is fixed whatever the input
// delimiter; identity values are codes, dates and amounts that never hold it.
const keySeparator = "|"

// SchemaError reports required columns absent from the input header. It
// means the file is in an incompatible format and the run must stop.
type SchemaError struct {
	Stage   string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Stage, strings.Join(e.Missing, ", "))
}

// requireColumns returns a *SchemaError listing every name the table lacks.
func requireColumns(t *models.RawTable, stage string, names ...string) error {
	var missing []string
	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &SchemaError{Stage: stage, Missing: missing}
	}
	return nil
}

// IdentityResolver derives a transaction key per row from a fixed ordered
// set of raw text fields.
type IdentityResolver struct {
	columns []string
}

// NewIdentityResolver builds a resolver over the identity columns of cols.
func NewIdentityResolver(cols config.Columns) *IdentityResolver {
	return &IdentityResolver{columns: cols.IdentityColumns()}
}

// Keys returns one key per row of t, in row order. Missing values contribute
// an empty string. Fails with a *SchemaError if any identity column is absent.
func (r *IdentityResolver) Keys(t *models.RawTable) ([]string, error) {
	if err := requireColumns(t, "identity", r.columns...); err != nil {
		return nil, err
	}
	keys := make([]string, t.Len())
	parts := make([]string, len(r.columns))
	for i := range t.Rows {
		for j, col := range r.columns {
			parts[j] = t.Value(i, col)
		}
		keys[i] = strings.Join(parts, keySeparator)
	}
	return keys, nil
}
