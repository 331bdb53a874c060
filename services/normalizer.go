package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"dvf-mart/config"
	"dvf-mart/models"
	"dvf-mart/utils"
)

// decimalRegexp is the strict form accepted after whitespace stripping and
// decimal-comma conversion. Hex, NaN and Inf spellings are rejected.
var decimalRegexp = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Accepted layouts for the mutation date, tried in order.
var dateLayouts = []string{"02/01/2006", "2006-01-02"}

// ParseDecimal parses a locale-formatted number such as "1 234,56".
// Every whitespace rune is removed and the first comma becomes the decimal
// point. ok is false for anything that is not a finite strict decimal.
func ParseDecimal(raw string) (float64, bool) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return 0, false
	}
	s = strings.Replace(s, ",", ".", 1)
	if !decimalRegexp.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDate parses a mutation date in dd/mm/yyyy or ISO form.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalizer loads a raw delimited file into a RawTable. Every column is
// kept as text; the configured monetary and surface columns are then
// reparsed as numbers and the mutation date as a date.
type Normalizer struct {
	cfg    config.PipelineConfig
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer for the given pipeline parameters.
func NewNormalizer(cfg config.PipelineConfig, logger *utils.Logger) *Normalizer {
	return &Normalizer{cfg: cfg, logger: logger}
}

// LoadFile opens path and loads it.
func (n *Normalizer) LoadFile(path string) (*models.RawTable, models.LoadReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.LoadReport{}, fmt.Errorf("normalizer: open %q: %w", path, err)
	}
	defer f.Close()
	return n.Load(f)
}

// Load reads the header and every data row from r. Rows whose field count
// differs from the header, or that the reader cannot split, are skipped and
// counted. Only an unreadable header is an error.
func (n *Normalizer) Load(r io.Reader) (*models.RawTable, models.LoadReport, error) {
	report := models.LoadReport{Nulled: make(map[string]int)}

	reader := csv.NewReader(r)
	reader.Comma, _ = utf8.DecodeRuneInString(n.cfg.Delimiter)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, errors.New("normalizer: empty input, no header line")
		}
		return nil, report, fmt.Errorf("normalizer: read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		report.RowsRead++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				report.RowsSkipped++
				n.logger.Debug("[normalizer] Skipping malformed line %d: %v", perr.Line, perr.Err)
				continue
			}
			return nil, report, fmt.Errorf("normalizer: read row %d: %w", report.RowsRead, err)
		}
		if len(record) != len(header) {
			report.RowsSkipped++
			n.logger.Debug("[normalizer] Skipping row %d: %d fields, header has %d",
				report.RowsRead, len(record), len(header))
			continue
		}
		for i, v := range record {
			if n.isNull(v) {
				record[i] = ""
			}
		}
		rows = append(rows, record)
	}

	table := models.NewRawTable(header, rows)
	n.parseNumeric(table, &report)
	n.parseDates(table, &report)

	if report.RowsSkipped > 0 {
		n.logger.Warn("[normalizer] Skipped %d of %d rows with a malformed structure",
			report.RowsSkipped, report.RowsRead)
	}
	for col, cnt := range report.Nulled {
		n.logger.Warn("[normalizer] %d unparsable values in %q treated as missing", cnt, col)
	}
	n.logger.Info("[normalizer] Loaded %d rows (%d columns)", table.Len(), len(header))
	return table, report, nil
}

func (n *Normalizer) isNull(v string) bool {
	for _, marker := range n.cfg.NullValues {
		if v == marker {
			return true
		}
	}
	return false
}

// parseNumeric fills table.Numeric for every configured numeric column the
// header carries. Non-empty text that fails to parse is counted as nulled.
func (n *Normalizer) parseNumeric(table *models.RawTable, report *models.LoadReport) {
	for _, col := range n.cfg.Columns.NumericColumns() {
		if !table.Has(col) {
			continue
		}
		values := make([]models.Number, table.Len())
		for i := range table.Rows {
			raw := table.Value(i, col)
			if raw == "" {
				continue
			}
			if v, ok := ParseDecimal(raw); ok {
				values[i] = models.Some(v)
			} else {
				report.Nulled[col]++
			}
		}
		table.Numeric[col] = values
	}
}

func (n *Normalizer) parseDates(table *models.RawTable, report *models.LoadReport) {
	col := n.cfg.Columns.MutationDate
	if !table.Has(col) {
		return
	}
	dates := make([]time.Time, table.Len())
	for i := range table.Rows {
		raw := table.Value(i, col)
		if raw == "" {
			continue
		}
		if t, ok := ParseDate(raw); ok {
			dates[i] = t
		} else {
			report.DatesNulled++
		}
	}
	table.Dates = dates
}
