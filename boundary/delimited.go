package boundary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadDelimited reads a delimited mapping file whose header names the
// department and region fields.
func LoadDelimited(path string, opts Options) (Lookup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("boundary: open %s: %w", path, err)
	}
	defer f.Close()
	return ParseDelimited(f, opts)
}

// ParseDelimited is LoadDelimited over a reader.
func ParseDelimited(r io.Reader, opts Options) (Lookup, error) {
	reader := csv.NewReader(r)
	reader.Comma = opts.Delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("boundary: read header: %w", err)
	}
	deptIdx, regionIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case opts.DepartmentField:
			deptIdx = i
		case opts.RegionField:
			regionIdx = i
		}
	}
	if deptIdx < 0 || regionIdx < 0 {
		return nil, fmt.Errorf("boundary: header lacks %q or %q", opts.DepartmentField, opts.RegionField)
	}

	l := make(Lookup)
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("boundary: read row: %w", err)
		}
		if deptIdx >= len(rec) || regionIdx >= len(rec) {
			continue
		}
		l.add(rec[deptIdx], rec[regionIdx])
	}
	return l, nil
}
