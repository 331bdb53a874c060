package services

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"dvf-mart/models"
)

// TypeOverview totals one property type within a level.
type TypeOverview struct {
	PropertyType models.PropertyType
	Areas        int
	Sales        int
}

// LevelOverview is the printable digest of one level.
type LevelOverview struct {
	Level   string
	Areas   int
	Rows    int
	Skipped bool
	Reason  string
	Types   []TypeOverview
}

// Summarize digests an aggregation report: distinct areas, rows, and per
// property type the number of areas and sales, largest sales first.
func Summarize(r *models.AggregationReport) []LevelOverview {
	out := make([]LevelOverview, 0, len(r.Levels))
	for _, lr := range r.Levels {
		ov := LevelOverview{
			Level:   lr.Level.Name,
			Rows:    len(lr.Rows),
			Skipped: lr.Skipped,
			Reason:  lr.Reason,
		}
		areas := make(map[string]struct{})
		byType := make(map[models.PropertyType]*TypeOverview)
		for _, row := range lr.Rows {
			areas[strings.Join(row.Keys, "|")] = struct{}{}
			t, ok := byType[row.PropertyType]
			if !ok {
				t = &TypeOverview{PropertyType: row.PropertyType}
				byType[row.PropertyType] = t
			}
			t.Areas++
			t.Sales += row.Count
		}
		ov.Areas = len(areas)
		for _, t := range byType {
			ov.Types = append(ov.Types, *t)
		}
		slices.SortFunc(ov.Types, func(a, b TypeOverview) int {
			if a.Sales != b.Sales {
				return b.Sales - a.Sales
			}
			return strings.Compare(string(a.PropertyType), string(b.PropertyType))
		})
		out = append(out, ov)
	}
	return out
}

// ReportPrinter renders run reports for a terminal.
type ReportPrinter struct {
	out io.Writer
}

// NewReportPrinter creates a ReportPrinter writing to w.
func NewReportPrinter(w io.Writer) *ReportPrinter {
	return &ReportPrinter{out: w}
}

// PrintClean renders the per-stage counts and price bounds of a clean run.
func (p *ReportPrinter) PrintClean(r *models.CleanReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := p.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  DVF CLEANING REPORT\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(w, "\033[1;33m  Rows\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Read                 : \033[1m%d\033[0m\n", r.Load.RowsRead)
	fmt.Fprintf(w, "  Skipped (malformed)  : \033[1m%d\033[0m\n", r.Load.RowsSkipped)
	fmt.Fprintf(w, "  Residential sales    : \033[1m%d\033[0m\n", r.Residential)
	fmt.Fprintf(w, "  After deduplication  : \033[1m%d\033[0m\n", r.Deduplicated)
	fmt.Fprintf(w, "  Within sanity bounds : \033[1m%d\033[0m\n", r.WithinSanity)
	fmt.Fprintf(w, "  Clean transactions   : \033[1;32m%d\033[0m\n", r.Final)
	fmt.Fprintln(w)

	if len(r.Load.Nulled) > 0 || r.Load.DatesNulled > 0 {
		fmt.Fprintf(w, "\033[1;33m  Values treated as missing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		cols := make([]string, 0, len(r.Load.Nulled))
		for col := range r.Load.Nulled {
			cols = append(cols, col)
		}
		slices.Sort(cols)
		for _, col := range cols {
			fmt.Fprintf(w, "  %-28s %d\n", truncate(col, 28), r.Load.Nulled[col])
		}
		if r.Load.DatesNulled > 0 {
			fmt.Fprintf(w, "  %-28s %d\n", "dates", r.Load.DatesNulled)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Price per m²\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.BoundsApplied {
		fmt.Fprintf(w, "  p10 / p90   : %.2f / %.2f\n", r.Bounds.P10, r.Bounds.P90)
		fmt.Fprintf(w, "  Kept range  : \033[1;32m%.2f – %.2f €/m²\033[0m\n", r.Bounds.Low, r.Bounds.Upper)
		fmt.Fprintf(w, "  Median      : %.2f €/m²\n", r.MedianPerM2)
		fmt.Fprintf(w, "  P90         : %.2f €/m²\n", r.P90PerM2)
	} else {
		fmt.Fprintf(w, "  No transaction within the sanity bounds\n")
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintAggregation renders the per-level digest of an aggregation run.
func (p *ReportPrinter) PrintAggregation(r *models.AggregationReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)
	w := p.out

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  AGGREGATION SUMMARY\033[0m\n")
	if r.RunID != "" {
		fmt.Fprintf(w, "\033[1;35m  run %s\033[0m\n", r.RunID)
	}
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	if r.Region.Skipped {
		fmt.Fprintf(w, "  \033[33mRegion codes unavailable: %s\033[0m\n\n", r.Region.Reason)
	} else if r.Region.Unmapped > 0 {
		fmt.Fprintf(w, "  \033[33m%d transactions without a region code\033[0m\n\n", r.Region.Unmapped)
	}

	for _, ov := range Summarize(r) {
		fmt.Fprintf(w, "\033[1;33m  %s\033[0m\n", strings.ToUpper(ov.Level))
		fmt.Fprintf(w, "  %s\n", thin)
		if ov.Skipped {
			fmt.Fprintf(w, "  Skipped: %s\n\n", truncate(ov.Reason, 50))
			continue
		}
		fmt.Fprintf(w, "  Areas                      : \033[1m%d\033[0m\n", ov.Areas)
		fmt.Fprintf(w, "  Rows (area × property type): \033[1m%d\033[0m\n", ov.Rows)
		for _, t := range ov.Types {
			fmt.Fprintf(w, "    - %-10s %d areas, %d sales\n", t.PropertyType, t.Areas, t.Sales)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)
}

// truncate shortens s to at most max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
