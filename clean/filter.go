// Package clean implements the outlier filter: per-column z-scores with a
// replace-by-column-mean policy.
package clean

import (
	"errors"
	"math"

	"tabclean/stats"
	"tabclean/table"
)

// DefaultThreshold is the z-score above which a cell counts as an outlier.
const DefaultThreshold = 1.0

// ErrBadThreshold reports a non-positive threshold.
var ErrBadThreshold = errors.New("clean: threshold must be positive")

// Replacement records a single corrected cell.
type Replacement struct {
	Row int   `json:"row"`
	Col int   `json:"col"`
	Old int64 `json:"old"`
	New int64 `json:"new"`
}

// Report describes what a Filter call did. It carries the per-column means
// that the caller may want to surface; the filter itself never logs.
type Report struct {
	ColumnMeans         []float64           `json:"column_means"`
	ZeroVarianceColumns []int               `json:"zero_variance_columns,omitempty"`
	Replacements        []Replacement       `json:"replacements,omitempty"`
	CellsScanned        int                 `json:"cells_scanned"`
	CellsReplaced       int                 `json:"cells_replaced"`
	Stats               []stats.ColumnStats `json:"-"`
}

// Filter replaces every cell whose absolute z-score strictly exceeds
// threshold with that column's mean, cast to the table's integer
// representation. Columns with zero variance are skipped outright rather
// than relying on NaN comparisons. The table is mutated in place and
// returned together with a report.
//
// The caller is responsible for validating shape; Filter assumes a
// non-empty rectangular table.
func Filter(t table.Table, threshold float64) (table.Table, *Report, error) {
	if threshold <= 0 || math.IsNaN(threshold) {
		return nil, nil, ErrBadThreshold
	}
	if len(t) == 0 || len(t[0]) == 0 {
		return nil, nil, table.ErrEmptyTable
	}

	cols := stats.Columns(t)
	report := &Report{
		ColumnMeans: make([]float64, len(cols)),
		Stats:       cols,
	}
	for j, cs := range cols {
		report.ColumnMeans[j] = cs.Mean
		if cs.Std == 0 {
			report.ZeroVarianceColumns = append(report.ZeroVarianceColumns, j)
		}
	}

	for i := range t {
		for j, v := range t[i] {
			report.CellsScanned++
			cs := cols[j]
			if cs.Std == 0 {
				continue
			}
			z := math.Abs(float64(v)-cs.Mean) / cs.Std
			if z > threshold {
				repl := int64(cs.Mean)
				report.Replacements = append(report.Replacements, Replacement{
					Row: i, Col: j, Old: v, New: repl,
				})
				report.CellsReplaced++
				t[i][j] = repl
			}
		}
	}
	return t, report, nil
}
