// Package stats provides the column statistics used by the cleaning
// pipeline. All standard deviations are population standard deviations
// (divisor n, not n-1).
package stats

import (
	"math"

	"tabclean/table"
)

// ColumnStats holds the derived statistics for one table column.
// Recomputed on every call, never persisted.
type ColumnStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// Mean returns the arithmetic mean of values, 0 for an empty slice.
func Mean(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(n)
}

// MeanStdDev returns the mean and population standard deviation of values
// in a single pass. Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	sum, sumSq := 0.0, 0.0
	for _, v := range values {
		sum += v
		sumSq += v * v
	}
	mean = sum / n
	variance := (sumSq / n) - (mean * mean)
	if variance < 0 {
		// guard against negative rounding residue
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

// Columns computes per-column statistics for a rectangular table.
func Columns(t table.Table) []ColumnStats {
	if len(t) == 0 {
		return nil
	}
	rows, cols := len(t), len(t[0])
	out := make([]ColumnStats, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			col[i] = float64(t[i][j])
		}
		out[j].Mean, out[j].Std = MeanStdDev(col)
	}
	return out
}
