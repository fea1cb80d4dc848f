package clean

import (
	"errors"
	"math"
	"testing"

	"tabclean/table"
)

func TestFilterReplacesOutlier(t *testing.T) {
	// col 0: mean 26.5, std ~42.44 -> only the 100 exceeds z=1 (z ~1.73)
	// col 1: mean 100.5, std 0.5 -> every cell sits exactly at z=1, all kept
	in := table.Table{
		{1, 100},
		{2, 101},
		{3, 100},
		{100, 101},
	}
	out, report, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}

	want := table.Table{
		{1, 100},
		{2, 101},
		{3, 100},
		{26, 101}, // int64(26.5) truncates
	}
	assertTablesEqual(t, out, want)

	if report.CellsReplaced != 1 {
		t.Errorf("CellsReplaced = %d, want 1", report.CellsReplaced)
	}
	if len(report.Replacements) != 1 {
		t.Fatalf("Replacements = %v, want one entry", report.Replacements)
	}
	r := report.Replacements[0]
	if r.Row != 3 || r.Col != 0 || r.Old != 100 || r.New != 26 {
		t.Errorf("Replacement = %+v, want row 3 col 0 old 100 new 26", r)
	}
	if math.Abs(report.ColumnMeans[0]-26.5) > 1e-9 {
		t.Errorf("ColumnMeans[0] = %v, want 26.5", report.ColumnMeans[0])
	}
}

func TestFilterShapePreserved(t *testing.T) {
	in := table.Table{
		{1, 2, 3},
		{4, 5, 600},
		{7, 8, 9},
		{10, 11, 12},
	}
	rows, cols := in.Rows(), in.Cols()
	out, _, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if out.Rows() != rows || out.Cols() != cols {
		t.Errorf("shape changed: got %dx%d, want %dx%d", out.Rows(), out.Cols(), rows, cols)
	}
}

func TestFilterZeroVarianceColumnUntouched(t *testing.T) {
	in := table.Table{
		{5, 5},
		{5, 5},
		{5, 5},
	}
	out, report, err := Filter(in, 0.001)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	assertTablesEqual(t, out, table.Table{{5, 5}, {5, 5}, {5, 5}})
	if report.CellsReplaced != 0 {
		t.Errorf("CellsReplaced = %d, want 0", report.CellsReplaced)
	}
	if len(report.ZeroVarianceColumns) != 2 {
		t.Errorf("ZeroVarianceColumns = %v, want both columns", report.ZeroVarianceColumns)
	}
}

func TestFilterSingleRowIsIdentity(t *testing.T) {
	in := table.Table{{17, -3, 99}}
	out, report, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	assertTablesEqual(t, out, table.Table{{17, -3, 99}})
	if report.CellsReplaced != 0 {
		t.Errorf("CellsReplaced = %d, want 0", report.CellsReplaced)
	}
}

func TestFilterThresholdBoundaryKept(t *testing.T) {
	// values {0, 2}: mean 1, std 1, both cells have z exactly 1
	in := table.Table{{0}, {2}}
	out, report, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	assertTablesEqual(t, out, table.Table{{0}, {2}})
	if report.CellsReplaced != 0 {
		t.Errorf("z == threshold must be kept, replaced %d", report.CellsReplaced)
	}
}

func TestFilterTruncatesTowardZero(t *testing.T) {
	// mean -26.5 -> replacement is -26, not -27
	in := table.Table{{-1}, {-2}, {-3}, {-100}}
	out, _, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if out[3][0] != -26 {
		t.Errorf("replacement = %d, want -26 (cast toward zero)", out[3][0])
	}
}

func TestFilterNotIdempotent(t *testing.T) {
	// after the first pass col 0 is {1,2,3,26}: mean 8, std ~10.4, and the
	// 26 now has z ~1.73 again, so a second pass keeps rewriting
	in := table.Table{{1}, {2}, {3}, {100}}
	first, _, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if first[3][0] != 26 {
		t.Fatalf("first pass = %d, want 26", first[3][0])
	}
	second, report, err := Filter(first.Clone(), 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if report.CellsReplaced == 0 || second[3][0] == 26 {
		t.Error("second pass with recomputed stats was a no-op; expected further replacement")
	}
}

func TestFilterMutatesInPlace(t *testing.T) {
	in := table.Table{{1}, {2}, {3}, {100}}
	out, _, err := Filter(in, 1.0)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if &out[0][0] != &in[0][0] {
		t.Error("Filter() must mutate and return the same table")
	}
	if in[3][0] != 26 {
		t.Errorf("input not mutated: %d", in[3][0])
	}
}

func TestFilterBadInputs(t *testing.T) {
	tests := []struct {
		name      string
		in        table.Table
		threshold float64
		wantErr   error
	}{
		{"zero threshold", table.Table{{1}}, 0, ErrBadThreshold},
		{"negative threshold", table.Table{{1}}, -1, ErrBadThreshold},
		{"nan threshold", table.Table{{1}}, math.NaN(), ErrBadThreshold},
		{"empty table", nil, 1, table.ErrEmptyTable},
		{"zero columns", table.Table{{}}, 1, table.ErrEmptyTable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Filter(tt.in, tt.threshold)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Filter() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFilterHighThresholdKeepsEverything(t *testing.T) {
	in := table.Table{{1, 2}, {3, 4}, {1000, -500}}
	out, report, err := Filter(in.Clone(), 100)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	assertTablesEqual(t, out, in)
	if report.CellsScanned != 6 {
		t.Errorf("CellsScanned = %d, want 6", report.CellsScanned)
	}
}

func assertTablesEqual(t *testing.T, got, want table.Table) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("rows = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if len(got[i]) != len(want[i]) {
			t.Fatalf("row %d cols = %d, want %d", i, len(got[i]), len(want[i]))
		}
		for j := range got[i] {
			if got[i][j] != want[i][j] {
				t.Errorf("cell (%d,%d) = %d, want %d", i, j, got[i][j], want[i][j])
			}
		}
	}
}
