// Package table defines the in-memory table model and its persisted
// text format: one row per line, base-10 integers separated by whitespace.
package table

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Table is a rectangular, row-major integer table. Rows are observations,
// columns are variables.
type Table [][]int64

// ErrEmptyTable reports a table with zero rows or zero columns.
var ErrEmptyTable = errors.New("table: empty table")

// RowLengthError reports a row whose token count differs from the first row.
type RowLengthError struct {
	Line int // 1-based line number in the source file
	Want int
	Got  int
}

func (e *RowLengthError) Error() string {
	return fmt.Sprintf("table: line %d has %d values, want %d", e.Line, e.Got, e.Want)
}

// Rows returns the number of rows.
func (t Table) Rows() int { return len(t) }

// Cols returns the number of columns, 0 for an empty table.
func (t Table) Cols() int {
	if len(t) == 0 {
		return 0
	}
	return len(t[0])
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for i, row := range t {
		out[i] = append([]int64(nil), row...)
	}
	return out
}

// Validate checks that the table is non-empty and rectangular.
func Validate(t Table) error {
	if len(t) == 0 || len(t[0]) == 0 {
		return ErrEmptyTable
	}
	want := len(t[0])
	for i, row := range t {
		if len(row) != want {
			return &RowLengthError{Line: i + 1, Want: want, Got: len(row)}
		}
	}
	return nil
}

// Load reads a table from path. The column count is taken from the first
// line; every following line must match it. All tokens must parse as
// base-10 integers. The optional encoding names the source charset
// (see DecodingReader); an empty string means UTF-8.
func Load(path string, encoding string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := DecodingReader(f, encoding)
	if err != nil {
		return nil, err
	}

	var t Table
	want := 0
	lineNo := 0
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if lineNo == 1 {
			if len(fields) == 0 {
				return nil, &RowLengthError{Line: 1, Want: 1, Got: 0}
			}
			want = len(fields)
		}
		if len(fields) != want {
			return nil, &RowLengthError{Line: lineNo, Want: want, Got: len(fields)}
		}
		row := make([]int64, len(fields))
		for j, tok := range fields {
			v, err := strconv.ParseInt(tok, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("table: line %d: parse %q: %w", lineNo, tok, err)
			}
			row[j] = v
		}
		t = append(t, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("table: read %s: %w", path, err)
	}
	if len(t) == 0 {
		return nil, ErrEmptyTable
	}
	return t, nil
}

// Save writes the table to path in the persisted format, overwriting any
// existing file. The content is staged in a temp file and renamed into
// place so a failed write never truncates the target.
func Save(path string, t Table) error {
	if err := Validate(t); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabclean-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, row := range t {
		for j, v := range row {
			if j > 0 {
				if err := w.WriteByte(' '); err != nil {
					tmp.Close()
					return err
				}
			}
			if _, err := w.WriteString(strconv.FormatInt(v, 10)); err != nil {
				tmp.Close()
				return err
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
