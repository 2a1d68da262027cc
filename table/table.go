// Package table holds the string-typed tabular container shared by GEO sample
// tables, platform annotation tables and identifier conversion files.
package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"io/ioutil"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geneexpr"
	"github.com/carbocation/pfx"
)

type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// New creates an empty table with the given header. When a header name is
// repeated, lookups resolve to its first occurrence.
func New(columns []string) *Table {
	t := &Table{
		Columns: append([]string{}, columns...),
		Rows:    make([][]string, 0),
		index:   make(map[string]int, len(columns)),
	}
	for i, col := range t.Columns {
		if _, exists := t.index[col]; !exists {
			t.index[col] = i
		}
	}

	return t
}

// Append adds a row, padding or truncating it to the width of the header.
func (t *Table) Append(row []string) {
	out := make([]string, len(t.Columns))
	copy(out, row)
	t.Rows = append(t.Rows, out)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Col returns the position of the named column.
func (t *Table) Col(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// MustCols resolves several column names at once, failing on the first one
// that is absent.
func (t *Table) MustCols(names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := t.index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found; columns are %v", name, t.Columns)
		}
		out = append(out, i)
	}

	return out, nil
}

// Column returns a copy of the values in the named column.
func (t *Table) Column(name string) ([]string, error) {
	cols, err := t.MustCols(name)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		out = append(out, row[cols[0]])
	}

	return out, nil
}

// Read parses a delimited file whose first row is the header.
func Read(r io.Reader, delim rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row")
	} else if err != nil {
		return nil, pfx.Err(err)
	}

	t := New(header)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, pfx.Err(err)
		}
		t.Append(row)
	}

	return t, nil
}

// ReadFile reads a (possibly compressed, possibly gs://) delimited file,
// sniffing the delimiter from its content.
func ReadFile(ctx context.Context, path string, client *storage.Client) (*Table, error) {
	rc, err := geneexpr.OpenDecompressed(ctx, path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := ioutil.ReadAll(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	delim := geneexpr.DetermineDelimiterBytes(data, '\t')

	t, err := Read(bytes.NewReader(data), delim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}
