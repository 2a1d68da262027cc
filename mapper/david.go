package mapper

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// DAVID conversion output columns. The file's own header is discarded and
// replaced positionally by these names.
const (
	DAVIDID           = "ID"
	DAVIDEntrezGeneID = "ENTREZ_GENE_ID"
	DAVIDSpecies      = "Species"
	DAVIDGeneName     = "Gene Name"
)

var davidColumns = []string{DAVIDID, DAVIDEntrezGeneID, DAVIDSpecies, DAVIDGeneName}

type davidRecord struct {
	ID           string `csv:"ID"`
	EntrezGeneID string `csv:"ENTREZ_GENE_ID"`
	Species      string `csv:"Species"`
	GeneName     string `csv:"Gene Name"`
}

func (d davidRecord) field(name string) string {
	switch name {
	case DAVIDEntrezGeneID:
		return d.EntrezGeneID
	case DAVIDSpecies:
		return d.Species
	case DAVIDGeneName:
		return d.GeneName
	}

	return d.ID
}

// rowsReader replays already-read rows to gocsv.
type rowsReader struct {
	rows [][]string
	pos  int
}

func (r *rowsReader) Read() ([]string, error) {
	if r.pos >= len(r.rows) {
		return nil, io.EOF
	}
	r.pos++

	return r.rows[r.pos-1], nil
}

func (r *rowsReader) ReadAll() ([][]string, error) {
	out := r.rows[r.pos:]
	r.pos = len(r.rows)

	return out, nil
}

// FromDAVID builds a Mapper from a tab-delimited DAVID gene ID conversion
// file. See FromDAVIDTable.
func FromDAVID(r io.Reader, destCol string) (Mapper, Report, error) {
	t, err := table.Read(r, '\t')
	if err != nil {
		return Mapper{}, Report{}, pfx.Err(fmt.Errorf("DAVID conversion file: %w", err))
	}

	return FromDAVIDTable(t, destCol)
}

// FromDAVIDTable builds a Mapper from a DAVID gene ID conversion table. The
// table must have exactly four columns, taken in order as ID, ENTREZ_GENE_ID,
// Species and Gene Name whatever its own header says. destCol names which of
// those holds the gene id; pass DAVIDEntrezGeneID for the usual case.
func FromDAVIDTable(t *table.Table, destCol string) (Mapper, Report, error) {
	known := false
	for _, col := range davidColumns {
		known = known || col == destCol
	}
	if !known || destCol == DAVIDID {
		return Mapper{}, Report{}, fmt.Errorf("destination column %q must be one of %v other than %s", destCol, davidColumns[1:], DAVIDID)
	}

	if x := len(t.Columns); x != len(davidColumns) {
		return Mapper{}, Report{}, fmt.Errorf("DAVID conversion file has %d columns, expected %d (%v)", x, len(davidColumns), davidColumns)
	}

	rows := make([][]string, 0, t.Len()+1)
	rows = append(rows, append([]string{}, davidColumns...))
	rows = append(rows, t.Rows...)

	records := []davidRecord{}
	if t.Len() > 0 {
		if err := gocsv.UnmarshalCSV(&rowsReader{rows: rows}, &records); err != nil {
			return Mapper{}, Report{}, pfx.Err(err)
		}
	}

	pairs := make([]Pair, 0, len(records))
	for _, rec := range records {
		pairs = append(pairs, Pair{Source: rec.ID, Destination: rec.field(destCol)})
	}

	m, rep := Build(pairs)

	return m, rep, nil
}

// WriteProbeList writes the sorted, unique probe ids found in column across
// all tables, one per line. The output is the input format of the DAVID
// gene ID conversion tool.
func WriteProbeList(w io.Writer, tables []*table.Table, column string) (int, error) {
	unique := make(map[string]struct{})
	for i, t := range tables {
		probes, err := t.Column(column)
		if err != nil {
			return 0, pfx.Err(fmt.Errorf("table %d: %w", i, err))
		}
		for _, probe := range probes {
			unique[probe] = struct{}{}
		}
	}

	sorted := make([]string, 0, len(unique))
	for probe := range unique {
		sorted = append(sorted, probe)
	}
	sort.Strings(sorted)

	bw := bufio.NewWriter(w)
	for _, probe := range sorted {
		if _, err := fmt.Fprintln(bw, probe); err != nil {
			return 0, pfx.Err(err)
		}
	}

	return len(sorted), bw.Flush()
}
