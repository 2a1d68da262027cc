// Package pathway extracts (pathway, gene) memberships from public gene set
// collections into one flat record shape.
package pathway

import (
	"bufio"
	"io"
	"strings"
)

const (
	DatabasePANTHER      = "panther"
	DatabaseBioCarta     = "biocarta"
	DatabaseWikiPathways = "wikipathway"
	DatabaseMiRTarBase   = "MiRTarBase"
	DatabaseKEGG         = "kegg"
)

// Record states that the gene Entrez belongs to a pathway.
type Record struct {
	Database    string
	PathwayID   string
	PathwayName string
	Entrez      string
}

// WriteTSV writes records under the header
// database, pathway_id, pathway_name, entrez.
func WriteTSV(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("database\tpathway_id\tpathway_name\tentrez\n")

	for _, rec := range records {
		bw.WriteString(strings.Join([]string{
			cleanField(rec.Database),
			cleanField(rec.PathwayID),
			cleanField(rec.PathwayName),
			cleanField(rec.Entrez),
		}, "\t"))
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// cleanField collapses runs of whitespace, tabs and newlines included, into
// single spaces.
func cleanField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
