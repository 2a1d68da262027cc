package pathway

import (
	"fmt"
	"io"

	"github.com/carbocation/geneexpr/mapper"
	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
)

const (
	MiRTarBaseMiRNAColumn  = "miRNA"
	MiRTarBaseEntrezColumn = "Target Gene (Entrez Gene ID)"
)

// ReadMiRTarBase reads a miRTarBase CSV export. See MiRTarBaseFromTable.
func ReadMiRTarBase(r io.Reader) ([]Record, error) {
	t, err := table.Read(r, ',')
	if err != nil {
		return nil, pfx.Err(err)
	}

	return MiRTarBaseFromTable(t)
}

// MiRTarBaseFromTable extracts records from a miRTarBase export. Each miRNA
// is treated as a pathway whose members are its target genes. Records are grouped by miRNA in
// order of first appearance, and within a miRNA its targets keep their first
// appearance order with duplicates removed. Targets are canonicalized like
// any other gene id; rows without a usable one are skipped.
func MiRTarBaseFromTable(t *table.Table) ([]Record, error) {
	cols, err := t.MustCols(MiRTarBaseMiRNAColumn, MiRTarBaseEntrezColumn)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("miRTarBase file: %w", err))
	}

	order := make([]string, 0)
	targets := make(map[string][]string)
	seen := make(map[[2]string]struct{})

	for _, row := range t.Rows {
		mirna := row[cols[0]]
		gene := mapper.ParseGeneID(row[cols[1]])
		if mirna == "" || !gene.Valid {
			continue
		}

		key := [2]string{mirna, gene.String}
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}

		if _, exists := targets[mirna]; !exists {
			order = append(order, mirna)
		}
		targets[mirna] = append(targets[mirna], gene.String)
	}

	out := make([]Record, 0, len(seen))
	for _, mirna := range order {
		for _, gene := range targets[mirna] {
			out = append(out, Record{Database: DatabaseMiRTarBase, PathwayID: mirna, PathwayName: mirna, Entrez: gene})
		}
	}

	return out, nil
}
