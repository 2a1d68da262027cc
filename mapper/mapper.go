// Package mapper builds the lookup from platform-specific probe identifiers to
// Entrez gene identifiers.
//
// A probe that is annotated with two different genes, or with a composite
// ("///"-joined) annotation, is excluded rather than resolved.
package mapper

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

// CompositeSeparator marks destination values that link several identifiers.
const CompositeSeparator = "/"

// Mapper is an immutable probe to gene lookup. The zero value is an empty
// mapper.
type Mapper struct {
	m map[string]string
}

// Pair is one (source, destination) observation, e.g., one row of a platform
// annotation table.
type Pair struct {
	Source      string
	Destination string
}

// Report counts what happened to each input row during Build.
type Report struct {
	Rows         int
	Missing      int
	NonNumeric   int
	Contradicted int // distinct probes invalidated by disagreeing rows
	Composite    int // distinct probes dropped for composite values
	Kept         int // distinct probes in the final mapper
}

func (r Report) String() string {
	return fmt.Sprintf("%d rows: %d missing, %d non-numeric; %d probes contradicted, %d composite, %d kept",
		r.Rows, r.Missing, r.NonNumeric, r.Contradicted, r.Composite, r.Kept)
}

// Build constructs a Mapper from pairs. Rows with a missing source or a
// missing or non-numeric destination are skipped. A source seen with two different canonical gene ids
// is invalidated for good: neither value is trusted. The result does not
// depend on the order of pairs.
func Build(pairs []Pair) (Mapper, Report) {
	rep := Report{Rows: len(pairs)}

	// An invalid null.String marks a source with no usable mapping
	seen := make(map[string]null.String)

	for _, p := range pairs {
		if IsMissing(p.Source) || IsMissing(p.Destination) {
			rep.Missing++
			continue
		}

		var gene null.String
		if dest := strings.TrimSpace(p.Destination); strings.Contains(dest, CompositeSeparator) {
			// Composites still contradict other values; they are dropped below
			gene = null.StringFrom(dest)
		} else if gene = ParseGeneID(p.Destination); !gene.Valid {
			if f := ParseFloat(p.Destination); f.Valid && f.Float64 == 0 {
				// A zero gene id is as good as absent
				rep.Missing++
			} else {
				rep.NonNumeric++
			}
			continue
		}

		prev, exists := seen[p.Source]
		if !exists {
			seen[p.Source] = gene
			continue
		}

		if prev.Valid && prev.String != gene.String {
			seen[p.Source] = null.String{}
			rep.Contradicted++
		}
	}

	out := make(map[string]string, len(seen))
	for source, gene := range seen {
		if !gene.Valid {
			continue
		}
		if strings.Contains(gene.String, CompositeSeparator) {
			rep.Composite++
			continue
		}
		out[source] = gene.String
	}
	rep.Kept = len(out)

	return Mapper{m: out}, rep
}

// FromTables builds a Mapper from platform annotation tables, reading the
// source id from fromCol and the gene id from destCol of every table.
func FromTables(tables []*table.Table, fromCol, destCol string) (Mapper, Report, error) {
	pairs := make([]Pair, 0)
	for i, t := range tables {
		cols, err := t.MustCols(fromCol, destCol)
		if err != nil {
			return Mapper{}, Report{}, pfx.Err(fmt.Errorf("platform table %d: %w", i, err))
		}
		for _, row := range t.Rows {
			pairs = append(pairs, Pair{Source: row[cols[0]], Destination: row[cols[1]]})
		}
	}

	m, rep := Build(pairs)

	return m, rep, nil
}

// Lookup returns the gene id for probe.
func (m Mapper) Lookup(probe string) (string, bool) {
	gene, ok := m.m[probe]
	return gene, ok
}

func (m Mapper) Len() int {
	return len(m.m)
}

// Probes returns the mapped probe ids in ascending order.
func (m Mapper) Probes() []string {
	out := make([]string, 0, len(m.m))
	for probe := range m.m {
		out = append(out, probe)
	}
	sort.Strings(out)

	return out
}

// Equal reports whether both mappers hold exactly the same mappings.
func (m Mapper) Equal(other Mapper) bool {
	if len(m.m) != len(other.m) {
		return false
	}
	for probe, gene := range m.m {
		if g, ok := other.m[probe]; !ok || g != gene {
			return false
		}
	}

	return true
}

// WriteTSV writes the mapper as a two-column table with a header, sorted by
// probe.
func (m Mapper) WriteTSV(w io.Writer, fromLabel, destLabel string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\n", fromLabel, destLabel)
	for _, probe := range m.Probes() {
		fmt.Fprintf(bw, "%s\t%s\n", probe, m.m[probe])
	}

	return bw.Flush()
}
