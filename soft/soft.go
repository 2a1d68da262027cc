// Package soft parses GEO SOFT family files (the *_family.soft.gz downloads),
// exposing each platform and sample with its attributes and data table.
//
// See https://www.ncbi.nlm.nih.gov/geo/info/soft.html
package soft

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
)

type Kind string

const (
	KindDatabase Kind = "DATABASE"
	KindSeries   Kind = "SERIES"
	KindPlatform Kind = "PLATFORM"
	KindSample   Kind = "SAMPLE"
)

// Entity is one ^-delimited block of a SOFT file.
type Entity struct {
	Kind      Kind
	Accession string

	// Attributes holds the !Kind_key = value lines, keyed without the leading
	// "!Kind_". Keys may repeat, so values are kept in order.
	Attributes map[string][]string

	// ColumnDescriptions holds the #COLUMN = description lines.
	ColumnDescriptions map[string]string

	// Table is nil when the entity carries no data table.
	Table *table.Table
}

// Attribute returns the first value stored for key, or "".
func (e *Entity) Attribute(key string) string {
	if v := e.Attributes[key]; len(v) > 0 {
		return v[0]
	}

	return ""
}

type Family struct {
	Database  *Entity
	Series    *Entity
	Platforms []*Entity
	Samples   []*Entity
}

// SampleIDs returns the sample accessions in file order.
func (f *Family) SampleIDs() []string {
	out := make([]string, 0, len(f.Samples))
	for _, s := range f.Samples {
		out = append(out, s.Accession)
	}

	return out
}

// SampleTables returns one table per sample, in file order.
func (f *Family) SampleTables() ([]*table.Table, error) {
	return tables(f.Samples)
}

// PlatformTables returns one annotation table per platform, in file order.
func (f *Family) PlatformTables() ([]*table.Table, error) {
	return tables(f.Platforms)
}

func tables(entities []*Entity) ([]*table.Table, error) {
	out := make([]*table.Table, 0, len(entities))
	for _, e := range entities {
		if e.Table == nil {
			return nil, fmt.Errorf("%s %s has no data table", e.Kind, e.Accession)
		}
		out = append(out, e.Table)
	}

	return out, nil
}

// Parse reads a SOFT family file.
func Parse(r io.Reader) (*Family, error) {
	fam := &Family{}
	br := bufio.NewReaderSize(r, 4096*32)

	var (
		current *Entity
		inTable bool
		header  []string
	)

	for i := 1; ; i++ {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, pfx.Err(fmt.Errorf("SOFT line %d: %w", i, err))
		}
		if err == io.EOF && line == "" {
			break
		}
		atEOF := err == io.EOF

		line = strings.TrimRight(line, "\r\n")

		if inTable {
			if isTableMarker(line, "_table_end") {
				if header == nil {
					current.Table = table.New(nil)
				}
				inTable = false
				header = nil
			} else if header == nil {
				header = strings.Split(line, "\t")
				current.Table = table.New(header)
			} else {
				current.Table.Append(strings.Split(line, "\t"))
			}

			if atEOF {
				break
			}
			continue
		}

		switch {
		case strings.TrimSpace(line) == "":
		case strings.HasPrefix(line, "^"):
			kind, acc := splitAssignment(line[1:])
			current = &Entity{
				Kind:               Kind(strings.ToUpper(kind)),
				Accession:          acc,
				Attributes:         make(map[string][]string),
				ColumnDescriptions: make(map[string]string),
			}
			fam.add(current)
		case isTableMarker(line, "_table_begin"):
			if current == nil {
				return nil, fmt.Errorf("SOFT line %d: table begins before any entity", i)
			}
			inTable = true
		case isTableMarker(line, "_table_end"):
			return nil, fmt.Errorf("SOFT line %d: table end without a table begin", i)
		case strings.HasPrefix(line, "!"):
			if current == nil {
				return nil, fmt.Errorf("SOFT line %d: attribute outside of any entity", i)
			}
			key, value := splitAssignment(line[1:])
			key = trimKindPrefix(key, current.Kind)
			current.Attributes[key] = append(current.Attributes[key], value)
		case strings.HasPrefix(line, "#"):
			if current == nil {
				return nil, fmt.Errorf("SOFT line %d: column description outside of any entity", i)
			}
			key, value := splitAssignment(line[1:])
			current.ColumnDescriptions[key] = value
		}

		if atEOF {
			break
		}
	}

	if inTable {
		return nil, fmt.Errorf("%s %s: data table was never terminated", current.Kind, current.Accession)
	}

	return fam, nil
}

func (f *Family) add(e *Entity) {
	switch e.Kind {
	case KindDatabase:
		f.Database = e
	case KindSeries:
		f.Series = e
	case KindPlatform:
		f.Platforms = append(f.Platforms, e)
	case KindSample:
		f.Samples = append(f.Samples, e)
	}
}

// splitAssignment splits "key = value". A line without " = " is all key.
func splitAssignment(s string) (string, string) {
	parts := strings.SplitN(s, "=", 2)
	key := strings.TrimSpace(parts[0])
	if len(parts) < 2 {
		return key, ""
	}

	return key, strings.TrimSpace(parts[1])
}

func isTableMarker(line, suffix string) bool {
	lower := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(lower, "!") && strings.HasSuffix(lower, suffix) && !strings.Contains(lower, "=")
}

func trimKindPrefix(key string, kind Kind) string {
	prefix := string(kind) + "_"
	if len(key) > len(prefix) && strings.EqualFold(key[:len(prefix)], prefix) {
		return key[len(prefix):]
	}

	return key
}
