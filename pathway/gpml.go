package pathway

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/carbocation/pfx"
	"golang.org/x/net/html/charset"
)

// Element names carry no namespace so that every GPML schema revision
// (2010a, 2013a, 2021) decodes.
type gpmlPathway struct {
	XMLName   xml.Name       `xml:"Pathway"`
	Name      string         `xml:"Name,attr"`
	Title     string         `xml:"title,attr"`
	DataNodes []gpmlDataNode `xml:"DataNode"`

	// GPML 2021 nests the nodes in a DataNodes element
	NestedDataNodes []gpmlDataNode `xml:"DataNodes>DataNode"`
}

type gpmlDataNode struct {
	Xref *gpmlXref `xml:"Xref"`
}

// GPML 2021 renamed Database/ID to dataSource/identifier.
type gpmlXref struct {
	Database   string `xml:"Database,attr"`
	ID         string `xml:"ID,attr"`
	DataSource string `xml:"dataSource,attr"`
	Identifier string `xml:"identifier,attr"`
}

func (x gpmlXref) database() string {
	if x.Database != "" {
		return x.Database
	}
	return x.DataSource
}

func (x gpmlXref) id() string {
	if x.ID != "" {
		return x.ID
	}
	return x.Identifier
}

// PathwayIDFromFileName takes the last _-separated part of a GPML file name,
// e.g., "Hs_Apoptosis_WP254_105553.gpml" yields "105553".
func PathwayIDFromFileName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), ".gpml")
	parts := strings.Split(base, "_")

	return parts[len(parts)-1]
}

// ReadGPML reads one WikiPathways GPML document. Every DataNode whose Xref
// database mentions "Entrez Gene" and carries an id becomes a record.
func ReadGPML(r io.Reader, pathwayID string) ([]Record, error) {
	var doc gpmlPathway
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, pfx.Err(err)
	}

	name := doc.Name
	if name == "" {
		name = doc.Title
	}

	out := make([]Record, 0)
	nodes := append(doc.DataNodes, doc.NestedDataNodes...)
	for _, node := range nodes {
		if node.Xref == nil || !strings.Contains(node.Xref.database(), "Entrez Gene") {
			continue
		}
		gene := strings.TrimSpace(node.Xref.id())
		if gene == "" {
			continue
		}
		out = append(out, Record{Database: DatabaseWikiPathways, PathwayID: pathwayID, PathwayName: name, Entrez: gene})
	}

	return out, nil
}

// ReadWikiPathwaysDir reads every .gpml file in dir, in name order.
func ReadWikiPathwaysDir(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Record, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".gpml") {
			continue
		}

		records, err := readGPMLFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
	}

	return out, nil
}

func readGPMLFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	records, err := ReadGPML(f, PathwayIDFromFileName(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return records, nil
}
