package pathway

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/carbocation/pfx"
)

// gmtSet is one line of a GMT file: NAME<TAB>DESCRIPTION<TAB>GENE...
type gmtSet struct {
	Name  string
	Genes []string
}

func readGMT(r io.Reader) ([]gmtSet, error) {
	out := make([]gmtSet, 0)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		parts := strings.Split(text, "\t")
		set := gmtSet{Name: parts[0]}
		if len(parts) > 2 {
			for _, gene := range parts[2:] {
				if gene = strings.TrimSpace(gene); gene != "" {
					set.Genes = append(set.Genes, gene)
				}
			}
		}
		out = append(out, set)
	}
	if err := scanner.Err(); err != nil {
		return nil, pfx.Err(fmt.Errorf("line %d: %w", line, err))
	}

	return out, nil
}

// ReadPANTHER reads the PANTHER pathway GMT, whose set names look like
// "Apoptosis signaling pathway%PANTHER PATHWAY%P00006". The id is the last
// %-separated field and the name is the first, lowercased.
func ReadPANTHER(r io.Reader) ([]Record, error) {
	sets, err := readGMT(r)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0)
	for _, set := range sets {
		fields := strings.Split(set.Name, "%")
		id := fields[len(fields)-1]
		name := strings.ToLower(fields[0])

		for _, gene := range set.Genes {
			out = append(out, Record{Database: DatabasePANTHER, PathwayID: id, PathwayName: name, Entrez: gene})
		}
	}

	return out, nil
}

// Describer resolves a pathway id into a human-readable name.
type Describer func(id string) (string, error)

// ReadBioCarta reads the BioCarta GMT from MSigDB. The id is the last
// %-separated field of the set name. The pathway name comes from describe; if
// that is nil or fails, the id doubles as the name.
func ReadBioCarta(r io.Reader, describe Describer) ([]Record, error) {
	sets, err := readGMT(r)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0)
	for _, set := range sets {
		fields := strings.Split(set.Name, "%")
		id := fields[len(fields)-1]

		name := id
		if describe != nil {
			if desc, err := describe(id); err != nil {
				log.Printf("No description for %s, using its id: %v\n", id, err)
			} else if desc != "" {
				name = desc
			}
		}

		for _, gene := range set.Genes {
			out = append(out, Record{Database: DatabaseBioCarta, PathwayID: id, PathwayName: name, Entrez: gene})
		}
	}

	return out, nil
}
