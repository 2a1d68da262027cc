// pathway2tsv flattens a pathway gene set collection into a TSV of
// (database, pathway_id, pathway_name, entrez), ready for loading into a
// database.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geneexpr"
	_ "github.com/carbocation/geneexpr/compileinfoprint"
	"github.com/carbocation/geneexpr/pathway"
	"github.com/carbocation/geneexpr/table"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

var formats = []string{"panther", "biocarta", "wikipathways", "mirtarbase", "kegg"}

func main() {
	defer STDOUT.Flush()

	var format, input, organism, msigdbURL, keggURL string
	var describe, keepOrganism bool
	var timeout time.Duration

	flag.StringVar(&format, "format", "", fmt.Sprintf("Input format. One of: %s", strings.Join(formats, ", ")))
	flag.StringVar(&input, "input", "", "Path to the input: a GMT file (panther, biocarta), a directory of .gpml files (wikipathways) or a CSV or TSV file (mirtarbase). May be compressed or a gs:// path, except for wikipathways. Not used with kegg.")
	flag.StringVar(&organism, "organism", "hsa", "KEGG organism code.")
	flag.BoolVar(&keepOrganism, "keep_organism", false, "With kegg, keep the ' - Organism' suffix on pathway names.")
	flag.BoolVar(&describe, "describe", false, "With biocarta, look up each pathway's name on MSigDB. Otherwise the id is used as the name.")
	flag.StringVar(&msigdbURL, "msigdb_url", pathway.DefaultMSigDBURL, "MSigDB gene set page used by -describe.")
	flag.StringVar(&keggURL, "kegg_url", pathway.DefaultKEGGURL, "Base URL of the KEGG REST API.")
	flag.DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for each HTTP request.")
	flag.Parse()

	if format == "" || (input == "" && format != "kegg") {
		flag.PrintDefaults()
		os.Exit(1)
	}

	records, err := run(context.Background(), format, input, organism, !keepOrganism, describe, msigdbURL, keggURL, timeout)
	if err != nil {
		log.Fatalln(err)
	}

	if err := pathway.WriteTSV(STDOUT, records); err != nil {
		log.Fatalln(err)
	}
	log.Println("Printed", len(records), "pathway memberships")
}

func run(ctx context.Context, format, input, organism string, trimOrganism, describe bool, msigdbURL, keggURL string, timeout time.Duration) ([]pathway.Record, error) {
	switch format {
	case "kegg":
		k := pathway.NewKEGG(timeout)
		k.BaseURL = keggURL
		log.Println("Fetching KEGG pathways for", organism)
		return k.Fetch(ctx, organism, trimOrganism)
	case "wikipathways":
		local, err := geneexpr.ExpandHome(input)
		if err != nil {
			return nil, err
		}
		return pathway.ReadWikiPathwaysDir(local)
	case "panther", "biocarta", "mirtarbase":
	default:
		return nil, fmt.Errorf("unknown format %q; expected one of %v", format, formats)
	}

	var client *storage.Client
	if geneexpr.IsGoogleStoragePath(input) {
		var err error
		if client, err = storage.NewClient(ctx); err != nil {
			return nil, err
		}
		defer client.Close()
	}

	if format == "mirtarbase" {
		// miRTarBase exports circulate both as CSV and as re-saved TSV
		t, err := table.ReadFile(ctx, input, client)
		if err != nil {
			return nil, err
		}
		return pathway.MiRTarBaseFromTable(t)
	}

	rc, err := geneexpr.OpenDecompressed(ctx, input, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	switch format {
	case "panther":
		return pathway.ReadPANTHER(rc)
	case "biocarta":
		var describer pathway.Describer
		if describe {
			describer = pathway.NewMSigDBDescriber(ctx, &http.Client{Timeout: timeout}, msigdbURL)
		}
		return pathway.ReadBioCarta(rc, describer)
	}

	return nil, fmt.Errorf("unknown format %q", format)
}
