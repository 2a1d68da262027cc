// davidinput prints the unique probe ids of a GEO series, one per line, ready
// to be pasted into the DAVID gene ID conversion tool.
package main

import (
	"bufio"
	"context"
	"flag"
	"log"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/carbocation/geneexpr"
	_ "github.com/carbocation/geneexpr/compileinfoprint"
	"github.com/carbocation/geneexpr/geo"
	"github.com/carbocation/geneexpr/mapper"
	"github.com/carbocation/geneexpr/normalize"
	"github.com/carbocation/geneexpr/soft"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var gse, cacheDir, softPath, probeCol string
	var timeout time.Duration

	flag.StringVar(&gse, "gse", "", "GEO series accession, e.g., GSE2034.")
	flag.StringVar(&cacheDir, "cache", ".", "Directory where downloaded series files are kept.")
	flag.StringVar(&softPath, "soft", "", "Alternative to -gse: path to a (possibly compressed) *_family.soft file. May be a gs:// path.")
	flag.StringVar(&probeCol, "probe", normalize.DefaultProbeColumn, "Sample table column holding the probe id.")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Timeout for downloading the series.")
	flag.Parse()

	if (gse == "") == (softPath == "") {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	var family *soft.Family
	var err error
	if gse != "" {
		family, err = geo.NewLoader(cacheDir, timeout).Load(ctx, gse)
	} else {
		var client *storage.Client
		if geneexpr.IsGoogleStoragePath(softPath) {
			if client, err = storage.NewClient(ctx); err != nil {
				log.Fatalln(err)
			}
			defer client.Close()
		}
		family, err = geo.LoadFile(ctx, softPath, client)
	}
	if err != nil {
		log.Fatalln(err)
	}

	tables, err := family.SampleTables()
	if err != nil {
		log.Fatalln(err)
	}

	n, err := mapper.WriteProbeList(STDOUT, tables, probeCol)
	if err != nil {
		log.Fatalln(err)
	}
	log.Println("Printed", n, "unique probes from", len(tables), "samples")
}
