// geonormalize maps the probe measurements of a GEO series to Entrez genes and
// prints a matrix of log2 relative gene abundances, one column per sample.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
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
	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
)

var (
	STDOUT = bufio.NewWriterSize(os.Stdout, 4096)
)

func main() {
	defer STDOUT.Flush()

	var gse, cacheDir, softPath, davidPath, fromCol, toCol, probeCol, valueCol, outPath, mapperOut string
	var isLog2 bool
	var concurrency int
	var timeout time.Duration

	flag.StringVar(&gse, "gse", "", "GEO series accession to download (or read from -cache), e.g., GSE2034.")
	flag.StringVar(&cacheDir, "cache", ".", "Directory where downloaded series files are kept.")
	flag.StringVar(&softPath, "soft", "", "Alternative to -gse: path to a (possibly compressed) *_family.soft file. May be a gs:// path.")
	flag.StringVar(&davidPath, "david", "", "Optional. Path to a DAVID gene ID conversion file. If empty, the platform annotation tables of the series are used.")
	flag.StringVar(&fromCol, "from", "ID", "Platform table column holding the probe id. Ignored with -david.")
	flag.StringVar(&toCol, "to", mapper.DAVIDEntrezGeneID, "Column holding the Entrez gene id, in the platform tables or in the DAVID file.")
	flag.StringVar(&probeCol, "probe", normalize.DefaultProbeColumn, "Sample table column holding the probe id.")
	flag.StringVar(&valueCol, "value", normalize.DefaultValueColumn, "Sample table column holding the measurement.")
	flag.BoolVar(&isLog2, "log2", false, "Set if the sample values are already log2-scaled.")
	flag.IntVar(&concurrency, "concurrency", 1, "Number of samples to normalize at once.")
	flag.StringVar(&outPath, "out", "", "Optional. File to write the matrix to. Defaults to STDOUT.")
	flag.StringVar(&mapperOut, "mapper_out", "", "Optional. File to write the probe to gene mapping to.")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "Timeout for downloading the series.")
	flag.Parse()

	if (gse == "") == (softPath == "") {
		fmt.Fprintln(os.Stderr, "Exactly one of -gse or -soft is required.")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx := context.Background()

	var client *storage.Client
	if geneexpr.IsGoogleStoragePath(softPath) || geneexpr.IsGoogleStoragePath(davidPath) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	var family *soft.Family
	var err error
	if gse != "" {
		family, err = geo.NewLoader(cacheDir, timeout).Load(ctx, gse)
	} else {
		family, err = geo.LoadFile(ctx, softPath, client)
	}
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Series %s: %d platforms, %d samples\n", seriesName(family, gse, softPath), len(family.Platforms), len(family.Samples))

	m, err := buildMapper(ctx, family, client, davidPath, fromCol, toCol)
	if err != nil {
		log.Fatalln(err)
	}

	if mapperOut != "" {
		if err := writeFile(mapperOut, func(w io.Writer) error {
			return m.WriteTSV(w, fromCol, toCol)
		}); err != nil {
			log.Fatalln(err)
		}
		log.Println("Wrote the probe to gene mapping to", mapperOut)
	}

	opts := normalize.Options{
		ProbeColumn: probeCol,
		ValueColumn: valueCol,
		IsLog2:      isLog2,
		Concurrency: concurrency,
	}
	mat, err := run(ctx, family, m, opts)
	if err != nil {
		log.Fatalln(err)
	}

	if outPath == "" {
		if err := mat.WriteTSV(STDOUT); err != nil {
			log.Fatalln(err)
		}
		return
	}

	if err := writeFile(outPath, mat.WriteTSV); err != nil {
		log.Fatalln(err)
	}
	log.Println("Wrote", len(mat.Genes), "genes x", len(mat.Samples), "samples to", outPath)
}

// seriesName labels the series in logs. A SOFT file may lack a ^SERIES block.
func seriesName(family *soft.Family, gse, softPath string) string {
	if family.Series != nil && family.Series.Accession != "" {
		return family.Series.Accession
	}
	if gse != "" {
		return gse
	}

	return softPath
}

func buildMapper(ctx context.Context, family *soft.Family, client *storage.Client, davidPath, fromCol, toCol string) (mapper.Mapper, error) {
	var m mapper.Mapper
	var rep mapper.Report

	if davidPath != "" {
		// DAVID output is tab-delimited, but it is often re-saved as CSV
		t, err := table.ReadFile(ctx, davidPath, client)
		if err != nil {
			return m, err
		}

		m, rep, err = mapper.FromDAVIDTable(t, toCol)
		if err != nil {
			return m, pfx.Err(fmt.Errorf("%s: %w", davidPath, err))
		}
		log.Println("DAVID mapping:", rep)
	} else {
		platforms, err := family.PlatformTables()
		if err != nil {
			return m, err
		}

		m, rep, err = mapper.FromTables(platforms, fromCol, toCol)
		if err != nil {
			return m, err
		}
		log.Println("Platform mapping:", rep)
	}

	if m.Len() == 0 {
		return m, fmt.Errorf("no probe could be mapped to a gene")
	}

	return m, nil
}

func run(ctx context.Context, family *soft.Family, m mapper.Mapper, opts normalize.Options) (*normalize.Matrix, error) {
	tables, err := family.SampleTables()
	if err != nil {
		return nil, err
	}

	samples, err := normalize.Samples(tables, family.SampleIDs())
	if err != nil {
		return nil, err
	}

	mat, rep, err := normalize.Normalize(ctx, samples, m, opts)
	if err != nil {
		return nil, err
	}

	for _, s := range rep.Samples {
		log.Printf("%s: %d rows, %d missing, %d unmapped, %d genes, %d non-finite, %d kept\n", s.ID, s.Rows, s.Missing, s.Unmapped, s.Genes, s.NonFinite, s.Kept)
	}
	log.Printf("%d genes seen, %d dropped for being absent from some sample, %d kept\n", rep.GenesSeen, rep.Incomplete, rep.GenesKept)

	summaries, err := mat.Summarize()
	if err != nil {
		return nil, err
	}
	for _, s := range summaries {
		log.Printf("%s: mean %.4g, median %.4g, min %.4g, max %.4g\n", s.ID, s.Mean, s.Median, s.Min, s.Max)
	}

	return mat, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	local, err := geneexpr.ExpandHome(path)
	if err != nil {
		return err
	}

	f, err := os.Create(local)
	if err != nil {
		return pfx.Err(err)
	}

	if err := write(f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return f.Close()
}
