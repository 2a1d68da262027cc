// Package normalize turns per-sample probe measurements into a dense matrix of
// log2 relative gene abundances.
package normalize

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/carbocation/geneexpr/mapper"
	"github.com/carbocation/geneexpr/table"
	"github.com/carbocation/pfx"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultProbeColumn = "ID_REF"
	DefaultValueColumn = "VALUE"

	// GeneColumn labels the row key of the output matrix
	GeneColumn = "ENTREZ_GENE_ID"
)

type Options struct {
	ProbeColumn string
	ValueColumn string

	// IsLog2 declares that input values are log2-scaled. They are
	// exponentiated before probes are averaged. Nothing checks the claim.
	IsLog2 bool

	// Concurrency bounds how many samples are processed at once. Values
	// below 1 mean 1.
	Concurrency int
}

func (o Options) withDefaults() Options {
	if o.ProbeColumn == "" {
		o.ProbeColumn = DefaultProbeColumn
	}
	if o.ValueColumn == "" {
		o.ValueColumn = DefaultValueColumn
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}

	return o
}

type Sample struct {
	ID    string
	Table *table.Table
}

// SampleReport counts the rows and genes each step of NormalizeSample
// discarded for one sample.
type SampleReport struct {
	ID          string
	Rows        int
	Missing     int // missing probe ids; null, non-numeric or infinite values
	Unmapped    int // probes absent from the mapper
	Genes       int // genes after averaging probes
	NonFinite   int // genes whose normalized log2 value was not finite
	Kept        int
	InfiniteSum bool
}

type Report struct {
	Samples    []SampleReport
	GenesSeen  int // genes present in at least one sample
	Incomplete int // genes dropped for missing in at least one sample
	GenesKept  int
}

// Samples pairs tables with caller-chosen sample ids, in order.
func Samples(tables []*table.Table, ids []string) ([]Sample, error) {
	if len(tables) != len(ids) {
		return nil, fmt.Errorf("got %d sample tables but %d sample ids", len(tables), len(ids))
	}

	out := make([]Sample, 0, len(tables))
	for i := range tables {
		out = append(out, Sample{ID: ids[i], Table: tables[i]})
	}

	return out, nil
}

// NormalizeSample maps one sample's probes to genes and returns each gene's
// log2 share of the sample total. The steps run in this order:
//
//  1. keep the probe and value columns
//  2. drop rows with a missing probe id or a null, non-numeric or infinite
//     value
//  3. inner join probes against m (unmapped probes are dropped)
//  4. if IsLog2, exponentiate to linear scale
//  5. average probes that share a gene
//  6. divide by the sum over genes, then take log2
//  7. drop genes whose result is not finite (e.g., log2 of zero)
func NormalizeSample(t *table.Table, m mapper.Mapper, opts Options) (map[string]float64, SampleReport, error) {
	opts = opts.withDefaults()
	rep := SampleReport{Rows: t.Len()}

	cols, err := t.MustCols(opts.ProbeColumn, opts.ValueColumn)
	if err != nil {
		return nil, rep, pfx.Err(err)
	}
	probeCol, valueCol := cols[0], cols[1]

	byGene := make(map[string][]float64)
	for _, row := range t.Rows {
		if mapper.IsMissing(row[probeCol]) {
			rep.Missing++
			continue
		}

		v := mapper.ParseFloat(row[valueCol])
		if !v.Valid || math.IsInf(v.Float64, 0) {
			rep.Missing++
			continue
		}

		gene, ok := m.Lookup(row[probeCol])
		if !ok {
			rep.Unmapped++
			continue
		}

		value := v.Float64
		if opts.IsLog2 {
			value = math.Pow(2, value)
		}

		byGene[gene] = append(byGene[gene], value)
	}

	genes := make([]string, 0, len(byGene))
	for gene := range byGene {
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	rep.Genes = len(genes)

	means := make([]float64, len(genes))
	for i, gene := range genes {
		means[i] = stat.Mean(byGene[gene], nil)
	}

	total := floats.Sum(means)
	if math.IsInf(total, 0) {
		rep.InfiniteSum = true
	}

	out := make(map[string]float64, len(genes))
	for i, gene := range genes {
		v := math.Log2(means[i] / total)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			rep.NonFinite++
			continue
		}
		out[gene] = v
	}
	rep.Kept = len(out)

	return out, rep, nil
}

// Normalize processes every sample and merges them into a Matrix. Genes are
// unioned across samples and then any gene absent from even one sample is
// dropped, so the result is dense.
func Normalize(ctx context.Context, samples []Sample, m mapper.Mapper, opts Options) (*Matrix, Report, error) {
	opts = opts.withDefaults()
	rep := Report{}

	if len(samples) == 0 {
		return nil, rep, fmt.Errorf("no samples to normalize")
	}

	ids := make([]string, 0, len(samples))
	seenIDs := make(map[string]struct{}, len(samples))
	for _, s := range samples {
		if _, exists := seenIDs[s.ID]; exists {
			return nil, rep, fmt.Errorf("sample id %q is used more than once", s.ID)
		}
		seenIDs[s.ID] = struct{}{}
		ids = append(ids, s.ID)
	}

	// Each goroutine writes only its own slot
	results := make([]map[string]float64, len(samples))
	rep.Samples = make([]SampleReport, len(samples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i := range samples {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			values, srep, err := NormalizeSample(samples[i].Table, m, opts)
			srep.ID = samples[i].ID
			if err != nil {
				return fmt.Errorf("sample %s: %w", samples[i].ID, err)
			}
			if srep.InfiniteSum {
				log.Printf("Sample %s: the sum of its %d gene values is infinite; its normalized values will be degenerate\n", srep.ID, srep.Genes)
			}

			results[i] = values
			rep.Samples[i] = srep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, rep, err
	}

	union := make(map[string]int)
	for _, values := range results {
		for gene := range values {
			union[gene]++
		}
	}
	rep.GenesSeen = len(union)

	genes := make([]string, 0, len(union))
	for gene, count := range union {
		if count != len(results) {
			rep.Incomplete++
			continue
		}
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	rep.GenesKept = len(genes)

	mat := &Matrix{
		Genes:   genes,
		Samples: ids,
		Values:  make([][]float64, len(genes)),
	}
	for i, gene := range genes {
		row := make([]float64, len(results))
		for j, values := range results {
			row[j] = values[gene]
		}
		mat.Values[i] = row
	}

	return mat, rep, nil
}
