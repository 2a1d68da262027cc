package normalize

import (
	"bufio"
	"io"
	"strconv"

	"github.com/montanaflynn/stats"
)

// Matrix is dense: Values[i][j] is the log2 relative abundance of Genes[i] in
// Samples[j].
type Matrix struct {
	Genes   []string
	Samples []string
	Values  [][]float64
}

// Column returns the values of the j-th sample.
func (mat *Matrix) Column(j int) []float64 {
	out := make([]float64, len(mat.Genes))
	for i := range mat.Genes {
		out[i] = mat.Values[i][j]
	}

	return out
}

// WriteTSV writes a header of GeneColumn followed by the sample ids, then one
// row per gene.
func (mat *Matrix) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(GeneColumn)
	for _, id := range mat.Samples {
		bw.WriteByte('\t')
		bw.WriteString(id)
	}
	bw.WriteByte('\n')

	for i, gene := range mat.Genes {
		bw.WriteString(gene)
		for _, v := range mat.Values[i] {
			bw.WriteByte('\t')
			bw.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}

	return bw.Flush()
}

type SampleSummary struct {
	ID     string
	Mean   float64
	Median float64
	Min    float64
	Max    float64
}

// Summarize describes the distribution of each sample column. An empty matrix
// yields no summaries.
func (mat *Matrix) Summarize() ([]SampleSummary, error) {
	if len(mat.Genes) == 0 {
		return nil, nil
	}

	out := make([]SampleSummary, 0, len(mat.Samples))
	for j, id := range mat.Samples {
		col := stats.Float64Data(mat.Column(j))

		s := SampleSummary{ID: id}
		var err error
		if s.Mean, err = col.Mean(); err != nil {
			return nil, err
		}
		if s.Median, err = col.Median(); err != nil {
			return nil, err
		}
		if s.Min, err = col.Min(); err != nil {
			return nil, err
		}
		if s.Max, err = col.Max(); err != nil {
			return nil, err
		}

		out = append(out, s)
	}

	return out, nil
}
