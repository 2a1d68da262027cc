package normalize

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/carbocation/geneexpr/mapper"
	"github.com/carbocation/geneexpr/table"
)

func sampleTable(rows ...[2]string) *table.Table {
	t := table.New([]string{"ID_REF", "IDENTIFIER", "VALUE"})
	for _, r := range rows {
		t.Append([]string{r[0], "x", r[1]})
	}
	return t
}

func buildMapper(rows ...[2]string) mapper.Mapper {
	pairs := make([]mapper.Pair, 0, len(rows))
	for _, r := range rows {
		pairs = append(pairs, mapper.Pair{Source: r[0], Destination: r[1]})
	}
	m, _ := mapper.Build(pairs)
	return m
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestTwoProbesOneGeneLinear(t *testing.T) {
	m := buildMapper([2]string{"101_at", "500"}, [2]string{"102_at", "500"})
	tab := sampleTable([2]string{"101_at", "10"}, [2]string{"102_at", "30"})

	values, rep, err := NormalizeSample(tab, m, Options{IsLog2: false})
	if err != nil {
		t.Fatal(err)
	}

	if len(values) != 1 || values["500"] != 0 {
		t.Errorf("got %v, expected a single gene at log2(1) = 0", values)
	}
	if rep.Genes != 1 || rep.Kept != 1 {
		t.Errorf("report: %+v", rep)
	}
}

func TestLog2InputIsExponentiatedBeforeAveraging(t *testing.T) {
	m := buildMapper([2]string{"a", "1"}, [2]string{"b", "1"}, [2]string{"c", "2"})

	// Linear values 2 and 8 average to 5 (not 2^2 = 4); gene 2 is 2^4 = 16
	tab := sampleTable([2]string{"a", "1"}, [2]string{"b", "3"}, [2]string{"c", "4"})

	values, _, err := NormalizeSample(tab, m, Options{IsLog2: true})
	if err != nil {
		t.Fatal(err)
	}

	if !near(values["1"], math.Log2(5.0/21)) || !near(values["2"], math.Log2(16.0/21)) {
		t.Errorf("got %v", values)
	}

	// Normalized shares sum to one
	if sum := math.Pow(2, values["1"]) + math.Pow(2, values["2"]); !near(sum, 1) {
		t.Errorf("shares sum to %v", sum)
	}
}

func TestRowFiltering(t *testing.T) {
	m := buildMapper([2]string{"a", "1"}, [2]string{"b", "2"}, [2]string{"z", "3"})
	tab := sampleTable(
		[2]string{"a", "5"},
		[2]string{"b", "NULL"},
		[2]string{"b", "inf"},
		[2]string{"b", "-inf"},
		[2]string{"b", "not a number"},
		[2]string{"unmapped", "7"},
		[2]string{"z", "0"},
	)

	values, rep, err := NormalizeSample(tab, m, Options{})
	if err != nil {
		t.Fatal(err)
	}

	// z survives the join but log2(0) is dropped
	if len(values) != 1 || values["1"] != 0 {
		t.Errorf("got %v", values)
	}
	if rep.Rows != 7 || rep.Missing != 4 || rep.Unmapped != 1 || rep.Genes != 2 || rep.NonFinite != 1 || rep.Kept != 1 {
		t.Errorf("report: %+v", rep)
	}
}

func TestMissingProbeIDsAreDropped(t *testing.T) {
	// Rows without a probe id count as missing rather than unmapped
	m := buildMapper([2]string{"P2", "200"})
	tab := sampleTable([2]string{"", "5"}, [2]string{"NA", "5"}, [2]string{"P2", "5"})
	tab.Append([]string{})

	values, rep, err := NormalizeSample(tab, m, Options{})
	if err != nil {
		t.Fatal(err)
	}

	if len(values) != 1 || values["200"] != 0 {
		t.Errorf("got %v, expected only gene 200 at 0", values)
	}
	if rep.Rows != 4 || rep.Missing != 3 || rep.Unmapped != 0 {
		t.Errorf("report: %+v", rep)
	}
}

func TestInfiniteSumIsNotFatal(t *testing.T) {
	m := buildMapper([2]string{"a", "1"}, [2]string{"b", "2"})
	tab := sampleTable([2]string{"a", "2000"}, [2]string{"b", "1"})

	values, rep, err := NormalizeSample(tab, m, Options{IsLog2: true})
	if err != nil {
		t.Fatal(err)
	}
	if !rep.InfiniteSum {
		t.Errorf("expected the infinite sum to be flagged: %+v", rep)
	}

	// 2^2000/Inf is NaN and 2/Inf is 0, so nothing finite remains
	if len(values) != 0 {
		t.Errorf("got %v", values)
	}
}

func TestMissingColumn(t *testing.T) {
	tab := table.New([]string{"ID_REF", "SIGNAL"})
	if _, _, err := NormalizeSample(tab, buildMapper(), Options{}); err == nil {
		t.Error("expected an error for a table without VALUE")
	}
}

func TestNormalizeDropsIncompleteGenes(t *testing.T) {
	m := buildMapper(
		[2]string{"p1", "100"},
		[2]string{"p2", "200"},
		[2]string{"p3", "300"},
		[2]string{"p4", "1000"},
	)

	gsm1 := sampleTable([2]string{"p1", "1"}, [2]string{"p2", "1"}, [2]string{"p3", "2"})
	gsm2 := sampleTable([2]string{"p1", "3"}, [2]string{"p2", "null"}, [2]string{"p3", "1"}, [2]string{"p4", "4"})

	samples, err := Samples([]*table.Table{gsm1, gsm2}, []string{"GSM1", "GSM2"})
	if err != nil {
		t.Fatal(err)
	}

	for _, concurrency := range []int{0, 1, 2} {
		mat, rep, err := Normalize(context.Background(), samples, m, Options{Concurrency: concurrency})
		if err != nil {
			t.Fatal(err)
		}

		// 200 is missing from GSM2 and 1000 from GSM1; string order puts 100 before 300
		if len(mat.Genes) != 2 || mat.Genes[0] != "100" || mat.Genes[1] != "300" {
			t.Fatalf("genes: %v", mat.Genes)
		}
		if mat.Samples[0] != "GSM1" || mat.Samples[1] != "GSM2" {
			t.Errorf("samples: %v", mat.Samples)
		}
		if !near(mat.Values[0][0], math.Log2(0.25)) || !near(mat.Values[1][0], math.Log2(0.5)) {
			t.Errorf("GSM1 column: %v", mat.Column(0))
		}
		if !near(mat.Values[0][1], math.Log2(3.0/8)) || !near(mat.Values[1][1], math.Log2(1.0/8)) {
			t.Errorf("GSM2 column: %v", mat.Column(1))
		}

		// Density
		for i, row := range mat.Values {
			if len(row) != len(mat.Samples) {
				t.Errorf("row %d has %d values", i, len(row))
			}
			for _, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Errorf("row %d holds a non-finite value", i)
				}
			}
		}

		if rep.GenesSeen != 4 || rep.Incomplete != 2 || rep.GenesKept != 2 {
			t.Errorf("report: %+v", rep)
		}
		if rep.Samples[1].ID != "GSM2" || rep.Samples[1].Missing != 1 {
			t.Errorf("sample report: %+v", rep.Samples[1])
		}
	}
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	m := buildMapper([2]string{"p1", "100"})
	tab := sampleTable([2]string{"p1", "1"})

	if _, err := Samples([]*table.Table{tab}, []string{"GSM1", "GSM2"}); err == nil {
		t.Error("expected an error for mismatched ids")
	}

	if _, _, err := Normalize(context.Background(), nil, m, Options{}); err == nil {
		t.Error("expected an error for no samples")
	}

	dup := []Sample{{ID: "GSM1", Table: tab}, {ID: "GSM1", Table: tab}}
	if _, _, err := Normalize(context.Background(), dup, m, Options{}); err == nil {
		t.Error("expected an error for duplicated sample ids")
	}

	bad := []Sample{{ID: "GSM1", Table: table.New([]string{"ID_REF"})}}
	if _, _, err := Normalize(context.Background(), bad, m, Options{}); err == nil {
		t.Error("expected an error for a table without VALUE")
	}
}

func TestNormalizeHonorsCancellation(t *testing.T) {
	m := buildMapper([2]string{"p1", "100"})
	samples := []Sample{{ID: "GSM1", Table: sampleTable([2]string{"p1", "1"})}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := Normalize(ctx, samples, m, Options{}); err == nil {
		t.Error("expected a cancellation error")
	}
}

func TestMatrixOutput(t *testing.T) {
	mat := &Matrix{
		Genes:   []string{"100", "300"},
		Samples: []string{"GSM1", "GSM2"},
		Values:  [][]float64{{-2, -1.5}, {-1, -3}},
	}

	var buf bytes.Buffer
	if err := mat.WriteTSV(&buf); err != nil {
		t.Fatal(err)
	}
	expected := "ENTREZ_GENE_ID\tGSM1\tGSM2\n100\t-2\t-1.5\n300\t-1\t-3\n"
	if buf.String() != expected {
		t.Errorf("got %q", buf.String())
	}

	summaries, err := mat.Summarize()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 2 || summaries[0].Mean != -1.5 || summaries[1].Min != -3 || summaries[1].Max != -1.5 {
		t.Errorf("summaries: %+v", summaries)
	}

	empty := &Matrix{Samples: []string{"GSM1"}}
	if s, err := empty.Summarize(); err != nil || s != nil {
		t.Errorf("empty matrix: %v %v", s, err)
	}
}
