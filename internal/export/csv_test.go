package export

import (
	"strings"
	"testing"

	"github.com/seqtools/degbrowser/internal/analysis"
)

func fp(v float64) *float64 { return &v }

func TestWriteVolcanoCSV(t *testing.T) {
	res := &analysis.VolcanoResult{
		Points: []analysis.VolcanoPoint{
			{
				Gene:      "Lifr",
				LFC:       fp(-2.31),
				NegLog10P: fp(5.376),
				BaseMean:  fp(523.4),
				PValue:    fp(1.8e-08),
				PAdj:      fp(4.2e-06),
				Direction: analysis.DirectionDown,
			},
			{
				Gene:      "Gm1234",
				Direction: analysis.DirectionNS,
			},
		},
	}

	var b strings.Builder
	if err := WriteVolcanoCSV(&b, res); err != nil {
		t.Fatalf("WriteVolcanoCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0] != "gene_symbol,log2FoldChange,neg_log10_p,baseMean,pvalue,padj,direction" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Lifr,-2.31,5.376,523.4,1.8e-08,4.2e-06,down") {
		t.Errorf("row = %q", lines[1])
	}
	if lines[2] != "Gm1234,NA,NA,NA,NA,NA,ns" {
		t.Errorf("NA row = %q", lines[2])
	}
}

func TestWriteVennCSV(t *testing.T) {
	res := &analysis.VennResult{
		Names: []string{"A", "B"},
		Regions: []analysis.VennRegion{
			{Label: "Only A", Count: 2, Genes: []string{"g1", "g2"}},
			{Label: "Overlap", Count: 1, Genes: []string{"g3"}},
		},
	}

	var b strings.Builder
	if err := WriteVennCSV(&b, res); err != nil {
		t.Fatalf("WriteVennCSV() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if lines[0] != "Category,Gene_Count,Genes" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != `Only A,2,"g1, g2"` {
		t.Errorf("row = %q", lines[1])
	}
	if lines[2] != "Overlap,1,g3" {
		t.Errorf("row = %q", lines[2])
	}
}

func TestWriteScatterCSV(t *testing.T) {
	res := &analysis.ScatterResult{
		Points: []analysis.ScatterPoint{
			{Gene: "Lifr", LFC1: fp(-2.31), LFC2: fp(-1.9), PAdj1: fp(4.2e-06), PAdj2: fp(8.8e-05)},
		},
	}

	var b strings.Builder
	if err := WriteScatterCSV(&b, res); err != nil {
		t.Fatalf("WriteScatterCSV() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(b.String()), "\n")
	if !strings.HasPrefix(lines[1], "Lifr,-2.31,-1.9,4.2e-06,8.8e-05,NA,NA") {
		t.Errorf("row = %q", lines[1])
	}
}
