package analysis

import (
	"math"
	"testing"

	"github.com/seqtools/degbrowser/internal/results"
)

// row builds a test row; NaN marks missing values.
func row(gene string, lfc, pvalue, padj float64) results.Row {
	return results.Row{
		GeneSymbol:     gene,
		BaseMean:       100,
		Log2FoldChange: lfc,
		PValue:         pvalue,
		PAdj:           padj,
	}
}

func table(cols results.Columns, rows ...results.Row) *results.Table {
	return &results.Table{Cols: cols, Rows: rows}
}

var allCols = results.Columns{BaseMean: true, PValue: true, PAdj: true}

func TestVolcanoClassification(t *testing.T) {
	na := math.NaN()
	tbl := table(allCols,
		row("UpGene", 2.5, 1e-6, 1e-4),
		row("DownGene", -3.0, 1e-8, 1e-6),
		row("FlatGene", 0.1, 0.5, 0.9),
		row("BigButNotSig", 4.0, 0.2, 0.6),
		row("SigButSmall", 0.5, 1e-5, 1e-3),
		row("MissingP", 2.0, na, na),
		row("MissingLFC", na, 1e-6, 1e-4),
	)

	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0})

	if res.PColumn != "padj" {
		t.Errorf("PColumn = %q, want padj", res.PColumn)
	}
	want := map[string]Direction{
		"UpGene":       DirectionUp,
		"DownGene":     DirectionDown,
		"FlatGene":     DirectionNS,
		"BigButNotSig": DirectionNS,
		"SigButSmall":  DirectionNS,
		"MissingP":     DirectionNS,
		"MissingLFC":   DirectionNS,
	}
	for _, pt := range res.Points {
		if pt.Direction != want[pt.Gene] {
			t.Errorf("%s: direction = %q, want %q", pt.Gene, pt.Direction, want[pt.Gene])
		}
	}
	if res.Counts.Up != 1 || res.Counts.Down != 1 || res.Counts.NotSig != 5 {
		t.Errorf("Counts = %+v, want 1 up, 1 down, 5 ns", res.Counts)
	}
}

func TestVolcanoNegLog10(t *testing.T) {
	tbl := table(allCols,
		row("A", 1.0, 1e-3, 1e-2),
		row("ZeroP", 5.0, 0, 0),
	)

	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0})

	a := res.Points[0]
	if a.NegLog10P == nil || math.Abs(*a.NegLog10P-2) > 1e-12 {
		t.Errorf("A: NegLog10P = %v, want 2", a.NegLog10P)
	}

	// p == 0 has no finite -log10 but is still significant.
	zero := res.Points[1]
	if zero.NegLog10P != nil {
		t.Errorf("ZeroP: NegLog10P = %v, want nil", *zero.NegLog10P)
	}
	if zero.Direction != DirectionUp {
		t.Errorf("ZeroP: direction = %q, want up", zero.Direction)
	}
}

func TestVolcanoPValueFallback(t *testing.T) {
	tbl := table(results.Columns{PValue: true},
		row("A", 2.0, 1e-4, math.NaN()),
	)
	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0})
	if res.PColumn != "pvalue" {
		t.Errorf("PColumn = %q, want pvalue", res.PColumn)
	}
	if res.Points[0].Direction != DirectionUp {
		t.Errorf("direction = %q, want up", res.Points[0].Direction)
	}
}

func TestVolcanoNoPColumn(t *testing.T) {
	tbl := table(results.Columns{}, row("A", 5.0, math.NaN(), math.NaN()))
	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0})
	if res.PColumn != "" {
		t.Errorf("PColumn = %q, want empty", res.PColumn)
	}
	if res.Points[0].Direction != DirectionNS {
		t.Errorf("direction = %q, want ns without p-values", res.Points[0].Direction)
	}
}

func TestVolcanoSearch(t *testing.T) {
	tbl := table(allCols,
		row("Lifr", -2.0, 1e-6, 1e-4),
		row("Lif", -1.5, 1e-4, 1e-2),
		row("Actb", 0.1, 0.9, 0.9),
	)

	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0, Search: "lif"})
	if len(res.Points) != 2 {
		t.Fatalf("search matched %d points, want 2", len(res.Points))
	}
	for _, pt := range res.Points {
		if pt.Gene != "Lifr" && pt.Gene != "Lif" {
			t.Errorf("unexpected gene %q in search results", pt.Gene)
		}
	}
}

func TestVolcanoTopLabels(t *testing.T) {
	tbl := table(allCols,
		row("Strong", 4.0, 1e-10, 1e-8),
		row("Middle", 2.0, 1e-6, 1e-4),
		row("Weak", 0.5, 0.04, 0.2),
	)

	res := Volcano(tbl, VolcanoOptions{FDR: 0.05, LFC: 1.0, TopLabels: 2})

	labeled := map[string]bool{}
	for _, pt := range res.Points {
		if pt.Label {
			labeled[pt.Gene] = true
		}
	}
	if !labeled["Strong"] || !labeled["Middle"] || labeled["Weak"] {
		t.Errorf("labeled = %v, want Strong and Middle only", labeled)
	}
}
