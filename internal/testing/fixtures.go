package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FixtureGene is one row of a generated results fixture. Use "NA" in a
// statistic field to produce a missing value.
type FixtureGene struct {
	Symbol   string
	BaseMean string
	LFC      string
	PValue   string
	PAdj     string
}

// TSV renders genes as a DESeq2 results file with the full column set.
func TSV(genes []FixtureGene) string {
	var b strings.Builder
	b.WriteString("gene_symbol\tbaseMean\tlog2FoldChange\tlfcSE\tstat\tpvalue\tpadj\n")
	for _, g := range genes {
		fmt.Fprintf(&b, "%s\t%s\t%s\t0.3\t1.1\t%s\t%s\n",
			g.Symbol, orNA(g.BaseMean), orNA(g.LFC), orNA(g.PValue), orNA(g.PAdj))
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}

// WriteResultsTree builds a results root under a temp directory with the
// given files, keyed by "category/filename.tsv". Returns the root path.
func WriteResultsTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

// DefaultTree returns a two-category results tree with a handful of genes
// covering significant, non-significant, and NA rows.
func DefaultTree(t *testing.T) string {
	t.Helper()
	primary := TSV([]FixtureGene{
		{Symbol: "Lifr", BaseMean: "523.4", LFC: "-2.31", PValue: "1.8e-08", PAdj: "4.2e-06"},
		{Symbol: "Notch1", BaseMean: "201.0", LFC: "1.75", PValue: "2.0e-05", PAdj: "1.1e-03"},
		{Symbol: "Actb", BaseMean: "10234.1", LFC: "0.02", PValue: "0.80", PAdj: "0.95"},
		{Symbol: "Gm1234", BaseMean: "1.2"},
	})
	secondary := TSV([]FixtureGene{
		{Symbol: "Lifr", BaseMean: "498.2", LFC: "-1.90", PValue: "3.1e-06", PAdj: "8.8e-05"},
		{Symbol: "Vwf", BaseMean: "88.8", LFC: "2.40", PValue: "9.0e-07", PAdj: "4.0e-05"},
		{Symbol: "Actb", BaseMean: "9980.4", LFC: "-0.05", PValue: "0.70", PAdj: "0.91"},
	})
	return WriteResultsTree(t, map[string]string{
		"primary/20240115_KO_vs_WT_results.tsv":    primary,
		"secondary/20240116_HET_vs_WT_results.tsv": secondary,
	})
}
