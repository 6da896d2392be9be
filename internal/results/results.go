// Package results defines the DESeq2 results data model and TSV codec.
//
// A results file is a tab-separated table of per-gene differential expression
// statistics as written by DESeq2. Two columns are required (gene_symbol,
// log2FoldChange); the remaining statistics are optional and tracked through
// per-table presence flags so downstream code can fall back gracefully.
package results

import "math"

// Row holds the statistics for a single gene. Optional values that are absent
// or unparseable (NA, inf) are stored as NaN; use IsMissing to test.
type Row struct {
	GeneSymbol     string
	BaseMean       float64
	Log2FoldChange float64
	LfcSE          float64
	Stat           float64
	PValue         float64
	PAdj           float64
}

// IsMissing reports whether v represents a missing statistic.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Missing is the canonical missing value.
func Missing() float64 {
	return math.NaN()
}

// Columns records which optional columns were present in the source file.
type Columns struct {
	BaseMean bool
	LfcSE    bool
	Stat     bool
	PValue   bool
	PAdj     bool
}

// Table is one parsed results file.
type Table struct {
	Path string
	Cols Columns
	Rows []Row
}

// Len returns the number of gene rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// PColumn returns the preferred p-value accessor for significance calls:
// padj when present, pvalue otherwise. ok is false when neither column
// exists in the file.
func (t *Table) PColumn() (get func(Row) float64, name string, ok bool) {
	switch {
	case t.Cols.PAdj:
		return func(r Row) float64 { return r.PAdj }, "padj", true
	case t.Cols.PValue:
		return func(r Row) float64 { return r.PValue }, "pvalue", true
	default:
		return nil, "", false
	}
}
