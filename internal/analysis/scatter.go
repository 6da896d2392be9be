package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/seqtools/degbrowser/internal/results"
)

// ScatterOptions controls the two-way comparison.
type ScatterOptions struct {
	// SigOnly keeps only genes significant (padj < 0.05) in either table.
	SigOnly bool

	// Search filters genes by case-insensitive substring match when non-empty.
	Search string

	// TopLabels is the number of top-|log2FC| genes to mark for labeling.
	TopLabels int
}

// sigOnlyCutoff is the fixed padj cutoff of the significance filter,
// matching the dashboard's "significant in either" checkbox.
const sigOnlyCutoff = 0.05

// ScatterPoint is one gene present in both tables.
type ScatterPoint struct {
	Gene    string   `json:"gene"`
	LFC1    *float64 `json:"log2fc_1"`
	LFC2    *float64 `json:"log2fc_2"`
	PAdj1   *float64 `json:"padj_1,omitempty"`
	PAdj2   *float64 `json:"padj_2,omitempty"`
	PValue1 *float64 `json:"pvalue_1,omitempty"`
	PValue2 *float64 `json:"pvalue_2,omitempty"`
	Label   bool     `json:"label,omitempty"`

	maxAbsLFC float64
}

// ScatterResult is the full comparison output.
type ScatterResult struct {
	// Correlation is the Pearson correlation of the two fold-change columns
	// over genes where both are present. Nil when fewer than two complete
	// pairs exist.
	Correlation *float64       `json:"correlation"`
	Points      []ScatterPoint `json:"points"`
}

// Scatter inner-joins two tables on gene symbol and compares fold changes.
// When a gene appears multiple times in a table the first row wins.
func Scatter(t1, t2 *results.Table, opts ScatterOptions) *ScatterResult {
	index2 := make(map[string]results.Row, t2.Len())
	for _, row := range t2.Rows {
		if _, ok := index2[row.GeneSymbol]; !ok {
			index2[row.GeneSymbol] = row
		}
	}

	search := strings.ToUpper(opts.Search)
	seen := make(map[string]bool, t1.Len())
	res := &ScatterResult{}

	var sx, sy, sxx, syy, sxy float64
	var n int

	for _, r1 := range t1.Rows {
		if seen[r1.GeneSymbol] {
			continue
		}
		seen[r1.GeneSymbol] = true

		r2, ok := index2[r1.GeneSymbol]
		if !ok {
			continue
		}

		if opts.SigOnly && !eitherSignificant(r1, r2, t1.Cols.PAdj, t2.Cols.PAdj) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToUpper(r1.GeneSymbol), search) {
			continue
		}

		pt := ScatterPoint{
			Gene:    r1.GeneSymbol,
			LFC1:    optional(r1.Log2FoldChange),
			LFC2:    optional(r2.Log2FoldChange),
			PAdj1:   optional(r1.PAdj),
			PAdj2:   optional(r2.PAdj),
			PValue1: optional(r1.PValue),
			PValue2: optional(r2.PValue),
		}
		if pt.LFC1 != nil && pt.LFC2 != nil {
			pt.maxAbsLFC = math.Max(math.Abs(*pt.LFC1), math.Abs(*pt.LFC2))

			sx += *pt.LFC1
			sy += *pt.LFC2
			sxx += *pt.LFC1 * *pt.LFC1
			syy += *pt.LFC2 * *pt.LFC2
			sxy += *pt.LFC1 * *pt.LFC2
			n++
		}

		res.Points = append(res.Points, pt)
	}

	if n >= 2 {
		num := float64(n)*sxy - sx*sy
		den := math.Sqrt(float64(n)*sxx-sx*sx) * math.Sqrt(float64(n)*syy-sy*sy)
		if den > 0 {
			r := num / den
			res.Correlation = &r
		}
	}

	markTopByMaxLFC(res.Points, opts.TopLabels)
	return res
}

// eitherSignificant applies the padj < 0.05 filter across both tables.
// Tables without a padj column pass the filter unfiltered, matching the
// original dashboard behavior.
func eitherSignificant(r1, r2 results.Row, hasPAdj1, hasPAdj2 bool) bool {
	if !hasPAdj1 || !hasPAdj2 {
		return true
	}
	sig1 := !results.IsMissing(r1.PAdj) && r1.PAdj < sigOnlyCutoff
	sig2 := !results.IsMissing(r2.PAdj) && r2.PAdj < sigOnlyCutoff
	return sig1 || sig2
}

func markTopByMaxLFC(points []ScatterPoint, n int) {
	if n <= 0 {
		return
	}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]].maxAbsLFC > points[order[b]].maxAbsLFC
	})
	for i := 0; i < n && i < len(order); i++ {
		if points[order[i]].maxAbsLFC > 0 {
			points[order[i]].Label = true
		}
	}
}
