// Package analysis implements the dashboard computations over parsed results
// tables: volcano classification, two-way fold-change comparison, DEG set
// extraction with venn overlaps, and per-dataset summary statistics.
//
// All functions treat tables as read-only. Optional statistics use pointer
// fields in the output types so JSON marshaling renders missing values as
// null instead of choking on NaN.
package analysis

import (
	"math"
	"sort"
	"strings"

	"github.com/seqtools/degbrowser/internal/results"
)

// Direction classifies a gene on the volcano plot.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNS   Direction = "ns"
)

// VolcanoOptions controls volcano computation.
type VolcanoOptions struct {
	// FDR is the p-value cutoff for significance.
	FDR float64

	// LFC is the absolute log2 fold-change cutoff for significance.
	LFC float64

	// Search filters genes by case-insensitive substring match when non-empty.
	Search string

	// TopLabels is the number of top-ranked genes to mark for labeling.
	TopLabels int
}

// VolcanoPoint is one gene positioned on the volcano plot.
type VolcanoPoint struct {
	Gene      string    `json:"gene"`
	LFC       *float64  `json:"log2fc"`
	NegLog10P *float64  `json:"neg_log10_p"`
	BaseMean  *float64  `json:"base_mean,omitempty"`
	PValue    *float64  `json:"pvalue,omitempty"`
	PAdj      *float64  `json:"padj,omitempty"`
	Direction Direction `json:"direction"`
	Label     bool      `json:"label,omitempty"`

	// strength ranks genes for labeling: -log10(p) * |log2FC|.
	strength float64
}

// VolcanoCounts summarizes the classification.
type VolcanoCounts struct {
	Up     int `json:"up"`
	Down   int `json:"down"`
	NotSig int `json:"not_significant"`
}

// VolcanoResult is the full volcano computation output.
type VolcanoResult struct {
	PColumn string         `json:"p_column"` // "padj", "pvalue", or "" when neither exists
	FDR     float64        `json:"fdr"`
	LFC     float64        `json:"lfc"`
	Counts  VolcanoCounts  `json:"counts"`
	Points  []VolcanoPoint `json:"points"`
}

// Volcano classifies every gene of a table. Genes with a missing p-value or
// fold change are never significant. A p-value of exactly zero has no finite
// -log10 and is treated as missing on the y axis while still counting as
// significant when below the cutoff.
func Volcano(tbl *results.Table, opts VolcanoOptions) *VolcanoResult {
	pcol, pname, hasP := tbl.PColumn()

	res := &VolcanoResult{
		PColumn: pname,
		FDR:     opts.FDR,
		LFC:     opts.LFC,
		Points:  make([]VolcanoPoint, 0, tbl.Len()),
	}

	search := strings.ToUpper(opts.Search)
	for _, row := range tbl.Rows {
		if search != "" && !strings.Contains(strings.ToUpper(row.GeneSymbol), search) {
			continue
		}

		pt := VolcanoPoint{
			Gene:      row.GeneSymbol,
			LFC:       optional(row.Log2FoldChange),
			BaseMean:  optional(row.BaseMean),
			PValue:    optional(row.PValue),
			PAdj:      optional(row.PAdj),
			Direction: DirectionNS,
		}

		if hasP {
			p := pcol(row)
			if !results.IsMissing(p) && p > 0 {
				v := -math.Log10(p)
				pt.NegLog10P = &v
			}
			if significant(p, row.Log2FoldChange, opts.FDR, opts.LFC) {
				if row.Log2FoldChange > 0 {
					pt.Direction = DirectionUp
				} else {
					pt.Direction = DirectionDown
				}
			}
		}

		if pt.NegLog10P != nil && !results.IsMissing(row.Log2FoldChange) {
			pt.strength = *pt.NegLog10P * math.Abs(row.Log2FoldChange)
		}

		switch pt.Direction {
		case DirectionUp:
			res.Counts.Up++
		case DirectionDown:
			res.Counts.Down++
		default:
			res.Counts.NotSig++
		}

		res.Points = append(res.Points, pt)
	}

	markTopByStrength(res.Points, opts.TopLabels)
	return res
}

// significant applies the shared significance rule: p below the FDR cutoff
// and |log2FC| above the fold-change cutoff, with missing values failing.
func significant(p, lfc, fdr, lfcCut float64) bool {
	if results.IsMissing(p) || results.IsMissing(lfc) {
		return false
	}
	return p < fdr && math.Abs(lfc) > lfcCut
}

// markTopByStrength sets Label on the n highest-strength points.
func markTopByStrength(points []VolcanoPoint, n int) {
	if n <= 0 {
		return
	}
	order := make([]int, len(points))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return points[order[a]].strength > points[order[b]].strength
	})
	for i := 0; i < n && i < len(order); i++ {
		if points[order[i]].strength > 0 {
			points[order[i]].Label = true
		}
	}
}

// optional converts an internal NaN-based statistic to a nullable JSON value.
func optional(v float64) *float64 {
	if results.IsMissing(v) {
		return nil
	}
	return &v
}
