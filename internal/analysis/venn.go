package analysis

import (
	"math"
	"sort"

	"github.com/seqtools/degbrowser/internal/results"
)

// DEGs extracts the set of significantly differentially expressed genes from
// a table: p below the FDR cutoff and |log2FC| above the fold-change cutoff.
// The adjusted p-value is preferred; tables with only a raw p-value fall back
// to it, and tables with neither produce an empty set.
func DEGs(tbl *results.Table, fdr, lfc float64) map[string]bool {
	pcol, _, ok := tbl.PColumn()
	degs := make(map[string]bool)
	if !ok {
		return degs
	}

	for _, row := range tbl.Rows {
		if row.GeneSymbol == "" || row.GeneSymbol == "NA" {
			continue
		}
		p := pcol(row)
		if results.IsMissing(p) || results.IsMissing(row.Log2FoldChange) {
			continue
		}
		if p < fdr && math.Abs(row.Log2FoldChange) > lfc {
			degs[row.GeneSymbol] = true
		}
	}
	return degs
}

// VennRegion is one exclusive region of a venn diagram.
type VennRegion struct {
	// Sets indexes the datasets participating in this region (0-based).
	Sets []int `json:"sets"`

	// Label is a human-readable region description built from dataset names.
	Label string `json:"label"`

	Count int      `json:"count"`
	Genes []string `json:"genes"`
}

// VennResult holds the exclusive-region decomposition of 2 or 3 DEG sets.
type VennResult struct {
	Names    []string     `json:"names"`
	SetSizes []int        `json:"set_sizes"`
	Regions  []VennRegion `json:"regions"`
}

// Venn2 computes the three exclusive regions of two DEG sets.
func Venn2(a, b map[string]bool, nameA, nameB string) *VennResult {
	res := &VennResult{
		Names:    []string{nameA, nameB},
		SetSizes: []int{len(a), len(b)},
	}
	res.addRegion([]int{0}, "Only "+nameA, diff(a, b))
	res.addRegion([]int{1}, "Only "+nameB, diff(b, a))
	res.addRegion([]int{0, 1}, "Overlap", intersect2(a, b))
	return res
}

// Venn3 computes the seven exclusive regions of three DEG sets.
func Venn3(a, b, c map[string]bool, nameA, nameB, nameC string) *VennResult {
	res := &VennResult{
		Names:    []string{nameA, nameB, nameC},
		SetSizes: []int{len(a), len(b), len(c)},
	}
	res.addRegion([]int{0}, "Only "+nameA, diff(a, b, c))
	res.addRegion([]int{1}, "Only "+nameB, diff(b, a, c))
	res.addRegion([]int{2}, "Only "+nameC, diff(c, a, b))
	res.addRegion([]int{0, 1}, "Overlap "+nameA+" & "+nameB, diff(intersect2(a, b), c))
	res.addRegion([]int{0, 2}, "Overlap "+nameA+" & "+nameC, diff(intersect2(a, c), b))
	res.addRegion([]int{1, 2}, "Overlap "+nameB+" & "+nameC, diff(intersect2(b, c), a))
	res.addRegion([]int{0, 1, 2}, "Overlap All Three", intersect2(intersect2(a, b), c))
	return res
}

func (v *VennResult) addRegion(sets []int, label string, genes map[string]bool) {
	sorted := make([]string, 0, len(genes))
	for g := range genes {
		sorted = append(sorted, g)
	}
	sort.Strings(sorted)
	v.Regions = append(v.Regions, VennRegion{
		Sets:  sets,
		Label: label,
		Count: len(sorted),
		Genes: sorted,
	})
}

// diff returns the members of a that appear in none of the exclude sets.
func diff(a map[string]bool, exclude ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
next:
	for g := range a {
		for _, ex := range exclude {
			if ex[g] {
				continue next
			}
		}
		out[g] = true
	}
	return out
}

func intersect2(a, b map[string]bool) map[string]bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(map[string]bool)
	for g := range a {
		if b[g] {
			out[g] = true
		}
	}
	return out
}
