package analysis

import (
	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/seqtools/degbrowser/internal/results"
)

// summaryQuantiles are the quantiles reported for each distribution.
var summaryQuantiles = []float64{0.05, 0.25, 0.5, 0.75, 0.95}

// Distribution summarizes one statistic across a dataset.
type Distribution struct {
	Present   int                `json:"present"`
	Missing   int                `json:"missing"`
	Min       *float64           `json:"min"`
	Max       *float64           `json:"max"`
	Quantiles map[string]float64 `json:"quantiles,omitempty"`
}

// Summary is the per-dataset overview shown on the dashboard landing view.
type Summary struct {
	Genes   int           `json:"genes"`
	PColumn string        `json:"p_column"`
	Up      int           `json:"up"`
	Down    int           `json:"down"`
	LFC     *Distribution `json:"log2fc"`
	P       *Distribution `json:"p,omitempty"`
}

// Summarize computes counts and quantile sketches for a dataset using the
// given significance thresholds. Quantiles come from DDSketch at the given
// relative accuracy, so they are approximate but cheap even for large tables.
func Summarize(tbl *results.Table, fdr, lfc, accuracy float64) *Summary {
	pcol, pname, hasP := tbl.PColumn()

	s := &Summary{
		Genes:   tbl.Len(),
		PColumn: pname,
	}

	lfcDist := newDistSketch(accuracy)
	var pDist *distSketch
	if hasP {
		pDist = newDistSketch(accuracy)
	}

	for _, row := range tbl.Rows {
		lfcDist.add(row.Log2FoldChange)
		if hasP {
			p := pcol(row)
			pDist.add(p)
			if significant(p, row.Log2FoldChange, fdr, lfc) {
				if row.Log2FoldChange > 0 {
					s.Up++
				} else {
					s.Down++
				}
			}
		}
	}

	s.LFC = lfcDist.finish()
	if pDist != nil {
		s.P = pDist.finish()
	}
	return s
}

// distSketch accumulates one distribution.
type distSketch struct {
	sketch   *ddsketch.DDSketch
	present  int
	missing  int
	min, max float64
}

func newDistSketch(accuracy float64) *distSketch {
	d := &distSketch{}
	// Sketch construction only fails for accuracy outside (0, 1).
	if sk, err := ddsketch.NewDefaultDDSketch(accuracy); err == nil {
		d.sketch = sk
	}
	return d
}

func (d *distSketch) add(v float64) {
	if results.IsMissing(v) {
		d.missing++
		return
	}
	if d.present == 0 || v < d.min {
		d.min = v
	}
	if d.present == 0 || v > d.max {
		d.max = v
	}
	d.present++
	if d.sketch != nil {
		// Add only fails for non-finite values, excluded above.
		_ = d.sketch.Add(v)
	}
}

func (d *distSketch) finish() *Distribution {
	dist := &Distribution{
		Present: d.present,
		Missing: d.missing,
	}
	if d.present == 0 {
		return dist
	}
	dist.Min = &d.min
	dist.Max = &d.max

	if d.sketch == nil {
		return dist
	}
	dist.Quantiles = make(map[string]float64, len(summaryQuantiles))
	for _, q := range summaryQuantiles {
		v, err := d.sketch.GetValueAtQuantile(q)
		if err != nil {
			continue
		}
		dist.Quantiles[quantileKey(q)] = v
	}
	return dist
}

func quantileKey(q float64) string {
	switch q {
	case 0.05:
		return "p05"
	case 0.25:
		return "p25"
	case 0.5:
		return "p50"
	case 0.75:
		return "p75"
	case 0.95:
		return "p95"
	default:
		return "p?"
	}
}
