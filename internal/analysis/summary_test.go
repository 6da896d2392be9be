package analysis

import (
	"math"
	"testing"

	"github.com/seqtools/degbrowser/internal/results"
)

func TestSummarize(t *testing.T) {
	na := math.NaN()
	tbl := table(allCols,
		row("Up", 2.0, 1e-6, 1e-4),
		row("Down", -2.0, 1e-6, 1e-4),
		row("Flat", 0.0, 0.9, 0.9),
		row("Missing", na, na, na),
	)

	s := Summarize(tbl, 0.05, 1.0, 0.01)

	if s.Genes != 4 {
		t.Errorf("Genes = %d, want 4", s.Genes)
	}
	if s.PColumn != "padj" {
		t.Errorf("PColumn = %q, want padj", s.PColumn)
	}
	if s.Up != 1 || s.Down != 1 {
		t.Errorf("Up/Down = %d/%d, want 1/1", s.Up, s.Down)
	}

	if s.LFC.Present != 3 || s.LFC.Missing != 1 {
		t.Errorf("LFC presence = %d/%d, want 3 present 1 missing", s.LFC.Present, s.LFC.Missing)
	}
	if s.LFC.Min == nil || *s.LFC.Min != -2.0 {
		t.Errorf("LFC.Min = %v, want -2", s.LFC.Min)
	}
	if s.LFC.Max == nil || *s.LFC.Max != 2.0 {
		t.Errorf("LFC.Max = %v, want 2", s.LFC.Max)
	}

	// Median within sketch accuracy of the true median (0).
	med, ok := s.LFC.Quantiles["p50"]
	if !ok {
		t.Fatal("LFC p50 quantile missing")
	}
	if math.Abs(med) > 0.1 {
		t.Errorf("LFC p50 = %v, want ~0", med)
	}
}

func TestSummarizeNoPColumn(t *testing.T) {
	tbl := table(results.Columns{}, row("A", 1.0, math.NaN(), math.NaN()))
	s := Summarize(tbl, 0.05, 1.0, 0.01)
	if s.P != nil {
		t.Errorf("P = %+v, want nil without p-value columns", s.P)
	}
	if s.Up != 0 || s.Down != 0 {
		t.Errorf("Up/Down = %d/%d, want 0/0", s.Up, s.Down)
	}
}

func TestSummarizeEmptyDistribution(t *testing.T) {
	na := math.NaN()
	tbl := table(allCols, row("A", na, na, na))
	s := Summarize(tbl, 0.05, 1.0, 0.01)
	if s.LFC.Present != 0 || s.LFC.Missing != 1 {
		t.Errorf("LFC = %+v, want all missing", s.LFC)
	}
	if s.LFC.Min != nil || s.LFC.Max != nil {
		t.Errorf("Min/Max = %v/%v, want nil", s.LFC.Min, s.LFC.Max)
	}
}
