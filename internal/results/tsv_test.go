package results

import (
	"math"
	"strings"
	"testing"

	"github.com/seqtools/degbrowser/internal/errors"
)

const sampleTSV = "gene_symbol\tbaseMean\tlog2FoldChange\tlfcSE\tstat\tpvalue\tpadj\n" +
	"Lifr\t523.4\t-2.31\t0.41\t-5.63\t1.8e-08\t4.2e-06\n" +
	"Actb\t10234.1\t0.02\t0.08\t0.25\t0.80\t0.95\n" +
	"Gm1234\t1.2\tNA\tNA\tNA\tNA\tNA\n"

func TestRead(t *testing.T) {
	tbl, err := Read(strings.NewReader(sampleTSV))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got := tbl.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if !tbl.Cols.PAdj || !tbl.Cols.PValue || !tbl.Cols.BaseMean || !tbl.Cols.LfcSE || !tbl.Cols.Stat {
		t.Errorf("Cols = %+v, want all optional columns present", tbl.Cols)
	}

	r := tbl.Rows[0]
	if r.GeneSymbol != "Lifr" {
		t.Errorf("GeneSymbol = %q, want Lifr", r.GeneSymbol)
	}
	if r.Log2FoldChange != -2.31 {
		t.Errorf("Log2FoldChange = %v, want -2.31", r.Log2FoldChange)
	}
	if r.PAdj != 4.2e-06 {
		t.Errorf("PAdj = %v, want 4.2e-06", r.PAdj)
	}

	// NA values parse as missing
	na := tbl.Rows[2]
	if !IsMissing(na.Log2FoldChange) || !IsMissing(na.PAdj) {
		t.Errorf("NA row parsed as %+v, want missing statistics", na)
	}
	if IsMissing(na.BaseMean) {
		t.Errorf("BaseMean = missing, want 1.2")
	}
}

func TestReadColumnOrder(t *testing.T) {
	// Columns matched by name, not position.
	in := "log2FoldChange\tgene_symbol\n1.5\tNotch1\n"
	tbl, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if tbl.Rows[0].GeneSymbol != "Notch1" || tbl.Rows[0].Log2FoldChange != 1.5 {
		t.Errorf("row = %+v", tbl.Rows[0])
	}
	if tbl.Cols.PAdj || tbl.Cols.PValue {
		t.Errorf("Cols = %+v, want no p-value columns", tbl.Cols)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty input",
			input:   "",
			wantErr: errors.ErrEmptyFile,
		},
		{
			name:    "header only",
			input:   "gene_symbol\tlog2FoldChange\n",
			wantErr: errors.ErrEmptyFile,
		},
		{
			name:    "missing gene_symbol",
			input:   "gene\tlog2FoldChange\nLifr\t1.0\n",
			wantErr: errors.ErrMissingColumn,
		},
		{
			name:    "missing log2FoldChange",
			input:   "gene_symbol\tpadj\nLifr\t0.01\n",
			wantErr: errors.ErrMissingColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Read() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestReadShortRow(t *testing.T) {
	in := "gene_symbol\tlog2FoldChange\tpadj\nLifr\t-1.2\n"
	tbl, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !IsMissing(tbl.Rows[0].PAdj) {
		t.Errorf("short row PAdj = %v, want missing", tbl.Rows[0].PAdj)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.5", 1.5},
		{"-2.31", -2.31},
		{"1.8e-08", 1.8e-08},
		{"0", 0},
		{"NA", math.NaN()},
		{"", math.NaN()},
		{"inf", math.NaN()},
		{"-inf", math.NaN()},
		{"Inf", math.NaN()},
		{"garbage", math.NaN()},
	}

	for _, tt := range tests {
		got := ParseValue(tt.input)
		if math.IsNaN(tt.want) {
			if !math.IsNaN(got) {
				t.Errorf("ParseValue(%q) = %v, want NaN", tt.input, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValue(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestPColumn(t *testing.T) {
	tests := []struct {
		name     string
		cols     Columns
		wantName string
		wantOK   bool
	}{
		{"padj preferred", Columns{PAdj: true, PValue: true}, "padj", true},
		{"pvalue fallback", Columns{PValue: true}, "pvalue", true},
		{"neither", Columns{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := &Table{Cols: tt.cols}
			_, name, ok := tbl.PColumn()
			if name != tt.wantName || ok != tt.wantOK {
				t.Errorf("PColumn() = (%q, %v), want (%q, %v)", name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}
