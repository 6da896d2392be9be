// Package export renders analysis results as CSV downloads and writes
// parquet snapshots of datasets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seqtools/degbrowser/internal/analysis"
)

// WriteVolcanoCSV writes the volcano point set as CSV.
func WriteVolcanoCSV(w io.Writer, res *analysis.VolcanoResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"gene_symbol", "log2FoldChange", "neg_log10_p", "baseMean", "pvalue", "padj", "direction"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, pt := range res.Points {
		record := []string{
			pt.Gene,
			num(pt.LFC),
			num(pt.NegLog10P),
			num(pt.BaseMean),
			num(pt.PValue),
			num(pt.PAdj),
			string(pt.Direction),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScatterCSV writes the merged comparison as CSV.
func WriteScatterCSV(w io.Writer, res *analysis.ScatterResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"gene_symbol", "log2FoldChange_1", "log2FoldChange_2", "padj_1", "padj_2", "pvalue_1", "pvalue_2"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, pt := range res.Points {
		record := []string{
			pt.Gene,
			num(pt.LFC1),
			num(pt.LFC2),
			num(pt.PAdj1),
			num(pt.PAdj2),
			num(pt.PValue1),
			num(pt.PValue2),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteVennCSV writes the venn region breakdown as CSV, one region per row
// with the member genes joined into a single cell.
func WriteVennCSV(w io.Writer, res *analysis.VennResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Category", "Gene_Count", "Genes"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, region := range res.Regions {
		record := []string{
			region.Label,
			strconv.Itoa(region.Count),
			strings.Join(region.Genes, ", "),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// num renders a nullable statistic, using NA for missing values like the
// source files do.
func num(v *float64) string {
	if v == nil {
		return "NA"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
