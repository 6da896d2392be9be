package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/seqtools/degbrowser/internal/results"
)

// GeneRow is the parquet schema for a dataset snapshot. Optional statistics
// map to optional parquet columns so NA values round-trip as nulls.
type GeneRow struct {
	GeneSymbol     string   `parquet:"gene_symbol,zstd"`
	BaseMean       *float64 `parquet:"baseMean,optional"`
	Log2FoldChange *float64 `parquet:"log2FoldChange,optional"`
	LfcSE          *float64 `parquet:"lfcSE,optional"`
	Stat           *float64 `parquet:"stat,optional"`
	PValue         *float64 `parquet:"pvalue,optional"`
	PAdj           *float64 `parquet:"padj,optional"`
}

// ToGeneRow converts a results row to its parquet form.
func ToGeneRow(r *results.Row) GeneRow {
	return GeneRow{
		GeneSymbol:     r.GeneSymbol,
		BaseMean:       opt(r.BaseMean),
		Log2FoldChange: opt(r.Log2FoldChange),
		LfcSE:          opt(r.LfcSE),
		Stat:           opt(r.Stat),
		PValue:         opt(r.PValue),
		PAdj:           opt(r.PAdj),
	}
}

// FromGeneRow converts a parquet row back to a results row.
func FromGeneRow(g *GeneRow) results.Row {
	return results.Row{
		GeneSymbol:     g.GeneSymbol,
		BaseMean:       val(g.BaseMean),
		Log2FoldChange: val(g.Log2FoldChange),
		LfcSE:          val(g.LfcSE),
		Stat:           val(g.Stat),
		PValue:         val(g.PValue),
		PAdj:           val(g.PAdj),
	}
}

func opt(v float64) *float64 {
	if results.IsMissing(v) {
		return nil
	}
	return &v
}

func val(p *float64) float64 {
	if p == nil {
		return results.Missing()
	}
	return *p
}

// Snapshot writes a dataset to a parquet file, creating the directory as
// needed. The file is written through a temp name and renamed into place so
// concurrent readers never see a partial snapshot.
func Snapshot(tbl *results.Table, path string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	w := parquet.NewGenericWriter[GeneRow](f, parquet.Compression(&parquet.Zstd))

	rows := make([]GeneRow, len(tbl.Rows))
	for i := range tbl.Rows {
		rows[i] = ToGeneRow(&tbl.Rows[i])
	}
	if _, err = w.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	if err = w.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close writer: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a parquet snapshot back into a table.
func ReadSnapshot(path string) (*results.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[GeneRow](f)
	defer r.Close()

	tbl := &results.Table{
		Path: path,
		Cols: results.Columns{BaseMean: true, LfcSE: true, Stat: true, PValue: true, PAdj: true},
	}

	buf := make([]GeneRow, 1024)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			tbl.Rows = append(tbl.Rows, FromGeneRow(&buf[i]))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read rows: %w", err)
		}
	}
	return tbl, nil
}
