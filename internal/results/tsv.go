package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/seqtools/degbrowser/internal/errors"
)

// Column names as they appear in DESeq2 output.
const (
	ColGeneSymbol     = "gene_symbol"
	ColBaseMean       = "baseMean"
	ColLog2FoldChange = "log2FoldChange"
	ColLfcSE          = "lfcSE"
	ColStat           = "stat"
	ColPValue         = "pvalue"
	ColPAdj           = "padj"
)

// ReadFile parses a DESeq2 results TSV from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Read parses a DESeq2 results TSV. The first record is the header; columns
// are matched by name so column order does not matter. Rows shorter than the
// header are padded with missing values.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedTSV, err)
	}

	// Map column name to index. On duplicate headers the first occurrence wins.
	idx := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}

	for _, required := range []string{ColGeneSymbol, ColLog2FoldChange} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrMissingColumn, required)
		}
	}

	t := &Table{
		Cols: Columns{
			BaseMean: hasCol(idx, ColBaseMean),
			LfcSE:    hasCol(idx, ColLfcSE),
			Stat:     hasCol(idx, ColStat),
			PValue:   hasCol(idx, ColPValue),
			PAdj:     hasCol(idx, ColPAdj),
		},
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrMalformedTSV, err)
		}

		row := Row{
			GeneSymbol:     field(record, idx, ColGeneSymbol),
			BaseMean:       numField(record, idx, ColBaseMean),
			Log2FoldChange: numField(record, idx, ColLog2FoldChange),
			LfcSE:          numField(record, idx, ColLfcSE),
			Stat:           numField(record, idx, ColStat),
			PValue:         numField(record, idx, ColPValue),
			PAdj:           numField(record, idx, ColPAdj),
		}
		t.Rows = append(t.Rows, row)
	}

	if len(t.Rows) == 0 {
		return nil, errors.ErrEmptyFile
	}
	return t, nil
}

func hasCol(idx map[string]int, name string) bool {
	_, ok := idx[name]
	return ok
}

// field returns the string value of the named column, or "" when the column
// is absent or the record is short.
func field(record []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// numField parses the named column as a float64. Empty strings, NA markers,
// and infinities all map to the missing value; DESeq2 writes NA for genes
// filtered out of a given statistic.
func numField(record []string, idx map[string]int, name string) float64 {
	s := field(record, idx, name)
	return ParseValue(s)
}

// ParseValue converts one TSV cell to a float64 statistic.
func ParseValue(s string) float64 {
	switch s {
	case "", "NA", "na", "NaN", "nan", "NULL", "null":
		return Missing()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Missing()
	}
	if math.IsInf(v, 0) {
		return Missing()
	}
	return v
}
