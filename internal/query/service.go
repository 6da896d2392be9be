// Package query provides SQL access to results files through DuckDB.
//
// DuckDB reads the TSV sources directly via read_csv, which keeps the
// sortable/filterable gene table out of Go memory entirely: sorting,
// filtering, and pagination all push down into the database. The same
// in-memory database also serves read-only ad-hoc SELECTs for the degctl
// `sql` command, with each dataset exposed as a view.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/seqtools/degbrowser/config"
	"github.com/seqtools/degbrowser/internal/errors"
	"github.com/seqtools/degbrowser/internal/logging"
	"github.com/seqtools/degbrowser/internal/results"
)

var log = logging.Component("query")

// Config holds query service settings.
type Config struct {
	// MemoryLimit is the DuckDB memory_limit pragma value, e.g. "512MB".
	MemoryLimit string

	// Timeout bounds a single query.
	Timeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MemoryLimit: config.DefaultQueryMemoryLimit,
		Timeout:     config.DefaultQueryTimeout,
	}
}

// Service provides query capabilities over results files.
type Service struct {
	mu  sync.Mutex
	cfg Config
	db  *sql.DB

	// views tracks dataset views registered for ad-hoc SQL.
	views map[string]string

	stats Stats
}

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// New creates a new query service backed by an in-memory DuckDB database.
func New(cfg Config) (*Service, error) {
	if cfg.MemoryLimit == "" {
		cfg.MemoryLimit = config.DefaultQueryMemoryLimit
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = config.DefaultQueryTimeout
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.MemoryLimit)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set memory limit: %w", err)
	}

	return &Service{
		cfg:   cfg,
		db:    db,
		views: make(map[string]string),
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Statistics returns a copy of the accumulated statistics.
func (s *Service) Statistics() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// =============================================================================
// Gene Table
// =============================================================================

// sortColumns is the allowlist of sortable columns, keyed by API name.
var sortColumns = map[string]string{
	"gene_symbol":    "gene_symbol",
	"baseMean":       "baseMean",
	"log2FoldChange": "log2FoldChange",
	"lfcSE":          "lfcSE",
	"stat":           "stat",
	"pvalue":         "pvalue",
	"padj":           "padj",
}

// TableQuery defines parameters for a gene-table page.
type TableQuery struct {
	// Search filters gene symbols by case-insensitive substring.
	Search string

	// SortBy names a column from the sortColumns allowlist; empty means
	// file order.
	SortBy string
	Desc   bool

	Offset int
	Limit  int
}

// GeneRecord is one row of a gene-table page. Absent statistics are nil.
type GeneRecord struct {
	Gene     string   `json:"gene"`
	BaseMean *float64 `json:"base_mean,omitempty"`
	LFC      *float64 `json:"log2fc"`
	LfcSE    *float64 `json:"lfc_se,omitempty"`
	Stat     *float64 `json:"stat,omitempty"`
	PValue   *float64 `json:"pvalue,omitempty"`
	PAdj     *float64 `json:"padj,omitempty"`
}

// TablePage is one page of gene records plus the unpaginated total.
type TablePage struct {
	Total int          `json:"total"`
	Rows  []GeneRecord `json:"rows"`
}

// GeneTable returns a sorted, filtered page of gene rows for a results file.
// cols describes which optional columns exist in the file so the generated
// SQL only references real columns.
func (s *Service) GeneTable(ctx context.Context, path string, cols results.Columns, q TableQuery) (*TablePage, error) {
	if q.SortBy != "" {
		col, ok := sortColumns[q.SortBy]
		if !ok || !hasColumn(cols, q.SortBy) {
			return nil, fmt.Errorf("%w: cannot sort by %q", errors.ErrInvalidName, q.SortBy)
		}
		q.SortBy = col
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	src := readCSV(path)
	where := ""
	var args []interface{}
	if q.Search != "" {
		where = " WHERE upper(gene_symbol) LIKE '%' || upper(?) || '%'"
		args = append(args, q.Search)
	}

	var total int
	countSQL := "SELECT count(*) FROM " + src + where
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: count: %v", errors.ErrDatabase, err)
	}

	sel := selectList(cols)
	sqlText := "SELECT " + sel + " FROM " + src + where
	if q.SortBy != "" {
		sqlText += ` ORDER BY "` + q.SortBy + `"`
		if q.Desc {
			sqlText += " DESC"
		}
		sqlText += " NULLS LAST"
	}
	if q.Limit > 0 {
		sqlText += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		sqlText += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: table query: %v", errors.ErrDatabase, err)
	}
	defer rows.Close()

	page := &TablePage{Total: total}
	for rows.Next() {
		var (
			gene                                     string
			baseMean, lfc, lfcSE, stat, pvalue, padj sql.NullFloat64
		)
		dest := []interface{}{&gene, &lfc}
		if cols.BaseMean {
			dest = append(dest, &baseMean)
		}
		if cols.LfcSE {
			dest = append(dest, &lfcSE)
		}
		if cols.Stat {
			dest = append(dest, &stat)
		}
		if cols.PValue {
			dest = append(dest, &pvalue)
		}
		if cols.PAdj {
			dest = append(dest, &padj)
		}
		if err := rows.Scan(dest...); err != nil {
			s.recordError()
			return nil, fmt.Errorf("%w: scan: %v", errors.ErrDatabase, err)
		}
		page.Rows = append(page.Rows, GeneRecord{
			Gene:     gene,
			BaseMean: nullable(baseMean),
			LFC:      nullable(lfc),
			LfcSE:    nullable(lfcSE),
			Stat:     nullable(stat),
			PValue:   nullable(pvalue),
			PAdj:     nullable(padj),
		})
	}
	if err := rows.Err(); err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: rows: %v", errors.ErrDatabase, err)
	}

	s.mu.Lock()
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(page.Rows))
	s.mu.Unlock()

	return page, nil
}

// =============================================================================
// Ad-hoc SQL
// =============================================================================

// RegisterDataset exposes a results file as a named view for ad-hoc SQL.
// TSV sources go through read_csv, parquet snapshots through read_parquet.
// The view name must already be validated; it is quoted into the DDL.
func (s *Service) RegisterDataset(ctx context.Context, name, path string) error {
	s.mu.Lock()
	registered, ok := s.views[name]
	s.mu.Unlock()
	if ok && registered == path {
		return nil
	}

	source := readCSV(path)
	if strings.HasSuffix(path, ".parquet") {
		source = readParquet(path)
	}
	ddl := `CREATE OR REPLACE VIEW "` + strings.ReplaceAll(name, `"`, `""`) + `" AS SELECT * FROM ` + source
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("%w: create view %s: %v", errors.ErrDatabase, name, err)
	}

	s.mu.Lock()
	s.views[name] = path
	s.mu.Unlock()

	log.Debug("dataset view registered", "view", name)
	return nil
}

// Result is the generic output of an ad-hoc SELECT.
type Result struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Select executes a read-only SELECT and renders every value as a string.
// Statements that do not start with SELECT or WITH are rejected.
func (s *Service) Select(ctx context.Context, sqlText string) (*Result, error) {
	if err := CheckSelect(sqlText); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: %v", errors.ErrDatabase, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: columns: %v", errors.ErrDatabase, err)
	}

	res := &Result{Columns: columns}
	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			s.recordError()
			return nil, fmt.Errorf("%w: scan: %v", errors.ErrDatabase, err)
		}
		out := make([]string, len(columns))
		for i, v := range values {
			if v.Valid {
				out[i] = v.String
			} else {
				out[i] = "NA"
			}
		}
		res.Rows = append(res.Rows, out)
	}
	if err := rows.Err(); err != nil {
		s.recordError()
		return nil, fmt.Errorf("%w: rows: %v", errors.ErrDatabase, err)
	}

	s.mu.Lock()
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += int64(len(res.Rows))
	s.mu.Unlock()

	return res, nil
}

// CheckSelect rejects statements other than a single SELECT/WITH query.
func CheckSelect(sqlText string) error {
	trimmed := strings.TrimSpace(strings.ToUpper(sqlText))
	if !strings.HasPrefix(trimmed, "SELECT") && !strings.HasPrefix(trimmed, "WITH") {
		return errors.ErrNotSelect
	}
	// A trailing semicolon is tolerated; embedded ones are not.
	body := strings.TrimSuffix(strings.TrimSpace(sqlText), ";")
	if strings.Contains(body, ";") {
		return errors.ErrNotSelect
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// readCSV builds the read_csv table function call for a results TSV.
// NA markers become NULLs so numeric columns stay numeric.
func readCSV(path string) string {
	escaped := strings.ReplaceAll(path, "'", "''")
	return "read_csv('" + escaped + "', delim='\t', header=true, nullstr='NA')"
}

// readParquet builds the read_parquet table function call for a snapshot.
func readParquet(path string) string {
	escaped := strings.ReplaceAll(path, "'", "''")
	return "read_parquet('" + escaped + "')"
}

// selectList builds the column list for the gene table, restricted to
// columns present in the file. Order matches the scan order in GeneTable.
func selectList(cols results.Columns) string {
	parts := []string{"gene_symbol", "log2FoldChange"}
	if cols.BaseMean {
		parts = append(parts, "baseMean")
	}
	if cols.LfcSE {
		parts = append(parts, "lfcSE")
	}
	if cols.Stat {
		parts = append(parts, "stat")
	}
	if cols.PValue {
		parts = append(parts, "pvalue")
	}
	if cols.PAdj {
		parts = append(parts, "padj")
	}
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ", ")
}

func hasColumn(cols results.Columns, name string) bool {
	switch name {
	case "gene_symbol", "log2FoldChange":
		return true
	case "baseMean":
		return cols.BaseMean
	case "lfcSE":
		return cols.LfcSE
	case "stat":
		return cols.Stat
	case "pvalue":
		return cols.PValue
	case "padj":
		return cols.PAdj
	default:
		return false
	}
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *Service) recordError() {
	s.mu.Lock()
	s.stats.Errors++
	s.mu.Unlock()
}
