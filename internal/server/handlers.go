package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/seqtools/degbrowser/config"
	"github.com/seqtools/degbrowser/internal/analysis"
	"github.com/seqtools/degbrowser/internal/catalog"
	"github.com/seqtools/degbrowser/internal/errors"
	"github.com/seqtools/degbrowser/internal/export"
	"github.com/seqtools/degbrowser/internal/logging"
	"github.com/seqtools/degbrowser/internal/query"
	"github.com/seqtools/degbrowser/internal/results"
	"github.com/seqtools/degbrowser/internal/validation"
)

// =============================================================================
// JSON Helpers
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode response", "error", err)
	}
}

// writeError maps internal error categories to HTTP statuses and emits a
// JSON error body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.ErrorToCode(err)
	status := errors.CodeToHTTPStatus(code)
	logging.WithContext(r.Context()).Warn("request failed",
		"path", r.URL.Path, "code", errors.CodeName(code), "error", err)
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  errors.CodeName(code),
	})
}

// =============================================================================
// Parameter Parsing
// =============================================================================

// floatParam parses an optional float query parameter, falling back to def.
func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", errors.ErrInvalidThreshold, name, raw)
	}
	return v, nil
}

// intParam parses an optional integer query parameter, falling back to def.
func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", errors.ErrInvalidThreshold, name, raw)
	}
	return v, nil
}

// thresholds parses and validates the fdr and lfc parameters.
func (s *Server) thresholds(r *http.Request) (fdr, lfc float64, err error) {
	fdr, err = floatParam(r, "fdr", s.cfg.Analysis.FDR)
	if err != nil {
		return 0, 0, err
	}
	if err = validation.ValidateFDR(fdr); err != nil {
		return 0, 0, err
	}
	lfc, err = floatParam(r, "lfc", s.cfg.Analysis.LFC)
	if err != nil {
		return 0, 0, err
	}
	if err = validation.ValidateLFC(lfc); err != nil {
		return 0, 0, err
	}
	return fdr, lfc, nil
}

// dataset resolves and loads the dataset named by param.
func (s *Server) dataset(r *http.Request, param string) (catalog.Dataset, *results.Table, error) {
	id := r.URL.Query().Get(param)
	if err := validation.ValidateDatasetID(id); err != nil {
		return catalog.Dataset{}, nil, err
	}
	ds, err := s.catalog.Get(id)
	if err != nil {
		return catalog.Dataset{}, nil, err
	}
	tbl, err := s.catalog.Load(id)
	if err != nil {
		return catalog.Dataset{}, nil, err
	}
	return ds, tbl, nil
}

// =============================================================================
// Catalog Endpoints
// =============================================================================

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"datasets": len(s.catalog.Datasets()),
	})
}

type datasetInfo struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	DisplayName string `json:"display_name"`
	ShortName   string `json:"short_name"`
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	all := s.catalog.Datasets()
	out := make([]datasetInfo, 0, len(all))
	for _, ds := range all {
		out = append(out, datasetInfo{
			ID:          ds.ID,
			Category:    ds.Category,
			DisplayName: ds.DisplayName,
			ShortName:   ds.ShortName,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRescan(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Rescan(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"datasets": len(s.catalog.Datasets())})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.catalog.ClearCache()
	writeJSON(w, http.StatusOK, map[string]int{"cached": s.catalog.CacheSize()})
}

// =============================================================================
// Analysis Endpoints
// =============================================================================

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	_, tbl, err := s.dataset(r, "dataset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	fdr, lfc, err := s.thresholds(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis.Summarize(tbl, fdr, lfc, config.DefaultSketchAccuracy))
}

func (s *Server) volcano(r *http.Request) (catalog.Dataset, *analysis.VolcanoResult, error) {
	ds, tbl, err := s.dataset(r, "dataset")
	if err != nil {
		return catalog.Dataset{}, nil, err
	}
	fdr, lfc, err := s.thresholds(r)
	if err != nil {
		return catalog.Dataset{}, nil, err
	}
	labels, err := intParam(r, "labels", s.cfg.Analysis.TopLabels)
	if err != nil {
		return catalog.Dataset{}, nil, err
	}
	res := analysis.Volcano(tbl, analysis.VolcanoOptions{
		FDR:       fdr,
		LFC:       lfc,
		Search:    r.URL.Query().Get("search"),
		TopLabels: labels,
	})
	return ds, res, nil
}

func (s *Server) handleVolcano(w http.ResponseWriter, r *http.Request) {
	_, res, err := s.volcano(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type scatterResponse struct {
	XName string `json:"x_name"`
	YName string `json:"y_name"`
	*analysis.ScatterResult
}

func (s *Server) scatter(r *http.Request) (dx, dy catalog.Dataset, res *analysis.ScatterResult, err error) {
	dx, t1, err := s.dataset(r, "x")
	if err != nil {
		return
	}
	dy, t2, err := s.dataset(r, "y")
	if err != nil {
		return
	}
	if dx.ID == dy.ID {
		err = fmt.Errorf("%w: %s", errors.ErrSameDataset, dx.ID)
		return
	}
	labels, err := intParam(r, "labels", s.cfg.Analysis.TopLabels)
	if err != nil {
		return
	}
	res = analysis.Scatter(t1, t2, analysis.ScatterOptions{
		SigOnly:   r.URL.Query().Get("sig_only") == "1",
		Search:    r.URL.Query().Get("search"),
		TopLabels: labels,
	})
	return
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	dx, dy, res, err := s.scatter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, scatterResponse{
		XName:         dx.ShortName,
		YName:         dy.ShortName,
		ScatterResult: res,
	})
}

// venn parses the datasets parameter (2 or 3 comma-separated IDs) and
// computes the region decomposition.
func (s *Server) venn(r *http.Request) (*analysis.VennResult, error) {
	ids := strings.Split(r.URL.Query().Get("datasets"), ",")
	if len(ids) < 2 || len(ids) > 3 {
		return nil, fmt.Errorf("%w: datasets wants 2 or 3 comma-separated IDs", errors.ErrInvalidDatasetID)
	}
	fdr, lfc, err := s.thresholds(r)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(ids))
	sets := make([]map[string]bool, 0, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := validation.ValidateDatasetID(id); err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s listed twice", errors.ErrSameDataset, id)
		}
		seen[id] = true

		ds, err := s.catalog.Get(id)
		if err != nil {
			return nil, err
		}
		tbl, err := s.catalog.Load(id)
		if err != nil {
			return nil, err
		}
		sets = append(sets, analysis.DEGs(tbl, fdr, lfc))
		names = append(names, ds.ShortName)
	}

	if len(sets) == 2 {
		return analysis.Venn2(sets[0], sets[1], names[0], names[1]), nil
	}
	return analysis.Venn3(sets[0], sets[1], sets[2], names[0], names[1], names[2]), nil
}

func (s *Server) handleVenn(w http.ResponseWriter, r *http.Request) {
	res, err := s.venn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleVennSVG(w http.ResponseWriter, r *http.Request) {
	res, err := s.venn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	if err := WriteVennSVG(w, res); err != nil {
		log.Warn("write svg", "error", err)
	}
}

// =============================================================================
// Table and SQL Endpoints
// =============================================================================

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ds, tbl, err := s.dataset(r, "dataset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if page < 1 {
		page = 1
	}
	size, err := intParam(r, "page_size", s.cfg.Results.PageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if size < 1 || size > s.cfg.Results.MaxTableRows {
		size = s.cfg.Results.PageSize
	}

	res, err := s.query.GeneTable(r.Context(), ds.Path, tbl.Cols, query.TableQuery{
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort"),
		Desc:   r.URL.Query().Get("desc") == "1",
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type sqlRequest struct {
	SQL string `json:"sql"`
}

// handleSQL runs a read-only SELECT against the registered dataset views.
func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	var req sqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid request body", errors.ErrNotSelect))
		return
	}
	res, err := s.query.Select(r.Context(), req.SQL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// Export Endpoints
// =============================================================================

func attachCSV(w http.ResponseWriter, filename string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
}

func (s *Server) handleExportVolcano(w http.ResponseWriter, r *http.Request) {
	ds, res, err := s.volcano(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachCSV(w, ds.ShortName+"_volcano_export.csv")
	if err := export.WriteVolcanoCSV(w, res); err != nil {
		log.Warn("write csv", "error", err)
	}
}

func (s *Server) handleExportScatter(w http.ResponseWriter, r *http.Request) {
	dx, dy, res, err := s.scatter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachCSV(w, dx.ShortName+"_vs_"+dy.ShortName+"_scatter_export.csv")
	if err := export.WriteScatterCSV(w, res); err != nil {
		log.Warn("write csv", "error", err)
	}
}

func (s *Server) handleExportVenn(w http.ResponseWriter, r *http.Request) {
	res, err := s.venn(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	attachCSV(w, "venn_diagram_overlaps.csv")
	if err := export.WriteVennCSV(w, res); err != nil {
		log.Warn("write csv", "error", err)
	}
}

// handleSnapshot writes a parquet snapshot of a dataset into the export
// directory and returns its path.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ds, tbl, err := s.dataset(r, "dataset")
	if err != nil {
		writeError(w, r, err)
		return
	}
	path := filepath.Join(s.cfg.Export.Dir, ds.Category+"_"+ds.ShortName+".parquet")
	if err := export.Snapshot(tbl, path); err != nil {
		writeError(w, r, err)
		return
	}
	logging.WithContext(r.Context()).Info("snapshot written", "dataset", ds.ID, "path", path)
	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

// =============================================================================
// Dashboard
// =============================================================================

type dashboardData struct {
	Datasets []catalog.Dataset
	FDR      float64
	LFC      float64
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		Datasets: s.catalog.Datasets(),
		FDR:      s.cfg.Analysis.FDR,
		LFC:      s.cfg.Analysis.LFC,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.ExecuteTemplate(w, "dashboard.html", data); err != nil {
		log.Error("render dashboard", "error", err)
	}
}
