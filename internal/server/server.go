// Package server provides the HTTP dashboard and JSON API.
//
// The server exposes the dataset catalog, the analysis endpoints (volcano,
// scatter, venn, summary), the paginated gene table, CSV/parquet export,
// and a read-only SQL endpoint. Everything except /healthz sits behind the
// authentication middleware.
package server

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/seqtools/degbrowser/internal/catalog"
	"github.com/seqtools/degbrowser/internal/loader"
	"github.com/seqtools/degbrowser/internal/logging"
	"github.com/seqtools/degbrowser/internal/query"
)

var log = logging.Component("server")

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// =============================================================================
// Server
// =============================================================================

// Server serves the dashboard and API over HTTP.
type Server struct {
	cfg     *loader.Config
	catalog *catalog.Catalog
	query   *query.Service
	auth    *Authenticator

	tpl      *template.Template
	listener net.Listener
	httpSrv  *http.Server
}

// New creates a server over an opened catalog and query service.
func New(cfg *loader.Config, cat *catalog.Catalog, qs *query.Service) *Server {
	s := &Server{
		cfg:     cfg,
		catalog: cat,
		query:   qs,
		auth:    NewAuthenticator(cfg.Auth),
	}
	s.tpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

	s.httpSrv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler builds the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Liveness probe stays outside auth so platforms can health-check.
	mux.HandleFunc("GET /healthz", s.handleHealthz)

	app := http.NewServeMux()
	app.HandleFunc("GET /{$}", s.handleDashboard)

	static, _ := fs.Sub(staticFS, "static")
	app.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	app.HandleFunc("GET /api/datasets", s.handleDatasets)
	app.HandleFunc("GET /api/summary", s.handleSummary)
	app.HandleFunc("GET /api/volcano", s.handleVolcano)
	app.HandleFunc("GET /api/scatter", s.handleScatter)
	app.HandleFunc("GET /api/venn", s.handleVenn)
	app.HandleFunc("GET /api/venn.svg", s.handleVennSVG)
	app.HandleFunc("GET /api/table", s.handleTable)
	app.HandleFunc("POST /api/sql", s.handleSQL)
	app.HandleFunc("GET /api/export/volcano", s.handleExportVolcano)
	app.HandleFunc("GET /api/export/scatter", s.handleExportScatter)
	app.HandleFunc("GET /api/export/venn", s.handleExportVenn)
	app.HandleFunc("POST /api/snapshot", s.handleSnapshot)
	app.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	app.HandleFunc("POST /api/rescan", s.handleRescan)

	mux.Handle("/", s.auth.Middleware(app))

	return requestLogger(recoverer(mux))
}

// Listen binds the configured address. Binding is separate from serving so
// the caller can sequence dependents (the tunnel) after the port is live.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}
	s.listener = ln
	log.Info("listening", "addr", ln.Addr().String(), "auth", s.auth.Enabled())
	return nil
}

// Addr returns the bound address, or "" before Listen.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is canceled, then shuts down
// gracefully. Listen must have succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutCtx); err != nil {
			log.Warn("shutdown", "error", err)
		}
		<-errCh
		log.Info("server stopped")
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
