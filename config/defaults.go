// Package config provides configuration defaults and utilities
// for the degbrowser application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or environment variables.
package config

import "time"

// =============================================================================
// Network Defaults
// =============================================================================

const (
	// DefaultHost is the default bind address for the HTTP server.
	// Override via config: server.host
	DefaultHost = "0.0.0.0"

	// DefaultPort is the default HTTP port. Cloud platforms commonly inject
	// their own port through the PORT environment variable, which wins over
	// this value but loses to an explicit flag or config entry.
	// Override via config: server.port
	DefaultPort = 8050

	// DefaultShutdownTimeout bounds graceful HTTP shutdown on SIGINT/SIGTERM.
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultReadHeaderTimeout guards against slow-header clients.
	DefaultReadHeaderTimeout = 5 * time.Second
)

// =============================================================================
// Results Defaults
// =============================================================================

const (
	// DefaultResultsDir is where DESeq2 result files are discovered.
	// The directory is expected to contain primary/ and secondary/
	// subdirectories of *.tsv files.
	// Override via config: results.dir
	DefaultResultsDir = "data/deseq2_results"

	// DefaultMaxTableRows caps the number of rows returned by a single
	// gene-table request. The original dashboard truncated at 2000 rows for
	// rendering performance.
	// Override via config: results.max_table_rows
	DefaultMaxTableRows = 2000

	// DefaultTablePageSize is the per-page row count for paginated tables.
	// Override via config: results.page_size
	DefaultTablePageSize = 25

	// MaxDisplayNameLen is the maximum length of cleaned display names.
	// Longer names are truncated with an ellipsis.
	MaxDisplayNameLen = 55
)

// =============================================================================
// Analysis Defaults
// =============================================================================

const (
	// DefaultFDRThreshold is the adjusted p-value cutoff for calling a gene
	// differentially expressed.
	// Override per request: fdr query parameter
	DefaultFDRThreshold = 0.05

	// DefaultLFCThreshold is the absolute log2 fold-change cutoff for calling
	// a gene differentially expressed.
	// Override per request: lfc query parameter
	DefaultLFCThreshold = 1.0

	// DefaultTopLabels is the number of top-ranked genes labeled on plots.
	DefaultTopLabels = 10

	// DefaultSketchAccuracy is the DDSketch relative accuracy used for
	// per-dataset quantile summaries.
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit bounds DuckDB memory usage for table queries.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "512MB"

	// DefaultQueryTimeout bounds a single table query.
	// Override via config: query.timeout_sec
	DefaultQueryTimeout = 30 * time.Second
)

// =============================================================================
// Auth Defaults
// =============================================================================

const (
	// DefaultUsername is the basic-auth user when none is configured.
	// Override via config: auth.username or DEG_USERNAME
	DefaultUsername = "admin"

	// DefaultSessionName is the cookie name for authenticated sessions.
	DefaultSessionName = "degbrowser-session"

	// DefaultAuthRateLimit is the number of failed basic-auth attempts per IP
	// allowed inside DefaultAuthRateWindow before the IP is blocked.
	DefaultAuthRateLimit = 10

	// DefaultAuthRateWindow is the window for counting failed auth attempts.
	DefaultAuthRateWindow = time.Minute

	// GeneratedPasswordBytes is the entropy of the startup-generated password
	// used when no password is configured anywhere.
	GeneratedPasswordBytes = 16
)

// =============================================================================
// Tunnel Defaults
// =============================================================================

const (
	// DefaultTunnelProvider is used when no tunnel is requested.
	DefaultTunnelProvider = "none"

	// DefaultTunnelStartTimeout is how long to wait for the tunnel binary to
	// print a public URL before logging that none was detected. The tunnel
	// keeps running either way.
	DefaultTunnelStartTimeout = 15 * time.Second
)

// =============================================================================
// Export Defaults
// =============================================================================

const (
	// DefaultExportDir is where parquet snapshots are written.
	// Override via config: export.dir
	DefaultExportDir = "exports"

	// DefaultParquetRowGroupSize is the target rows per parquet row group.
	DefaultParquetRowGroupSize = 100000
)
