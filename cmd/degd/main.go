// degd serves DESeq2 differential-expression results as a web dashboard,
// optionally exposing it through a public tunnel.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/seqtools/degbrowser/internal/catalog"
	"github.com/seqtools/degbrowser/internal/loader"
	"github.com/seqtools/degbrowser/internal/logging"
	"github.com/seqtools/degbrowser/internal/query"
	"github.com/seqtools/degbrowser/internal/server"
	"github.com/seqtools/degbrowser/internal/tunnel"
)

// Version is set at build time via ldflags
var Version = "dev"

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "degd: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// CLI flags
	cfgPath := flag.String("config", "config.yaml", "config file path")
	listen := flag.String("listen", "", "listen host or host:port (overrides config)")
	port := flag.Int("port", 0, "listen port (overrides config and $PORT)")
	resultsDir := flag.String("results", "", "results directory (overrides config)")
	tunnelName := flag.String("tunnel", "", "tunnel provider: ngrok, localtunnel, cloudflare, or none")
	noAuth := flag.Bool("no-auth", false, "disable authentication")
	stageFrom := flag.String("stage-from", "", "copy primary/ and secondary/ TSVs from this directory into the results directory, then exit")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("degd", Version)
		return
	}

	// A single positional argument is accepted as the port.
	if flag.NArg() > 1 {
		fatal("too many arguments (usage: degd [flags] [port])")
	}
	argPort := 0
	if flag.NArg() == 1 {
		p, err := strconv.Atoi(flag.Arg(0))
		if err != nil {
			fatal("invalid port argument %q", flag.Arg(0))
		}
		argPort = p
	}

	// Load config; a missing file just means defaults.
	cfg, err := loader.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = loader.DefaultConfig()
		} else {
			fatal("load config: %v", err)
		}
	}

	// CLI and environment overrides. $PORT is what hosting platforms set.
	if *listen != "" {
		if host, portStr, err := net.SplitHostPort(*listen); err == nil {
			cfg.Server.Host = host
			if p, err := strconv.Atoi(portStr); err == nil {
				cfg.Server.Port = p
			}
		} else {
			cfg.Server.Host = *listen
		}
	}
	if env := os.Getenv("PORT"); env != "" && *port == 0 && argPort == 0 {
		p, err := strconv.Atoi(env)
		if err != nil {
			fatal("invalid $PORT %q", env)
		}
		cfg.Server.Port = p
	}
	if argPort != 0 {
		cfg.Server.Port = argPort
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *resultsDir != "" {
		cfg.Results.Dir = *resultsDir
	}
	if *tunnelName != "" {
		cfg.Tunnel.Provider = *tunnelName
	}
	if *noAuth {
		cfg.Auth.Enabled = false
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *logJSON {
		cfg.Logging.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		fatal("%v", err)
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)
	logging.Info("degd starting", "version", Version)

	// Staging mode copies analysis output into the results tree and exits.
	if *stageFrom != "" {
		res, err := catalog.Stage(*stageFrom, cfg.Results.Dir)
		if err != nil {
			fatal("stage: %v", err)
		}
		logging.Info("staging complete", "copied", res.Copied, "skipped", res.Skipped,
			"dest", cfg.Results.Dir)
		return
	}

	provider, err := tunnel.ParseProvider(cfg.Tunnel.Provider)
	if err != nil {
		fatal("%v", err)
	}
	// Fail before binding anything when the tunnel binary is absent.
	if err := tunnel.Preflight(provider); err != nil {
		fatal("%v", err)
	}

	// =========================================================================
	// Catalog and Query Service
	// =========================================================================

	cat, err := catalog.Open(cfg.Results.Dir)
	if err != nil {
		fatal("open results: %v", err)
	}
	logging.Info("catalog loaded", "dir", cfg.Results.Dir, "datasets", len(cat.Datasets()))

	qs, err := query.New(query.Config{
		MemoryLimit: cfg.Query.MemoryLimit,
		Timeout:     cfg.Query.Timeout(),
	})
	if err != nil {
		fatal("query service: %v", err)
	}
	defer qs.Close()

	// Register each dataset as a SQL view named by its short name so the
	// /api/sql endpoint and degctl can query them directly.
	for _, ds := range cat.Datasets() {
		name := strings.ToLower(ds.Category + "_" + ds.ShortName)
		if err := qs.RegisterDataset(context.Background(), name, ds.Path); err != nil {
			logging.Warn("register dataset view", "dataset", ds.ID, "error", err)
		}
	}

	// =========================================================================
	// Server and Tunnel
	// =========================================================================

	srv := server.New(cfg, cat, qs)
	if err := srv.Listen(); err != nil {
		fatal("listen: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })

	// The tunnel starts only after the port is bound, so the public
	// hostname never points at a dead upstream.
	runner := tunnel.NewRunner(provider, cfg.Server.Port, cfg.Tunnel.Args...)
	g.Go(func() error { return runner.Run(ctx) })

	if err := g.Wait(); err != nil {
		fatal("%v", err)
	}
	logging.Info("degd stopped")
}
