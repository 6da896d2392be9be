// Package tunnel supervises a third-party tunnel client that exposes the
// local HTTP port under a public hostname.
//
// The tunnel binary (ngrok, lt, or cloudflared) is an external dependency;
// its presence is checked before the daemon binds the listener so a missing
// binary fails fast, but the process itself is only started once the HTTP
// server is accepting connections.
package tunnel

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/seqtools/degbrowser/config"
	"github.com/seqtools/degbrowser/internal/errors"
	"github.com/seqtools/degbrowser/internal/logging"
)

var log = logging.Component("tunnel")

// Provider identifies a tunnel client.
type Provider int

const (
	ProviderNone Provider = iota
	ProviderNgrok
	ProviderLocaltunnel
	ProviderCloudflare
)

// ParseProvider parses a provider name. The empty string means none.
func ParseProvider(s string) (Provider, error) {
	switch s {
	case "", "none":
		return ProviderNone, nil
	case "ngrok":
		return ProviderNgrok, nil
	case "localtunnel":
		return ProviderLocaltunnel, nil
	case "cloudflare":
		return ProviderCloudflare, nil
	default:
		return ProviderNone, fmt.Errorf("%w: %q (want ngrok, localtunnel, cloudflare, or none)",
			errors.ErrUnknownProvider, s)
	}
}

// String returns the provider name.
func (p Provider) String() string {
	switch p {
	case ProviderNgrok:
		return "ngrok"
	case ProviderLocaltunnel:
		return "localtunnel"
	case ProviderCloudflare:
		return "cloudflare"
	default:
		return "none"
	}
}

// Binary returns the executable name the provider needs on PATH.
func (p Provider) Binary() string {
	switch p {
	case ProviderNgrok:
		return "ngrok"
	case ProviderLocaltunnel:
		return "lt"
	case ProviderCloudflare:
		return "cloudflared"
	default:
		return ""
	}
}

// Args builds the provider's command line for forwarding the given port.
// Optional credentials come from the environment: ngrok reads
// NGROK_AUTHTOKEN itself, and LT_SUBDOMAIN requests a stable localtunnel
// subdomain.
func (p Provider) Args(port int) []string {
	switch p {
	case ProviderNgrok:
		return []string{"http", "--log", "stdout", strconv.Itoa(port)}
	case ProviderLocaltunnel:
		args := []string{"--port", strconv.Itoa(port)}
		if sub := os.Getenv("LT_SUBDOMAIN"); sub != "" {
			args = append(args, "--subdomain", sub)
		}
		return args
	case ProviderCloudflare:
		return []string{"tunnel", "--url", "http://localhost:" + strconv.Itoa(port)}
	default:
		return nil
	}
}

// Preflight verifies the provider's binary is on PATH. ProviderNone always
// passes.
func Preflight(p Provider) error {
	if p == ProviderNone {
		return nil
	}
	if _, err := exec.LookPath(p.Binary()); err != nil {
		return fmt.Errorf("%w: %s (install it or pick another provider)",
			errors.ErrBinaryNotFound, p.Binary())
	}
	return nil
}

// publicURLPattern matches the public hostname each client prints on startup.
var publicURLPattern = regexp.MustCompile(`https://[A-Za-z0-9._-]+\.(ngrok-free\.(app|dev)|ngrok\.io|ngrok\.app|loca\.lt|trycloudflare\.com)[^\s"]*`)

// FindPublicURL extracts the first public tunnel URL from a line of client
// output, or "" when the line has none.
func FindPublicURL(line string) string {
	return publicURLPattern.FindString(line)
}

// Runner supervises one tunnel process.
type Runner struct {
	provider  Provider
	port      int
	extraArgs []string

	mu        sync.Mutex
	publicURL string
}

// NewRunner creates a runner for the given provider and local port. Extra
// arguments are appended to the provider's command line as-is.
func NewRunner(provider Provider, port int, extraArgs ...string) *Runner {
	return &Runner{provider: provider, port: port, extraArgs: extraArgs}
}

// PublicURL returns the detected public URL, or "" before detection.
func (r *Runner) PublicURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publicURL
}

// Run starts the tunnel client and blocks until it exits or ctx is
// canceled. Cancellation kills the process and returns nil; any other exit
// is an error, since the tunnel is expected to outlive the server.
func (r *Runner) Run(ctx context.Context) error {
	if r.provider == ProviderNone {
		<-ctx.Done()
		return nil
	}

	path, err := exec.LookPath(r.provider.Binary())
	if err != nil {
		return fmt.Errorf("%w: %s", errors.ErrBinaryNotFound, r.provider.Binary())
	}

	cmd := exec.CommandContext(ctx, path, append(r.provider.Args(r.port), r.extraArgs...)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.provider.Binary(), err)
	}
	log.Info("tunnel starting", "provider", r.provider.String(), "port", r.port, "pid", cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Add(2)
	go r.scanOutput(&wg, stdout)
	go r.scanOutput(&wg, stderr)

	// Warn when no public URL shows up in a reasonable window; localtunnel
	// in particular can hang silently on network trouble.
	watchdog := time.AfterFunc(config.DefaultTunnelStartTimeout, func() {
		if r.PublicURL() == "" {
			log.Warn("no public URL detected yet", "provider", r.provider.String())
		}
	})
	defer watchdog.Stop()

	wg.Wait()
	err = cmd.Wait()

	if ctx.Err() != nil {
		log.Info("tunnel stopped", "provider", r.provider.String())
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", errors.ErrTunnelExited, r.provider.String(), err)
	}
	return fmt.Errorf("%w: %s", errors.ErrTunnelExited, r.provider.String())
}

// scanOutput forwards client output to the log and watches for the public
// URL announcement.
func (r *Runner) scanOutput(wg *sync.WaitGroup, pipe io.Reader) {
	defer wg.Done()
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		log.Debug("tunnel output", "provider", r.provider.String(), "line", line)

		if url := FindPublicURL(line); url != "" {
			r.mu.Lock()
			first := r.publicURL == ""
			if first {
				r.publicURL = url
			}
			r.mu.Unlock()
			if first {
				log.Info("tunnel established", "provider", r.provider.String(), "url", url)
			}
		}
	}
}
