package tunnel

import (
	"context"
	"testing"

	"github.com/seqtools/degbrowser/internal/errors"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{"ngrok", ProviderNgrok, false},
		{"localtunnel", ProviderLocaltunnel, false},
		{"cloudflare", ProviderCloudflare, false},
		{"none", ProviderNone, false},
		{"", ProviderNone, false},
		{"ngrk", ProviderNone, true},
		{"NGROK", ProviderNone, true},
		{"serveo", ProviderNone, true},
	}

	for _, tt := range tests {
		got, err := ParseProvider(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseProvider(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, errors.ErrUnknownProvider) {
			t.Errorf("ParseProvider(%q) error = %v, want ErrUnknownProvider", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("ParseProvider(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestProviderArgs(t *testing.T) {
	if got := ProviderNgrok.Args(8050); len(got) != 4 || got[0] != "http" || got[3] != "8050" {
		t.Errorf("ngrok args = %v", got)
	}
	if got := ProviderCloudflare.Args(9000); got[len(got)-1] != "http://localhost:9000" {
		t.Errorf("cloudflare args = %v", got)
	}

	t.Run("localtunnel subdomain", func(t *testing.T) {
		t.Setenv("LT_SUBDOMAIN", "")
		if got := ProviderLocaltunnel.Args(8050); len(got) != 2 {
			t.Errorf("lt args without subdomain = %v", got)
		}
		t.Setenv("LT_SUBDOMAIN", "mylab")
		got := ProviderLocaltunnel.Args(8050)
		if len(got) != 4 || got[2] != "--subdomain" || got[3] != "mylab" {
			t.Errorf("lt args with subdomain = %v", got)
		}
	})
}

func TestFindPublicURL(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{
			name: "ngrok",
			line: `t=2024 lvl=info msg="started tunnel" url=https://ab12cd.ngrok-free.app`,
			want: "https://ab12cd.ngrok-free.app",
		},
		{
			name: "localtunnel",
			line: "your url is: https://brave-mouse-42.loca.lt",
			want: "https://brave-mouse-42.loca.lt",
		},
		{
			name: "cloudflared",
			line: "2024-01-15T10:00:00Z INF |  https://random-words-here.trycloudflare.com",
			want: "https://random-words-here.trycloudflare.com",
		},
		{
			name: "noise",
			line: "connecting to https://api.example.com/v1",
			want: "",
		},
		{
			name: "empty",
			line: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPublicURL(tt.line); got != tt.want {
				t.Errorf("FindPublicURL(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestPreflight(t *testing.T) {
	if err := Preflight(ProviderNone); err != nil {
		t.Errorf("Preflight(none) = %v, want nil", err)
	}

	// With an empty PATH no binary can resolve.
	t.Setenv("PATH", "")
	if err := Preflight(ProviderNgrok); !errors.Is(err, errors.ErrBinaryNotFound) {
		t.Errorf("Preflight(ngrok) = %v, want ErrBinaryNotFound", err)
	}
}

func TestRunMissingBinary(t *testing.T) {
	t.Setenv("PATH", "")
	r := NewRunner(ProviderCloudflare, 8050)
	if err := r.Run(context.Background()); !errors.Is(err, errors.ErrBinaryNotFound) {
		t.Errorf("Run() = %v, want ErrBinaryNotFound", err)
	}
}

func TestRunNoneWaitsForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(ProviderNone, 8050)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() = %v, want nil after cancel", err)
	}
}
