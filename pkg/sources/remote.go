package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/spf13/cast"
	"github.com/yosida95/uritemplate/v3"
)

// RemoteOptions configures a remote source.
type RemoteOptions struct {
	// URL is an RFC 6570 template. Variables: resource, route, prev_route, event,
	// every captured route parameter and every scalar extra state field.
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	// Preflight fetches the URL once while loading, so an unreachable origin
	// fails the load instead of the first render.
	Preflight bool `mapstructure:"preflight"`
	// MaxBytes bounds the size of a response body. Defaults to 1 MiB.
	MaxBytes int64 `mapstructure:"max_bytes"`
}

func buildRemote(client *http.Client, fragment string, options map[string]any) (domain.LoadScript, error) {
	var opts RemoteOptions
	if err := Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("remote source: %w", err)
	}
	if opts.URL == "" {
		return nil, fmt.Errorf("remote source: url is required")
	}
	tmpl, err := uritemplate.New(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("remote source: %w", err)
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 1 << 20
	}

	return func(ctx context.Context, state *domain.State) (domain.Script, error) {
		r := &Remote{client: client, url: tmpl, opts: opts, els: make(map[domain.Element]struct{})}
		if opts.Preflight {
			if _, err := r.fetch(ctx, state); err != nil {
				return nil, err
			}
		}
		return r, nil
	}, nil
}

// Remote is a version 6 script rendering markup fetched over HTTP.
type Remote struct {
	client *http.Client
	url    *uritemplate.Template
	opts   RemoteOptions

	mu  sync.Mutex
	els map[domain.Element]struct{}
}

func (r *Remote) Version() int { return 6 }

func (r *Remote) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	body, err := r.fetch(ctx, state)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.els[el] = struct{}{}
	r.mu.Unlock()
	el.SetContent(body)
	return nil
}

func (r *Remote) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	r.mu.Lock()
	delete(r.els, el)
	r.mu.Unlock()
	el.SetContent("")
	return nil
}

// OnStateChange refetches the markup and repaints every mounted element.
func (r *Remote) OnStateChange(ctx context.Context, state *domain.State) error {
	r.mu.Lock()
	els := make([]domain.Element, 0, len(r.els))
	for el := range r.els {
		els = append(els, el)
	}
	r.mu.Unlock()
	if len(els) == 0 {
		return nil
	}

	body, err := r.fetch(ctx, state)
	if err != nil {
		return err
	}
	for _, el := range els {
		el.SetContent(body)
	}
	return nil
}

// Expand returns the URL for state.
func (r *Remote) Expand(state *domain.State) (string, error) {
	return r.url.Expand(variables(state))
}

func (r *Remote) fetch(ctx context.Context, state *domain.State) (string, error) {
	u, err := r.Expand(state)
	if err != nil {
		return "", fmt.Errorf("expand url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	for k, v := range r.opts.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Accept", "text/html")

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s after %s", u, resp.Status, time.Since(start))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, r.opts.MaxBytes))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", u, err)
	}
	return string(b), nil
}

func variables(state *domain.State) uritemplate.Values {
	vars := uritemplate.Values{}
	if state == nil {
		return vars
	}
	vars.Set("resource", uritemplate.String(strings.TrimPrefix(state.Resource, "/")))
	vars.Set("route", uritemplate.String(state.Route))
	vars.Set("prev_route", uritemplate.String(state.PrevRoute))
	vars.Set("event", uritemplate.String(state.Event))
	for k, v := range state.Extra {
		switch t := v.(type) {
		case map[string]string:
			for pk, pv := range t {
				vars.Set(pk, uritemplate.String(pv))
			}
		default:
			if s, err := cast.ToStringE(v); err == nil {
				vars.Set(k, uritemplate.String(s))
			}
		}
	}
	return vars
}
