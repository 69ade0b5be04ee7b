package sources

import (
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Factory builds the loader of a fragment from its decoded source block.
type Factory func(fragment string, options map[string]any) (domain.LoadScript, error)

// Registry maps source types to factories. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in types registered.
// Remote sources use client; nil selects a client with a 10s timeout.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("static", buildStatic)
	r.Register("remote", func(fragment string, options map[string]any) (domain.LoadScript, error) {
		return buildRemote(client, fragment, options)
	})
	r.Register("redirect", buildRedirect)
	return r
}

// Register adds or replaces the factory of a source type.
func (r *Registry) Register(kind string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = f
}

// Types returns the registered source types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Build returns the loader described by source. A nil source yields a nil loader.
func (r *Registry) Build(fragment string, source map[string]any) (domain.LoadScript, error) {
	if source == nil {
		return nil, nil
	}
	kind, _ := source["type"].(string)
	if kind == "" {
		return nil, fmt.Errorf("fragment %q: source has no type", fragment)
	}
	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("fragment %q: unknown source type %q", fragment, kind)
	}
	load, err := f(fragment, source)
	if err != nil {
		return nil, fmt.Errorf("fragment %q: %w", fragment, err)
	}
	return load, nil
}

// Decode decodes source options into out, accepting durations as strings
// ("250ms") and numbers as strings where the target wants them.
func Decode(options map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(options)
}
