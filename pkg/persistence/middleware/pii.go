package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Mask replaces the values of masked keys.
const Mask = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks the extra fields whose key matches one of patterns
// before a state is stored. Nested maps are walked; the state handed to Save is
// left untouched.
func NewPIIMiddleware(patterns []string) (Middleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid mask pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: compiled}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	masked := *state
	masked.Extra = m.mask(state.Extra)
	return m.next.Save(ctx, sessionID, &masked)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// mask returns a copy of in with sensitive values replaced.
func (m *piiMiddleware) mask(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch {
		case m.sensitive(k):
			out[k] = Mask
		default:
			out[k] = m.maskValue(v)
		}
	}
	return out
}

func (m *piiMiddleware) maskValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return m.mask(t)
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			if m.sensitive(k) {
				out[k] = Mask
			} else {
				out[k] = s
			}
		}
		return out
	default:
		return v
	}
}

func (m *piiMiddleware) sensitive(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
