// Package pathmatch resolves resources to routes by matching their path
// patterns on a chi routing tree.
//
// Manifest patterns use ":name" for a parameter segment and a trailing "**"
// for any remainder. Segments holding '*' or '?' are globs over a single
// segment. chi's own "{name}" and "{name:regexp}" syntax is accepted as is.
// When several patterns match, the most specific one wins, as in chi.
package pathmatch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// globParam prefixes the keys of parameters compiled from glob segments.
// They are matched but never reported.
const globParam = "_glob"

type entry struct {
	route string
	raw   string
}

// Resolver is the default ports.RouteResolver and ports.AdditionalStateProvider.
type Resolver struct {
	mux     *chi.Mux
	entries map[string]entry
}

var (
	_ ports.RouteResolver           = (*Resolver)(nil)
	_ ports.AdditionalStateProvider = (*Resolver)(nil)
)

// New registers the patterns of routes. When two routes declare the same
// pattern, the first one keeps it.
func New(routes []domain.Route) (*Resolver, error) {
	r := &Resolver{
		mux:     chi.NewRouter(),
		entries: make(map[string]entry),
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, route := range routes {
		for _, p := range route.AllPaths() {
			pattern, err := translate(p)
			if err != nil {
				return nil, fmt.Errorf("route %q: %w", route.Name, err)
			}
			patterns := []string{pattern}
			// "/docs/**" also matches "/docs" itself.
			if base, ok := strings.CutSuffix(pattern, "/*"); ok {
				if base == "" {
					base = "/"
				}
				patterns = append(patterns, base)
			}
			for _, pat := range patterns {
				if _, taken := r.entries[pat]; taken {
					continue
				}
				if err := register(r.mux, pat, noop); err != nil {
					return nil, fmt.Errorf("route %q: bad pattern %q: %w", route.Name, p, err)
				}
				r.entries[pat] = entry{route: route.Name, raw: p}
			}
		}
	}
	return r, nil
}

// register turns chi's registration panics into errors.
func register(mux *chi.Mux, pattern string, h http.HandlerFunc) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	mux.Get(pattern, h)
	return nil
}

// RouteNameFromResource implements ports.RouteResolver.
// Resources matching no pattern return domain.ErrNoRoute.
func (r *Resolver) RouteNameFromResource(ctx context.Context, resource string) (string, error) {
	e, _, ok := r.find(resource)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrNoRoute, resource)
	}
	return e.route, nil
}

// AdditionalState implements ports.AdditionalStateProvider. It exposes the
// captured parameters under "params", the query under "query" and the matched
// pattern under "pattern".
func (r *Resolver) AdditionalState(ctx context.Context, routeName, resource string) (map[string]any, error) {
	e, params, ok := r.find(resource)
	if !ok || e.route != routeName {
		return nil, nil
	}
	out := map[string]any{
		"params":  params,
		"pattern": e.raw,
	}
	if u, err := url.Parse(resource); err == nil && u.RawQuery != "" {
		query := make(map[string]string)
		for k, v := range u.Query() {
			query[k] = v[0]
		}
		out["query"] = query
	}
	return out, nil
}

// Match reports the route and parameters of resource.
func (r *Resolver) Match(resource string) (string, map[string]string, bool) {
	e, params, ok := r.find(resource)
	return e.route, params, ok
}

func (r *Resolver) find(resource string) (entry, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	pattern := r.mux.Find(rctx, http.MethodGet, pathOf(resource))
	e, ok := r.entries[pattern]
	if !ok {
		return entry{}, nil, false
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		switch {
		case strings.HasPrefix(k, globParam):
		case k == "*":
			params["**"] = rctx.URLParams.Values[i]
		default:
			params[k] = rctx.URLParams.Values[i]
		}
	}
	return e, params, true
}

// translate rewrites a manifest pattern into chi syntax.
func translate(p string) (string, error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	if len(segs) == 1 && segs[0] == "" {
		return "/", nil
	}
	globs := 0
	for i, s := range segs {
		switch {
		case s == "**":
			if i != len(segs)-1 {
				return "", fmt.Errorf("\"**\" must be the last segment of %q", p)
			}
			segs[i] = "*"
		case strings.HasPrefix(s, ":"):
			segs[i] = "{" + s[1:] + "}"
		case strings.HasPrefix(s, "{"):
		case strings.ContainsAny(s, "*?"):
			rex, err := globRegexp(s)
			if err != nil {
				return "", fmt.Errorf("bad glob %q in %q: %w", s, p, err)
			}
			segs[i] = fmt.Sprintf("{%s%d:%s}", globParam, globs, rex)
			globs++
		case strings.ContainsAny(s, "[]{}"):
			return "", fmt.Errorf("unsupported segment %q in %q", s, p)
		}
	}
	return "/" + strings.Join(segs, "/"), nil
}

// globRegexp compiles a single segment glob: '*' matches any run of
// characters and '?' exactly one.
func globRegexp(glob string) (string, error) {
	if strings.ContainsAny(glob, "[]{}\\") {
		return "", fmt.Errorf("character classes and escapes are not supported")
	}
	var b strings.Builder
	for _, c := range glob {
		switch c {
		case '*':
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	return b.String(), nil
}

// pathOf strips the query and fragment of resource and a trailing slash.
func pathOf(resource string) string {
	p := resource
	if u, err := url.Parse(resource); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(resource, "?#"); i >= 0 {
		p = resource[:i]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
