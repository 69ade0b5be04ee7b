package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/tessera/pkg/config"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/sources"
)

// Loader adapts a Loam repository to the ports.ManifestLoader interface.
// Every document declares one entity; the document body is used as Markdown
// for static fragments that define no markup of their own.
type Loader struct {
	Repo     *loam.TypedRepository[EntityMetadata]
	registry *sources.Registry
}

var (
	_ ports.ManifestLoader = (*Loader)(nil)
	_ ports.Watchable      = (*Loader)(nil)
)

// New creates a new Loam adapter. A nil registry selects the built-in sources.
func New(repo *loam.TypedRepository[EntityMetadata], registry *sources.Registry) *Loader {
	if registry == nil {
		registry = sources.NewRegistry(nil)
	}
	return &Loader{
		Repo:     repo,
		registry: registry,
	}
}

// Open initializes a read-only Loam repository at dir and wraps it.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numbers as json.Number across YAML and JSON documents.
	// ReadOnly avoids Loam's sandbox: the engine never writes the manifest.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[EntityMetadata](repo), nil), nil
}

// Load implements ports.ManifestLoader.
func (l *Loader) Load(ctx context.Context) (*domain.Manifest, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	type ordered struct {
		id    string
		order int
		route config.RouteDoc
	}
	var (
		doc    config.Document
		routes []ordered
		seen   = make(map[string]string)
	)

	for _, d := range docs {
		meta := d.Data
		rawID := meta.ID
		if rawID == "" {
			rawID = d.ID
		}
		id := trimExtension(rawID)

		key := meta.Kind + "/" + id
		if existing, ok := seen[key]; ok {
			return nil, fmt.Errorf("collision detected: %s '%s' is defined in both '%s' and '%s'", meta.Kind, id, existing, d.ID)
		}
		seen[key] = d.ID

		switch meta.Kind {
		case KindSlot:
			doc.Slots = append(doc.Slots, config.SlotDoc{
				Name:          id,
				Selector:      meta.Selector,
				ErrorMarkup:   meta.ErrorMarkup,
				LoadingMarkup: meta.LoadingMarkup,
			})
		case KindFragment:
			doc.Fragments = append(doc.Fragments, config.FragmentDoc{
				Name:   id,
				Slots:  meta.Slots,
				Source: withBody(meta.Source, d.Content),
			})
		case KindRoute:
			route := config.RouteDoc{Name: id, Path: meta.Path, Paths: meta.Paths}
			if err := config.Decode(meta.Fragments, &route.Fragments); err != nil {
				return nil, fmt.Errorf("route %q: %w", id, err)
			}
			routes = append(routes, ordered{id: id, order: meta.Order, route: route})
		case KindSettings:
			if err := config.Decode(map[string]any{"import_timeout": meta.ImportTimeout}, &doc); err != nil {
				return nil, fmt.Errorf("settings %q: %w", id, err)
			}
		default:
			return nil, fmt.Errorf("document %q: unknown kind %q", d.ID, meta.Kind)
		}
	}

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].order != routes[j].order {
			return routes[i].order < routes[j].order
		}
		return routes[i].id < routes[j].id
	})
	for _, r := range routes {
		doc.Routes = append(doc.Routes, r.route)
	}
	sort.SliceStable(doc.Slots, func(i, j int) bool { return doc.Slots[i].Name < doc.Slots[j].Name })
	sort.SliceStable(doc.Fragments, func(i, j int) bool { return doc.Fragments[i].Name < doc.Fragments[j].Name })

	return doc.Manifest(l.registry)
}

// withBody uses the document body as Markdown for static sources without markup.
func withBody(source map[string]any, body string) map[string]any {
	if source == nil || strings.TrimSpace(body) == "" {
		return source
	}
	if source["type"] != "static" || source["markup"] != nil || source["markdown"] != nil {
		return source
	}
	out := make(map[string]any, len(source)+1)
	for k, v := range source {
		out[k] = v
	}
	out["markdown"] = body
	return out
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				// Loam debounces on its own; pass the changed ID up.
				select {
				case ch <- evt.ID:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
