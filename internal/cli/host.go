package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/pkg/adapters/file"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/adapters/pathmatch"
	redisAdapter "github.com/aretw0/tessera/pkg/adapters/redis"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/observability"
	"github.com/aretw0/tessera/pkg/persistence/middleware"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// HostOptions configure the session host behind the server commands.
type HostOptions struct {
	EngineOptions
	// RedisAddr selects the Redis store, locker and status bus. Empty keeps
	// everything in memory.
	RedisAddr  string
	SessionTTL time.Duration
	// SessionDir stores session states as files when Redis is not used.
	SessionDir string
	// SessionKey encrypts stored states (32 bytes). MaskKeys are patterns of
	// extra fields never written to the store.
	SessionKey []byte
	MaskKeys   []string
}

// Host bundles a session host with the adapters it was built from.
type Host struct {
	*session.Host
	Events   ports.EventSubscriber
	Registry *prometheus.Registry
	// Template is the engine the manifest was loaded with; it is never rendered.
	Template *tessera.Engine

	manifest atomic.Pointer[domain.Manifest]
	routes   atomic.Pointer[pathmatch.Resolver]
	close    func() error
}

// Manifest returns the manifest new sessions are built from.
func (h *Host) Manifest() *domain.Manifest {
	return h.manifest.Load()
}

// Close releases the Redis client, if any.
func (h *Host) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Reload loads the manifest again. Live sessions keep their engine; new
// sessions use the new manifest.
func (h *Host) Reload(ctx context.Context) error {
	m, err := h.Template.Loader().Load(ctx)
	if err != nil {
		return err
	}
	if err := m.Validate(); err != nil {
		return err
	}
	return h.setManifest(m)
}

func (h *Host) setManifest(m *domain.Manifest) error {
	routes, err := pathmatch.New(m.Routes)
	if err != nil {
		return err
	}
	h.routes.Store(routes)
	h.manifest.Store(m)
	return nil
}

// routeOf resolves resources against the routes of the current manifest.
func (h *Host) routeOf(ctx context.Context, resource string) (string, error) {
	return h.routes.Load().RouteNameFromResource(ctx, resource)
}

// NewHost builds the session host: one engine per session, rendered into an
// in-memory document, publishing its status on the session ID topic.
func NewHost(opts HostOptions, logger *slog.Logger) (*Host, error) {
	template, err := createEngine(opts.EngineOptions, logger)
	if err != nil {
		return nil, err
	}

	h := &Host{
		Template: template,
		Registry: prometheus.NewRegistry(),
	}
	if err := h.setManifest(template.Manifest()); err != nil {
		return nil, err
	}

	var (
		store     ports.StateStore
		publisher ports.EventPublisher
		mgrOpts   = []session.Option{
			session.WithLogger(logger),
			session.WithRoutes(ports.RouteResolverFunc(h.routeOf)),
		}
	)
	if opts.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		h.close = client.Close

		store = redisAdapter.NewFromClient(client, redisAdapter.WithTTL(opts.SessionTTL))
		mgrOpts = append(mgrOpts, session.WithLocker(redisAdapter.NewLocker(client, redisAdapter.DefaultPrefix)))
		bus := redisAdapter.NewBus(client, "tessera:status:", logger)
		publisher, h.Events = bus, bus
	} else {
		if opts.SessionDir != "" {
			store = file.New(opts.SessionDir)
		} else {
			store = memory.NewStore()
		}
		bus := memory.NewBus(64)
		publisher, h.Events = bus, bus
	}

	store, err = secureStore(store, opts)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	metrics := observability.NewMetrics(h.Registry)
	hooks := metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(createDebugHooks(logger))
	}

	factory := func(ctx context.Context, id string) (session.Page, domain.Element, error) {
		m := h.Manifest()
		eng, err := tessera.New(opts.ManifestPath,
			tessera.WithManifest(m),
			tessera.WithLogger(logger.With("session_id", id)),
			tessera.WithLifecycleHooks(hooks),
			tessera.WithPublisher(publisher, id),
			tessera.WithImportTimeout(opts.ImportTimeout),
		)
		if err != nil {
			return nil, nil, err
		}
		selectors := make([]string, 0, len(m.Slots))
		for _, s := range m.Slots {
			selectors = append(selectors, s.QuerySelector())
		}
		return eng, memory.NewDocument(selectors...), nil
	}

	h.Host = session.NewHost(session.NewManager(store, mgrOpts...), factory)
	return h, nil
}

// secureStore wraps store with masking and encryption as configured.
func secureStore(store ports.StateStore, opts HostOptions) (ports.StateStore, error) {
	var mws []middleware.Middleware
	if len(opts.MaskKeys) > 0 {
		mw, err := middleware.NewPIIMiddleware(opts.MaskKeys)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if len(opts.SessionKey) > 0 {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: opts.SessionKey})
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return middleware.Chain(store, mws...), nil
}

// watchManifest reloads the manifest of new sessions on every change until ctx is done.
func watchManifest(ctx context.Context, host *Host, logger *slog.Logger) error {
	events, err := host.Template.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case id, ok := <-events:
			if !ok {
				return nil
			}
			if err := host.Reload(ctx); err != nil {
				logger.Error("Manifest reload failed", "event", id, "err", err)
				continue
			}
			logger.Info("Manifest reloaded", "event", id)
		}
	}
}
