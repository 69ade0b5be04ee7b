package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/script"
	"golang.org/x/sync/singleflight"
)

// DefaultImportTimeout bounds script loads and element lookups when none is configured.
const DefaultImportTimeout = 3 * time.Second

// Scripts loads fragment scripts at most once and memoizes the adapted result
// per fragment name for its own lifetime.
type Scripts struct {
	manifest *domain.Manifest
	env      script.Env
	timeout  time.Duration
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	mu     sync.RWMutex
	loaded map[string]script.Adapted
	group  singleflight.Group
}

// NewScripts creates a script cache over the fragments of manifest.
func NewScripts(manifest *domain.Manifest, env script.Env, timeout time.Duration) *Scripts {
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &Scripts{
		manifest: manifest,
		env:      env,
		timeout:  timeout,
		logger:   logging.NewNop(),
		loaded:   make(map[string]script.Adapted),
	}
}

// Get returns the adapted script of a fragment, loading it on first use.
// A nil script with a nil error means the fragment has no loader and is not managed.
func (s *Scripts) Get(ctx context.Context, name string, state *domain.State) (script.Adapted, error) {
	f, ok := s.manifest.Fragment(name)
	if !ok {
		return nil, domain.ConfigError(domain.CodeMissingFragment, "fragment %q is not declared", name)
	}
	if f.LoadScript == nil {
		return nil, nil
	}
	if a, ok := s.cached(name); ok {
		return a, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		if a, ok := s.cached(name); ok {
			return a, nil
		}
		a, err := s.load(ctx, f, state)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.loaded[name] = a
		s.mu.Unlock()
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(script.Adapted), nil
}

// Loaded reports whether the script of a fragment is already memoized.
func (s *Scripts) Loaded(name string) bool {
	_, ok := s.cached(name)
	return ok
}

func (s *Scripts) cached(name string) (script.Adapted, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.loaded[name]
	return a, ok
}

type loadResult struct {
	raw domain.Script
	err error
}

func (s *Scripts) load(ctx context.Context, f domain.Fragment, state *domain.State) (script.Adapted, error) {
	start := time.Now()
	loadCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan loadResult, 1)
	go func() {
		raw, err := f.LoadScript(loadCtx, state)
		done <- loadResult{raw: raw, err: err}
	}()

	var (
		adapted script.Adapted
		err     error
	)
	select {
	case r := <-done:
		switch {
		case r.err != nil && errors.Is(loadCtx.Err(), context.DeadlineExceeded):
			err = s.timeoutError(f.Name)
		case r.err != nil:
			err = &domain.Error{
				Stage:       domain.StageLoadScript,
				Fragment:    f.Name,
				Level:       domain.LevelError,
				Code:        domain.CodeLoadScript,
				Recoverable: true,
				Err:         r.err,
			}
		case r.raw == nil:
			err = &domain.Error{
				Stage:       domain.StageLoadScript,
				Fragment:    f.Name,
				Level:       domain.LevelError,
				Code:        domain.CodeInvalidScript,
				Recoverable: true,
				Err:         errors.New("loader returned no script"),
			}
		default:
			adapted = script.Adapt(r.raw, s.env)
		}
	case <-loadCtx.Done():
		err = s.timeoutError(f.Name)
	}

	s.emitScriptLoad(ctx, f.Name, time.Since(start), err)
	if err != nil {
		s.logger.WarnContext(ctx, "script load failed", "fragment", f.Name, "err", err)
		return nil, err
	}
	s.logger.DebugContext(ctx, "script loaded", "fragment", f.Name, "duration", time.Since(start))
	return adapted, nil
}

func (s *Scripts) timeoutError(fragment string) error {
	return &domain.Error{
		Stage:       domain.StageLoadScript,
		Fragment:    fragment,
		Level:       domain.LevelError,
		Code:        domain.CodeTimeOut,
		Recoverable: true,
		Err:         fmt.Errorf("script not loaded within %s", s.timeout),
	}
}

func (s *Scripts) emitScriptLoad(ctx context.Context, fragment string, d time.Duration, err error) {
	if s.hooks.OnScriptLoad == nil {
		return
	}
	s.hooks.OnScriptLoad(ctx, &domain.ScriptLoadEvent{
		Timestamp: time.Now(),
		Fragment:  fragment,
		Duration:  d,
		Err:       err,
	})
}
