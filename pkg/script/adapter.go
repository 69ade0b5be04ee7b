package script

import (
	"context"
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Adapted is the uniform script contract the engine drives.
type Adapted interface {
	Hydrate(ctx context.Context, el domain.Element, state *domain.State) error
	Render(ctx context.Context, el domain.Element, state *domain.State) error
	Unmount(ctx context.Context, el domain.Element, state *domain.State) error
	OnStateChange(ctx context.Context, state *domain.State) error
	OnUpdateStatus(ctx context.Context, details domain.StatusDetails, state *domain.State) error
}

// RouteLookup resolves route names for the version 5 and 4 projections.
type RouteLookup interface {
	Route(name string) (domain.Route, bool)
}

// Env carries what older calling conventions need besides the state.
type Env struct {
	Routes  RouteLookup
	History ports.History
}

// Adapt wraps raw in the variant matching its declared version.
func Adapt(raw domain.Script, env Env) Adapted {
	if raw == nil {
		return newInvalid(0)
	}
	switch v := raw.Version(); v {
	case 6:
		return newV6(raw)
	case 5:
		return newV5(raw, env)
	case 4:
		return newV4(raw, env)
	case 3:
		return newV3(raw, env)
	default:
		return newInvalid(v)
	}
}

type invalid struct {
	err error
}

func newInvalid(version int) Adapted {
	return invalid{err: fmt.Errorf("%w: %d", domain.ErrInvalidScriptVersion, version)}
}

// newIncomplete rejects a script that declares a version but cannot render.
func newIncomplete(version int) Adapted {
	return invalid{err: fmt.Errorf("version %d script has no render method", version)}
}

func (s invalid) fail() error {
	return &domain.Error{
		Stage:       domain.StageLoadScript,
		Level:       domain.LevelError,
		Code:        domain.CodeInvalidScript,
		Recoverable: true,
		Err:         s.err,
	}
}

func (s invalid) Hydrate(context.Context, domain.Element, *domain.State) error { return s.fail() }
func (s invalid) Render(context.Context, domain.Element, *domain.State) error  { return s.fail() }
func (s invalid) Unmount(context.Context, domain.Element, *domain.State) error { return s.fail() }
func (s invalid) OnStateChange(context.Context, *domain.State) error          { return s.fail() }
func (s invalid) OnUpdateStatus(context.Context, domain.StatusDetails, *domain.State) error {
	return s.fail()
}

// IsInvalid reports whether a is the variant produced for unusable scripts.
func IsInvalid(a Adapted) bool {
	_, ok := a.(invalid)
	return ok
}
