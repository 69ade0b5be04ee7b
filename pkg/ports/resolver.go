package ports

import "context"

// RouteResolver maps a resource to a route name.
// It must be pure with respect to its argument. An empty name (or domain.ErrNoRoute)
// means the resource is not managed by the engine.
type RouteResolver interface {
	RouteNameFromResource(ctx context.Context, resource string) (string, error)
}

// RouteResolverFunc adapts a function to RouteResolver.
type RouteResolverFunc func(ctx context.Context, resource string) (string, error)

func (f RouteResolverFunc) RouteNameFromResource(ctx context.Context, resource string) (string, error) {
	return f(ctx, resource)
}

// AdditionalStateProvider returns fields merged into State.Extra.
type AdditionalStateProvider interface {
	AdditionalState(ctx context.Context, routeName, resource string) (map[string]any, error)
}

// AdditionalStateFunc adapts a function to AdditionalStateProvider.
type AdditionalStateFunc func(ctx context.Context, routeName, resource string) (map[string]any, error)

func (f AdditionalStateFunc) AdditionalState(ctx context.Context, routeName, resource string) (map[string]any, error) {
	return f(ctx, routeName, resource)
}
