package pathmatch_test

import (
	"context"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/pathmatch"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func routes() []domain.Route {
	return []domain.Route{
		{Name: "home", Path: "/"},
		{Name: "app_a", Path: "/app-a"},
		{Name: "app_b", Paths: []string{"/app-b", "/app-b/next"}},
		{Name: "product", Path: "/products/:id"},
		{Name: "docs", Path: "/docs/**"},
		{Name: "files", Path: "/files/*.txt"},
		{Name: "user", Path: "/users/{uid:[0-9]+}"},
		{Name: "shadowed", Path: "/app-a"},
	}
}

func TestResolver_RouteNameFromResource(t *testing.T) {
	r, err := pathmatch.New(routes())
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		resource string
		want     string
	}{
		{"/", "home"},
		{"/app-a", "app_a"},
		{"/app-a/", "app_a"},
		{"/app-b", "app_b"},
		{"/app-b/next", "app_b"},
		{"/products/42?color=red", "product"},
		{"/docs/guide/intro", "docs"},
		{"/files/readme.txt", "files"},
		{"/docs", "docs"},
		{"/users/7", "user"},
		{"https://example.com/app-b/next#top", "app_b"},
	}
	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			got, err := r.RouteNameFromResource(ctx, tt.resource)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = r.RouteNameFromResource(ctx, "/nowhere")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
	_, err = r.RouteNameFromResource(ctx, "/files/readme.md")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
	_, err = r.RouteNameFromResource(ctx, "/users/bob")
	assert.ErrorIs(t, err, domain.ErrNoRoute)
}

func TestResolver_Match(t *testing.T) {
	r, err := pathmatch.New(routes())
	require.NoError(t, err)

	route, params, ok := r.Match("/docs/guide/intro")
	require.True(t, ok)
	assert.Equal(t, "docs", route)
	assert.Equal(t, map[string]string{"**": "guide/intro"}, params)

	route, params, ok = r.Match("/files/notes.txt")
	require.True(t, ok)
	assert.Equal(t, "files", route)
	assert.Empty(t, params, "glob segments are not reported as parameters")

	route, params, ok = r.Match("/users/7")
	require.True(t, ok)
	assert.Equal(t, "user", route)
	assert.Equal(t, map[string]string{"uid": "7"}, params)

	_, _, ok = r.Match("/nowhere")
	assert.False(t, ok)
}

func TestResolver_AdditionalState(t *testing.T) {
	r, err := pathmatch.New(routes())
	require.NoError(t, err)

	extra, err := r.AdditionalState(context.Background(), "product", "/products/42?color=red")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "42"}, extra["params"])
	assert.Equal(t, map[string]string{"color": "red"}, extra["query"])
	assert.Equal(t, "/products/:id", extra["pattern"])
}

func TestNew_RejectsBadPatterns(t *testing.T) {
	_, err := pathmatch.New([]domain.Route{{Name: "x", Path: "/a/**/b"}})
	assert.Error(t, err)
	_, err = pathmatch.New([]domain.Route{{Name: "y", Path: "/a/[b"}})
	assert.Error(t, err)
	_, err = pathmatch.New([]domain.Route{{Name: "z", Path: "/a/:id/b/:id"}})
	assert.Error(t, err, "duplicate parameter keys are rejected by the router")
}
