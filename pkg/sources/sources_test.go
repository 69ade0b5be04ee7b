package sources_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/script"
	"github.com/aretw0/tessera/pkg/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func state(resource string, extra map[string]any) *domain.State {
	s := domain.NewState(resource, domain.EventNavigate)
	s.Route = "product"
	return s.WithExtra(extra)
}

func TestRegistry_Build(t *testing.T) {
	reg := sources.NewRegistry(nil)
	assert.Equal(t, []string{"redirect", "remote", "static"}, reg.Types())

	load, err := reg.Build("nav", nil)
	require.NoError(t, err)
	assert.Nil(t, load, "no source means no loader")

	_, err = reg.Build("nav", map[string]any{"markup": "x"})
	assert.ErrorContains(t, err, "no type")

	_, err = reg.Build("nav", map[string]any{"type": "ftp"})
	assert.ErrorContains(t, err, `unknown source type "ftp"`)

	_, err = reg.Build("nav", map[string]any{"type": "static", "fail": "sometimes"})
	assert.ErrorContains(t, err, "unknown failure point")
}

func TestStatic_RendersTemplateAndRepaints(t *testing.T) {
	reg := sources.NewRegistry(nil)
	load, err := reg.Build("greeting", map[string]any{
		"type":   "static",
		"markup": `<p>{{.Resource}}</p>`,
	})
	require.NoError(t, err)

	ctx := context.Background()
	raw, err := load(ctx, state("/a", nil))
	require.NoError(t, err)
	adapted := script.Adapt(raw, script.Env{})

	el := memory.NewElement("#main")
	require.NoError(t, adapted.Render(ctx, el, state("/a", nil)))
	assert.Equal(t, "<p>/a</p>", el.Content())

	require.NoError(t, adapted.OnStateChange(ctx, state("/b", nil)))
	assert.Equal(t, "<p>/b</p>", el.Content())

	require.NoError(t, adapted.Unmount(ctx, el, state("/b", nil)))
	assert.Empty(t, el.Content())
}

func TestStatic_HydrateKeepsExistingMarkup(t *testing.T) {
	load, err := sources.NewRegistry(nil).Build("md", map[string]any{
		"type":     "static",
		"markdown": "# Title",
	})
	require.NoError(t, err)
	raw, err := load(context.Background(), nil)
	require.NoError(t, err)
	adapted := script.Adapt(raw, script.Env{})

	ssr := memory.NewElement("#ssr")
	ssr.SetContent("<h1>server</h1>")
	require.NoError(t, adapted.Hydrate(context.Background(), ssr, nil))
	assert.Equal(t, "<h1>server</h1>", ssr.Content())

	empty := memory.NewElement("#empty")
	require.NoError(t, adapted.Hydrate(context.Background(), empty, nil))
	assert.Contains(t, empty.Content(), "<h1>Title</h1>")
}

func TestStatic_FailurePoints(t *testing.T) {
	reg := sources.NewRegistry(nil)
	ctx := context.Background()

	load, err := reg.Build("broken", map[string]any{"type": "static", "fail": "load"})
	require.NoError(t, err)
	_, err = load(ctx, nil)
	assert.Error(t, err)

	load, err = reg.Build("broken", map[string]any{"type": "static", "fail": "update"})
	require.NoError(t, err)
	raw, err := load(ctx, nil)
	require.NoError(t, err)
	assert.Error(t, script.Adapt(raw, script.Env{}).OnStateChange(ctx, nil))
}

func TestRemote_ExpandsURLTemplate(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.RequestURI())
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<section>%s</section>", r.URL.Path)
	}))
	defer srv.Close()

	reg := sources.NewRegistry(srv.Client())
	load, err := reg.Build("product", map[string]any{
		"type":      "remote",
		"url":       srv.URL + "/fragments/{route}/{id}{?color}",
		"preflight": "true",
	})
	require.NoError(t, err)

	ctx := context.Background()
	st := state("/products/42", map[string]any{
		"params": map[string]string{"id": "42"},
		"color":  "red",
	})
	raw, err := load(ctx, st)
	require.NoError(t, err)

	el := memory.NewElement("#main")
	require.NoError(t, script.Adapt(raw, script.Env{}).Render(ctx, el, st))
	assert.Equal(t, "<section>/fragments/product/42</section>", el.Content())
	assert.Equal(t, []string{"/fragments/product/42?color=red", "/fragments/product/42?color=red"}, paths)

	failing, err := reg.Build("gone", map[string]any{
		"type":      "remote",
		"url":       srv.URL + "/missing",
		"preflight": true,
	})
	require.NoError(t, err)
	_, err = failing(ctx, st)
	assert.ErrorContains(t, err, "unexpected status")
}

func TestRedirect_PushesHistory(t *testing.T) {
	load, err := sources.NewRegistry(nil).Build("legacy", map[string]any{"type": "redirect", "to": "/new"})
	require.NoError(t, err)
	raw, err := load(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, raw.Version())

	history := memory.NewHistory("/old")
	routes := &domain.Manifest{Routes: []domain.Route{{Name: "old", Path: "/old"}}}
	adapted := script.Adapt(raw, script.Env{Routes: routes, History: history})

	st := domain.NewState("/old", domain.EventNavigate)
	st.Route = "old"
	el := memory.NewElement("#main")
	require.NoError(t, adapted.Render(context.Background(), el, st))
	assert.Equal(t, "/new", history.Location())
	assert.Contains(t, el.Content(), `data-from="old"`)
}
