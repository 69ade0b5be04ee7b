package loam

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/tessera/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// siteDocs is a two-route manifest: home fills main and nav, about only nav.
var siteDocs = map[string]string{
	"slots/main.md": `---
id: main
kind: slot
selector: "#main"
error_markup: "<p>{{.Error}}</p>"
---
`,
	"slots/nav.md": `---
id: nav
kind: slot
selector: "#nav"
---
`,
	"fragments/home.md": `---
id: home
kind: fragment
slots: [main]
source:
  type: static
---
# Home

Welcome.
`,
	"fragments/menu.md": `---
id: menu
kind: fragment
slots: [nav]
source:
  type: static
  markup: "<ul></ul>"
---
ignored
`,
	"routes/home.md": `---
kind: route
path: /
order: 1
fragments:
  - home
  - name: menu
    slot: nav
---
`,
	"routes/about.md": `---
kind: route
id: about
path: /about
order: 0
fragments: [menu]
---
`,
}

func TestLoader_Load(t *testing.T) {
	_, repo := testutils.ManifestRepo(t, siteDocs)

	loader := New(loam.NewTypedRepository[EntityMetadata](repo), nil)
	m, err := loader.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Slots, 2)
	require.Len(t, m.Fragments, 2)
	require.Len(t, m.Routes, 2)

	// Routes are ordered by "order" before their IDs.
	assert.Equal(t, "about", m.Routes[0].Name)
	assert.Equal(t, "routes/home", m.Routes[1].Name)

	home := m.Routes[1]
	require.Len(t, home.Fragments, 2)
	assert.Equal(t, "home", home.Fragments[0].Name)
	assert.Equal(t, "nav", home.Fragments[1].Slot)
}

func TestLoader_Collision(t *testing.T) {
	_, repo := testutils.ManifestRepo(t, map[string]string{
		"a.md": "---\nid: dup\nkind: slot\n---\n",
		"b.md": "---\nid: dup\nkind: slot\n---\n",
	})

	loader := New(loam.NewTypedRepository[EntityMetadata](repo), nil)
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_UnknownKind(t *testing.T) {
	_, repo := testutils.ManifestRepo(t, map[string]string{"odd.md": "---\nkind: widget\n---\n"})

	loader := New(loam.NewTypedRepository[EntityMetadata](repo), nil)
	_, err := loader.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestWithBody(t *testing.T) {
	src := map[string]any{"type": "static"}
	out := withBody(src, "# Title")
	assert.Equal(t, "# Title", out["markdown"])
	assert.NotContains(t, src, "markdown", "input must not be mutated")

	own := map[string]any{"type": "static", "markup": "<b></b>"}
	assert.Equal(t, own, withBody(own, "# Title"))

	remote := map[string]any{"type": "remote", "url": "http://x"}
	assert.Equal(t, remote, withBody(remote, "# Title"))

	assert.Nil(t, withBody(nil, "body"))
}

func TestTrimExtension(t *testing.T) {
	assert.Equal(t, "routes/home", trimExtension("routes/home.md"))
	assert.Equal(t, "plain", trimExtension("plain"))
}

func TestOpen_Watch(t *testing.T) {
	tmpDir := t.TempDir()
	for name, content := range siteDocs {
		testutils.WriteDoc(t, tmpDir, name, content)
	}

	loader, err := Open(tmpDir)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := loader.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher a moment to register before touching the tree.
	time.Sleep(100 * time.Millisecond)
	testutils.WriteDoc(t, tmpDir, "slots/footer.md", "---\nkind: slot\n---\n")

	select {
	case id := <-events:
		assert.Contains(t, id, "footer")
	case <-ctx.Done():
		t.Fatal("timed out waiting for watch event")
	}
}
