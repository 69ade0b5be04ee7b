package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementProvider_FindsNestedElement(t *testing.T) {
	doc := memory.NewDocument("#header")
	doc.Find("#header").Append("#nav")

	el, err := memory.ElementProvider{}.GetElement(context.Background(), doc, "#nav")
	require.NoError(t, err)
	assert.Equal(t, "#nav", el.Selector())
}

func TestElementProvider_RetriesUntilElementAppears(t *testing.T) {
	doc := memory.NewDocument()
	go func() {
		time.Sleep(20 * time.Millisecond)
		doc.Append("#late")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	el, err := memory.ElementProvider{Interval: 5 * time.Millisecond}.GetElement(ctx, doc, "#late")
	require.NoError(t, err)
	assert.Equal(t, "#late", el.Selector())
}

func TestElementProvider_TimesOut(t *testing.T) {
	doc := memory.NewDocument()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	el, err := memory.ElementProvider{}.GetElement(ctx, doc, "#missing")
	assert.Nil(t, el)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestElementProvider_ForeignContainer(t *testing.T) {
	_, err := memory.ElementProvider{}.GetElement(context.Background(), nil, "#x")
	assert.ErrorIs(t, err, memory.ErrForeignContainer)
}

func TestElement_Markup(t *testing.T) {
	doc := memory.NewDocument("#header", "main")
	doc.Find("#header").SetContent("<h1>Hi</h1>")

	assert.Equal(t, `<body><div id="header"><h1>Hi</h1></div><div data-selector="main"></div></body>`, doc.Markup())
	assert.True(t, doc.Remove("main"))
	assert.False(t, doc.Remove("main"))
}

func TestHistory(t *testing.T) {
	h := memory.NewHistory("/")
	var seen []string
	h.Listen(func(p string) { seen = append(seen, p) })

	h.Push("/a")
	h.Push("/b")
	h.Replace("/c")
	assert.Equal(t, "/c", h.Location())
	assert.Equal(t, []string{"/", "/a", "/c"}, h.Entries())
	assert.Equal(t, "/a", h.Back())
	assert.Equal(t, "/", h.Back())
	assert.Equal(t, "/", h.Back())
	assert.Equal(t, []string{"/a", "/b", "/c"}, seen)
}

func TestHistory_ListenerReadsHistory(t *testing.T) {
	h := memory.NewHistory("/")
	var locations []string
	h.Listen(func(string) {
		locations = append(locations, h.Location())
		if len(locations) == 1 {
			h.Listen(func(string) {})
		}
	})

	h.Push("/a")
	h.Replace("/b")
	assert.Equal(t, []string{"/a", "/b"}, locations)
	assert.Equal(t, []string{"/", "/b"}, h.Entries())
}
