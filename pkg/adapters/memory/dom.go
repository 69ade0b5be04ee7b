package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
)

// Element is an in-memory DOM node. Safe for concurrent use.
type Element struct {
	selector string

	mu       sync.RWMutex
	content  string
	children []*Element
}

var _ domain.Element = (*Element)(nil)

// NewElement creates a detached element.
func NewElement(selector string) *Element {
	return &Element{selector: selector}
}

// NewDocument creates a root container holding one child per selector.
func NewDocument(selectors ...string) *Element {
	doc := NewElement("body")
	for _, s := range selectors {
		doc.Append(s)
	}
	return doc
}

func (e *Element) Selector() string { return e.selector }

func (e *Element) SetContent(markup string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.content = markup
}

func (e *Element) Content() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.content
}

// Append adds a child element and returns it.
func (e *Element) Append(selector string) *Element {
	child := NewElement(selector)
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()
	return child
}

// Remove detaches the first direct child matching selector.
func (e *Element) Remove(selector string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, c := range e.children {
		if c.selector == selector {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the first descendant matching selector, depth first, or nil.
func (e *Element) Find(selector string) *Element {
	e.mu.RLock()
	children := append([]*Element(nil), e.children...)
	e.mu.RUnlock()
	for _, c := range children {
		if c.selector == selector {
			return c
		}
		if found := c.Find(selector); found != nil {
			return found
		}
	}
	return nil
}

// Walk calls fn for every descendant in document order.
func (e *Element) Walk(fn func(*Element)) {
	e.mu.RLock()
	children := append([]*Element(nil), e.children...)
	e.mu.RUnlock()
	for _, c := range children {
		fn(c)
		c.Walk(fn)
	}
}

// Markup renders the element tree as HTML-like text.
func (e *Element) Markup() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Element) write(b *strings.Builder) {
	tag, attr := "div", ""
	switch {
	case e.selector == "body":
		tag = "body"
	case strings.HasPrefix(e.selector, "#"):
		attr = fmt.Sprintf(" id=%q", strings.TrimPrefix(e.selector, "#"))
	default:
		attr = fmt.Sprintf(" data-selector=%q", e.selector)
	}
	fmt.Fprintf(b, "<%s%s>", tag, attr)
	b.WriteString(e.Content())

	e.mu.RLock()
	children := append([]*Element(nil), e.children...)
	e.mu.RUnlock()
	for _, c := range children {
		c.write(b)
	}
	fmt.Fprintf(b, "</%s>", tag)
}

// ErrForeignContainer is returned when a container was not created by this package.
var ErrForeignContainer = errors.New("container is not an in-memory element")

// ElementProvider looks elements up in an in-memory tree, polling until ctx is done.
type ElementProvider struct {
	// Interval between lookups. Defaults to 10ms.
	Interval time.Duration
}

var _ ports.ElementProvider = ElementProvider{}

// GetElement implements ports.ElementProvider.
func (p ElementProvider) GetElement(ctx context.Context, container domain.Element, selector string) (domain.Element, error) {
	root, ok := container.(*Element)
	if !ok || root == nil {
		return nil, ErrForeignContainer
	}
	if root.selector == selector {
		return root, nil
	}

	interval := p.Interval
	if interval <= 0 {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if el := root.Find(selector); el != nil {
			return el, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("element %q: %w", selector, ctx.Err())
		case <-ticker.C:
		}
	}
}
