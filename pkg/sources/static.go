package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/yuin/goldmark"
)

// StaticOptions configures a static source.
type StaticOptions struct {
	// Markup is a text/template executed against the current *domain.State.
	Markup string `mapstructure:"markup"`
	// Markdown is converted to HTML once, when the manifest is loaded.
	Markdown string `mapstructure:"markdown"`
	// Delay postpones the script load.
	Delay time.Duration `mapstructure:"delay"`
	// Fail makes one lifecycle call fail: "load", "render", "update" or "unmount".
	Fail string `mapstructure:"fail"`
}

func buildStatic(fragment string, options map[string]any) (domain.LoadScript, error) {
	var opts StaticOptions
	if err := Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("static source: %w", err)
	}

	text := opts.Markup
	if opts.Markdown != "" {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(opts.Markdown), &buf); err != nil {
			return nil, fmt.Errorf("static source: markdown: %w", err)
		}
		text += buf.String()
	}
	tmpl, err := template.New(fragment).Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("static source: %w", err)
	}
	switch opts.Fail {
	case "", "load", "render", "update", "unmount":
	default:
		return nil, fmt.Errorf("static source: unknown failure point %q", opts.Fail)
	}

	return func(ctx context.Context, state *domain.State) (domain.Script, error) {
		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if opts.Fail == "load" {
			return nil, errors.New("configured to fail on load")
		}
		return &Static{Fragment: fragment, Template: tmpl, Fail: opts.Fail}, nil
	}, nil
}

// Static is a version 6 script rendering a template into every element it is mounted in.
type Static struct {
	Fragment string
	Template *template.Template
	Fail     string

	mu  sync.Mutex
	els map[domain.Element]struct{}
}

func (s *Static) Version() int { return 6 }

func (s *Static) Render(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.Fail == "render" {
		return errors.New("configured to fail on render")
	}
	s.mu.Lock()
	if s.els == nil {
		s.els = make(map[domain.Element]struct{})
	}
	s.els[el] = struct{}{}
	s.mu.Unlock()
	return s.paint(el, state)
}

// Hydrate keeps server-rendered markup and only renders into empty elements.
func (s *Static) Hydrate(ctx context.Context, el domain.Element, state *domain.State) error {
	if strings.TrimSpace(el.Content()) == "" {
		return s.Render(ctx, el, state)
	}
	s.mu.Lock()
	if s.els == nil {
		s.els = make(map[domain.Element]struct{})
	}
	s.els[el] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *Static) Unmount(ctx context.Context, el domain.Element, state *domain.State) error {
	if s.Fail == "unmount" {
		return errors.New("configured to fail on unmount")
	}
	s.mu.Lock()
	delete(s.els, el)
	s.mu.Unlock()
	el.SetContent("")
	return nil
}

// OnStateChange repaints every mounted element.
func (s *Static) OnStateChange(ctx context.Context, state *domain.State) error {
	if s.Fail == "update" {
		return errors.New("configured to fail on update")
	}
	s.mu.Lock()
	els := make([]domain.Element, 0, len(s.els))
	for el := range s.els {
		els = append(els, el)
	}
	s.mu.Unlock()
	for _, el := range els {
		if err := s.paint(el, state); err != nil {
			return err
		}
	}
	return nil
}

func (s *Static) paint(el domain.Element, state *domain.State) error {
	var buf bytes.Buffer
	if err := s.Template.Execute(&buf, state); err != nil {
		return err
	}
	el.SetContent(buf.String())
	return nil
}
