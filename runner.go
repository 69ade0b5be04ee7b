package tessera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
)

// Runner drives an engine from a line-based terminal session.
// Each input line is a resource to navigate to; the composed page is printed
// after every change. This allows for easy testing and integration with
// different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer
}

// ContentRenderer is a function that transforms the content before outputting it.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a new Runner. Input and Output must be set before Run.
func NewRunner() *Runner {
	return &Runner{}
}

// Run renders start into a fresh in-memory document, then navigates to every
// resource read from Input until EOF, "exit" or "quit".
// Lifecycle errors are printed and the session continues; configuration
// errors end it.
func (r *Runner) Run(ctx context.Context, engine *Engine, start string) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)

	selectors := make([]string, 0, len(engine.Manifest().Slots))
	for _, s := range engine.Manifest().Slots {
		selectors = append(selectors, s.QuerySelector())
	}
	doc := memory.NewDocument(selectors...)
	defer func() {
		_ = engine.Unmount(context.WithoutCancel(ctx), doc, nil)
	}()

	if !r.Headless {
		fmt.Fprintln(r.Output, "--- Tessera CLI (Runner) ---")
	}

	managed, err := engine.Start(ctx, doc, domain.Change{Resource: start, Event: domain.EventInit})
	if err := r.report(engine, doc, start, managed, err); err != nil {
		return err
	}

	for {
		if !r.Headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lineReader.ReadString('\n')
		input, serr := SanitizeResource(text)
		if err != nil && strings.TrimSpace(text) == "" {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}
		if serr != nil {
			fmt.Fprintf(r.Output, "error: %v\n", serr)
			if err != nil {
				return nil
			}
			continue
		}

		switch input {
		case "":
			continue
		case "exit", "quit":
			if !r.Headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			return nil
		case "status":
			st := engine.Status()
			fmt.Fprintf(r.Output, "status: %s %s\n", st.Details.Status, st.Details.Message)
			continue
		}

		managed, navErr := engine.Navigate(ctx, domain.Change{Resource: input, Event: domain.EventNavigate})
		if err := r.report(engine, doc, input, managed, navErr); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// report prints the page after a change. Only non-recoverable errors are returned.
func (r *Runner) report(engine *Engine, doc *memory.Element, resource string, managed bool, err error) error {
	if err != nil {
		fmt.Fprintf(r.Output, "error: %v\n", err)
		if e, ok := domain.AsError(err); ok && !e.Recoverable {
			return err
		}
	}
	if !managed {
		fmt.Fprintf(r.Output, "external link: %s\n", resource)
		return nil
	}

	output := PageMarkdown(engine, doc)
	if r.Renderer != nil {
		if rendered, rerr := r.Renderer(output); rerr == nil {
			output = rendered
		}
	}
	fmt.Fprintln(r.Output, strings.TrimSpace(output))
	return nil
}

// PageMarkdown describes the mounted slots of a page and their content as Markdown.
func PageMarkdown(engine *Engine, doc *memory.Element) string {
	var sb strings.Builder
	if st := engine.State(); st != nil {
		fmt.Fprintf(&sb, "# %s\n\n", st.Route)
	}
	for _, s := range engine.Snapshot() {
		fmt.Fprintf(&sb, "## %s: %s (%s)\n\n", s.Slot, s.Fragment, s.Phase)
		slot, ok := engine.Manifest().Slot(s.Slot)
		if !ok {
			continue
		}
		if el := doc.Find(slot.QuerySelector()); el != nil {
			if content := strings.TrimSpace(el.Content()); content != "" {
				fmt.Fprintf(&sb, "%s\n\n", content)
			}
		}
	}
	return sb.String()
}
