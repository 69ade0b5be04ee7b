package sources

import (
	"context"
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/script"
)

// RedirectOptions configures a redirect source.
type RedirectOptions struct {
	To      string `mapstructure:"to"`
	Replace bool   `mapstructure:"replace"`
}

func buildRedirect(fragment string, options map[string]any) (domain.LoadScript, error) {
	var opts RedirectOptions
	if err := Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("redirect source: %w", err)
	}
	if opts.To == "" {
		return nil, fmt.Errorf("redirect source: to is required")
	}
	return func(ctx context.Context, state *domain.State) (domain.Script, error) {
		return &Redirect{To: opts.To, Replace: opts.Replace}, nil
	}, nil
}

// Redirect is a version 3 script moving the history to another location when mounted.
type Redirect struct {
	To      string
	Replace bool
}

func (r *Redirect) Version() int { return 3 }

func (r *Redirect) Mount(ctx context.Context, el domain.Element, history ports.History, app *script.App) error {
	if history.Location() == r.To {
		return nil
	}
	from := ""
	if app != nil {
		from = app.Name
	}
	el.SetContent(fmt.Sprintf(`<a href=%q data-from=%q>Moved</a>`, r.To, from))
	if r.Replace {
		history.Replace(r.To)
	} else {
		history.Push(r.To)
	}
	return nil
}
