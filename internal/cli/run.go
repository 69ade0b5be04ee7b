package cli

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/tessera/pkg/domain"
)

// RunOptions contains all the configuration for the Navigate command.
type RunOptions struct {
	EngineOptions
	Start    string
	Headless bool
	Watch    bool
	JSONLogs bool
	Extra    string // Raw JSON string
}

// Execute handles the 'navigate' command logic, dispatching to Session or Watch mode.
func Execute(opts RunOptions) error {
	if opts.Start == "" {
		opts.Start = "/"
	}
	change := domain.Change{Resource: opts.Start, Event: domain.EventInit}
	if opts.Extra != "" {
		if err := json.Unmarshal([]byte(opts.Extra), &change.Extra); err != nil {
			return fmt.Errorf("error parsing --extra JSON: %w", err)
		}
	}

	if opts.Watch {
		if opts.Headless {
			return fmt.Errorf("--watch and --headless cannot be used together")
		}
		return RunWatch(opts, change)
	}
	return RunSession(opts)
}
