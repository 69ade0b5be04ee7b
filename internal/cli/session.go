package cli

import (
	"context"
	"os"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/presentation/tui"
)

// RunSession navigates interactively: every line read from stdin is a resource.
func RunSession(opts RunOptions) error {
	logger := createLogger(opts.Debug, opts.JSONLogs)

	if !opts.Headless {
		tui.PrintBanner(tessera.Version)
	}

	engine, err := createEngine(opts.EngineOptions, logger)
	if err != nil {
		return err
	}

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	r := tessera.NewRunner()
	r.Input = os.Stdin
	r.Output = os.Stdout
	r.Headless = opts.Headless
	if !opts.Headless {
		r.Renderer = tui.NewRenderer()
	}

	runErr := r.Run(sigCtx, engine, opts.Start)
	if sigCtx.Err() != nil && runErr == nil {
		runErr = sigCtx.Err()
	}

	route := ""
	if st := engine.State(); st != nil {
		route = st.Route
	}
	logCompletion(route, runErr, opts.Headless, sigCtx.Signal())
	return handleExecutionError(runErr)
}
