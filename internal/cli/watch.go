package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera"
	"github.com/aretw0/tessera/internal/presentation/tui"
	"github.com/aretw0/tessera/pkg/adapters/memory"
	"github.com/aretw0/tessera/pkg/domain"
)

// RunWatch renders the page in development mode, rebuilding the engine and
// re-rendering the current resource whenever the manifest changes.
func RunWatch(opts RunOptions, change domain.Change) error {
	logger := createLogger(opts.Debug, opts.JSONLogs)
	tui.PrintBanner(tessera.Version)

	logger.Info("Starting Watcher", "path", opts.ManifestPath)
	printSystemMessage("Watching '%s'.", opts.ManifestPath)

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	render := tui.NewRenderer()
	for {
		if !runWatchIteration(sigCtx, opts, change, render, logger) {
			break
		}
		logger.Info("Watcher restarting")
	}
	logCompletion(change.Resource, context.Canceled, false, sigCtx.Signal())
	return nil
}

// runWatchIteration renders once and blocks until the manifest changes.
// It returns false when the watcher must stop.
func runWatchIteration(parentCtx *SignalContext, opts RunOptions, change domain.Change, render tessera.ContentRenderer, logger *slog.Logger) bool {
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	engine, err := createEngine(opts.EngineOptions, logger)
	if err != nil {
		logger.Error("Engine initialization failed", "err", err)
		printSystemMessage("Manifest is invalid: %v", err)
		select {
		case <-parentCtx.Done():
			return false
		case <-time.After(2 * time.Second):
			return true
		}
	}

	watchCh, err := engine.Watch(ctx)
	if err != nil {
		logger.Error("Watch failed", "err", err)
		return false
	}

	if err := renderOnce(ctx, engine, change, render); err != nil {
		logger.Error("Render failed", "err", err)
		printSystemMessage("Render failed: %v", err)
	}
	printSystemMessage("Waiting for changes...")

	select {
	case <-parentCtx.Done():
		logger.Info("Stopping watcher (signal received)", "signal", parentCtx.Signal())
		return false
	case event, ok := <-watchCh:
		if !ok {
			return false
		}
		logger.Info("Change detected, triggering reload", "event", event)
		fmt.Printf("\n")
		printSystemMessage("Change detected in '%s'.", event)
		return true
	}
}

func renderOnce(ctx context.Context, engine *tessera.Engine, change domain.Change, render tessera.ContentRenderer) error {
	selectors := make([]string, 0, len(engine.Manifest().Slots))
	for _, s := range engine.Manifest().Slots {
		selectors = append(selectors, s.QuerySelector())
	}
	doc := memory.NewDocument(selectors...)
	defer func() {
		_ = engine.Unmount(context.WithoutCancel(ctx), doc, nil)
	}()

	managed, err := engine.Start(ctx, doc, change)
	if !managed {
		printSystemMessage("'%s' is not managed by any route.", change.Resource)
		return err
	}
	out := tessera.PageMarkdown(engine, doc)
	if rendered, rerr := render(out); rerr == nil {
		out = rendered
	}
	fmt.Println(out)
	return err
}
