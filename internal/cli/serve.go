package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/tessera/pkg/adapters/http"
	"golang.org/x/sync/errgroup"
)

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	HostOptions
	Port     int
	Watch    bool
	JSONLogs bool
}

// RunServe serves sessions over HTTP until SIGINT or SIGTERM.
func RunServe(opts ServeOptions) error {
	logger := createLogger(opts.Debug, opts.JSONLogs)

	host, err := NewHost(opts.HostOptions, logger)
	if err != nil {
		return err
	}
	defer host.Close()

	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithEvents(host.Events),
		httpAdapter.WithMetrics(host.Registry),
		httpAdapter.WithLogger(logger),
	}
	if opts.Watch {
		handlerOpts = append(handlerOpts, httpAdapter.WithWatcher(host.Template))
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: httpAdapter.NewHandler(host.Host, host.Manifest(), handlerOpts...),
	}

	g, ctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		logger.Info("HTTP Server listening", "address", addr)
		printSystemMessage("Serving on http://localhost%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	if opts.Watch {
		g.Go(func() error {
			return watchManifest(ctx, host, logger)
		})
	}
	return handleExecutionError(g.Wait())
}
