package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/tessera/internal/logging"
	"github.com/aretw0/tessera/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from Stdout page output).
func createLogger(debug, jsonLogs bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	switch {
	case jsonLogs:
		return logging.NewJSON(level)
	case debug:
		return logging.New(level)
	}
	return logging.NewNop()
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhase: func(ctx context.Context, e *domain.PhaseEvent) {
			logger.Debug("Lifecycle Phase", "slot", e.Slot, "fragment", e.Fragment, "phase", e.Phase)
		},
		OnStatus: func(ctx context.Context, e *domain.SlotStatusEvent) {
			logger.Debug("Slot Status", "slot", e.Slot, "fragment", e.Fragment, "status", e.Details.Status, "message", e.Details.Message)
		},
		OnScriptLoad: func(ctx context.Context, e *domain.ScriptLoadEvent) {
			if e.Err != nil {
				logger.Debug("Script Load (Error)", "fragment", e.Fragment, "duration", e.Duration, "err", e.Err)
			} else {
				logger.Debug("Script Load (Success)", "fragment", e.Fragment, "duration", e.Duration)
			}
		},
		OnStateChange: func(ctx context.Context, e *domain.StateChangeEvent) {
			route := ""
			if e.State != nil {
				route = e.State.Route
			}
			logger.Debug("State Change", "route", route, "mounted", e.Mounted, "duration", e.Duration, "err", e.Err)
		},
		OnStateDropped: func(ctx context.Context, c domain.Change) {
			logger.Debug("State Dropped", "resource", c.Resource)
		},
	}
}

func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, io.EOF)
}

func handleExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if isInterrupted(err) {
		return nil // Exit 0 for interruptions
	}
	return err
}

func logCompletion(route string, err error, quiet bool, sig os.Signal) {
	if quiet {
		return
	}
	if err == nil {
		printSystemMessage("Finished at '%s' route.", route)
		return
	}
	if !isInterrupted(err) {
		return
	}
	if sig == os.Interrupt {
		fmt.Printf("[CTRL+C]\n")
		printSystemMessage("Interrupted at '%s' route.", route)
		return
	}
	fmt.Printf("\n")
	printSystemMessage("Terminated at '%s' route.", route)
}
