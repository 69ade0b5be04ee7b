package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/tessera"
)

// EngineOptions are the engine settings shared by every command.
type EngineOptions struct {
	ManifestPath  string
	ImportTimeout time.Duration
	Debug         bool
}

// createEngine initializes a Tessera engine with standard CLI conventions.
func createEngine(opts EngineOptions, logger *slog.Logger, extra ...tessera.Option) (*tessera.Engine, error) {
	engineOpts := []tessera.Option{tessera.WithLogger(logger)}

	if opts.Debug {
		engineOpts = append(engineOpts, tessera.WithLifecycleHooks(createDebugHooks(logger)))
	}
	if opts.ImportTimeout > 0 {
		engineOpts = append(engineOpts, tessera.WithImportTimeout(opts.ImportTimeout))
	}
	engineOpts = append(engineOpts, extra...)

	engine, err := tessera.New(opts.ManifestPath, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
