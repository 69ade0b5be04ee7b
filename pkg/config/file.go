package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/aretw0/tessera/pkg/sources"
	"github.com/fsnotify/fsnotify"
)

// FileLoader loads a manifest from a single YAML or JSON file.
type FileLoader struct {
	path     string
	registry *sources.Registry
}

var (
	_ ports.ManifestLoader = (*FileLoader)(nil)
	_ ports.Watchable      = (*FileLoader)(nil)
)

// NewFileLoader creates a loader for path using the default source registry.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path, registry: sources.NewRegistry(nil)}
}

// WithRegistry returns a copy of the loader building sources with reg.
func (l *FileLoader) WithRegistry(reg *sources.Registry) *FileLoader {
	cp := *l
	cp.registry = reg
	return &cp
}

// Load implements ports.ManifestLoader.
func (l *FileLoader) Load(ctx context.Context) (*domain.Manifest, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data, l.registry)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.path, err)
	}
	return m, nil
}

// Watch implements ports.Watchable. It emits the file name after each burst of writes.
func (l *FileLoader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	target := filepath.Base(l.path)
	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		defer watcher.Close()

		debounce := time.NewTimer(time.Hour)
		debounce.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				debounce.Reset(100 * time.Millisecond)
			case <-debounce.C:
				select {
				case ch <- target:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return ch, nil
}
