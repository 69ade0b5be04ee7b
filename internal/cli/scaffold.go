package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/loam"
	loamAdapter "github.com/aretw0/tessera/pkg/adapters/loam"
)

// scaffold is the starter manifest written by Scaffold.
var scaffold = []loam.DocumentModel[loamAdapter.EntityMetadata]{
	{
		ID:   "settings",
		Data: loamAdapter.EntityMetadata{ID: "settings", Kind: loamAdapter.KindSettings, ImportTimeout: "3s"},
	},
	{
		ID: "slots/nav",
		Data: loamAdapter.EntityMetadata{
			ID:            "nav",
			Kind:          loamAdapter.KindSlot,
			LoadingMarkup: "<p>loading...</p>",
		},
	},
	{
		ID: "slots/main",
		Data: loamAdapter.EntityMetadata{
			ID:          "main",
			Kind:        loamAdapter.KindSlot,
			ErrorMarkup: "<p class=\"error\">{{.Error}}</p>",
		},
	},
	{
		ID: "fragments/menu",
		Data: loamAdapter.EntityMetadata{
			ID:     "menu",
			Kind:   loamAdapter.KindFragment,
			Slots:  []string{"nav"},
			Source: map[string]any{"type": "static", "markup": "<a href=\"/\">Home</a> <a href=\"/about\">About</a>"},
		},
	},
	{
		ID:      "fragments/home",
		Content: "# Welcome\n\nThis page is composed by Tessera.\n",
		Data: loamAdapter.EntityMetadata{
			ID:     "home",
			Kind:   loamAdapter.KindFragment,
			Slots:  []string{"main"},
			Source: map[string]any{"type": "static"},
		},
	},
	{
		ID:      "fragments/about",
		Content: "# About\n\nEdit the documents in this directory and watch the page change.\n",
		Data: loamAdapter.EntityMetadata{
			ID:     "about",
			Kind:   loamAdapter.KindFragment,
			Slots:  []string{"main"},
			Source: map[string]any{"type": "static"},
		},
	},
	{
		ID: "routes/home",
		Data: loamAdapter.EntityMetadata{
			ID:        "home",
			Kind:      loamAdapter.KindRoute,
			Order:     1,
			Path:      "/",
			Fragments: []any{"menu", "home"},
		},
	},
	{
		ID: "routes/about",
		Data: loamAdapter.EntityMetadata{
			ID:        "about",
			Kind:      loamAdapter.KindRoute,
			Order:     2,
			Path:      "/about",
			Fragments: []any{"menu", map[string]any{"name": "about", "slot": "main"}},
		},
	},
}

// Scaffold writes a starter Loam manifest into dir.
func Scaffold(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	// No versioning: this is pure file generation.
	repo, err := loam.Init(absPath, loam.WithVersioning(false), loam.WithForceTemp(false))
	if err != nil {
		return fmt.Errorf("failed to initialize loam: %w", err)
	}
	typedRepo := loam.NewTypedRepository[loamAdapter.EntityMetadata](repo)

	for i := range scaffold {
		doc := scaffold[i]
		if err := typedRepo.Save(ctx, &doc); err != nil {
			return fmt.Errorf("failed to write %s: %w", doc.ID, err)
		}
	}
	return nil
}
