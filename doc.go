/*
Package tessera composes a page out of independently built and loaded fragments.

A manifest declares slots (named regions of the page), fragments (units that
can be mounted in a slot) and routes (which fragments a resource shows). When
the host submits a new resource, the engine reconciles the fragments of the
previous and next route, then mounts, updates and unmounts them concurrently,
each slot driven by its own lifecycle.

# Concept

Fragments are scripts. A script is loaded lazily, at most once per engine, and
may implement any of four historical contracts (versions 3 to 6). The engine
adapts each of them to a single uniform lifecycle, so the orchestrator never
needs to know which contract a fragment was written against.

State changes are serialized through a queue of one: while a change is being
applied, only the most recent pending change is kept, and intermediate ones
are dropped.

# Usage

Initialize the engine from a manifest file (YAML or JSON), a Loam directory,
or a manifest built in code:

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/tessera"
		"github.com/aretw0/tessera/pkg/adapters/memory"
		"github.com/aretw0/tessera/pkg/domain"
	)

	func main() {
		engine, err := tessera.New("./site")
		if err != nil {
			log.Fatal(err)
		}

		doc := memory.NewDocument("#nav", "#main")
		ctx := context.Background()

		if _, err := engine.Start(ctx, doc, domain.Change{Resource: "/"}); err != nil {
			log.Fatal(err)
		}
		managed, err := engine.Navigate(ctx, domain.Change{Resource: "/about"})
		if err != nil {
			log.Fatal(err)
		}
		if !managed {
			// Not a route of this engine: treat it as an external link.
		}
	}

An Engine is itself a version 6 script, so a whole page can be mounted as a
fragment of another engine.

# Key Packages

  - pkg/domain: manifest, state, status and error types.
  - pkg/script: the version 3 to 6 contracts and their adapter.
  - pkg/sources: built-in script factories (static, remote, redirect).
  - pkg/session: server-side pages keyed by session ID.
  - pkg/adapters: Loam, HTTP, MCP, Redis and in-memory adapters.
*/
package tessera
