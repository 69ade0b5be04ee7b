/*
Package domain contains the core domain models of the Tessera composition engine.

It defines the configuration entities (Routes, Slots, Fragments), the per-tick
State handed to fragment scripts, the Status protocol used to report progress
and failures, and the typed Error every stage of the engine reports with.
This package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Route: A named page mapping one or more paths to a set of fragment placements.
  - Slot: A named mount point, optionally carrying fallback markup providers.
  - Fragment: A named, independently loadable unit of UI with its LoadScript factory.
  - State: The read-only snapshot of shared context for one state change.
  - Element: The host-owned mount target a script renders into.
*/
package domain
