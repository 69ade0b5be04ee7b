/*
Package ports defines the driven ports (interfaces) of the Tessera engine.

These interfaces decouple the composition core from the host: how resources
resolve to routes, how slot elements are found, where status events go and
where the manifest comes from.

# Key Interfaces

  - RouteResolver: Maps a resource (usually a path) to a route name.
  - ElementProvider: Finds the element of a slot inside the host container.
  - SlotPlacer: Assigns auto-placed fragments to empty candidate slots.
  - EventPublisher: Receives page-level status events for the host UI.
  - ManifestLoader: Loads the routes, slots and fragments of an engine.
  - StateStore: Keeps the last state of each server-side session.
  - DistributedLocker: Serializes state changes of a session across replicas.
*/
package ports
