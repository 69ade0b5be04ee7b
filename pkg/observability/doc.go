/*
Package observability provides tools for monitoring the Tessera engine.

It includes Prometheus metrics fed by lifecycle hooks and the status aggregator
that folds per-slot statuses into the page-level status surfaced to the host.
*/
package observability
