// Package redis provides Redis-backed adapters: a session StateStore, a
// DistributedLocker and a pub/sub status bus.
package redis
