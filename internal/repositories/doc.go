// Package repositories implements SQLite persistence for conversion history and the match cache.
//
// Key Implementations:
//   - [RunRepository] : run history with status queries and soft deletes
//   - [MatchCache] : durable query → video id memo consulted behind the in-process cache
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
