// Package store provides SQLite-backed history for compiled IR.
//
// Each successful compile can be recorded as a snapshot:
//   - Snapshots: canonical IR JSON keyed by its digest, with a build ID
//   - Prompts: the digest of every function config prompt in a snapshot
//
// # Ordering
//
// Snapshots carry a seq INTEGER (logical clock) assigned at insert time.
// Reads order by seq ASC, never by timestamps, so history is identical on
// every machine that replays the same compiles.
//
// # Idempotency
//
// A snapshot is identified by its IR digest. Recording an IR that is
// already stored returns the existing snapshot and writes nothing.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Digests are computed by internal/ir/hash.go using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
