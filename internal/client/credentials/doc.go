// Package credentials persists the session's bearer and refresh tokens.
//
// The Store interface is the only contract the token lifecycle depends on:
// asynchronous-safe Get/Put/Delete per key, each atomic and idempotent.
// Backends that can act on several keys at once also implement Batch, which
// Load, Save and Clear use so the access/refresh pair is never observed or
// left half-written.
//
// Implementations:
//   - MemoryStore: in-process map, for tests and throwaway sessions.
//   - SQLiteStore: local file database, schema applied by goose migrations.
//   - RedisStore: shared key/value server, pair writes in MULTI/EXEC.
//   - SealedStore: wraps another Store and encrypts values at rest.
package credentials
