// Package auth provides authentication primitives for LockerRoom Core.
//
// It implements:
//   - bcrypt password hashing with a configurable work factor (default cost 10)
//   - stateless identity tokens: HS512-signed JWTs carrying the user's
//     id, nickname and email, with issued-at and expiry claims
//   - the user account repository backed by SQLite
//
// Tokens are never persisted; every request re-verifies the signature
// against the process-wide secret. All verification failures (bad
// signature, malformed token, wrong algorithm, expired) collapse into
// ErrTokenInvalid so callers cannot distinguish them.
package auth
