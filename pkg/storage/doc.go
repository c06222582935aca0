// Package storage defines the persistence surface for baynext identities,
// projects, memberships and API keys.
//
// # Overview
//
// The Store interface composes three focused stores:
//
//   - UserStore: CreateUser, GetUserByID, GetUserByEmail, TouchUserLogin
//   - ProjectStore: projects plus their memberships, one per (project, user);
//     ListProjectsForUser covers owned and joined projects
//   - APIKeyStore: keys looked up by the SHA256 hash of their secret
//
// Store satisfies auth.CredentialStore and rbac.Store, so one value can back
// both the Authenticator and the Evaluator.
//
// # Implementations
//
//   - MemoryStore: map-backed, for tests and local development
//   - sqlstore.Store: PostgreSQL or SQLite through database/sql
//
// Both report missing records with errors wrapping auth.ErrNotFound and
// uniqueness violations with ErrConflict. The shared behaviour is checked by
// the storagetest package.
//
// # Usage Tracking
//
// Toucher writes API key last_used_at in the background:
//
//	toucher := storage.NewToucher(store, time.Minute, 10000, logger)
//	defer toucher.Close()
//	authenticator.SetKeyToucher(toucher)
//
// Touches for the same key inside the interval are collapsed through an
// expirable LRU. Write failures are logged and never reach the request.
package storage
