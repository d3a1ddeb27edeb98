// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [StorageRepository] : string key/value storage backing the session token and TUI theme
//   - [OverrideRepository] : custom project names and slugs applied over API results
//
// Both repositories operate on a database prepared by [shared.RunMigrations].
package repositories
