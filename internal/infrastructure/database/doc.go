// Package database manages the SQLite connection and schema migrations.
//
// SQLite runs with WAL journaling and foreign keys enabled. The pool is
// capped at a single writer connection, which sidesteps SQLITE_BUSY under
// concurrent writes at the cost of serialising them.
//
// Migrations are plain SQL files embedded by the top-level migrations
// package, applied in filename order and tracked in schema_migrations.
package database
