// Package store provides persistent storage for saved plans using SQLite.
//
// # Data Model
//
// A Plan is a saved itinerary owned by a single user: an ordered list of
// stops (each stop carries a place plus timing details), an optional vibe
// label, and aggregate duration/distance figures. Stops and metadata are
// free-form JSON documents produced by the API layer; the store persists
// them as TEXT columns without interpreting their contents.
//
// # Ownership
//
// Every read, update, and delete is scoped to the owning user: queries
// match on both plan ID and user ID, so a plan belonging to another user
// is indistinguishable from a missing one (ErrNotFound). Listing returns
// only the caller's plans, newest first.
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode for concurrent reads:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// The schema is created automatically on initialization, and parent
// directories of the database file are created if needed.
//
// All methods accept context.Context for cancellation support. Use
// NewSQLiteStore(":memory:") for tests that need a throwaway database.
package store
