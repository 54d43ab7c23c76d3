// Package episode persists warning episodes.
//
// The SQLiteRepository appends every finished episode to an SQLite database
// and exposes a Repository interface that the monitor service depends on.
package episode
