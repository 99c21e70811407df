// Package cache persists processed datasets so repeated loads with the
// same configuration can skip the pipeline. Entries are keyed by loader
// name and selector and stored in SQLite with the table payload serialized
// as CSV plus a dtype header.
package cache
