// Package history persists an append-only log of Bluetooth operations
// (scans, pair attempts, connection attempts) with their outcomes and
// durations, backed by SQLite.
package history
