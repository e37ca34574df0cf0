// Package store provides the SQLite-backed record store for sales orders.
//
// The store keeps one row per order record, keyed by its primary key
// "{order_number}_{branch_code}", and implements the dedup.Store contract
// together with the optional dedup.Aggregator and dedup.Mover interfaces.
//
// # Critical Patterns
//
// Store order:
//   - Every row carries seq INTEGER, assigned on first insert and kept on replace
//   - All reads use ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Duplicate buckets are ordered by the smallest seq of their members
//
// Canonical column rendering:
//   - Columns hold the same text rendering pipeline.Field.Value produces,
//     so SQL predicates and group keys agree with in-memory evaluation
//   - Case folding uses the fold() SQL function, installed on every
//     connection and backed by pipeline.Fold
//
// Atomic re-keying:
//   - Move upserts the new key and deletes the old one in one transaction
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
package store
