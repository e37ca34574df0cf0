// Package dedup implements the logical deduplication and record
// consolidation engine for sales orders.
//
// The engine detects business-duplicate order records (repeated imports,
// branch-code renames, case-inconsistent keys), decides which copy is
// canonical, and merges or deletes the rest.
//
// ARCHITECTURE:
//
//	Store → Finder (grouping engine) → SelectCanonical (policy)
//	      → Consolidator | Migrator → Store (writes)
//
// Identity keys are pluggable (KeyFunc); the grouping algorithm never changes
// when a key function is added. Key functions that also implement
// Declarative can be pushed down to stores implementing Aggregator.
//
// Execution Model:
// Runs are single-threaded and synchronous. The candidate set is read once,
// decisions are computed in memory, then writes are issued sequentially in
// discovery order, one group or record at a time. The context is checked
// between units; cancelling leaves every completed unit applied and nothing
// half-applied except as noted on Migrator.
//
// PRECONDITION: single operator. There is no locking. Two concurrent runs
// against the same store can both pick the same canonical record and issue
// conflicting writes. Callers must not run executors concurrently on one
// store.
//
// Re-runs are idempotent: resolved groups are no longer duplicates and
// migrated records already sit at their canonical key.
//
// Modes:
// Every executor runs in simulate or apply mode. Simulate performs the same
// reads and decisions as apply and produces the same report shape, but no
// write call reaches the store.
package dedup
