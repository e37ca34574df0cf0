// Package pipeline provides a value-level aggregation description for
// finding duplicate order records.
//
// A Pipeline is the abstraction boundary between the deduplication engine and
// the record store backends. The engine describes WHAT to group; each store
// adapter compiles the description to its own query language:
//
//	[key function] → [Pipeline] → [SQLite window query]   (internal/store)
//	                            → [Mongo $group pipeline] (internal/mongostore)
//
// STAGES:
//
// A valid pipeline has the shape
//
//	[Match] → Group → [MinCount]
//
// Match restricts the candidate records (e.g. to a set of legacy branch
// codes), Group partitions them by key fields, and MinCount discards
// buckets with fewer members. DuplicateGroups builds the standard
// duplicate-finding pipeline with MinCount{N: 2}.
//
// SEALED INTERFACES:
//
// Stage and Predicate are sealed with marker methods so backends can use
// exhaustive type switches.
//
// NULLS:
//
// A record missing a key field contributes a null key component. Nulls are
// equal to each other for grouping purposes and distinct from every present
// value, including the empty string.
//
// ORDER:
//
// Buckets are returned in order of their first member's storage position and
// members in storage order. Backends MUST preserve this so dry-run output is
// reproducible.
package pipeline
