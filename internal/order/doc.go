// Package order defines the sales order record acted upon by the
// deduplication engine, together with its canonical encoding.
//
// This package contains the record model and pure helpers only. Every other
// internal package imports order; order imports nothing internal.
//
// Key design constraints:
//   - Optional business fields are nullable (pointer or decimal.NullDecimal),
//     never absent-key lookups
//   - Money and quantities use shopspring/decimal, never floats
//   - Times are encoded in TimeLayout (UTC, fixed width) so textual order
//     equals chronological order
//   - The primary key is opaque to deduplication except as the thing to
//     delete or replace
package order
