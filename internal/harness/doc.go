// Package harness runs orderdedup scenarios: seed a fresh store, run one or
// more purge and migrate steps, and assert on the final records and the
// run reports.
//
// # Scenario Format
//
//	name: branch_collision
//	description: "SS and SZM copies of order 1 collapse into 1_JF"
//	store: sqlite            # or memory; defaults to sqlite
//	records:
//	  - number: 1
//	    branch: SS
//	    partner: ACME
//	    loaded_at: 2024-03-01T10:00:00Z
//	steps:
//	  - op: migrate
//	    mode: apply
//	    migration: { from: [SS, SZM], to: JF, name: Juiz de Fora }
//	  - op: purge
//	    mode: apply
//	    key: strict
//	assertions:
//	  - type: final_ids
//	    ids: [1_JF]
//	  - type: record
//	    id: 1_JF
//	    expect: { branch_code: JF }
//	  - type: report
//	    step: 1
//	    expect: { migrated: 2, collisions: 1 }
//	  - type: unchanged
//
// A record's id defaults to "{number}_{branch}". Steps on a memory store may
// inject write failures:
//
//	inject:
//	  - { op: delete_many, id: 2_SS }
//
// # Assertion Types
//
//   - final_ids: the store holds exactly these IDs, in any order
//   - record: the record with id exists and its fields render to expect
//   - absent: the record with id does not exist
//   - report: fields of the step's JSON report (1-based) equal expect
//   - unchanged: the record-set fingerprint equals the seeded one
//
// # Deterministic Testing
//
// Each scenario gets its own store and fixed run IDs ("run-1", "run-2", ...),
// so the text snapshot compared by RunWithGolden is reproducible.
package harness
