// Package store is the record store facade: the Service contract every
// command is written against, and a SQLite implementation of it.
//
// The SQLite store keeps records in entity-attribute-value form:
//   - records: one row per record (id, entity, creation sequence)
//   - record_values: one row per attribute with a dynamically typed value
//   - associations: many-to-many links, stored in both directions
//   - process_instances: the active business process stage per record
//
// # Determinism
//
// All queries order by creation sequence with the id as tiebreaker:
// ORDER BY seq ASC, id ASC COLLATE BINARY. Record ids come from an
// IDGenerator; tests use a reproducible generator so golden traces are stable.
//
// # Errors
//
// Every failure is returned as a *crm.StoreError naming the operation. The
// underlying driver error is kept unchanged and reachable through errors.As.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
