// Package crm defines the domain values exchanged between the converter, the
// command layer and the record store, together with the error taxonomy every
// step failure is classified into.
//
// This package imports nothing internal. Every other package may import it.
//
// Value kinds:
//   - EntityReference: store identifier plus owning entity logical name
//   - OptionSetValue: numeric option code (picklist, state, status)
//   - Money: currency-wrapped fixed-point decimal
//   - Entity: a record as written to or read from the store
//
// Error kinds:
//   - SchemaError, ParseError, OptionNotFoundError: conversion failures
//   - ReferenceResolutionError: lookup query matched zero or several records
//   - AssertionFailure: expected-vs-actual mismatches, all of them
//   - StoreError: the store rejected an operation
//   - TimeoutError: an asynchronous wait exceeded its bound
//   - StageError: illegal business process stage transition
package crm
