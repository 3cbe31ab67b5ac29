// Package convert turns step text into typed attribute values using schema
// metadata.
//
// Conversion dispatches on the attribute's declared type. Every supported
// type has one handler; a type without a handler fails with a schema error
// instead of passing text through.
//
// Values come in two forms. Rich values (crm.Money, crm.OptionSetValue,
// crm.EntityReference) are written to records. Primitive values (decimal,
// int64 option code, uuid) are used in query filters.
//
// Lookup text resolves through the scenario's alias table first and only
// queries the store on a miss. A miss must match exactly one record by
// primary name.
package convert
