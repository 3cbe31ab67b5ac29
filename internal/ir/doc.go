// Package ir provides the canonical JSON form of scenario traces.
//
// Traces are built from plain Go values (strings, integers, booleans,
// slices and string-keyed maps) and serialized following RFC 8785: object
// keys ordered by UTF-16 code units, strings NFC normalized, no HTML
// escaping and no insignificant whitespace. Identical runs therefore produce
// byte-identical traces, which makes them suitable for golden files and
// digests.
//
// Floats are rejected; traces carry decimal values as strings.
package ir
