package crm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SchemaError reports an entity or attribute unknown to metadata, or an
// attribute whose declared type has no conversion rule.
type SchemaError struct {
	Code      SchemaErrorCode
	Entity    string
	Attribute string
	Message   string
}

// SchemaErrorCode categorizes schema errors.
type SchemaErrorCode string

const (
	// ErrCodeUnknownEntity indicates the entity is not described by metadata.
	ErrCodeUnknownEntity SchemaErrorCode = "UNKNOWN_ENTITY"

	// ErrCodeUnknownAttribute indicates the attribute is not part of the entity.
	ErrCodeUnknownAttribute SchemaErrorCode = "UNKNOWN_ATTRIBUTE"

	// ErrCodeUnknownAttributeType indicates the declared type has no conversion rule.
	ErrCodeUnknownAttributeType SchemaErrorCode = "UNKNOWN_ATTRIBUTE_TYPE"

	// ErrCodeInvalidSchema indicates inconsistent metadata (missing primary name, no targets...).
	ErrCodeInvalidSchema SchemaErrorCode = "INVALID_SCHEMA"
)

func (e *SchemaError) Error() string {
	if e.Attribute != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Attribute, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Entity, e.Message)
}

// ParseError reports raw text that does not fit the declared primitive type.
type ParseError struct {
	Entity    string
	Attribute string
	Value     string
	Type      string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s for %s.%s: %v", e.Value, e.Type, e.Entity, e.Attribute, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// OptionNotFoundError reports a label matching no configured option.
// Available lists every configured label for diagnosability.
type OptionNotFoundError struct {
	Entity    string
	Attribute string
	Label     string
	Available []string
	Reason    string // set when the label matched but the option has no value
}

func (e *OptionNotFoundError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("option %s for %s.%s: %s. Available options: %s",
			e.Label, e.Entity, e.Attribute, e.Reason, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("option %s not found for %s.%s. Available options: %s",
		e.Label, e.Entity, e.Attribute, strings.Join(e.Available, ", "))
}

// ReferenceResolutionError reports a primary-name lookup that matched zero or
// more than one record. Ambiguity is never resolved silently.
type ReferenceResolutionError struct {
	Entity      string
	PrimaryName string
	Text        string
	Count       int
}

func (e *ReferenceResolutionError) Error() string {
	return fmt.Sprintf("lookup of %s where %s = %q: expected 1 record, found %d",
		e.Entity, e.PrimaryName, e.Text, e.Count)
}

// Mismatch is one expected-vs-actual discrepancy.
type Mismatch struct {
	Field    string
	Expected string
	Actual   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %q, actual %q", m.Field, m.Expected, m.Actual)
}

// AssertionFailure reports every discrepancy found by a check, not just the first.
type AssertionFailure struct {
	Check      string // "record", "process_stage", "associations", "notifications", "records"
	Subject    string
	Mismatches []Mismatch
}

func (e *AssertionFailure) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s %s", e.Check, e.Subject)
	for _, m := range e.Mismatches {
		fmt.Fprintf(&buf, "\n  %s", m)
	}
	return buf.String()
}

// StoreError marks a failure returned by the record store. The underlying
// error is kept unchanged and reachable through errors.Unwrap.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// TimeoutError reports an asynchronous wait that exceeded its bound.
type TimeoutError struct {
	Subject string
	Waited  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s", e.Waited, e.Subject)
}

// StageError reports an illegal business process stage transition.
type StageError struct {
	Record  EntityReference
	Process string
	Message string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("process %q on %s: %s", e.Process, e.Record, e.Message)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// IsAssertionFailure reports whether err is (or wraps) an AssertionFailure.
func IsAssertionFailure(err error) bool {
	var af *AssertionFailure
	return errors.As(err, &af)
}

// IsSchemaError reports whether err is a SchemaError with the given code.
// An empty code matches any schema error.
func IsSchemaError(err error, code SchemaErrorCode) bool {
	var se *SchemaError
	if errors.As(err, &se) {
		return code == "" || se.Code == code
	}
	return false
}
