package command

import (
	"context"
	"errors"

	"github.com/roach88/crmbdd/internal/alias"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/ui"
)

// Error kinds reported in traces. Kinds are stable across runs while error
// messages may carry ids and durations.
const (
	KindAlias       = "alias"
	KindSchema      = "schema"
	KindParse       = "parse"
	KindOption      = "option"
	KindReference   = "reference"
	KindAssertion   = "assertion"
	KindStage       = "stage"
	KindTimeout     = "timeout"
	KindStore       = "store"
	KindUnavailable = "unavailable"
	KindCanceled    = "canceled"
	KindOther       = "other"
)

// ErrorKind classifies err into one of the Kind constants. Returns "" for
// nil.
func ErrorKind(err error) string {
	var (
		unbound   *alias.UnboundError
		schema    *crm.SchemaError
		parse     *crm.ParseError
		option    *crm.OptionNotFoundError
		reference *crm.ReferenceResolutionError
		assertion *crm.AssertionFailure
		stage     *crm.StageError
		timeout   *crm.TimeoutError
		storeErr  *crm.StoreError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unbound):
		return KindAlias
	case errors.As(err, &schema):
		return KindSchema
	case errors.As(err, &parse):
		return KindParse
	case errors.As(err, &option):
		return KindOption
	case errors.As(err, &reference):
		return KindReference
	case errors.As(err, &assertion):
		return KindAssertion
	case errors.As(err, &stage):
		return KindStage
	case errors.As(err, &timeout):
		return KindTimeout
	case errors.As(err, &storeErr):
		return KindStore
	case errors.Is(err, ui.ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindOther
	}
}
