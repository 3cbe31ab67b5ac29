package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/crmbdd/internal/alias"
	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/ui"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"alias", &alias.UnboundError{Alias: "John"}, KindAlias},
		{"schema", &crm.SchemaError{Code: crm.ErrCodeUnknownEntity}, KindSchema},
		{"parse", &crm.ParseError{Err: errors.New("bad")}, KindParse},
		{"option", &crm.OptionNotFoundError{Label: "x"}, KindOption},
		{"reference", &crm.ReferenceResolutionError{Count: 2}, KindReference},
		{"assertion", &crm.AssertionFailure{Check: "record"}, KindAssertion},
		{"stage", &crm.StageError{Message: "final"}, KindStage},
		{"timeout", &crm.TimeoutError{Subject: "jobs"}, KindTimeout},
		{"store", &crm.StoreError{Op: "create", Err: errors.New("disk full")}, KindStore},
		{"wrapped store", fmt.Errorf("contact.lastname: %w", &crm.StoreError{Op: "query", Err: errors.New("x")}), KindStore},
		{"unavailable", ui.ErrUnavailable, KindUnavailable},
		{"canceled", context.Canceled, KindCanceled},
		{"other", errors.New("boom"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
