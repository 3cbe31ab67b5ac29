package queryir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidQuery is wrapped by every error returned from Validate.
var ErrInvalidQuery = errors.New("invalid query")

// Validate checks a query for structural problems before it reaches a
// backend. All problems are reported at once.
//
// Validate is a pure function with no side effects.
func Validate(query Query) error {
	v := &validator{}
	v.validateQuery(query)
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidQuery, strings.Join(v.problems, "; "))
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query)
	case *Select:
		v.validateSelect(*query)
	default:
		v.addProblem("unknown query type %T", q)
	}
}

func (v *validator) validateSelect(sel Select) {
	if sel.From == "" {
		v.addProblem("select without entity")
	}
	if sel.Top < 0 {
		v.addProblem("negative top %d", sel.Top)
	}
	for _, c := range sel.Columns {
		if c == "" {
			v.addProblem("empty column name")
		}
	}
	if sel.Filter != nil {
		v.validatePredicate(sel.Filter)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		return
	case Equals:
		v.validateEquals(pred)
	case *Equals:
		v.validateEquals(*pred)
	case NotIn:
		v.validateNotIn(pred)
	case *NotIn:
		v.validateNotIn(*pred)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addProblem("unknown predicate type %T", p)
	}
}

func (v *validator) validateEquals(eq Equals) {
	if eq.Field == "" {
		v.addProblem("equality without field")
	}
	if eq.Value == nil {
		v.addProblem("field %q compared to null, equality requires a value", eq.Field)
	}
}

func (v *validator) validateNotIn(n NotIn) {
	if n.Field == "" {
		v.addProblem("not-in without field")
	}
	if len(n.Values) == 0 {
		v.addProblem("field %q has an empty not-in list", n.Field)
	}
}
