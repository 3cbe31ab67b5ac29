// Package queryir is the store-neutral query representation used between the
// criteria builder and record store backends.
//
// The fragment is deliberately small: a Select over one entity, filtered by
// a conjunction of equality and not-in predicates. Values are primitive typed
// values produced by the converter (string, bool, int64, float64,
// decimal.Decimal, time.Time, uuid.UUID), never raw step text.
//
// Query and Predicate are sealed interfaces using the marker method pattern,
// so backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case NotIn:
//	case And:
//	}
package queryir
