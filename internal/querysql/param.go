package querysql

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/crmbdd/internal/crm"
)

// Param converts a typed value to the representation stored in the value
// column, so that a filter parameter and a stored value compare equal exactly
// when the typed values are equal.
//
//   - decimals and money: canonical decimal text
//   - times: RFC 3339 UTC text
//   - references and uuids: lowercase uuid text
//   - option set values: the integer code
//   - booleans: 0 or 1
func Param(v any) (any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return val, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		return val, nil
	case decimal.Decimal:
		return val.String(), nil
	case crm.Money:
		return val.Value.String(), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case uuid.UUID:
		return val.String(), nil
	case crm.EntityReference:
		return val.ID.String(), nil
	case crm.OptionSetValue:
		return val.Value, nil
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
