package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roach88/crmbdd/internal/crm"
	"github.com/roach88/crmbdd/internal/querysql"
)

// Value kinds recorded next to each stored value so reads restore the
// original Go type.
const (
	kindString    = "string"
	kindBool      = "bool"
	kindInt       = "int"
	kindFloat     = "float"
	kindDecimal   = "decimal"
	kindMoney     = "money"
	kindDateTime  = "datetime"
	kindOption    = "option"
	kindReference = "reference"
	kindUUID      = "uuid"
)

// storedValue is one record_values row minus its keys.
type storedValue struct {
	kind   string
	value  any
	target sql.NullString
	label  sql.NullString
}

// marshalValue encodes a typed value. The value column uses querysql.Param so
// stored values and filter parameters always agree.
func marshalValue(v any) (storedValue, error) {
	param, err := querysql.Param(v)
	if err != nil {
		return storedValue{}, err
	}
	sv := storedValue{value: param}

	switch val := v.(type) {
	case string:
		sv.kind = kindString
	case bool:
		sv.kind = kindBool
	case int, int32, int64:
		sv.kind = kindInt
	case float64:
		sv.kind = kindFloat
	case decimal.Decimal:
		sv.kind = kindDecimal
	case crm.Money:
		sv.kind = kindMoney
	case time.Time:
		sv.kind = kindDateTime
	case uuid.UUID:
		sv.kind = kindUUID
	case crm.OptionSetValue:
		sv.kind = kindOption
		sv.label = nullString(val.Label)
	case crm.EntityReference:
		sv.kind = kindReference
		sv.target = nullString(val.LogicalName)
		sv.label = nullString(val.Name)
	default:
		return storedValue{}, fmt.Errorf("unsupported attribute value type %T", v)
	}
	return sv, nil
}

// unmarshalValue restores the typed value of a stored row.
func unmarshalValue(sv storedValue) (any, error) {
	switch sv.kind {
	case kindString:
		return asString(sv.value)
	case kindBool:
		n, err := asInt(sv.value)
		return n != 0, err
	case kindInt:
		return asInt(sv.value)
	case kindFloat:
		switch f := sv.value.(type) {
		case float64:
			return f, nil
		case int64:
			return float64(f), nil
		}
		return nil, fmt.Errorf("float value stored as %T", sv.value)
	case kindDecimal, kindMoney:
		s, err := asString(sv.value)
		if err != nil {
			return nil, err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		if sv.kind == kindMoney {
			return crm.Money{Value: d}, nil
		}
		return d, nil
	case kindDateTime:
		s, err := asString(sv.value)
		if err != nil {
			return nil, err
		}
		return time.Parse(time.RFC3339Nano, s)
	case kindUUID:
		s, err := asString(sv.value)
		if err != nil {
			return nil, err
		}
		return uuid.Parse(s)
	case kindOption:
		n, err := asInt(sv.value)
		if err != nil {
			return nil, err
		}
		return crm.OptionSetValue{Value: n, Label: sv.label.String}, nil
	case kindReference:
		s, err := asString(sv.value)
		if err != nil {
			return nil, err
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		return crm.EntityReference{LogicalName: sv.target.String, ID: id, Name: sv.label.String}, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", sv.kind)
	}
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", fmt.Errorf("expected text, stored as %T", v)
}

func asInt(v any) (int64, error) {
	if n, ok := v.(int64); ok {
		return n, nil
	}
	return 0, fmt.Errorf("expected integer, stored as %T", v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
