package crm

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntityReference points at one record in the store.
type EntityReference struct {
	LogicalName string    `json:"logical_name"`
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name,omitempty"` // primary name, informational only
}

// String renders the reference as "entity(id)".
func (r EntityReference) String() string {
	return fmt.Sprintf("%s(%s)", r.LogicalName, r.ID)
}

// IsZero reports whether the reference was never set.
func (r EntityReference) IsZero() bool {
	return r.LogicalName == "" && r.ID == uuid.Nil
}

// OptionSetValue is the rich form of a picklist, state or status value.
type OptionSetValue struct {
	Value int64  `json:"value"`
	Label string `json:"label,omitempty"`
}

func (o OptionSetValue) String() string {
	if o.Label != "" {
		return fmt.Sprintf("%s (%d)", o.Label, o.Value)
	}
	return fmt.Sprintf("%d", o.Value)
}

// Money is the rich form of a currency attribute.
type Money struct {
	Value decimal.Decimal `json:"value"`
}

func (m Money) String() string {
	return m.Value.String()
}

// Entity is a record: its logical name, id and attribute values.
// Attribute values hold converted values (rich or primitive), never raw text.
type Entity struct {
	LogicalName string
	ID          uuid.UUID
	Attributes  map[string]any
}

// NewEntity creates an empty record of the given type.
func NewEntity(logicalName string) Entity {
	return Entity{LogicalName: logicalName, Attributes: make(map[string]any)}
}

// Ref returns the reference to this record.
func (e Entity) Ref() EntityReference {
	return EntityReference{LogicalName: e.LogicalName, ID: e.ID}
}

// Get returns the attribute value and whether it is present.
func (e Entity) Get(attribute string) (any, bool) {
	if e.Attributes == nil {
		return nil, false
	}
	v, ok := e.Attributes[attribute]
	return v, ok
}

// Set assigns an attribute value. Later writes replace earlier ones.
func (e *Entity) Set(attribute string, value any) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any)
	}
	e.Attributes[attribute] = value
}

// AttributeNames returns the attribute names in sorted order.
func (e Entity) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// FormNotification is one notification shown on a record form.
type FormNotification struct {
	Level   string `yaml:"level" json:"level"` // "error", "warning" or "info"
	Message string `yaml:"message" json:"message"`
}

func (n FormNotification) String() string {
	return fmt.Sprintf("[%s] %s", strings.ToLower(n.Level), n.Message)
}

// FormatValue renders a typed value for diagnostics and comparisons.
// Decimals are rendered in canonical (trailing-zero free) form and times in
// RFC 3339 UTC so that equal values always render identically.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<null>"
	case string:
		return val
	case decimal.Decimal:
		return val.String()
	case Money:
		return val.Value.String()
	case OptionSetValue:
		return fmt.Sprintf("%d", val.Value)
	case EntityReference:
		return val.ID.String()
	case uuid.UUID:
		return val.String()
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return decimal.NewFromFloat(val).String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ValuesEqual compares two typed values by their canonical rendering, so a
// rich value equals its primitive counterpart (Money 1.50 equals decimal 1.5).
func ValuesEqual(a, b any) bool {
	return FormatValue(a) == FormatValue(b)
}
