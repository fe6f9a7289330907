package pipeline

import (
	"fmt"
	"math"
	"sort"
)

// FieldType is the semantic column type for a registered ledger field.
type FieldType string

const (
	FieldReal    FieldType = "real"
	FieldInteger FieldType = "integer"
	FieldBigInt  FieldType = "bigint"
	FieldBool    FieldType = "boolean"
	FieldText    FieldType = "text"
)

// RegistryVersion changes whenever a field is added to the registry, so a
// schema check at startup can tell a stale table from a current one.
const RegistryVersion = 3

// fieldRegistry maps every known ledger field to its column type. The
// upstream payload shape is not contractually fixed; fields not present
// here are routed to the extra attributes column instead of mutating the
// primary schema at runtime.
var fieldRegistry = map[string]FieldType{
	// reference
	"bundle_id":   FieldBigInt,
	"vendor_code": FieldText,
	"brand":       FieldText,
	"category":    FieldText,
	"manager":     FieldText,

	// sales history
	"opened_count":             FieldInteger,
	"add_to_cart_count":        FieldInteger,
	"orders_count":             FieldInteger,
	"orders_revenue":           FieldReal,
	"buyout_count":             FieldInteger,
	"buyout_revenue":           FieldReal,
	"buyout_percent":           FieldReal,
	"add_to_cart_conversion":   FieldReal,
	"cart_to_order_conversion": FieldReal,

	// advertising
	"ad_views":     FieldBigInt,
	"ad_clicks":    FieldBigInt,
	"ad_spend":     FieldReal,
	"ad_cart_adds": FieldInteger,
	"ad_orders":    FieldInteger,
	"ad_shipped":   FieldInteger,
	"ad_revenue":   FieldReal,
	"ad_ctr":       FieldReal,
	"ad_cpc":       FieldReal,
	"ad_cr":        FieldReal,

	// cost model
	"sale_price":            FieldReal,
	"purchase_price":        FieldReal,
	"delivery_to_warehouse": FieldReal,
	"logistics":             FieldReal,
	"packaging":             FieldReal,
	"fuel":                  FieldReal,
	"gift":                  FieldReal,
	"defect_percent":        FieldReal,
	"commission_percent":    FieldReal,
	"tax_percent":           FieldReal,
	"commission_amount":     FieldReal,
	"tax_amount":            FieldReal,
	"defect_amount":         FieldReal,

	// computed
	"cost_price":      FieldReal,
	"profit_per_unit": FieldReal,
	"total_profit":    FieldReal,
}

// RegisteredFields returns the registry's field names in stable order.
func RegisteredFields() []string {
	names := make([]string, 0, len(fieldRegistry))
	for name := range fieldRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupField returns the registered type for a field name.
func LookupField(name string) (FieldType, bool) {
	t, ok := fieldRegistry[name]
	return t, ok
}

// ColumnType renders a FieldType as a Postgres column type.
func ColumnType(t FieldType) string {
	switch t {
	case FieldReal:
		return "DOUBLE PRECISION"
	case FieldInteger:
		return "INTEGER"
	case FieldBigInt:
		return "BIGINT"
	case FieldBool:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// SplitFields partitions a row's fields into registry-known columns and
// extra attributes. Values for known numeric columns are sanitized so a
// non-finite float never reaches storage.
func SplitFields(fields map[string]interface{}) (known map[string]interface{}, extra map[string]interface{}) {
	known = make(map[string]interface{}, len(fields))
	for name, value := range fields {
		t, ok := fieldRegistry[name]
		if !ok {
			if extra == nil {
				extra = make(map[string]interface{})
			}
			extra[name] = value
			continue
		}
		known[name] = coerceValue(t, value)
	}
	return known, extra
}

// coerceValue forces a runtime value into the registered column type,
// defaulting to the type's zero on mismatch rather than failing the row.
func coerceValue(t FieldType, value interface{}) interface{} {
	switch t {
	case FieldReal:
		return sanitizeFloat(toFloat(value))
	case FieldInteger, FieldBigInt:
		return int64(sanitizeFloat(toFloat(value)))
	case FieldBool:
		b, _ := value.(bool)
		return b
	default:
		if value == nil {
			return ""
		}
		if s, ok := value.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", value)
	}
}

func toFloat(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case bool:
		if v {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// sanitizeFloat replaces NaN and infinities with zero.
func sanitizeFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
