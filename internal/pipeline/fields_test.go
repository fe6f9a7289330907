package pipeline

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredFieldsAreStableAndTyped(t *testing.T) {
	names := RegisteredFields()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)

	for _, name := range names {
		fieldType, ok := LookupField(name)
		require.True(t, ok, "field %s", name)
		assert.NotEmpty(t, ColumnType(fieldType), "field %s", name)
	}

	_, ok := LookupField("sustainability_score")
	assert.False(t, ok)
}

func TestSplitFieldsRoutesUnknownToExtra(t *testing.T) {
	known, extra := SplitFields(map[string]interface{}{
		"orders_count":  7,
		"total_profit":  12.5,
		"vendor_code":   "SKU-1",
		"mystery_field": "hello",
		"another_one":   []int{1, 2},
	})

	assert.Equal(t, int64(7), known["orders_count"])
	assert.Equal(t, 12.5, known["total_profit"])
	assert.Equal(t, "SKU-1", known["vendor_code"])
	assert.NotContains(t, known, "mystery_field")

	require.NotNil(t, extra)
	assert.Equal(t, "hello", extra["mystery_field"])
	assert.Contains(t, extra, "another_one")
}

func TestSplitFieldsNoExtraReturnsNil(t *testing.T) {
	_, extra := SplitFields(map[string]interface{}{"orders_count": 1})
	assert.Nil(t, extra)
}

func TestSplitFieldsSanitizesNumericValues(t *testing.T) {
	known, _ := SplitFields(map[string]interface{}{
		"total_profit": math.NaN(),
		"ad_spend":     math.Inf(1),
		"orders_count": "not a number",
	})

	assert.Equal(t, 0.0, known["total_profit"])
	assert.Equal(t, 0.0, known["ad_spend"])
	assert.Equal(t, int64(0), known["orders_count"])
}

func TestSplitFieldsCoercesTextColumns(t *testing.T) {
	known, _ := SplitFields(map[string]interface{}{
		"brand":    nil,
		"manager":  "Anna",
		"category": 42,
	})

	assert.Equal(t, "", known["brand"])
	assert.Equal(t, "Anna", known["manager"])
	assert.Equal(t, "42", known["category"])
}
