package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)

	for rowIdx, cells := range rows {
		for colIdx, value := range cells {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			require.NoError(t, err)
			require.NoError(t, book.SetCellValue(sheet, cell, value))
		}
	}

	buf, err := book.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestParseCostSheetMapsRussianHeaders(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"vendorCode", "zakup", "доставка в См", "Логистика ВБ, руб", "Упаковка", "Бензин", "подарок+", "98% качество", "Себестоимость"},
		{"SKU-1", 300, 30, 50, 20, 20, 10, 2, 681},
		{"SKU-2", 150.5, 10, 40, 5, 0, 0, 3, 0},
	})

	rows, err := ParseCostSheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SKU-1", rows[0].VendorCode)
	assert.Equal(t, 300.0, rows[0].PurchasePrice)
	assert.Equal(t, 30.0, rows[0].DeliveryToWarehouse)
	assert.Equal(t, 50.0, rows[0].Logistics)
	assert.Equal(t, 20.0, rows[0].Packaging)
	assert.Equal(t, 10.0, rows[0].Gift)
	assert.Equal(t, 2.0, rows[0].DefectPercent)

	assert.Equal(t, 150.5, rows[1].PurchasePrice)
}

func TestParseCostSheetSkipsRowsWithoutVendorCode(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"vendorCode", "zakup"},
		{"", 100},
		{"SKU-1", 200},
		{"   ", 300},
	})

	rows, err := ParseCostSheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU-1", rows[0].VendorCode)
}

func TestParseCostSheetHandlesDecimalCommas(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"Артикул", "Закуп"},
		{"SKU-1", "1 250,75"},
	})

	rows, err := ParseCostSheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1250.75, rows[0].PurchasePrice)
}

func TestParseCostSheetRejectsMissingVendorColumn(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"zakup", "Упаковка"},
		{100, 5},
	})

	_, err := ParseCostSheet(buf)
	assert.Error(t, err)
}

func TestParseCostSheetUnparseableNumberFallsBackToZero(t *testing.T) {
	buf := buildWorkbook(t, [][]interface{}{
		{"vendorCode", "zakup"},
		{"SKU-1", "н/д"},
	})

	rows, err := ParseCostSheet(buf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].PurchasePrice)
}

func TestToCostUpdateCarriesEveryField(t *testing.T) {
	row := CostSheetRow{
		VendorCode:          "SKU-1",
		PurchasePrice:       300,
		DeliveryToWarehouse: 30,
		Logistics:           50,
		Packaging:           20,
		Fuel:                20,
		Gift:                10,
		DefectPercent:       2,
	}

	update := row.ToCostUpdate("2026-08-30")

	assert.Equal(t, "SKU-1", update.VendorCode)
	assert.Equal(t, "2026-08-30", update.StartDate)
	require.NotNil(t, update.PurchasePrice)
	assert.Equal(t, 300.0, *update.PurchasePrice)
	require.NotNil(t, update.DefectPercent)
	assert.Equal(t, 2.0, *update.DefectPercent)
	assert.Nil(t, update.TaxPercent)
}
