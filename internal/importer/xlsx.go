package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/wb-unit/backend-go/internal/domain"
)

// CostSheetRow is one parsed line of the operator's cost spreadsheet.
type CostSheetRow struct {
	VendorCode          string
	PurchasePrice       float64
	DeliveryToWarehouse float64
	Logistics           float64
	Packaging           float64
	Fuel                float64
	Gift                float64
	DefectPercent       float64
}

// ToCostUpdate converts a parsed sheet row into a full cost override
// effective from startDate. Every parsed field is set; the sheet is the
// source of truth for the components it carries.
func (r CostSheetRow) ToCostUpdate(startDate string) domain.CostUpdate {
	return domain.CostUpdate{
		VendorCode:          r.VendorCode,
		StartDate:           startDate,
		PurchasePrice:       &r.PurchasePrice,
		DeliveryToWarehouse: &r.DeliveryToWarehouse,
		Logistics:           &r.Logistics,
		Packaging:           &r.Packaging,
		Fuel:                &r.Fuel,
		Gift:                &r.Gift,
		DefectPercent:       &r.DefectPercent,
	}
}

// headerAliases maps the spreadsheet's header spellings to canonical field
// names. The sheet is operator-maintained and its headers are Russian
// labels with drifting punctuation, so matching is by normalized prefix.
var headerAliases = map[string]string{
	"vendorcode":    "vendor_code",
	"артикул":       "vendor_code",
	"zakup":         "purchase_price",
	"закуп":         "purchase_price",
	"доставка в см": "delivery_to_warehouse",
	"логистика вб":  "logistics",
	"упаковка":      "packaging",
	"бензин":        "fuel",
	"подарок":       "gift",
	"98% качество":  "defect_percent",
	"процент брака": "defect_percent",
}

// ParseCostSheet reads the first sheet of an xlsx cost workbook. Rows
// without a vendor code are skipped; derived columns like commission and
// tax amounts are ignored since they are recomputed from price.
func ParseCostSheet(r io.Reader) ([]CostSheetRow, error) {
	book, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet %q has no data rows", sheets[0])
	}

	columns := mapHeader(rows[0])
	if _, ok := columns["vendor_code"]; !ok {
		return nil, fmt.Errorf("sheet %q has no vendor code column", sheets[0])
	}

	var parsed []CostSheetRow
	for i, cells := range rows[1:] {
		row := CostSheetRow{VendorCode: strings.TrimSpace(cellAt(cells, columns["vendor_code"]))}
		if row.VendorCode == "" {
			continue
		}

		row.PurchasePrice = numberAt(cells, columns, "purchase_price", i)
		row.DeliveryToWarehouse = numberAt(cells, columns, "delivery_to_warehouse", i)
		row.Logistics = numberAt(cells, columns, "logistics", i)
		row.Packaging = numberAt(cells, columns, "packaging", i)
		row.Fuel = numberAt(cells, columns, "fuel", i)
		row.Gift = numberAt(cells, columns, "gift", i)
		row.DefectPercent = numberAt(cells, columns, "defect_percent", i)

		parsed = append(parsed, row)
	}
	return parsed, nil
}

// mapHeader resolves each canonical field to its column index. Unknown
// headers are ignored rather than rejected; the sheet carries derived
// columns that have no storage destination.
func mapHeader(header []string) map[string]int {
	columns := make(map[string]int)
	for idx, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for alias, field := range headerAliases {
			if strings.HasPrefix(normalized, alias) {
				if _, taken := columns[field]; !taken {
					columns[field] = idx
				}
				break
			}
		}
	}
	return columns
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return cells[idx]
}

func numberAt(cells []string, columns map[string]int, field string, rowIdx int) float64 {
	idx, ok := columns[field]
	if !ok {
		return 0
	}
	raw := strings.TrimSpace(cellAt(cells, idx))
	if raw == "" {
		return 0
	}
	raw = strings.ReplaceAll(raw, ",", ".")
	raw = strings.ReplaceAll(raw, " ", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Warn().Str("field", field).Int("row", rowIdx+2).Str("value", raw).Msg("importer: unparseable number, using 0")
		return 0
	}
	return value
}
