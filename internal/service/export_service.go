package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/wb-unit/backend-go/internal/repository"
	"github.com/wb-unit/backend-go/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportService renders ledger ranges as xlsx workbooks, optionally
// mirroring them to object storage.
type ExportService struct {
	repo  *repository.ReportRepository
	store storage.ObjectStorage
}

// NewExportService wires the export path. store may be nil when no object
// storage is configured; exports are then download-only.
func NewExportService(repo *repository.ReportRepository, store storage.ObjectStorage) *ExportService {
	return &ExportService{repo: repo, store: store}
}

// LedgerXLSX renders every ledger row in [start, end] as one sheet. The
// column set follows whatever the rows carry, so a registry change never
// breaks the export.
func (s *ExportService) LedgerXLSX(ctx context.Context, start, end string) ([]byte, string, error) {
	rows, err := s.repo.LedgerRange(ctx, start, end)
	if err != nil {
		return nil, "", err
	}

	columns := collectColumns(rows)

	book := excelize.NewFile()
	defer book.Close()
	sheet := book.GetSheetName(0)

	for idx, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(idx+1, 1)
		if err := book.SetCellValue(sheet, cell, name); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for rowIdx, row := range rows {
		for colIdx, name := range columns {
			value := row[name]
			if buf, ok := value.([]byte); ok {
				value = string(buf)
			}
			if t, ok := value.(time.Time); ok {
				value = t.Format("2006-01-02")
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := book.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", rowIdx+2, err)
			}
		}
	}

	buf, err := book.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to render workbook: %w", err)
	}

	filename := fmt.Sprintf("ledger_%s_%s.xlsx", start, end)
	if s.store != nil {
		if err := s.store.UploadObject(ctx, filename, buf.Bytes(), xlsxContentType); err != nil {
			log.Warn().Err(err).Str("object", filename).Msg("export: upload failed, serving download only")
		}
	}
	return buf.Bytes(), filename, nil
}

// ListExports returns the workbooks previously mirrored to object storage,
// or nothing when no storage is configured.
func (s *ExportService) ListExports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, nil
	}
	objects, err := s.store.ListObjects(ctx, "ledger_")
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return objects, nil
}

// collectColumns returns the union of row keys with item_id and date
// first, the rest alphabetical.
func collectColumns(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			if name == "created_at" || name == "updated_at" {
				continue
			}
			seen[name] = true
		}
	}

	var rest []string
	for name := range seen {
		if name != "item_id" && name != "date" {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	columns := make([]string, 0, len(seen))
	if seen["item_id"] {
		columns = append(columns, "item_id")
	}
	if seen["date"] {
		columns = append(columns, "date")
	}
	return append(columns, rest...)
}
