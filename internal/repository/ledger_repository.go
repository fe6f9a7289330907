package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
)

// LedgerRepository persists the per-(item, date) profit ledger. The column
// set is driven by the field registry: a field the registry does not know
// is stored in the extra JSONB column, never as a new table column.
type LedgerRepository struct {
	db      *postgres.DB
	dropped map[string]bool
}

func NewLedgerRepository(db *postgres.DB) *LedgerRepository {
	return &LedgerRepository{db: db, dropped: make(map[string]bool)}
}

// EnsureSchema creates the ledger table and adds any registry column that
// is missing. A column that cannot be added is dropped from this process's
// write path instead of failing startup; its values end up nowhere, which
// the run summary reports. Must be called before Upsert.
func (r *LedgerRepository) EnsureSchema(ctx context.Context) error {
	base := `
		CREATE TABLE IF NOT EXISTS profit_ledger (
			item_id BIGINT NOT NULL,
			date DATE NOT NULL,
			extra JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (item_id, date)
		)
	`
	if _, err := r.db.ExecContext(ctx, base); err != nil {
		return fmt.Errorf("failed to create profit_ledger: %w", err)
	}

	for _, name := range pipeline.RegisteredFields() {
		t, _ := pipeline.LookupField(name)
		stmt := fmt.Sprintf("ALTER TABLE profit_ledger ADD COLUMN IF NOT EXISTS %s %s", name, pipeline.ColumnType(t))
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			log.Warn().Err(err).Str("column", name).Msg("ledger: could not add column, dropping field for this run")
			r.dropped[name] = true
		}
	}

	meta := `
		CREATE TABLE IF NOT EXISTS ledger_schema_meta (
			id SMALLINT PRIMARY KEY DEFAULT 1,
			registry_version INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (id = 1)
		)
	`
	if _, err := r.db.ExecContext(ctx, meta); err != nil {
		return fmt.Errorf("failed to create ledger_schema_meta: %w", err)
	}
	upsertMeta := `
		INSERT INTO ledger_schema_meta (id, registry_version, updated_at)
		VALUES (1, $1, NOW())
		ON CONFLICT (id)
		DO UPDATE SET registry_version = EXCLUDED.registry_version, updated_at = NOW()
	`
	if _, err := r.db.ExecContext(ctx, upsertMeta, pipeline.RegistryVersion); err != nil {
		return fmt.Errorf("failed to record registry version: %w", err)
	}
	return nil
}

// Upsert merges one computed row into the ledger. Columns absent from the
// row keep their stored values; the extra JSONB is merged key-wise. The
// check and the write share one transaction so a concurrent run of the
// same day cannot double-insert.
func (r *LedgerRepository) Upsert(ctx context.Context, row domain.LedgerRow) (bool, []string, error) {
	known, extra := pipeline.SplitFields(row.Fields)
	for name, value := range row.Extra {
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[name] = value
	}

	var dropped []string
	for name := range known {
		if r.dropped[name] {
			dropped = append(dropped, name)
			delete(known, name)
		}
	}
	sort.Strings(dropped)

	columns := make([]string, 0, len(known))
	for name := range known {
		columns = append(columns, name)
	}
	sort.Strings(columns)

	var extraJSON []byte
	if len(extra) > 0 {
		var err error
		extraJSON, err = json.Marshal(extra)
		if err != nil {
			return false, dropped, fmt.Errorf("failed to encode extra attributes: %w", err)
		}
	}

	date := pipeline.Midnight(row.Date)
	var inserted bool
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM profit_ledger WHERE item_id = $1 AND date = $2 FOR UPDATE",
			row.ItemID, date,
		).Scan(&exists)
		switch {
		case err == sql.ErrNoRows:
			inserted = true
			return r.insertRow(ctx, tx, row.ItemID, date, columns, known, extraJSON)
		case err != nil:
			return fmt.Errorf("failed to check ledger row: %w", err)
		default:
			inserted = false
			return r.updateRow(ctx, tx, row.ItemID, date, columns, known, extraJSON)
		}
	})
	if err != nil {
		return false, dropped, err
	}
	return inserted, dropped, nil
}

// RowsSince loads full ledger rows for a set of items from a date forward,
// oldest first. Used when a cost override has to be replayed over already
// persisted days.
func (r *LedgerRepository) RowsSince(ctx context.Context, itemIDs []int64, from time.Time) ([]domain.LedgerRow, error) {
	query := `
		SELECT * FROM profit_ledger
		WHERE item_id = ANY($1) AND date >= $2
		ORDER BY item_id, date
	`
	rows, err := r.db.QueryxContext(ctx, query, pq.Array(itemIDs), pipeline.Midnight(from))
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger rows: %w", err)
	}
	defer rows.Close()

	var result []domain.LedgerRow
	for rows.Next() {
		raw := make(map[string]interface{})
		if err := rows.MapScan(raw); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		row := domain.LedgerRow{Fields: make(map[string]interface{})}
		for name, value := range raw {
			switch name {
			case "item_id":
				if id, ok := value.(int64); ok {
					row.ItemID = id
				}
			case "date":
				if d, ok := value.(time.Time); ok {
					row.Date = pipeline.Midnight(d)
				}
			case "extra":
				if buf, ok := value.([]byte); ok && len(buf) > 0 {
					if err := json.Unmarshal(buf, &row.Extra); err != nil {
						log.Warn().Err(err).Int64("item_id", row.ItemID).Msg("ledger: malformed extra attributes")
					}
				}
			case "created_at", "updated_at":
			default:
				if value == nil {
					continue
				}
				if buf, ok := value.([]byte); ok {
					row.Fields[name] = string(buf)
					continue
				}
				row.Fields[name] = value
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading ledger rows: %w", err)
	}
	return result, nil
}

// ItemIDsForVendor resolves the ledger's item ids for one vendor code.
func (r *LedgerRepository) ItemIDsForVendor(ctx context.Context, vendorCode string) ([]int64, error) {
	var ids []int64
	err := r.db.SelectContext(ctx, &ids,
		"SELECT DISTINCT item_id FROM profit_ledger WHERE vendor_code = $1 ORDER BY item_id",
		vendorCode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve items for vendor %s: %w", vendorCode, err)
	}
	return ids, nil
}

func (r *LedgerRepository) insertRow(ctx context.Context, tx *sql.Tx, itemID int64, date time.Time, columns []string, known map[string]interface{}, extraJSON []byte) error {
	query, args := buildLedgerInsert(itemID, date, columns, known, extraJSON)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert ledger row: %w", err)
	}
	return nil
}

func (r *LedgerRepository) updateRow(ctx context.Context, tx *sql.Tx, itemID int64, date time.Time, columns []string, known map[string]interface{}, extraJSON []byte) error {
	if len(columns) == 0 && extraJSON == nil {
		return nil
	}
	query, args := buildLedgerUpdate(itemID, date, columns, known, extraJSON)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update ledger row: %w", err)
	}
	return nil
}

func buildLedgerInsert(itemID int64, date time.Time, columns []string, known map[string]interface{}, extraJSON []byte) (string, []interface{}) {
	names := []string{"item_id", "date"}
	placeholders := []string{"$1", "$2"}
	args := []interface{}{itemID, date}
	for _, name := range columns {
		names = append(names, name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, known[name])
	}
	if extraJSON != nil {
		names = append(names, "extra")
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, extraJSON)
	}

	query := fmt.Sprintf("INSERT INTO profit_ledger (%s) VALUES (%s)",
		strings.Join(names, ", "), strings.Join(placeholders, ", "))
	return query, args
}

// buildLedgerUpdate emits SET clauses only for the supplied columns, so a
// partial patch never clears fields written by earlier runs.
func buildLedgerUpdate(itemID int64, date time.Time, columns []string, known map[string]interface{}, extraJSON []byte) (string, []interface{}) {
	sets := make([]string, 0, len(columns)+2)
	args := make([]interface{}, 0, len(columns)+4)
	for _, name := range columns {
		args = append(args, known[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	if extraJSON != nil {
		args = append(args, extraJSON)
		sets = append(sets, fmt.Sprintf("extra = COALESCE(extra, '{}'::jsonb) || $%d", len(args)))
	}
	sets = append(sets, "updated_at = NOW()")

	args = append(args, itemID)
	itemArg := len(args)
	args = append(args, date)
	dateArg := len(args)

	query := fmt.Sprintf("UPDATE profit_ledger SET %s WHERE item_id = $%d AND date = $%d",
		strings.Join(sets, ", "), itemArg, dateArg)
	return query, args
}
