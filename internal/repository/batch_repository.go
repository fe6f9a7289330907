package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
)

// BatchRepository tracks purchase batches: discrete inventory lots bought
// at one price. At most one batch per vendor code is active at a time.
type BatchRepository struct {
	db *postgres.DB
}

func NewBatchRepository(db *postgres.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS purchase_batches (
			id BIGSERIAL PRIMARY KEY,
			vendor_code TEXT NOT NULL,
			purchase_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			quantity_bought INTEGER NOT NULL DEFAULT 0,
			quantity_sold INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			start_date DATE NOT NULL,
			end_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create purchase_batches: %w", err)
	}
	idx := `
		CREATE UNIQUE INDEX IF NOT EXISTS purchase_batches_one_active
		ON purchase_batches (vendor_code) WHERE is_active
	`
	if _, err := r.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("failed to create active batch index: %w", err)
	}
	return nil
}

// Create opens a new batch. Any batch currently active for the vendor code
// is closed first, its end date set to the new batch's start date.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.PurchaseBatch) error {
	start := pipeline.Midnight(batch.StartDate)
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE purchase_batches
			SET is_active = FALSE, end_date = $2, updated_at = NOW()
			WHERE vendor_code = $1 AND is_active
		`, batch.VendorCode, start)
		if err != nil {
			return fmt.Errorf("failed to close previous batch: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO purchase_batches (vendor_code, purchase_price, quantity_bought, quantity_sold, is_active, start_date)
			VALUES ($1, $2, $3, 0, TRUE, $4)
			RETURNING id
		`, batch.VendorCode, batch.PurchasePrice, batch.QuantityBought, start).Scan(&batch.ID)
		if err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}
		batch.IsActive = true
		batch.QuantitySold = 0
		batch.StartDate = start
		batch.EndDate = nil
		return nil
	})
}

// List returns all batches, newest first, optionally filtered by vendor
// code.
func (r *BatchRepository) List(ctx context.Context, vendorCode string) ([]domain.PurchaseBatch, error) {
	query := `
		SELECT id, vendor_code, purchase_price, quantity_bought, quantity_sold, is_active, start_date, end_date
		FROM purchase_batches
	`
	args := []interface{}{}
	if vendorCode != "" {
		query += " WHERE vendor_code = $1"
		args = append(args, vendorCode)
	}
	query += " ORDER BY start_date DESC, id DESC"

	var batches []domain.PurchaseBatch
	if err := r.db.SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, nil
}

// Update adjusts an existing batch's price and quantities.
func (r *BatchRepository) Update(ctx context.Context, batch *domain.PurchaseBatch) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE purchase_batches
		SET purchase_price = $2, quantity_bought = $3, quantity_sold = $4, updated_at = NOW()
		WHERE id = $1
	`, batch.ID, batch.PurchasePrice, batch.QuantityBought, batch.QuantitySold)
	if err != nil {
		return fmt.Errorf("failed to update batch %d: %w", batch.ID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM purchase_batches WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete batch %d: %w", id, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SyncSold rebuilds the vendor's active batch sold counter from the
// ledger's order counts since the batch opened and deactivates the batch
// once every bought unit is sold. The counter is derived, not accumulated,
// so replaying an already-ingested day never double-counts. Vendors
// without an active batch are a no-op.
func (r *BatchRepository) SyncSold(ctx context.Context, vendorCode string, date time.Time) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var bought int
		var start time.Time
		err := tx.QueryRowContext(ctx, `
			SELECT id, quantity_bought, start_date
			FROM purchase_batches
			WHERE vendor_code = $1 AND is_active
			FOR UPDATE
		`, vendorCode).Scan(&id, &bought, &start)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load active batch for %s: %w", vendorCode, err)
		}

		var sold int
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(SUM(orders_count), 0)
			FROM profit_ledger
			WHERE vendor_code = $1 AND date >= $2
		`, vendorCode, start).Scan(&sold)
		if err != nil {
			return fmt.Errorf("failed to sum ledger orders for %s: %w", vendorCode, err)
		}

		exhausted := batchExhausted(bought, sold)
		_, err = tx.ExecContext(ctx, `
			UPDATE purchase_batches
			SET quantity_sold = $2,
				is_active = NOT $3,
				end_date = CASE WHEN $3 THEN $4 ELSE end_date END,
				updated_at = NOW()
			WHERE id = $1
		`, id, sold, exhausted, pipeline.Midnight(date))
		if err != nil {
			return fmt.Errorf("failed to sync batch %d: %w", id, err)
		}
		if exhausted {
			log.Info().Str("vendor_code", vendorCode).Int64("batch_id", id).Msg("batch: sold out, deactivated")
		}
		return nil
	})
}

// batchExhausted reports whether a batch with the given bought quantity is
// fully sold. Batches with no recorded bought quantity never close on
// their own.
func batchExhausted(bought, sold int) bool {
	return bought > 0 && sold >= bought
}

// DeactivateExhausted is a maintenance sweep: it re-derives every active
// batch's sold counter from the ledger, then closes the ones that reached
// their bought quantity.
func (r *BatchRepository) DeactivateExhausted(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE purchase_batches b
			SET quantity_sold = COALESCE((
					SELECT SUM(l.orders_count)
					FROM profit_ledger l
					WHERE l.vendor_code = b.vendor_code AND l.date >= b.start_date
				), 0),
				updated_at = NOW()
			WHERE b.is_active
		`)
		if err != nil {
			return fmt.Errorf("failed to resync batch counters: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE purchase_batches
			SET is_active = FALSE, end_date = $1, updated_at = NOW()
			WHERE is_active AND quantity_bought > 0 AND quantity_sold >= quantity_bought
		`, pipeline.Midnight(asOf))
		if err != nil {
			return fmt.Errorf("failed to deactivate exhausted batches: %w", err)
		}
		n, _ = result.RowsAffected()
		return nil
	})
	return n, err
}
