package repository

import (
	"context"
	"fmt"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/repository/postgres"
)

// ManagerRepository stores manager assignments at item or bundle level.
type ManagerRepository struct {
	db *postgres.DB
}

func NewManagerRepository(db *postgres.DB) *ManagerRepository {
	return &ManagerRepository{db: db}
}

func (r *ManagerRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS manager_assignments (
			id BIGSERIAL PRIMARY KEY,
			item_id BIGINT,
			bundle_id BIGINT,
			name TEXT NOT NULL,
			start_date DATE NOT NULL DEFAULT CURRENT_DATE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (item_id IS NOT NULL OR bundle_id IS NOT NULL)
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create manager_assignments: %w", err)
	}
	return nil
}

// Assign records a manager for an item or a bundle. A later assignment for
// the same target supersedes earlier ones without deleting history.
func (r *ManagerRepository) Assign(ctx context.Context, a domain.ManagerAssignment) error {
	query := `
		INSERT INTO manager_assignments (item_id, bundle_id, name, start_date)
		VALUES ($1, $2, $3, COALESCE(NULLIF($4, '')::date, CURRENT_DATE))
	`
	if _, err := r.db.ExecContext(ctx, query, a.ItemID, a.BundleID, a.Name, a.StartDate); err != nil {
		return fmt.Errorf("failed to assign manager: %w", err)
	}
	return nil
}

// LabelsFor resolves the effective manager per item: the newest item-level
// assignment if any, else the newest bundle-level one, else the unset
// marker.
func (r *ManagerRepository) LabelsFor(ctx context.Context, items []domain.Item) (map[int64]string, error) {
	itemLevel, err := r.latestByKey(ctx, "item_id")
	if err != nil {
		return nil, err
	}
	bundleLevel, err := r.latestByKey(ctx, "bundle_id")
	if err != nil {
		return nil, err
	}

	labels := make(map[int64]string, len(items))
	for _, item := range items {
		labels[item.ItemID] = domain.ResolveManager(itemLevel[item.ItemID], bundleLevel[item.BundleID])
	}
	return labels, nil
}

func (r *ManagerRepository) latestByKey(ctx context.Context, column string) (map[int64]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (%s) %s AS key, name
		FROM manager_assignments
		WHERE %s IS NOT NULL
		ORDER BY %s, start_date DESC, id DESC
	`, column, column, column, column)

	var rows []struct {
		Key  int64  `db:"key"`
		Name string `db:"name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load %s manager assignments: %w", column, err)
	}

	result := make(map[int64]string, len(rows))
	for _, row := range rows {
		result[row.Key] = row.Name
	}
	return result, nil
}
