package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
	"github.com/wb-unit/backend-go/internal/repository"
)

// BatchService manages purchase batches.
type BatchService struct {
	repo *repository.BatchRepository
}

func NewBatchService(repo *repository.BatchRepository) *BatchService {
	return &BatchService{repo: repo}
}

// Create opens a new batch for a vendor code, closing any batch still
// active for it.
func (s *BatchService) Create(ctx context.Context, batch *domain.PurchaseBatch) error {
	if batch.VendorCode == "" {
		return fmt.Errorf("vendor_code is required")
	}
	if batch.QuantityBought <= 0 {
		return fmt.Errorf("quantity_bought must be positive")
	}
	if batch.StartDate.IsZero() {
		batch.StartDate = pipeline.Midnight(time.Now())
	}
	return s.repo.Create(ctx, batch)
}

func (s *BatchService) List(ctx context.Context, vendorCode string) ([]domain.PurchaseBatch, error) {
	return s.repo.List(ctx, vendorCode)
}

func (s *BatchService) Update(ctx context.Context, batch *domain.PurchaseBatch) error {
	if batch.ID == 0 {
		return fmt.Errorf("batch id is required")
	}
	return s.repo.Update(ctx, batch)
}

func (s *BatchService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// CheckDeactivations closes batches whose sold counters already reached
// their bought quantity.
func (s *BatchService) CheckDeactivations(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExhausted(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("batches", n).Msg("batches: deactivated exhausted")
	}
	return n, nil
}
