package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
)

// managerStore persists manager assignments.
type managerStore interface {
	Assign(ctx context.Context, a domain.ManagerAssignment) error
}

// ManagerService records who runs an item or a bundle. The next ingestion
// run picks assignments up through the item -> bundle -> unset fallback.
type ManagerService struct {
	repo managerStore
}

func NewManagerService(repo managerStore) *ManagerService {
	return &ManagerService{repo: repo}
}

// Assign validates and stores one assignment. At least one of item_id and
// bundle_id must be set; an item-level assignment wins over a bundle-level
// one at read time.
func (s *ManagerService) Assign(ctx context.Context, a domain.ManagerAssignment) error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if a.ItemID == nil && a.BundleID == nil {
		return fmt.Errorf("item_id or bundle_id is required")
	}
	if a.StartDate != "" {
		if _, ok := pipeline.ParseDay(a.StartDate); !ok {
			return fmt.Errorf("invalid start_date %q", a.StartDate)
		}
	}

	if err := s.repo.Assign(ctx, a); err != nil {
		return err
	}
	log.Info().Str("name", a.Name).Msg("managers: assignment recorded")
	return nil
}
