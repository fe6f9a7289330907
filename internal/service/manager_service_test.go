package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wb-unit/backend-go/internal/domain"
)

type fakeManagerStore struct {
	assigned []domain.ManagerAssignment
}

func (f *fakeManagerStore) Assign(ctx context.Context, a domain.ManagerAssignment) error {
	f.assigned = append(f.assigned, a)
	return nil
}

func int64Ptr(v int64) *int64 { return &v }

func TestManagerAssignValidation(t *testing.T) {
	tests := []struct {
		name       string
		assignment domain.ManagerAssignment
		wantErr    string
	}{
		{
			name:       "missing name",
			assignment: domain.ManagerAssignment{ItemID: int64Ptr(100)},
			wantErr:    "name is required",
		},
		{
			name:       "blank name",
			assignment: domain.ManagerAssignment{ItemID: int64Ptr(100), Name: "   "},
			wantErr:    "name is required",
		},
		{
			name:       "no target",
			assignment: domain.ManagerAssignment{Name: "Anna"},
			wantErr:    "item_id or bundle_id is required",
		},
		{
			name:       "bad start date",
			assignment: domain.ManagerAssignment{ItemID: int64Ptr(100), Name: "Anna", StartDate: "30.08.2026"},
			wantErr:    "invalid start_date",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeManagerStore{}
			svc := NewManagerService(store)

			err := svc.Assign(context.Background(), tt.assignment)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Empty(t, store.assigned)
		})
	}
}

func TestManagerAssignStoresValidAssignments(t *testing.T) {
	store := &fakeManagerStore{}
	svc := NewManagerService(store)

	require.NoError(t, svc.Assign(context.Background(), domain.ManagerAssignment{
		ItemID: int64Ptr(100),
		Name:   "Anna",
	}))
	require.NoError(t, svc.Assign(context.Background(), domain.ManagerAssignment{
		BundleID:  int64Ptr(7),
		Name:      "Boris",
		StartDate: "2026-08-30",
	}))

	require.Len(t, store.assigned, 2)
	assert.Equal(t, "Anna", store.assigned[0].Name)
	assert.Equal(t, int64(7), *store.assigned[1].BundleID)
}
