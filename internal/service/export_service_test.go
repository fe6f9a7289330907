package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wb-unit/backend-go/internal/storage"
)

type fakeObjectStorage struct {
	objects    []storage.ObjectInfo
	listPrefix string
}

func (f *fakeObjectStorage) ListObjects(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.listPrefix = prefix
	return f.objects, nil
}

func (f *fakeObjectStorage) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.objects = append(f.objects, storage.ObjectInfo{Key: key, Size: int64(len(data))})
	return nil
}

func TestListExportsWithoutStorage(t *testing.T) {
	svc := NewExportService(nil, nil)

	objects, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	assert.Nil(t, objects)
}

func TestListExportsReturnsLedgerWorkbooks(t *testing.T) {
	store := &fakeObjectStorage{objects: []storage.ObjectInfo{
		{Key: "ledger_2026-08-01_2026-08-07.xlsx", Size: 2048},
		{Key: "ledger_2026-08-08_2026-08-14.xlsx", Size: 4096},
	}}
	svc := NewExportService(nil, store)

	objects, err := svc.ListExports(context.Background())
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "ledger_", store.listPrefix)
	assert.Equal(t, "ledger_2026-08-01_2026-08-07.xlsx", objects[0].Key)
}
