package wbapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCommissionsNormalizesCategories(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tariffs/commission", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"report": []map[string]interface{}{
				{"subjectName": "Обувь ", "kgvpSupplier": 10},
				{"subjectName": "СМАРТФОНЫ", "kgvpSupplier": 18.5},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", 5*time.Second, WithBaseURL(srv.URL))
	table, err := client.FetchCommissions(context.Background())
	require.NoError(t, err)

	percent, ok := table.Lookup("обувь")
	require.True(t, ok)
	assert.Equal(t, 10.0, percent)

	percent, ok = table.Lookup("Смартфоны")
	require.True(t, ok)
	assert.Equal(t, 18.5, percent)
}

func TestFetchCatalogPagesThroughCursor(t *testing.T) {
	page := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/v2/get/cards/list", r.URL.Path)
		page++

		cards := []map[string]interface{}{}
		total := 0
		if page == 1 {
			for i := 0; i < 100; i++ {
				cards = append(cards, map[string]interface{}{
					"nmID":        i + 1,
					"imtID":       1,
					"vendorCode":  "SKU",
					"brand":       "Acme",
					"subjectName": "Обувь",
				})
			}
			total = 100
		} else {
			cards = append(cards, map[string]interface{}{
				"nmID":        101,
				"imtID":       2,
				"vendorCode":  "SKU-101",
				"brand":       "Acme",
				"subjectName": "Обувь",
			})
			total = 1
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"cards": cards,
			"cursor": map[string]interface{}{
				"updatedAt": "2026-08-30T00:00:00Z",
				"nmID":      100,
				"total":     total,
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", 5*time.Second, WithBaseURL(srv.URL))
	items, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, page)
	require.Len(t, items, 101)
	assert.Equal(t, int64(101), items[100].ItemID)
	assert.Equal(t, int64(2), items[100].BundleID)
	assert.Equal(t, "Обувь", items[100].Category)
}

func TestFetchStatusErrorsSurfaceStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient("test-key", 5*time.Second, WithBaseURL(srv.URL))
	_, err := client.FetchCommissions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
