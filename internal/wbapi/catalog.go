package wbapi

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
)

const catalogPageSize = 100

type cardsRequest struct {
	Settings cardsSettings `json:"settings"`
}

type cardsSettings struct {
	Cursor map[string]interface{} `json:"cursor"`
	Filter map[string]interface{} `json:"filter"`
}

type cardsResponse struct {
	Cards []struct {
		NMID        int64  `json:"nmID"`
		IMTID       int64  `json:"imtID"`
		VendorCode  string `json:"vendorCode"`
		Brand       string `json:"brand"`
		SubjectName string `json:"subjectName"`
	} `json:"cards"`
	Cursor struct {
		UpdatedAt string `json:"updatedAt"`
		NMID      int64  `json:"nmID"`
		Total     int    `json:"total"`
	} `json:"cursor"`
}

// FetchCatalog pages through the whole product catalog using the content
// API's opaque cursor.
func (c *Client) FetchCatalog(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	cursor := map[string]interface{}{"limit": catalogPageSize}

	for {
		req := cardsRequest{
			Settings: cardsSettings{
				Cursor: cursor,
				Filter: map[string]interface{}{"withPhoto": -1},
			},
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			Post(c.contentURL + "/content/v2/get/cards/list")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, statusError(resp, "fetch catalog")
		}

		var page cardsResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, err
		}

		for _, card := range page.Cards {
			if card.NMID == 0 {
				continue
			}
			items = append(items, domain.Item{
				ItemID:     card.NMID,
				BundleID:   card.IMTID,
				VendorCode: card.VendorCode,
				Brand:      card.Brand,
				Category:   card.SubjectName,
			})
		}

		if page.Cursor.Total < catalogPageSize {
			break
		}
		cursor = map[string]interface{}{
			"limit":     catalogPageSize,
			"updatedAt": page.Cursor.UpdatedAt,
			"nmID":      page.Cursor.NMID,
		}
	}

	log.Info().Int("count", len(items)).Msg("wbapi: catalog fetched")
	return items, nil
}

type goodsResponse struct {
	Data struct {
		ListGoods []struct {
			NMID  int64 `json:"nmID"`
			Sizes []struct {
				DiscountedPrice float64 `json:"discountedPrice"`
			} `json:"sizes"`
		} `json:"listGoods"`
	} `json:"data"`
}

const pricesPageSize = 1000

// FetchPrices pages through the discounted-price listing. The first size's
// discounted price represents the item; sizes share pricing on this account.
func (c *Client) FetchPrices(ctx context.Context) (map[int64]float64, error) {
	prices := make(map[int64]float64)
	offset := 0

	for {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("limit", strconv.Itoa(pricesPageSize)).
			SetQueryParam("offset", strconv.Itoa(offset)).
			Get(c.pricesURL + "/api/v2/list/goods/filter")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, statusError(resp, "fetch prices")
		}

		var page goodsResponse
		if err := json.Unmarshal(resp.Body(), &page); err != nil {
			return nil, err
		}
		if len(page.Data.ListGoods) == 0 {
			break
		}

		for _, good := range page.Data.ListGoods {
			if len(good.Sizes) > 0 {
				prices[good.NMID] = good.Sizes[0].DiscountedPrice
			}
		}
		offset += pricesPageSize
	}

	log.Info().Int("count", len(prices)).Msg("wbapi: prices fetched")
	return prices, nil
}
