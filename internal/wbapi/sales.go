package wbapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
)

type salesRequest struct {
	NMIDs  []int64 `json:"nmIDs"`
	Period struct {
		Begin string `json:"begin"`
		End   string `json:"end"`
	} `json:"period"`
	Timezone         string `json:"timezone"`
	AggregationLevel string `json:"aggregationLevel"`
}

type salesResponse struct {
	Data []struct {
		NMID    int64 `json:"nmID"`
		History []struct {
			Date                  string  `json:"dt"`
			OpenCardCount         int     `json:"openCardCount"`
			AddToCartCount        int     `json:"addToCartCount"`
			OrdersCount           int     `json:"ordersCount"`
			OrdersSumRub          float64 `json:"ordersSumRub"`
			BuyoutsCount          int     `json:"buyoutsCount"`
			BuyoutsSumRub         float64 `json:"buyoutsSumRub"`
			BuyoutPercent         float64 `json:"buyoutPercent"`
			AddToCartConversion   float64 `json:"addToCartConversion"`
			CartToOrderConversion float64 `json:"cartToOrderConversion"`
		} `json:"history"`
	} `json:"data"`
}

// FetchSales requests per-day sales history for up to 20 item ids. A day
// value the source failed to render parseably is replaced with the range
// start and logged; one bad record never fails the batch.
func (c *Client) FetchSales(ctx context.Context, itemIDs []int64, from, to time.Time) ([]domain.SalesRecord, error) {
	req := salesRequest{
		NMIDs:            itemIDs,
		Timezone:         "Europe/Moscow",
		AggregationLevel: "day",
	}
	req.Period.Begin = from.Format("2006-01-02")
	req.Period.End = to.Format("2006-01-02")

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.analyticsURL + "/api/v2/nm-report/detail/history")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp, "fetch sales history")
	}

	var payload salesResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, err
	}

	var records []domain.SalesRecord
	for _, entry := range payload.Data {
		for _, day := range entry.History {
			date, ok := pipeline.ParseDay(day.Date)
			if !ok {
				log.Warn().Str("raw", day.Date).Int64("item_id", entry.NMID).
					Msg("wbapi: unparseable sales date, substituting range start")
				date = pipeline.Midnight(from)
			}
			records = append(records, domain.SalesRecord{
				ItemID:                entry.NMID,
				Date:                  date,
				OpenedCount:           day.OpenCardCount,
				AddToCartCount:        day.AddToCartCount,
				OrdersCount:           day.OrdersCount,
				OrdersRevenue:         day.OrdersSumRub,
				BuyoutCount:           day.BuyoutsCount,
				BuyoutRevenue:         day.BuyoutsSumRub,
				BuyoutPercent:         day.BuyoutPercent,
				AddToCartConversion:   day.AddToCartConversion,
				CartToOrderConversion: day.CartToOrderConversion,
			})
		}
	}

	return records, nil
}
