package wbapi

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/domain"
	"github.com/wb-unit/backend-go/internal/pipeline"
)

type campaignsResponse struct {
	Adverts []struct {
		AdvertList []struct {
			AdvertID int64 `json:"advertId"`
		} `json:"advert_list"`
	} `json:"adverts"`
}

type fullStatsRequest struct {
	ID    int64    `json:"id"`
	Dates []string `json:"dates"`
}

type fullStatsCampaign struct {
	Days []struct {
		Apps []struct {
			NM []struct {
				NMID     int64   `json:"nmId"`
				Views    float64 `json:"views"`
				Clicks   float64 `json:"clicks"`
				Sum      float64 `json:"sum"`
				ATBs     float64 `json:"atbs"`
				Orders   float64 `json:"orders"`
				Shks     float64 `json:"shks"`
				SumPrice float64 `json:"sum_price"`
			} `json:"nm"`
		} `json:"apps"`
	} `json:"days"`
}

// FetchAdMetrics lists all ad campaigns, pulls their full stats for the
// day and sums the per-item figures across campaigns. Derived rates (CTR,
// CPC, CR) are computed after summation, guarding every division.
func (c *Client) FetchAdMetrics(ctx context.Context, date time.Time) (map[int64]domain.AdMetrics, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(c.advertURL + "/adv/v1/promotion/count")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp, "list ad campaigns")
	}

	var campaigns campaignsResponse
	if err := json.Unmarshal(resp.Body(), &campaigns); err != nil {
		return nil, err
	}

	var body []fullStatsRequest
	day := pipeline.Midnight(date).Format("2006-01-02")
	for _, group := range campaigns.Adverts {
		for _, advert := range group.AdvertList {
			body = append(body, fullStatsRequest{ID: advert.AdvertID, Dates: []string{day}})
		}
	}
	if len(body) == 0 {
		return map[int64]domain.AdMetrics{}, nil
	}

	resp, err = c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.advertURL + "/adv/v2/fullstats")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp, "fetch ad stats")
	}

	var stats []fullStatsCampaign
	if err := json.Unmarshal(resp.Body(), &stats); err != nil {
		return nil, err
	}

	aggregated := make(map[int64]domain.AdMetrics)
	for _, campaign := range stats {
		for _, d := range campaign.Days {
			for _, app := range d.Apps {
				for _, item := range app.NM {
					m := aggregated[item.NMID]
					m.ItemID = item.NMID
					m.Views += int(item.Views)
					m.Clicks += int(item.Clicks)
					m.Spend += item.Sum
					m.CartAdds += int(item.ATBs)
					m.Orders += int(item.Orders)
					m.Shipped += int(item.Shks)
					m.Revenue += item.SumPrice
					aggregated[item.NMID] = m
				}
			}
		}
	}

	for id, m := range aggregated {
		if m.Views > 0 {
			m.CTR = pipeline.Round2(float64(m.Clicks) / float64(m.Views) * 100)
		}
		if m.Clicks > 0 {
			m.CPC = pipeline.Round2(m.Spend / float64(m.Clicks))
			m.CR = pipeline.Round2(float64(m.Orders) / float64(m.Clicks) * 100)
		}
		aggregated[id] = m
	}

	log.Info().Int("campaigns", len(body)).Int("items", len(aggregated)).Msg("wbapi: ad metrics fetched")
	return aggregated, nil
}
