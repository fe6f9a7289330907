package wbapi

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/wb-unit/backend-go/internal/pipeline"
)

type commissionResponse struct {
	Report []struct {
		SubjectName  string  `json:"subjectName"`
		KgvpSupplier float64 `json:"kgvpSupplier"`
	} `json:"report"`
}

// FetchCommissions pulls the marketplace commission tariff and keys it by
// normalized category name so lookups survive case and whitespace drift in
// catalog data.
func (c *Client) FetchCommissions(ctx context.Context) (pipeline.CommissionTable, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("locale", "ru").
		Get(c.commonURL + "/api/v1/tariffs/commission")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp, "fetch commission tariffs")
	}

	var payload commissionResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, err
	}

	table := make(pipeline.CommissionTable, len(payload.Report))
	for _, entry := range payload.Report {
		table[pipeline.NormalizeCategory(entry.SubjectName)] = entry.KgvpSupplier
	}
	log.Info().Int("categories", len(table)).Msg("wbapi: commission table fetched")
	return table, nil
}
