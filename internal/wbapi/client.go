package wbapi

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Default endpoint hosts. Each API family lives on its own host.
const (
	contentAPI   = "https://content-api.wildberries.ru"
	analyticsAPI = "https://seller-analytics-api.wildberries.ru"
	advertAPI    = "https://advert-api.wildberries.ru"
	commonAPI    = "https://common-api.wildberries.ru"
	pricesAPI    = "https://discounts-prices-api.wildberries.ru"
)

// Client talks to the marketplace seller APIs. One API key authorizes all
// endpoint families.
type Client struct {
	http *resty.Client

	contentURL   string
	analyticsURL string
	advertURL    string
	commonURL    string
	pricesURL    string
}

// Option overrides client defaults, mainly endpoint hosts in tests.
type Option func(*Client)

// WithBaseURL points every endpoint family at the same host, used with
// httptest servers.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.contentURL = url
		c.analyticsURL = url
		c.advertURL = url
		c.commonURL = url
		c.pricesURL = url
	}
}

func NewClient(apiKey string, timeout time.Duration, opts ...Option) *Client {
	httpClient := resty.New()
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	httpClient.SetHeader("Authorization", apiKey)
	httpClient.SetHeader("Content-Type", "application/json")

	c := &Client{
		http:         httpClient,
		contentURL:   contentAPI,
		analyticsURL: analyticsAPI,
		advertURL:    advertAPI,
		commonURL:    commonAPI,
		pricesURL:    pricesAPI,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// statusError turns a non-2xx response into an error carrying the status
// code, so callers can tell a rate-limit rejection from a broken payload.
func statusError(resp *resty.Response, what string) error {
	return fmt.Errorf("%s: unexpected status %d: %s", what, resp.StatusCode(), resp.Status())
}
