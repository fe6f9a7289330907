package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wb-unit/backend-go/internal/config"
	"github.com/wb-unit/backend-go/internal/domain"
)

const (
	reportKeyPrefix = "report"
	scanBatchSize   = 100
)

// ReportCache caches the aggregation endpoints' responses. The ledger only
// changes when an ingestion run lands, so a short TTL plus an invalidate
// after each run keeps readers fresh without re-aggregating per request.
type ReportCache interface {
	GetRange(ctx context.Context, start, end string) (*domain.RangeReport, bool, error)
	SetRange(ctx context.Context, report *domain.RangeReport) error
	GetVariants(ctx context.Context, bundleID int64, start, end string) ([]domain.VariantReport, bool, error)
	SetVariants(ctx context.Context, bundleID int64, start, end string, variants []domain.VariantReport) error
	GetDaily(ctx context.Context, bundleID int64, start, end string) ([]domain.DailyReport, bool, error)
	SetDaily(ctx context.Context, bundleID int64, start, end string, days []domain.DailyReport) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisReportCache{client: client, ttl: ttl}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) GetRange(ctx context.Context, start, end string) (*domain.RangeReport, bool, error) {
	var report domain.RangeReport
	ok, err := c.get(ctx, rangeKey(start, end), &report)
	if !ok || err != nil {
		return nil, false, err
	}
	return &report, true, nil
}

func (c *redisReportCache) SetRange(ctx context.Context, report *domain.RangeReport) error {
	return c.set(ctx, rangeKey(report.StartDate, report.EndDate), report)
}

func (c *redisReportCache) GetVariants(ctx context.Context, bundleID int64, start, end string) ([]domain.VariantReport, bool, error) {
	var variants []domain.VariantReport
	ok, err := c.get(ctx, bundleKey("variants", bundleID, start, end), &variants)
	if !ok || err != nil {
		return nil, false, err
	}
	return variants, true, nil
}

func (c *redisReportCache) SetVariants(ctx context.Context, bundleID int64, start, end string, variants []domain.VariantReport) error {
	return c.set(ctx, bundleKey("variants", bundleID, start, end), variants)
}

func (c *redisReportCache) GetDaily(ctx context.Context, bundleID int64, start, end string) ([]domain.DailyReport, bool, error) {
	var days []domain.DailyReport
	ok, err := c.get(ctx, bundleKey("daily", bundleID, start, end), &days)
	if !ok || err != nil {
		return nil, false, err
	}
	return days, true, nil
}

func (c *redisReportCache) SetDaily(ctx context.Context, bundleID int64, start, end string, days []domain.DailyReport) error {
	return c.set(ctx, bundleKey("daily", bundleID, start, end), days)
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, reportKeyPrefix, scanBatchSize)
}

func (c *redisReportCache) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("decode cached report: %w", err)
	}
	return true, nil
}

func (c *redisReportCache) set(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cached report: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (n *noopReportCache) GetRange(ctx context.Context, start, end string) (*domain.RangeReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetRange(ctx context.Context, report *domain.RangeReport) error {
	return nil
}

func (n *noopReportCache) GetVariants(ctx context.Context, bundleID int64, start, end string) ([]domain.VariantReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetVariants(ctx context.Context, bundleID int64, start, end string, variants []domain.VariantReport) error {
	return nil
}

func (n *noopReportCache) GetDaily(ctx context.Context, bundleID int64, start, end string) ([]domain.DailyReport, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) SetDaily(ctx context.Context, bundleID int64, start, end string, days []domain.DailyReport) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func rangeKey(start, end string) string {
	return hashKey(reportKeyPrefix+":range", start+"|"+end)
}

func bundleKey(kind string, bundleID int64, start, end string) string {
	return hashKey(fmt.Sprintf("%s:%s:%d", reportKeyPrefix, kind, bundleID), start+"|"+end)
}

func hashKey(prefix, raw string) string {
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}
