// utils/metrics.go
package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// EmailMetrics counts mail send outcomes in Redis, bucketed per day, week
// and month. Buckets reset themselves through key expiry, so stats survive
// restarts and are shared across instances.
type EmailMetrics struct {
	rdb *redis.Client
}

// Metric event names
const (
	MetricCompanyOrderSent   = "company_order_sent"
	MetricCompanyOrderFailed = "company_order_failed"
	MetricCommissionSent     = "commission_sent"
	MetricCommissionFailed   = "commission_failed"
	MetricReminderSent       = "reminder_sent"
	MetricReminderFailed     = "reminder_failed"
)

// Period names accepted by Stats
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// NewEmailMetrics creates a metrics store. A nil Redis client yields a
// no-op store that only logs.
func NewEmailMetrics(rdb *redis.Client) *EmailMetrics {
	return &EmailMetrics{rdb: rdb}
}

func periodKey(period string, now time.Time) string {
	switch period {
	case PeriodWeekly:
		year, week := now.ISOWeek()
		return fmt.Sprintf("emailstats:weekly:%d-W%02d", year, week)
	case PeriodMonthly:
		return "emailstats:monthly:" + now.Format("2006-01")
	default:
		return "emailstats:daily:" + now.Format("2006-01-02")
	}
}

func periodTTL(period string) time.Duration {
	switch period {
	case PeriodWeekly:
		return 14 * 24 * time.Hour
	case PeriodMonthly:
		return 62 * 24 * time.Hour
	default:
		return 48 * time.Hour
	}
}

// Inc records one occurrence of the event in all period buckets
func (m *EmailMetrics) Inc(ctx context.Context, event string) {
	if m == nil || m.rdb == nil {
		log.Printf("Email metrics disabled, dropping event %s", event)
		return
	}

	now := time.Now()
	for _, period := range []string{PeriodDaily, PeriodWeekly, PeriodMonthly} {
		key := periodKey(period, now)
		pipe := m.rdb.Pipeline()
		pipe.HIncrBy(ctx, key, event, 1)
		pipe.Expire(ctx, key, periodTTL(period))
		if _, err := pipe.Exec(ctx); err != nil {
			log.Printf("Failed to record email metric %s: %v", event, err)
			return
		}
	}
}

// Stats returns the counters of the current bucket for the given period
func (m *EmailMetrics) Stats(ctx context.Context, period string) (map[string]string, error) {
	switch period {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
	default:
		return nil, fmt.Errorf("unknown stats period: %q", period)
	}

	if m == nil || m.rdb == nil {
		return map[string]string{}, nil
	}

	return m.rdb.HGetAll(ctx, periodKey(period, time.Now())).Result()
}
