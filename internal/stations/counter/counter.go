// Package counter tracks per-operator daily completion counts in Redis.
package counter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"factory_portal_backend/internal/tracking"
	"factory_portal_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

// Keys live for two days so yesterday's count survives midnight for the
// morning shift handover, then expires on its own.
const keyTTL = 48 * time.Hour

// Counter increments and reads the per-user, per-stage, per-day finalize
// count. A nil Redis client disables counting; reads return zero.
type Counter struct {
	rdb *redis.Client
	log *logger.Logger
}

func New(rdb *redis.Client, log *logger.Logger) *Counter {
	return &Counter{rdb: rdb, log: log}
}

// Key builds the counter key: count_<email>_<ISO date>_<STAGE CODE>.
func Key(email string, day time.Time, stage tracking.Stage) string {
	return fmt.Sprintf("count_%s_%s_%s", strings.ToLower(email), day.Format("2006-01-02"), stage.Code())
}

// Increment bumps today's counter. Best-effort: failures are logged, a
// finalize never fails because the counter is down.
func (c *Counter) Increment(ctx context.Context, email string, stage tracking.Stage) {
	if c.rdb == nil {
		return
	}

	key := Key(email, time.Now(), stage)
	pipe := c.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn("completion counter increment failed", "key", key, "error", err.Error())
	}
}

// Today reads today's count for the user and stage.
func (c *Counter) Today(ctx context.Context, email string, stage tracking.Stage) int {
	if c.rdb == nil {
		return 0
	}

	key := Key(email, time.Now(), stage)
	value, err := c.rdb.Get(ctx, key).Int()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("completion counter read failed", "key", key, "error", err.Error())
		}
		return 0
	}
	return value
}
