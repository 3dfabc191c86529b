// 包 cache：邮编查询两级缓存（进程内 go-cache + 可选 Redis），同时缓存命中与未命中（404）结果
package cache

import (
	"context"
	"encoding/json"
	"time"

	"postcode-api/internal/logger"
	"postcode-api/internal/metrics"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Entry：缓存条目，Status 为上游 HTTP 状态（200 或 404）
type Entry struct {
	Status int    `json:"status"`
	Body   []byte `json:"body,omitempty"`
}

// 文档注释：两级查询缓存
// 背景：同一片段在输入过程中会被多个会话反复查询；本地缓存吸收热点，Redis 在多实例间共享。
// 约束：rc 为 nil 时仅使用本地缓存；Redis 错误只记录日志，不影响查询主流程。
type Tiered struct {
	local  *gocache.Cache
	rc     *redis.Client
	ttl    time.Duration
	negTTL time.Duration
	prefix string
}

func New(rc *redis.Client, ttl, negTTL time.Duration) *Tiered {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if negTTL <= 0 {
		negTTL = 5 * time.Minute
	}
	return &Tiered{
		local:  gocache.New(ttl, 2*ttl),
		rc:     rc,
		ttl:    ttl,
		negTTL: negTTL,
		prefix: "postcode:",
	}
}

// Key：国家码与片段组成的缓存键
func Key(country, fragment string) string { return country + ":" + fragment }

func (t *Tiered) Get(ctx context.Context, key string) (Entry, bool) {
	if v, ok := t.local.Get(key); ok {
		metrics.CacheHitsTotal.WithLabelValues("local").Inc()
		return v.(Entry), true
	}
	if t.rc != nil {
		b, err := t.rc.Get(ctx, t.prefix+key).Bytes()
		if err == nil {
			var e Entry
			if json.Unmarshal(b, &e) == nil {
				metrics.CacheHitsTotal.WithLabelValues("redis").Inc()
				t.local.Set(key, e, t.ttlFor(e))
				return e, true
			}
		} else if err != redis.Nil {
			logger.L().Debug("cache_redis_get_error", "key", key, "err", err)
		}
	}
	metrics.CacheMissesTotal.Inc()
	return Entry{}, false
}

func (t *Tiered) Set(ctx context.Context, key string, e Entry) {
	ttl := t.ttlFor(e)
	t.local.Set(key, e, ttl)
	if t.rc == nil {
		return
	}
	b, _ := json.Marshal(e)
	if err := t.rc.Set(ctx, t.prefix+key, b, ttl).Err(); err != nil {
		logger.L().Debug("cache_redis_set_error", "key", key, "err", err)
	}
}

func (t *Tiered) ttlFor(e Entry) time.Duration {
	if e.Status == 200 {
		return t.ttl
	}
	return t.negTTL
}
